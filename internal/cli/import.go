package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"crm_backend/internal/leads/imports"
	"crm_backend/internal/leads/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type importOptions struct {
	actor    string
	leadType string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import leads from a CSV or JSON file",
		Long: `Import leads from a CSV or JSON file into the tenant.

Rows are deduplicated by phone against existing leads and within the file.
Each created lead is assigned by load-based routing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.actor, "actor", "", "user id recorded as the importer")
	cmd.Flags().StringVar(&opts.leadType, "lead-type", "", "lead type for rows without one")

	return cmd
}

func runImport(cmd *cobra.Command, rootOpts *RootOptions, opts *importOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	upload := imports.Upload{
		FileName: filepath.Base(path),
		Data:     data,
	}
	if opts.actor != "" {
		actorID, err := uuid.Parse(opts.actor)
		if err != nil {
			return fmt.Errorf("invalid --actor %q: %w", opts.actor, err)
		}
		upload.ActorID = actorID
	}
	if lt := strings.TrimSpace(opts.leadType); lt != "" {
		upload.DefaultLeadType = &lt
	}

	return rootOpts.withBackend(cmd.Context(), func(b *Backend) error {
		sub, err := b.Imports.Submit(cmd.Context(), rootOpts.tenantID, upload)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if rootOpts.Format == "json" {
			return writeJSON(out, transport.ImportSubmissionResponse{
				Job:    transport.ToImportJobResponse(sub.Job),
				Queued: sub.Queued,
				Result: sub.Result,
			})
		}
		if sub.Queued {
			fmt.Fprintf(out, "queued job %s\n", sub.Job.ID)
			return nil
		}
		if sub.Result == nil {
			fmt.Fprintf(out, "job %s %s\n", sub.Job.ID, sub.Job.Status)
			return nil
		}
		fmt.Fprintf(out, "created %d, skipped %d, errors %d\n",
			sub.Result.CreatedCount, sub.Result.SkippedCount, len(sub.Result.Errors))
		for _, rowErr := range sub.Result.Errors {
			fmt.Fprintf(out, "  row %d: %s\n", rowErr.Row, rowErr.Message)
		}
		return nil
	})
}
