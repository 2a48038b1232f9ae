// Package cli implements leadctl, the operator command line for lead imports
// and location routing.
package cli

import (
	"context"
	"fmt"
	"slices"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/imports"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// ImportService runs bulk imports.
type ImportService interface {
	Submit(ctx context.Context, tenantID uuid.UUID, upload imports.Upload) (imports.Submission, error)
}

// RoutingService administers the location routing document.
type RoutingService interface {
	Get(ctx context.Context, tenantID uuid.UUID) (domain.RoutingConfig, error)
	SetActive(ctx context.Context, tenantID uuid.UUID, active bool) (domain.RoutingConfig, error)
	AddLocation(ctx context.Context, tenantID uuid.UUID, city string) (domain.RoutingConfig, error)
	RemoveLocation(ctx context.Context, tenantID uuid.UUID, city string) (domain.RoutingConfig, error)
	AddUser(ctx context.Context, tenantID, userID uuid.UUID) (domain.RoutingConfig, error)
	RemoveUser(ctx context.Context, tenantID, userID uuid.UUID) (domain.RoutingConfig, error)
	NextUser(ctx context.Context, tenantID uuid.UUID) (domain.RoutedUser, error)
}

// Backend is what the commands operate on.
type Backend struct {
	Imports ImportService
	Routing RoutingService
}

// Opener connects the backend. The returned func releases it.
type Opener func(ctx context.Context) (*Backend, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Tenant string
	Format string

	tenantID uuid.UUID
	open     Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the leadctl root command.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "leadctl",
		Short:         "Operate the CRM lead engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			id, err := uuid.Parse(opts.Tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant %q: %w", opts.Tenant, err)
			}
			opts.tenantID = id
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant (organization) id")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	_ = cmd.MarkPersistentFlagRequired("tenant")

	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewRoutingCommand(opts))

	return cmd
}

// withBackend opens the backend for the duration of fn.
func (o *RootOptions) withBackend(ctx context.Context, fn func(*Backend) error) error {
	backend, closeFn, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(backend)
}
