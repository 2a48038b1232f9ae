package cli

import (
	"fmt"
	"strconv"

	"crm_backend/internal/leads/domain"
	"crm_backend/internal/leads/transport"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewRoutingCommand creates the routing command group.
func NewRoutingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routing",
		Short: "Administer location routing",
	}

	cmd.AddCommand(
		configCommand(rootOpts, "show", "Show the routing configuration", cobra.NoArgs,
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				return b.Routing.Get(cmd.Context(), rootOpts.tenantID)
			}),
		configCommand(rootOpts, "set-active <true|false>", "Enable or disable location routing", cobra.ExactArgs(1),
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				active, err := strconv.ParseBool(args[0])
				if err != nil {
					return domain.RoutingConfig{}, fmt.Errorf("invalid value %q: %w", args[0], err)
				}
				return b.Routing.SetActive(cmd.Context(), rootOpts.tenantID, active)
			}),
		configCommand(rootOpts, "add-location <city>", "Add a routed city", cobra.ExactArgs(1),
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				return b.Routing.AddLocation(cmd.Context(), rootOpts.tenantID, args[0])
			}),
		configCommand(rootOpts, "remove-location <city>", "Remove a routed city", cobra.ExactArgs(1),
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				return b.Routing.RemoveLocation(cmd.Context(), rootOpts.tenantID, args[0])
			}),
		configCommand(rootOpts, "add-user <user-id>", "Add an agent to the rotation", cobra.ExactArgs(1),
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				userID, err := parseUserID(args[0])
				if err != nil {
					return domain.RoutingConfig{}, err
				}
				return b.Routing.AddUser(cmd.Context(), rootOpts.tenantID, userID)
			}),
		configCommand(rootOpts, "remove-user <user-id>", "Remove an agent from the rotation", cobra.ExactArgs(1),
			func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error) {
				userID, err := parseUserID(args[0])
				if err != nil {
					return domain.RoutingConfig{}, err
				}
				return b.Routing.RemoveUser(cmd.Context(), rootOpts.tenantID, userID)
			}),
		newNextUserCommand(rootOpts),
	)

	return cmd
}

type configFunc func(cmd *cobra.Command, b *Backend, args []string) (domain.RoutingConfig, error)

func configCommand(rootOpts *RootOptions, use, short string, args cobra.PositionalArgs, fn configFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b *Backend) error {
				cfg, err := fn(cmd, b, args)
				if err != nil {
					return err
				}
				return writeRoutingConfig(cmd.OutOrStdout(), rootOpts.Format, transport.ToRoutingConfigResponse(cfg))
			})
		},
	}
}

func newNextUserCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next-user",
		Short: "Show the agent location routing would pick next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b *Backend) error {
				user, err := b.Routing.NextUser(cmd.Context(), rootOpts.tenantID)
				if err != nil {
					return err
				}
				return writeRoutedUser(cmd.OutOrStdout(), rootOpts.Format, transport.ToRoutedUserResponse(user))
			})
		},
	}
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q: %w", raw, err)
	}
	return id, nil
}
