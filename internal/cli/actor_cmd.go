package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/scanflow/internal/app"
	"github.com/alexanderramin/scanflow/internal/cli/formatter"
	"github.com/alexanderramin/scanflow/internal/domain"
	"github.com/alexanderramin/scanflow/internal/repository"
)

func newActorCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actor",
		Short: "Manage actors and their roles",
	}
	cmd.AddCommand(
		newActorListCmd(a),
		newActorShowCmd(a),
		newActorGrantCmd(a),
		newActorRevokeCmd(a),
		newActorHistoryCmd(a),
	)
	return cmd
}

// parseRole accepts "coordinator" or any stage key or label.
func parseRole(a *App, input string) (domain.Role, error) {
	if input == string(domain.RoleCoordinator) {
		return domain.RoleCoordinator, nil
	}
	stage, ok := a.Graph.Lookup(input)
	if !ok {
		return "", fmt.Errorf("%w: %q", app.ErrUnknownRole, input)
	}
	return domain.StageRole(stage), nil
}

func newActorListCmd(a *App) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered actors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			var (
				actors []*domain.Actor
				err    error
			)
			if role != "" {
				r, perr := parseRole(a, role)
				if perr != nil {
					return perr
				}
				actors, err = a.Actors.ListByRole(ctx, r)
			} else {
				actors, err = a.Actors.List(ctx)
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatActors(actors, a.Graph))
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "Only actors holding this role")

	return cmd
}

func newActorShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show [ID]",
		Short: "Show an actor and the roles in effect (default: the acting actor)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			id := a.actorID(cmd)
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("actor id is required")
			}

			actor, err := a.Actors.Get(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				actor, err = &domain.Actor{ID: id}, nil
			}
			if err != nil {
				return err
			}
			roles, err := a.Gate.Roles(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatActor(actor, roles, a.Graph))
			return nil
		},
	}
}

// authorizeRoleChange lets actors manage their own stage roles; everything
// else needs a coordinator.
func authorizeRoleChange(cmd *cobra.Command, a *App, target string, role domain.Role) error {
	actor, err := a.requireActor(cmd)
	if err != nil {
		return err
	}
	if actor == target && role != domain.RoleCoordinator {
		return nil
	}
	return a.Gate.CanIntake(commandContext(cmd), actor)
}

func newActorGrantCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "grant ID ROLE",
		Short: "Grant a role (a stage or coordinator)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(a, args[1])
			if err != nil {
				return err
			}
			if err := authorizeRoleChange(cmd, a, args[0], role); err != nil {
				return err
			}
			added, err := a.Actors.GrantRole(commandContext(cmd), args[0], role)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			name := formatter.RoleNames([]domain.Role{role}, a.Graph)
			if !added {
				fmt.Fprintf(out, "%s already holds %s\n", args[0], name)
				return nil
			}
			fmt.Fprintf(out, "%s %s to %s\n", formatter.StyleGreen.Render("Granted"), name, args[0])
			return nil
		},
	}
}

func newActorRevokeCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke ID ROLE",
		Short: "Revoke a role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := parseRole(a, args[1])
			if err != nil {
				return err
			}
			if err := authorizeRoleChange(cmd, a, args[0], role); err != nil {
				return err
			}
			removed, err := a.Actors.RevokeRole(commandContext(cmd), args[0], role)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			name := formatter.RoleNames([]domain.Role{role}, a.Graph)
			if !removed {
				fmt.Fprintf(out, "%s does not hold %s\n", args[0], name)
				return nil
			}
			fmt.Fprintf(out, "%s %s from %s\n", formatter.StyleYellow.Render("Revoked"), name, args[0])
			return nil
		},
	}
}

func newActorHistoryCmd(a *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "Show the task events recorded for an actor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.actorID(cmd)
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("actor id is required")
			}
			events, err := a.Actors.History(commandContext(cmd), id, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, formatter.Dim("No events."))
				return nil
			}
			fmt.Fprint(out, formatter.FormatEvents(events, a.Graph, a.now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of events")

	return cmd
}
