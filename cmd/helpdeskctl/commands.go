package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/app"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/service"
)

type buildFunc func(ctx context.Context) (*app.Container, error)

func newRootCmd(build buildFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "helpdeskctl",
		Short:         "Operator CLI for the helpdesk records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(newSeedCmd(build))
	root.AddCommand(newTicketsCmd(build))
	root.AddCommand(newMetricsCmd(build))
	root.AddCommand(newLoginCmd(build))
	return root
}

// withContainer builds the services for one command run and releases them after.
func withContainer(cmd *cobra.Command, build buildFunc, fn func(ctx context.Context, c *app.Container) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := build(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(ctx, c)
}

func newSeedCmd(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Write the directory and demo tickets when absent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, build, func(ctx context.Context, c *app.Container) error {
				if err := c.Seed(ctx); err != nil {
					return err
				}
				tickets, err := c.Tickets.ListAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded: %d tickets\n", len(tickets))
				return nil
			})
		},
	}
}

func newTicketsCmd(build buildFunc) *cobra.Command {
	tickets := &cobra.Command{Use: "tickets", Short: "Inspect tickets"}

	var as, status, search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List tickets visible to a directory user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, build, func(ctx context.Context, c *app.Container) error {
				if err := c.Seed(ctx); err != nil {
					return err
				}
				user, err := c.Directory.FindByEmail(ctx, as)
				if err != nil {
					return err
				}
				// Listing must not replace the persisted session.
				session := &domain.Session{User: *user}
				filter := service.TicketFilter{
					Status: domain.TicketStatus(status),
					Search: search,
					All:    session.Role().IsStaff(),
				}
				items, err := c.Tickets.List(ctx, session, filter)
				if err != nil {
					return err
				}
				return printTickets(cmd.OutOrStdout(), items)
			})
		},
	}
	list.Flags().StringVar(&as, "as", "admin1@example.com", "email of the user to list as")
	list.Flags().StringVar(&status, "status", "", "only tickets with this status")
	list.Flags().StringVar(&search, "search", "", "case-insensitive match on id, title or description")
	tickets.AddCommand(list)
	return tickets
}

func printTickets(out io.Writer, tickets []domain.Ticket) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDEPARTMENT\tASSIGNEE\tTITLE")
	for _, t := range tickets {
		assignee := "-"
		if t.AssignedTo != nil {
			assignee = t.AssignedTo.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Priority, t.Department, assignee, t.Title)
	}
	return w.Flush()
}

func newMetricsCmd(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print the admin dashboard summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd, build, func(ctx context.Context, c *app.Container) error {
				if err := c.Seed(ctx); err != nil {
					return err
				}
				report, err := c.Reports.Snapshot(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
}

func newLoginCmd(build buildFunc) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Start a session and print its bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd, build, func(ctx context.Context, c *app.Container) error {
				if err := c.Seed(ctx); err != nil {
					return err
				}
				var override *domain.Role
				if role != "" {
					r := domain.Role(role)
					override = &r
				}
				session, err := c.Directory.Authenticate(ctx, args[0], override)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n%s\n", session.User.Name, session.Role(), session.Token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "override the session role (customer, agent, admin)")
	return cmd
}
