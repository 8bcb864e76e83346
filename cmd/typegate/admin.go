package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/typegate/internal/access"
	"github.com/verte-zerg/typegate/internal/license"
	"github.com/verte-zerg/typegate/internal/report"
)

func newTopicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List assessment topics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			return report.RenderTopics(out, report.TerminalOptions(out))
		},
	}
}

func newCodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codes",
		Short: "Manage license codes",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List license codes",
		Args:  cobra.NoArgs,
		RunE:  runCodesListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Generate a new license code",
		Args:  cobra.NoArgs,
		RunE:  runCodesGenerateCmd,
	})
	return cmd
}

func runCodesListCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	codes, err := license.New(e.store, e.log).List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list codes: %w", err)
	}
	out := cmd.OutOrStdout()
	return report.RenderCodes(out, codes, report.TerminalOptions(out))
}

func runCodesGenerateCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	lc, err := license.New(e.store, e.log).Generate(ctx, e.resolveClient(ctx))
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}
	return report.RenderGenerated(cmd.OutOrStdout(), lc)
}

func newClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage authorized clients",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List authorized clients",
		Args:  cobra.NoArgs,
		RunE:  runClientsListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "ban <n>",
		Short: "Suspend the client at position n (see: typegate clients list)",
		Args:  cobra.ExactArgs(1),
		RunE:  runClientsBanCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "unban <n>",
		Short: "Restore the client at position n",
		Args:  cobra.ExactArgs(1),
		RunE:  runClientsUnbanCmd,
	})
	return cmd
}

func runClientsListCmd(cmd *cobra.Command, _ []string) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	entries, err := access.New(e.store, e.log).List(ctx, e.resolveClient(ctx))
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	out := cmd.OutOrStdout()
	return report.RenderClients(out, entries, report.TerminalOptions(out))
}

func runClientsBanCmd(cmd *cobra.Command, args []string) error {
	index, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	self, err := access.New(e.store, e.log).Ban(ctx, index, e.resolveClient(ctx))
	if err != nil {
		return fmt.Errorf("failed to ban client: %w", err)
	}
	msg := fmt.Sprintf("Client #%d suspended.", index+1)
	if self {
		msg += " This was your own client; enter a new license code to continue."
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
	return err
}

func runClientsUnbanCmd(cmd *cobra.Command, args []string) error {
	index, err := parsePosition(args[0])
	if err != nil {
		return err
	}
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if err := access.New(e.store, e.log).Unban(cmd.Context(), index); err != nil {
		return fmt.Errorf("failed to unban client: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Client #%d restored.\n", index+1)
	return err
}

// parsePosition converts a 1-based list position to an index.
func parsePosition(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: expected a number from clients list", arg)
	}
	return n - 1, nil
}
