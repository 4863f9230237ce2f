package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra"
	"github.com/fd1az/debt-rebalancer/business/rebalancing/infra/sqlite"
)

var resultsFlags struct {
	limit   int
	jsonOut bool
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect stored optimization results",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored results, newest first",
	Args:  cobra.NoArgs,
	RunE: withStore(func(cmd *cobra.Command, store *sqlite.Store, args []string) error {
		summaries, err := store.List(cmd.Context(), resultsFlags.limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tPAIR\tMODE\tOK\tREBALANCES\tNET SAVINGS\tANNUALIZED")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%s\t%s\n",
				s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.Pair, s.Mode, s.Success,
				s.RebalanceCount, s.NetSavings.StringFixed(6), s.AnnualizedNetSavings.StringFixed(6))
		}
		return w.Flush()
	}),
}

var resultsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one stored result",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store *sqlite.Store, args []string) error {
		result, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if resultsFlags.jsonOut {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		return infra.NewConsoleReporterTo(cmd.OutOrStdout()).Report(cmd.Context(), result)
	}),
}

var resultsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one stored result",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(cmd *cobra.Command, store *sqlite.Store, args []string) error {
		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	}),
}

func init() {
	resultsListCmd.Flags().IntVar(&resultsFlags.limit, "limit", 20, "maximum results, 0 for all")
	resultsGetCmd.Flags().BoolVar(&resultsFlags.jsonOut, "json", false, "print as JSON")

	resultsCmd.AddCommand(resultsListCmd, resultsGetCmd, resultsDeleteCmd)
}

func withStore(fn func(cmd *cobra.Command, store *sqlite.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := loadSession()
		if err != nil {
			return err
		}
		defer s.close()

		if !s.cfg.Storage.Enabled {
			return fmt.Errorf("storage is disabled")
		}
		store, err := sqlite.Open(ctx, s.cfg.Storage.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		return fn(cmd, store, args)
	}
}
