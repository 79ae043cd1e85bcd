package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dimasfr/logtrail/pkg/sessionlog"
)

var sessionsState string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, lg, err := setup()
		if err != nil {
			return err
		}
		defer lg.Close()

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var metas []sessionlog.SessionMeta
		if sessionsState != "" {
			metas, err = store.ListByState(sessionlog.State(sessionsState))
		} else {
			metas, err = store.List()
		}
		if err != nil {
			return err
		}

		if len(metas) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKEY\tSTATE\tSTARTED\tENTRIES\tLAST ENTRY")
		for _, m := range metas {
			lastEntry := "-"
			if !m.LastEntryAt.IsZero() {
				lastEntry = m.LastEntryAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
				m.ID, m.Key, m.State, m.StartedAt.Format(time.RFC3339), m.EntryCount, lastEntry)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsState, "state", "", "filter by state (active, archived)")

	rootCmd.AddCommand(sessionsCmd)
}
