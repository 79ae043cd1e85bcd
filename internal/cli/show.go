package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Print a session's entries",
	Args:  cobra.ExactArgs(1),
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

		sess, entries, err := store.Read(args[0])
		if err != nil {
			return err
		}

		if showJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Session any `json:"session"`
				Entries any `json:"entries"`
			}{sess, entries})
		}

		fmt.Fprintf(cmd.OutOrStdout(), "session %s key=%s state=%s started=%s\n",
			sess.ID, sess.Key, sess.State, sess.StartedAt.Format("2006-01-02 15:04:05"))
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s [%s] %s %s\n",
				e.ID, e.Kind, e.Timestamp.Format("15:04:05.000"), string(e.Payload))
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print as JSON")

	rootCmd.AddCommand(showCmd)
}
