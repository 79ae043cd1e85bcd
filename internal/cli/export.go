package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimasfr/logtrail/pkg/fixture"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Write a session as a JSON fixture",
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

		dir := exportDir
		if dir == "" {
			dir = cfg.FixturesDir()
		}
		writer, err := fixture.NewWriter(dir)
		if err != nil {
			return err
		}

		path, err := writer.Write(sess, entries)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "fixtures directory (default from config)")

	rootCmd.AddCommand(exportCmd)
}
