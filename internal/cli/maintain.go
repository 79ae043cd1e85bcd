package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dimasfr/logtrail/pkg/sessionlog"
)

var maintainOnce bool

var maintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Archive idle sessions and purge expired archives",
	Long: `Maintain runs the session maintenance pass: active sessions past the
idle timeout are archived, archived sessions past retention are purged.
With --once it runs a single pass and exits; otherwise it keeps running
on the configured cron schedule, watching the sessions directory for
external changes.`,
	Args: cobra.NoArgs,
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

		maintainer := sessionlog.NewMaintainer(store, sessionlog.MaintainerConfig{
			IdleTimeout: cfg.Sessions.IdleTimeout,
			Retention:   cfg.Sessions.Retention,
			Schedule:    cfg.Sessions.MaintenanceCron,
		})

		if maintainOnce {
			return maintainer.RunOnce()
		}

		if cfg.Sessions.Watch {
			watcher, err := sessionlog.NewWatcher(store, 0)
			if err != nil {
				return err
			}
			defer watcher.Stop()
		}

		if err := maintainer.Start(); err != nil {
			return err
		}
		defer maintainer.Stop()

		fmt.Fprintln(cmd.OutOrStdout(), "maintenance running; press Ctrl-C to stop")

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	maintainCmd.Flags().BoolVar(&maintainOnce, "once", false, "run a single pass and exit")

	rootCmd.AddCommand(maintainCmd)
}
