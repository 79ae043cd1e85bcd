package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dimasfr/logtrail/pkg/shellexec"
)

var (
	recordSession string
	recordKey     string
	recordDir     string
	recordTimeout time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record [flags] -- <command> [args...]",
	Short: "Run a command and record it into a session",
	Long: `Record executes a command, captures its output and exit code, and
appends the execution as an entry in a session. Without --session a
new session is started under --key.`,
	Args: cobra.MinimumNArgs(1),
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

		sessionID := recordSession
		if sessionID == "" {
			sess, err := store.Begin(recordKey)
			if err != nil {
				return err
			}
			sessionID = sess.ID
			fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", sessionID)
		}

		runner := shellexec.NewRunner(shellexec.RunnerConfig{
			Timeout:        cfg.Exec.Timeout,
			MaxOutputBytes: cfg.Exec.MaxOutputBytes,
			AllowedDirs:    cfg.Exec.AllowedDirs,
			Env:            cfg.Exec.Env,
		})

		req := shellexec.Request{
			Command:    args[0],
			Args:       args[1:],
			WorkingDir: recordDir,
			Timeout:    recordTimeout,
		}

		result, entry, err := runner.RunRecorded(cmd.Context(), store, sessionID, req)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), result.Stdout)
		fmt.Fprint(cmd.ErrOrStderr(), result.Stderr)
		fmt.Fprintf(cmd.OutOrStdout(), "entry %s exit=%d duration=%s\n",
			entry.ID, result.ExitCode, result.Duration.Round(time.Millisecond))

		if result.ExitCode != 0 {
			os.Exit(result.ExitCode & 0xff)
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordSession, "session", "", "append to an existing session id")
	recordCmd.Flags().StringVar(&recordKey, "key", "cli", "session key when starting a new session")
	recordCmd.Flags().StringVar(&recordDir, "dir", "", "working directory for the command")
	recordCmd.Flags().DurationVar(&recordTimeout, "timeout", 0, "per-command timeout (default from config)")

	rootCmd.AddCommand(recordCmd)
}
