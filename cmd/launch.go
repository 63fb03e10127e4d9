package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modpack-launcher/launch"
	"modpack-launcher/logger"
)

var launchCmd = &cobra.Command{
	Use:     "launch <modpack>",
	Aliases: []string{"play"},
	Short:   "Launch Minecraft with a modpack",
	Long: `Copy the modpack's mods into its instance directory, install the mod loader
when it can be installed automatically and start the game. Without a terminal
the launch events are printed as log lines.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		interactive := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
		if !interactive {
			logger.Tee()
		}

		a := bootstrap(configDir)
		defer a.close()
		ctx := cmd.Context()

		if username, _ := cmd.Flags().GetString("username"); username != "" {
			a.auth.Username = username
		}

		p, err := resolveModpack(ctx, a.store, args[0])
		exitOnError(err)
		creds, err := a.auth.Authenticate(ctx)
		exitOnError(err)

		session, err := a.orchestrator.Launch(ctx, p.ID, creds)
		exitOnError(err)

		if interactive {
			m := initialLaunchModel(session, fmt.Sprintf("%s %s (%s, %s) as %s", p.Icon, p.Name, p.GameVersion, p.Loader, creds.Username))
			prog := tea.NewProgram(m, tea.WithContext(ctx))
			if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				logger.Log.Errorw("Failed to run launch UI", zap.Error(err))
			}
			// The UI may quit early; the game never outlives the command.
			_ = session.Stop()
		} else {
			printEvents(os.Stdout, session.Events())
		}

		code, err := session.Wait()
		exitOnError(err)
		if dropped := session.Dropped(); dropped > 0 {
			logger.Log.Warnw("Launch events were dropped", zap.Int64("count", dropped))
		}
		if code != 0 {
			fmt.Fprintf(os.Stderr, "Minecraft exited with code %d\n", code)
			os.Exit(1)
		}
	},
}

func init() {
	launchCmd.Flags().StringP("username", "u", "", "offline player name (default OFFLINE_USERNAME or a random name)")
	rootCmd.AddCommand(launchCmd)
}

// printEvents writes one line per event until the session ends.
func printEvents(w io.Writer, events <-chan launch.Event) {
	for e := range events {
		ts := e.Time.Format("15:04:05")
		switch e.Kind {
		case launch.EventState:
			if e.Message != "" {
				fmt.Fprintf(w, "%s [%s] %s\n", ts, e.State, e.Message)
			} else {
				fmt.Fprintf(w, "%s [%s]\n", ts, e.State)
			}
		case launch.EventNotice:
			fmt.Fprintf(w, "%s notice: %s\n", ts, e.Message)
		case launch.EventProgress:
			fmt.Fprintf(w, "%s progress: %s %d/%d %s\n", ts, e.Progress.Type, e.Progress.Task, e.Progress.Total, e.Message)
		case launch.EventDebug, launch.EventData:
			fmt.Fprintf(w, "%s %s\n", ts, e.Message)
		case launch.EventClose:
			fmt.Fprintf(w, "%s closed with code %d\n", ts, e.Code)
		}
	}
}
