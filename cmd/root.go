package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var configDir string

var rootCmd = &cobra.Command{
	Use:   "modpack-launcher",
	Short: "Build Minecraft modpacks from CurseForge and Modrinth and launch them",
	Long: `Create modpacks, search CurseForge and Modrinth for mods, install them
into a pack and launch the game with the pack's mods staged into its own
instance directory.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing the .env configuration file")
}

// Execute runs the root command. Interrupts cancel the command's context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
