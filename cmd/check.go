package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"modpack-launcher/acquire"
	"modpack-launcher/logger"
	"modpack-launcher/ui"
)

var checkCmd = &cobra.Command{
	Use:   "check <modpack>",
	Short: "Check installed mods for newer compatible files",
	Long: `Ask each mod's catalog for the newest file compatible with the modpack's
game version and list the mods whose installed file differs. Nothing is
downloaded; uninstall and install a mod again to upgrade it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)

		logger.Log.Info("Checking for updates...")
		upgrades, err := a.pipeline.Outdated(cmd.Context(), p.ID)
		warnOnError(err)

		if len(upgrades) == 0 {
			fmt.Printf("All %d mod(s) in %s are up to date.\n", len(p.Mods), p.Name)
			return
		}
		printUpgrades(os.Stdout, upgrades)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func printUpgrades(w io.Writer, upgrades []acquire.Upgrade) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MOD\tSOURCE\tINSTALLED\tAVAILABLE")
	for _, u := range upgrades {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			truncate(u.Mod.Name, 32), ui.SourceLabel(u.Mod.Source), u.Mod.FileName, u.Latest.FileName)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d update(s) available\n", len(upgrades))
}
