package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"modpack-launcher/logger"
)

var importCmd = &cobra.Command{
	Use:   "import <modpack>",
	Short: "Record jar files copied into a modpack's mods directory by hand",
	Long: `Scan the modpack's mods directory for .jar files that are not tracked yet,
identify them on Modrinth by their SHA1 hash and add them to the modpack.
Files that cannot be identified are listed and left untouched.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)

		logger.Log.Info("Scanning for existing mods...")
		report, err := a.pipeline.Import(cmd.Context(), p.ID)
		exitOnError(err)

		if len(report.Imported) == 0 && len(report.Unresolved) == 0 {
			fmt.Println("Nothing to import.")
			return
		}
		for _, m := range report.Imported {
			fmt.Printf("  + %s (%s)\n", m.Name, m.FileName)
		}
		for _, f := range report.Unresolved {
			fmt.Printf("  ? %s: not found on Modrinth\n", f)
		}
		fmt.Printf("Imported %d file(s), %d unresolved\n", len(report.Imported), len(report.Unresolved))
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
