package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modpack-launcher/model"
	"modpack-launcher/ui"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search CurseForge and Modrinth for mods",
	Long: `Search the selected catalogs and print one merged list, most downloaded first.
A catalog that cannot be reached simply contributes nothing; a missing or
rejected CurseForge API key is reported as a warning.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		gameVersion, _ := cmd.Flags().GetString("game-version")
		packRef, _ := cmd.Flags().GetString("modpack")
		sourceFlags, _ := cmd.Flags().GetStringSlice("source")

		if packRef != "" {
			p, err := resolveModpack(cmd.Context(), a.store, packRef)
			exitOnError(err)
			if gameVersion == "" {
				gameVersion = p.GameVersion
			}
		}
		sources, err := parseSources(sourceFlags)
		exitOnError(err)

		refs, err := a.search.SearchAll(cmd.Context(), strings.Join(args, " "), gameVersion, sources)
		warnOnError(err)
		if len(refs) == 0 {
			fmt.Println("No mods found.")
			return
		}
		printModRefs(os.Stdout, refs)
	},
}

func init() {
	searchCmd.Flags().StringP("game-version", "v", "", "only show mods available for this Minecraft version")
	searchCmd.Flags().StringP("modpack", "m", "", "use the game version of this modpack")
	searchCmd.Flags().StringSliceP("source", "s", nil, "catalogs to search: curseforge, modrinth or all (default all)")
	rootCmd.AddCommand(searchCmd)
}

func printModRefs(w io.Writer, refs []model.ModRef) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tSOURCE\tDOWNLOADS\tAUTHOR\tID")
	for i, r := range refs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, truncate(r.Name, 40), ui.SourceLabel(r.Source), humanize.Comma(r.DownloadCount), truncate(r.Author, 20), r.ID)
	}
	tw.Flush()
}
