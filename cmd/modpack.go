package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"modpack-launcher/db"
	"modpack-launcher/model"
	"modpack-launcher/ui"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new modpack",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		gameVersion, _ := cmd.Flags().GetString("game-version")
		loaderName, _ := cmd.Flags().GetString("loader")
		loaderVersion, _ := cmd.Flags().GetString("loader-version")
		icon, _ := cmd.Flags().GetString("icon")
		memory, _ := cmd.Flags().GetInt("memory")
		javaArgs, _ := cmd.Flags().GetString("java-args")

		kind, err := model.ParseLoaderKind(loaderName)
		exitOnError(err)

		p, err := a.store.Create(cmd.Context(), db.NewModpack{
			Name:        args[0],
			Icon:        icon,
			GameVersion: gameVersion,
			Loader:      model.LoaderSpec{Kind: kind, Version: loaderVersion},
			Settings:    model.Settings{MemoryMB: memory, ExtraArgs: javaArgs},
		})
		exitOnError(err)

		fmt.Printf("%s Created %s (%s)\n", p.Icon, p.Name, p.ID)
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List modpacks",
	Run: func(cmd *cobra.Command, _ []string) {
		a := bootstrap(configDir)
		defer a.close()

		packs, err := a.store.List(cmd.Context())
		exitOnError(err)
		if len(packs) == 0 {
			fmt.Println("No modpacks yet. Create one with: modpack-launcher create <name> --game-version 1.20.1")
			return
		}
		printModpacks(os.Stdout, packs, time.Now())
	},
}

var showCmd = &cobra.Command{
	Use:   "show <modpack>",
	Short: "Show a modpack and its installed mods",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)
		printModpack(os.Stdout, p, time.Now())
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <modpack>",
	Aliases: []string{"rm"},
	Short:   "Delete a modpack and its files",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)
		exitOnError(a.store.Delete(cmd.Context(), p.ID))
		fmt.Printf("Deleted %s\n", p.Name)
	},
}

func init() {
	createCmd.Flags().StringP("game-version", "v", "", "Minecraft version, e.g. 1.20.1")
	createCmd.Flags().StringP("loader", "l", "vanilla", "mod loader: vanilla, fabric, forge, quilt or neoforge")
	createCmd.Flags().String("loader-version", "", "loader version (default latest)")
	createCmd.Flags().String("icon", "", "icon shown next to the name")
	createCmd.Flags().Int("memory", model.DefaultMemoryMB, "maximum game memory in MB")
	createCmd.Flags().String("java-args", "", "extra JVM arguments")
	_ = createCmd.MarkFlagRequired("game-version")

	rootCmd.AddCommand(createCmd, listCmd, showCmd, deleteCmd)
}

func lastPlayed(p model.Modpack, now time.Time) string {
	if p.LastPlayedAt == nil {
		return "never"
	}
	return humanize.RelTime(*p.LastPlayedAt, now, "ago", "from now")
}

func printModpacks(w io.Writer, packs []model.Modpack, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tLOADER\tMODS\tLAST PLAYED")
	for _, p := range packs {
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%d\t%s\n",
			shortID(p.ID), p.Icon, truncate(p.Name, 32), p.GameVersion, p.Loader, len(p.Mods), lastPlayed(p, now))
	}
	tw.Flush()
}

func printModpack(w io.Writer, p model.Modpack, now time.Time) {
	fmt.Fprintf(w, "%s %s\n", p.Icon, p.Name)
	fmt.Fprintf(w, "  id:          %s\n", p.ID)
	fmt.Fprintf(w, "  game:        %s\n", p.GameVersion)
	fmt.Fprintf(w, "  loader:      %s\n", p.Loader)
	fmt.Fprintf(w, "  memory:      %d MB\n", p.Settings.MemoryMB)
	if p.Settings.ExtraArgs != "" {
		fmt.Fprintf(w, "  java args:   %s\n", p.Settings.ExtraArgs)
	}
	fmt.Fprintf(w, "  created:     %s\n", humanize.RelTime(p.CreatedAt, now, "ago", "from now"))
	fmt.Fprintf(w, "  last played: %s\n", lastPlayed(p, now))

	if len(p.Mods) == 0 {
		fmt.Fprintln(w, "\nNo mods installed.")
		return
	}
	fmt.Fprintf(w, "\n%s installed:\n", humanize.Comma(int64(len(p.Mods)))+" mod(s)")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range p.Mods {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", truncate(m.Name, 32), m.ID, ui.ColorizeSource(m.Source), m.FileName)
	}
	tw.Flush()
}
