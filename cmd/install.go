package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"modpack-launcher/acquire"
	"modpack-launcher/catalog"
	"modpack-launcher/logger"
	"modpack-launcher/model"
)

var installCmd = &cobra.Command{
	Use:   "install <modpack> <mod>...",
	Short: "Install mods into a modpack",
	Long: `Install the newest file of each mod that is compatible with the modpack's
game version. A mod is given by its catalog id or slug; prefix it with the
catalog to mix sources, e.g. "modrinth:sodium curseforge:238222".`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()
		ctx := cmd.Context()

		sourceName, _ := cmd.Flags().GetString("source")
		defaultSource, err := model.ParseSource(sourceName)
		exitOnError(err)

		p, err := resolveModpack(ctx, a.store, args[0])
		exitOnError(err)

		var refs []model.ModRef
		for _, arg := range args[1:] {
			key, err := parseModArg(arg, defaultSource)
			exitOnError(err)
			refs = append(refs, lookupRef(ctx, a.catalogs, key))
		}

		fmt.Printf("Installing %d mod(s) into %s %s (%s)...\n", len(refs), p.Icon, p.Name, p.GameVersion)
		results, err := a.pipeline.InstallBatch(ctx, p.ID, refs)
		exitOnError(err)

		updated, err := a.store.Get(ctx, p.ID)
		exitOnError(err)
		failed := printInstallResults(os.Stdout, updated, a.store.ModsDir(p.ID), results)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <modpack> <mod-id>",
	Aliases: []string{"remove"},
	Short:   "Remove a mod and its file from a modpack",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := bootstrap(configDir)
		defer a.close()

		sourceName, _ := cmd.Flags().GetString("source")
		var source model.Source
		if sourceName != "" {
			s, err := model.ParseSource(sourceName)
			exitOnError(err)
			source = s
		}

		p, err := resolveModpack(cmd.Context(), a.store, args[0])
		exitOnError(err)

		key, err := parseModArg(args[1], source)
		exitOnError(err)
		idx := p.FindMod(key.ID, key.Source)
		if idx < 0 {
			exitOnError(model.NewModNotInstalledError(key.ID))
		}
		name := p.Mods[idx].Name

		_, err = a.pipeline.Uninstall(cmd.Context(), p.ID, key.ID, key.Source)
		exitOnError(err)
		fmt.Printf("Removed %s from %s\n", name, p.Name)
	},
}

func init() {
	installCmd.Flags().StringP("source", "s", string(model.SourceModrinth), "catalog of mods given without a prefix")
	uninstallCmd.Flags().StringP("source", "s", "", "catalog of the mod, when the id exists in both")
	rootCmd.AddCommand(installCmd, uninstallCmd)
}

// parseModArg splits "source:id". Without a prefix the default source is used.
func parseModArg(arg string, defaultSource model.Source) (model.ModKey, error) {
	arg = strings.TrimSpace(arg)
	id := arg
	source := defaultSource
	if prefix, rest, ok := strings.Cut(arg, ":"); ok {
		s, err := model.ParseSource(prefix)
		if err != nil {
			return model.ModKey{}, err
		}
		source, id = s, rest
	}
	if id == "" {
		return model.ModKey{}, model.NewInvalidInputError(fmt.Sprintf("no mod id in %q", arg), nil)
	}
	return model.ModKey{ID: id, Source: source}, nil
}

// lookupRef describes a mod for installation. When the catalog cannot
// describe it, the bare id is installed and doubles as its name.
func lookupRef(ctx context.Context, catalogs catalog.Registry, key model.ModKey) model.ModRef {
	bare := model.ModRef{ID: key.ID, Source: key.Source}
	client, err := catalogs.Get(key.Source)
	if err != nil {
		return bare
	}
	l, ok := client.(catalog.Lookup)
	if !ok {
		return bare
	}
	ref, err := l.Lookup(ctx, key.ID)
	if err != nil {
		logger.Log.Warnw("Could not look up mod, installing by id",
			zap.String("mod", key.String()),
			zap.Error(err),
		)
		return bare
	}
	return ref
}

// printInstallResults prints one line per mod and returns the number of failures.
func printInstallResults(w io.Writer, p model.Modpack, modsDir string, results []acquire.InstallResult) int {
	failed := 0
	for _, r := range results {
		label := r.Ref.Name
		if label == "" {
			label = r.Ref.Key().String()
		}
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "  ✗ %s: %s\n", label, describeError(r.Err))
			continue
		}
		file := ""
		if idx := p.FindMod(r.Ref.ID, r.Ref.Source); idx >= 0 {
			file = p.Mods[idx].FileName
			if p.Mods[idx].Name != "" {
				label = p.Mods[idx].Name
			}
		}
		size := ""
		if file != "" {
			if info, err := os.Stat(filepath.Join(modsDir, file)); err == nil {
				size = " " + humanize.Bytes(uint64(info.Size()))
			}
		}
		fmt.Fprintf(w, "  ✓ %s -> %s%s\n", label, file, size)
	}
	fmt.Fprintf(w, "%d installed, %d failed\n", len(results)-failed, failed)
	return failed
}
