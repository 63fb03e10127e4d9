package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"modpack-launcher/acquire"
	"modpack-launcher/auth"
	"modpack-launcher/catalog"
	"modpack-launcher/config"
	"modpack-launcher/curseforge"
	"modpack-launcher/db"
	"modpack-launcher/launch"
	"modpack-launcher/loader"
	"modpack-launcher/logger"
	"modpack-launcher/model"
	"modpack-launcher/modrinth"
	"modpack-launcher/search"
)

// app holds every component, wired once per command.
type app struct {
	cfg          config.Config
	store        *db.Store
	catalogs     catalog.Registry
	search       *search.Aggregator
	pipeline     *acquire.Pipeline
	orchestrator *launch.Orchestrator
	auth         *auth.Offline
}

// bootstrap handles shared initialization logic for commands.
func bootstrap(path string) *app {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Log.Fatalw("Failed to load configuration", zap.Error(err))
	}
	log := logger.Log

	store, err := db.Open(cfg.DatabasePath, cfg.ModpacksDir, log)
	if err != nil {
		logger.Log.Fatalw("Failed to open modpack index", zap.Error(err))
	}
	logger.Log.Infow("Database initialized", zap.String("path", cfg.DatabasePath))

	cf, err := curseforge.NewClient(cfg, log)
	if err != nil {
		logger.Log.Fatalw("Failed to create CurseForge client", zap.Error(err))
	}
	mr, err := modrinth.NewClient(cfg, log)
	if err != nil {
		logger.Log.Fatalw("Failed to create Modrinth client", zap.Error(err))
	}
	catalogs := catalog.NewRegistry(cf, mr)

	return &app{
		cfg:      cfg,
		store:    store,
		catalogs: catalogs,
		search:   search.NewAggregator(catalogs, log),
		pipeline: acquire.NewPipeline(store, catalogs, acquire.Options{
			Resolver: mr,
			Parallel: cfg.MaxParallelInstalls,
			Log:      log,
		}),
		orchestrator: launch.New(store, loader.NewProvisioner(cfg, log), launch.ExecRunner{Log: log}, launch.Options{
			MinecraftDir: cfg.MinecraftDir,
			InstancesDir: cfg.InstancesDir,
			JavaPath:     cfg.JavaPath,
			Log:          log,
		}),
		auth: auth.NewOffline(cfg.OfflineUsername),
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Log.Warnw("Failed to close modpack index", zap.Error(err))
	}
}

// resolveModpack accepts a full id, a unique id prefix or a unique name.
func resolveModpack(ctx context.Context, store *db.Store, ref string) (model.Modpack, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return model.Modpack{}, model.NewInvalidInputError("no modpack given", nil)
	}
	if p, err := store.Get(ctx, ref); err == nil {
		return p, nil
	} else if !model.Is(err, model.ModpackNotFound) {
		return model.Modpack{}, err
	}

	packs, err := store.List(ctx)
	if err != nil {
		return model.Modpack{}, err
	}
	return matchModpack(packs, ref)
}

func matchModpack(packs []model.Modpack, ref string) (model.Modpack, error) {
	var matches []model.Modpack
	for _, p := range packs {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 && len(ref) >= 4 {
		for _, p := range packs {
			if strings.HasPrefix(p.ID, ref) {
				matches = append(matches, p)
			}
		}
	}
	switch len(matches) {
	case 0:
		return model.Modpack{}, model.NewModpackNotFoundError(ref)
	case 1:
		return matches[0], nil
	default:
		return model.Modpack{}, model.NewInvalidInputError(
			fmt.Sprintf("%q matches %d modpacks, use the id instead", ref, len(matches)), nil)
	}
}

// parseSources turns --source values into catalogs; "all" or nothing means every catalog.
func parseSources(values []string) ([]model.Source, error) {
	if len(values) == 0 {
		return model.Sources, nil
	}
	var out []model.Source
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if strings.EqualFold(part, "all") {
				return model.Sources, nil
			}
			s, err := model.ParseSource(part)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// describeError turns an error into the line shown to the user.
func describeError(err error) string {
	var parts []string
	for _, e := range flatten(err) {
		if me, ok := model.AsError(e); ok {
			parts = append(parts, me.Message)
		} else {
			parts = append(parts, e.Error())
		}
	}
	return strings.Join(parts, "; ")
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// exitOnError reports err and terminates the command.
func exitOnError(err error) {
	if err == nil {
		return
	}
	logger.Log.Errorw("Command failed", zap.String("type", model.TypeOf(err).String()), zap.Error(err))
	fmt.Fprintln(os.Stderr, "Error:", describeError(err))
	os.Exit(1)
}

func warnOnError(err error) {
	if err == nil {
		return
	}
	logger.Log.Warnw("Partial failure", zap.Error(err))
	fmt.Fprintln(os.Stderr, "Warning:", describeError(err))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
