package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modpack-launcher/model"
	"modpack-launcher/modrinth"
)

// HashResolver identifies a mod file by its SHA-1. The Modrinth client satisfies it.
type HashResolver interface {
	VersionByHash(ctx context.Context, hash string) (*modrinth.Version, error)
	Project(ctx context.Context, idOrSlug string) (*modrinth.Project, error)
}

// ImportReport lists what Import recorded and what it could not identify.
type ImportReport struct {
	Imported   []model.InstalledMod
	Unresolved []string
}

// Import scans the modpack's mods directory for jar files no installed mod
// references, identifies them by hash and records the ones it recognises.
// Unrecognised files are reported and left alone.
func (p *Pipeline) Import(ctx context.Context, modpackID string) (ImportReport, error) {
	var report ImportReport
	if p.resolver == nil {
		return report, model.NewInvalidInputError("no catalog can identify local files", nil)
	}

	pack, err := p.store.Get(ctx, modpackID)
	if err != nil {
		return report, err
	}
	modsDir := p.store.ModsDir(modpackID)
	log := p.log.With(zap.String("modpack_id", modpackID))
	log.Info("Scanning for existing mods...")

	entries, err := os.ReadDir(modsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return report, model.NewIOError("could not read mods directory", err)
	}

	var found []model.InstalledMod
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".jar") {
			continue
		}
		if pack.HasFile(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, model.NewTransportError("import cancelled", err)
		}

		mod, ok := p.identify(ctx, log, filepath.Join(modsDir, name))
		if !ok {
			report.Unresolved = append(report.Unresolved, name)
			continue
		}
		found = append(found, mod)
	}
	if len(found) == 0 {
		return report, nil
	}

	_, err = p.store.Update(ctx, modpackID, func(m *model.Modpack) error {
		for _, mod := range found {
			if m.HasMod(mod.Key()) || m.HasFile(mod.FileName) {
				log.Infow("Skipping file, mod already tracked", zap.String("file", mod.FileName), zap.String("mod", mod.Key().String()))
				continue
			}
			m.Mods = append(m.Mods, mod)
			report.Imported = append(report.Imported, mod)
		}
		return nil
	})
	if err != nil {
		report.Imported = nil
		return report, err
	}
	return report, nil
}

func (p *Pipeline) identify(ctx context.Context, log *zap.SugaredLogger, path string) (model.InstalledMod, bool) {
	filename := filepath.Base(path)

	hash, err := calculateSHA1(path)
	if err != nil {
		log.Warnw("Failed to calculate hash", zap.String("file", filename), zap.Error(err))
		return model.InstalledMod{}, false
	}

	version, err := p.resolver.VersionByHash(ctx, hash)
	if err != nil {
		log.Debugw("Mod not found on Modrinth by hash", zap.String("file", filename), zap.Error(err))
		return model.InstalledMod{}, false
	}

	project, err := p.resolver.Project(ctx, version.ProjectID)
	if err != nil {
		log.Warnw("Failed to get project details", zap.String("project_id", version.ProjectID), zap.Error(err))
		return model.InstalledMod{}, false
	}

	log.Infow("Imported existing mod", zap.String("title", project.Title), zap.String("version", version.VersionNumber))
	return model.InstalledMod{
		ID:          project.ID,
		Name:        project.Title,
		Source:      model.SourceModrinth,
		FileName:    filename,
		SourceURL:   project.URL(),
		InstalledAt: time.Now().UTC(),
	}, true
}

// Upgrade is an installed mod whose catalog offers a newer file.
type Upgrade struct {
	Mod    model.InstalledMod
	Latest model.ModFileCandidate
}

// Outdated compares every installed mod with the newest compatible file its
// catalog lists. It only reports; nothing is downloaded.
func (p *Pipeline) Outdated(ctx context.Context, modpackID string) ([]Upgrade, error) {
	pack, err := p.store.Get(ctx, modpackID)
	if err != nil {
		return nil, err
	}

	slots := make([]*Upgrade, len(pack.Mods))
	errs := make([]error, len(pack.Mods))
	var g errgroup.Group
	g.SetLimit(p.parallel)
	for i, mod := range pack.Mods {
		i, mod := i, mod
		g.Go(func() error {
			log := p.log.With(zap.String("mod", mod.Key().String()), zap.String("title", mod.Name))

			client, err := p.catalogs.Get(mod.Source)
			if err != nil {
				log.Warnw("No catalog for installed mod", zap.Error(err))
				return nil
			}
			files, err := client.ListFiles(ctx, mod.ID, pack.GameVersion)
			if err != nil {
				errs[i] = err
				return nil
			}
			if len(files) == 0 {
				log.Info("No compatible versions found.")
				return nil
			}
			if files[0].FileName == mod.FileName {
				log.Infow("Mod is already up to date", zap.String("file", mod.FileName))
				return nil
			}
			log.Infow("Update available",
				zap.String("current_file", mod.FileName),
				zap.String("new_file", files[0].FileName),
			)
			slots[i] = &Upgrade{Mod: mod, Latest: files[0]}
			return nil
		})
	}
	_ = g.Wait()

	upgrades := make([]Upgrade, 0)
	for _, u := range slots {
		if u != nil {
			upgrades = append(upgrades, *u)
		}
	}
	return upgrades, errors.Join(errs...)
}
