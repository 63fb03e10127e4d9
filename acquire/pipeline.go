// Package acquire installs, removes and reconciles the mod files of a modpack.
package acquire

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"modpack-launcher/catalog"
	"modpack-launcher/model"
)

// Store is the part of the modpack repository the pipeline needs.
type Store interface {
	Get(ctx context.Context, id string) (model.Modpack, error)
	Update(ctx context.Context, id string, fn func(p *model.Modpack) error) (model.Modpack, error)
	ModsDir(id string) string
}

type Pipeline struct {
	store    Store
	catalogs catalog.Registry
	resolver HashResolver
	parallel int
	log      *zap.SugaredLogger

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
}

// inflightKey reserves either a mod or a destination file name within a modpack.
type inflightKey struct {
	modpackID string
	mod       model.ModKey
	file      string
}

// Options tune a Pipeline. Zero values fall back to sensible defaults.
type Options struct {
	// Resolver identifies untracked files for Import. Import fails without one.
	Resolver HashResolver
	// Parallel caps concurrent downloads in InstallBatch and catalog calls in Outdated.
	Parallel int
	Log      *zap.SugaredLogger
}

func NewPipeline(store Store, catalogs catalog.Registry, opts Options) *Pipeline {
	if opts.Log == nil {
		opts.Log = zap.NewNop().Sugar()
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 4
	}
	return &Pipeline{
		store:    store,
		catalogs: catalogs,
		resolver: opts.Resolver,
		parallel: opts.Parallel,
		log:      opts.Log,
		inflight: make(map[inflightKey]struct{}),
	}
}

// Install downloads the newest file of ref compatible with the modpack's game
// version into its mods directory and records it. On failure the modpack
// record is unchanged and no file is left under the final name.
func (p *Pipeline) Install(ctx context.Context, modpackID string, ref model.ModRef) (model.Modpack, error) {
	if ref.ID == "" {
		return model.Modpack{}, model.NewInvalidInputError("mod id must not be empty", nil)
	}
	key := ref.Key()
	name := displayName(ref.Name, ref.ID)
	log := p.log.With(zap.String("modpack_id", modpackID), zap.String("mod", key.String()))

	// Reserve before reading the record: a concurrent install of the same
	// key has either not started yet or already committed.
	modSlot := inflightKey{modpackID: modpackID, mod: key}
	if !p.reserve(modSlot) {
		return model.Modpack{}, model.NewAlreadyInstalledError(name)
	}
	defer p.release(modSlot)

	pack, err := p.store.Get(ctx, modpackID)
	if err != nil {
		return model.Modpack{}, err
	}
	if pack.HasMod(key) {
		return pack, model.NewAlreadyInstalledError(name)
	}

	client, err := p.catalogs.Get(ref.Source)
	if err != nil {
		return pack, err
	}

	files, err := client.ListFiles(ctx, ref.ID, pack.GameVersion)
	if err != nil {
		return pack, err
	}
	if len(files) == 0 {
		return pack, model.NewNoCompatibleFileError(name, pack.GameVersion)
	}
	file := files[0]
	if err := validFileName(file.FileName); err != nil {
		return pack, err
	}
	fileSlot := inflightKey{modpackID: modpackID, file: file.FileName}
	if !p.reserve(fileSlot) {
		return pack, model.NewInvalidInputError(fmt.Sprintf("file %s is being installed for another mod", file.FileName), nil)
	}
	defer p.release(fileSlot)
	if owner := fileOwner(pack, file.FileName); owner != "" {
		return pack, fileTakenError(file.FileName, owner)
	}

	log.Infow("Downloading mod file", zap.String("file", file.FileName), zap.Int64("size", file.FileSizeBytes))
	finalPath, err := download(ctx, client, file, p.store.ModsDir(modpackID))
	if err != nil {
		log.Warnw("Download failed", zap.String("file", file.FileName), zap.Error(err))
		return pack, err
	}

	installed := model.InstalledMod{
		ID:          ref.ID,
		Name:        name,
		Author:      ref.Author,
		Source:      ref.Source,
		FileName:    file.FileName,
		SourceURL:   ref.WebsiteURL,
		InstalledAt: time.Now().UTC(),
	}
	updated, err := p.store.Update(ctx, modpackID, func(m *model.Modpack) error {
		if m.HasMod(key) {
			return model.NewAlreadyInstalledError(name)
		}
		if owner := fileOwner(*m, file.FileName); owner != "" {
			return fileTakenError(file.FileName, owner)
		}
		m.Mods = append(m.Mods, installed)
		return nil
	})
	if err != nil {
		// download created finalPath, so nothing else is lost by removing it.
		if rmErr := os.Remove(finalPath); rmErr != nil && !os.IsNotExist(rmErr) {
			log.Warnw("Failed to discard staged file", zap.String("path", finalPath), zap.Error(rmErr))
		}
		return pack, err
	}

	log.Infow("Installed mod", zap.String("file", file.FileName))
	return updated, nil
}

// InstallResult is the outcome of one mod in a batch.
type InstallResult struct {
	Ref model.ModRef
	Err error
}

// InstallBatch installs refs concurrently. A failing mod never stops its
// siblings; results keep the order of refs.
func (p *Pipeline) InstallBatch(ctx context.Context, modpackID string, refs []model.ModRef) ([]InstallResult, error) {
	if _, err := p.store.Get(ctx, modpackID); err != nil {
		return nil, err
	}

	results := make([]InstallResult, len(refs))
	var g errgroup.Group
	g.SetLimit(p.parallel)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			_, err := p.Install(ctx, modpackID, ref)
			results[i] = InstallResult{Ref: ref, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Uninstall removes a mod's file and its record. An empty source matches the
// first mod with the given id in any catalog.
func (p *Pipeline) Uninstall(ctx context.Context, modpackID, modID string, source model.Source) (model.Modpack, error) {
	modsDir := p.store.ModsDir(modpackID)
	var removed model.InstalledMod

	updated, err := p.store.Update(ctx, modpackID, func(m *model.Modpack) error {
		idx := m.FindMod(modID, source)
		if idx < 0 {
			return model.NewModNotInstalledError(modID)
		}
		removed = m.Mods[idx]

		if removed.FileName != "" && validFileName(removed.FileName) == nil {
			path := filepath.Join(modsDir, removed.FileName)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return model.NewIOError("could not remove "+removed.FileName, err)
			}
		}
		m.Mods = append(m.Mods[:idx], m.Mods[idx+1:]...)
		return nil
	})
	if err != nil {
		return updated, err
	}

	p.log.Infow("Uninstalled mod",
		zap.String("modpack_id", modpackID),
		zap.String("mod", removed.Key().String()),
		zap.String("file", removed.FileName),
	)
	return updated, nil
}

func (p *Pipeline) reserve(k inflightKey) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[k]; busy {
		return false
	}
	p.inflight[k] = struct{}{}
	return true
}

func (p *Pipeline) release(k inflightKey) {
	p.mu.Lock()
	delete(p.inflight, k)
	p.mu.Unlock()
}

// download streams file into a hidden temporary file next to its final name
// and renames it once the body is complete and verified.
func download(ctx context.Context, client catalog.Client, file model.ModFileCandidate, dir string) (string, error) {
	if file.DownloadURL == "" {
		return "", model.NewTransportError("no download URL for "+file.FileName, nil)
	}
	body, err := client.Fetch(ctx, file.DownloadURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", model.NewIOError("could not create mods directory", err)
	}
	tmp, err := os.CreateTemp(dir, "."+file.FileName+"-*.part")
	if err != nil {
		return "", model.NewIOError("could not create temporary file", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	hash := sha1.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), body)
	if err != nil {
		_ = tmp.Close()
		return "", model.NewTransportError("download of "+file.FileName+" was interrupted", err)
	}
	if err := tmp.Close(); err != nil {
		return "", model.NewIOError("could not write "+file.FileName, err)
	}
	if file.FileSizeBytes > 0 && n != file.FileSizeBytes {
		return "", model.NewTransportError(fmt.Sprintf("download of %s is incomplete (%d of %d bytes)", file.FileName, n, file.FileSizeBytes), nil)
	}
	if file.SHA1 != "" && !strings.EqualFold(hex.EncodeToString(hash.Sum(nil)), file.SHA1) {
		return "", model.NewTransportError("checksum mismatch for "+file.FileName, nil)
	}

	finalPath := filepath.Join(dir, file.FileName)
	// A file already under the final name was copied in by hand; Import owns it.
	if _, err := os.Lstat(finalPath); err == nil {
		return "", model.NewInvalidInputError(fmt.Sprintf("%s already exists in the mods directory but is not tracked; run import to record it", file.FileName), nil)
	} else if !os.IsNotExist(err) {
		return "", model.NewIOError("could not check "+file.FileName, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", model.NewIOError("could not move "+file.FileName+" into place", err)
	}
	committed = true
	return finalPath, nil
}

func validFileName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return model.NewInvalidInputError(fmt.Sprintf("refusing unsafe file name %q", name), nil)
	}
	return nil
}

// fileOwner returns the name of the installed mod already using fileName.
func fileOwner(pack model.Modpack, fileName string) string {
	for _, m := range pack.Mods {
		if m.FileName == fileName {
			return displayName(m.Name, m.ID)
		}
	}
	return ""
}

func fileTakenError(fileName, owner string) error {
	return model.NewInvalidInputError(fmt.Sprintf("file %s is already provided by %s", fileName, owner), nil)
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func calculateSHA1(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha1.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
