// Package db persists the modpack index in sqlite and owns the on-disk
// modpack directory layout.
package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"modpack-launcher/model"
)

const DefaultIcon = "📦"

// Subdirectories created for every modpack.
var ContentDirs = []string{"mods", "datapacks", "resourcepacks", "shaderpacks", "saves"}

// NewModpack is the user input for Create.
type NewModpack struct {
	Name        string
	Icon        string
	GameVersion string
	Loader      model.LoaderSpec
	Settings    model.Settings
}

// Store is the modpack repository. Read-modify-write cycles go through Update,
// which serializes writers per modpack id.
type Store struct {
	db          *gorm.DB
	modpacksDir string
	log         *zap.SugaredLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open connects to the sqlite index at dbPath and migrates the schema.
func Open(dbPath, modpacksDir string, log *zap.SugaredLogger) (*Store, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Route GORM's own warnings (slow queries, errors) into our log file
	newLogger := gormlogger.New(
		zap.NewStdLog(log.Desugar()),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	gdb, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	// A single connection keeps sqlite writers from tripping over each other.
	sqlDB.SetMaxOpenConns(1)
	if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := gdb.AutoMigrate(&Modpack{}, &InstalledMod{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &Store{
		db:          gdb,
		modpacksDir: modpacksDir,
		log:         log,
		locks:       make(map[string]*sync.Mutex),
	}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ModpackDir is the canonical storage directory of a modpack.
func (s *Store) ModpackDir(id string) string {
	return filepath.Join(s.modpacksDir, id)
}

// ModsDir is where acquired mod files are staged for a modpack.
func (s *Store) ModsDir(id string) string {
	return filepath.Join(s.ModpackDir(id), "mods")
}

// Create registers a new modpack and lays out its directories.
func (s *Store) Create(ctx context.Context, in NewModpack) (model.Modpack, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Modpack{}, model.NewInvalidInputError("modpack name must not be empty", nil)
	}
	if strings.TrimSpace(in.GameVersion) == "" {
		return model.Modpack{}, model.NewInvalidInputError("game version must not be empty", nil)
	}

	p := model.Modpack{
		ID:          uuid.NewString(),
		Name:        name,
		Icon:        in.Icon,
		GameVersion: strings.TrimSpace(in.GameVersion),
		Loader:      in.Loader,
		Mods:        []model.InstalledMod{},
		Settings:    in.Settings,
		CreatedAt:   time.Now().UTC(),
	}
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Loader.Kind == "" {
		p.Loader.Kind = model.LoaderVanilla
	}
	if p.Settings.MemoryMB <= 0 {
		p.Settings.MemoryMB = model.DefaultMemoryMB
	}

	dir := s.ModpackDir(p.ID)
	for _, sub := range ContentDirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			_ = os.RemoveAll(dir)
			return model.Modpack{}, model.NewIOError(fmt.Sprintf("could not create %s directory for modpack", sub), err)
		}
	}

	if err := s.Put(ctx, p); err != nil {
		_ = os.RemoveAll(dir)
		return model.Modpack{}, err
	}
	s.log.Infow("Modpack created", zap.String("id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// List returns every modpack, oldest first.
func (s *Store) List(ctx context.Context) ([]model.Modpack, error) {
	var rows []Modpack
	err := s.db.WithContext(ctx).
		Preload("Mods", orderMods).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, model.NewIOError("failed to read modpack index", err)
	}
	packs := make([]model.Modpack, 0, len(rows))
	for _, r := range rows {
		packs = append(packs, r.toModel())
	}
	return packs, nil
}

// Get loads a modpack by id.
func (s *Store) Get(ctx context.Context, id string) (model.Modpack, error) {
	var row Modpack
	err := s.db.WithContext(ctx).
		Preload("Mods", orderMods).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Modpack{}, model.NewModpackNotFoundError(id)
	}
	if err != nil {
		return model.Modpack{}, model.NewIOError("failed to read modpack "+id, err)
	}
	return row.toModel(), nil
}

// Put writes the whole record, replacing its mod list.
func (s *Store) Put(ctx context.Context, p model.Modpack) error {
	row := fromModel(p)
	mods := row.Mods
	row.Mods = nil

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{UpdateAll: true}).
			Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("modpack_id = ?", p.ID).Delete(&InstalledMod{}).Error; err != nil {
			return err
		}
		if len(mods) > 0 {
			return tx.Create(&mods).Error
		}
		return nil
	})
	if err != nil {
		return model.NewIOError("failed to save modpack "+p.ID, err)
	}
	return nil
}

// Update runs fn on a copy of the stored modpack and persists the result.
// The record is left untouched if fn fails.
func (s *Store) Update(ctx context.Context, id string, fn func(p *model.Modpack) error) (model.Modpack, error) {
	unlock := s.lock(id)
	defer unlock()

	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Modpack{}, err
	}
	next := p.Clone()
	if err := fn(&next); err != nil {
		return p, err
	}
	next.ID = id
	if err := s.Put(ctx, next); err != nil {
		return p, err
	}
	return next, nil
}

// Delete removes the modpack directory, then its record. A directory that
// cannot be removed keeps the record so the user can retry.
func (s *Store) Delete(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := os.RemoveAll(s.ModpackDir(id)); err != nil {
		return model.NewIOError("could not remove modpack directory", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("modpack_id = ?", id).Delete(&InstalledMod{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Modpack{}, "id = ?", id).Error
	})
	if err != nil {
		return model.NewIOError("failed to delete modpack "+id, err)
	}
	s.log.Infow("Modpack deleted", zap.String("id", id))
	return nil
}

func (s *Store) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func orderMods(db *gorm.DB) *gorm.DB {
	return db.Order("position")
}
