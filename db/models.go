package db

import (
	"time"

	"modpack-launcher/model"
)

// Modpack is one row of the shared modpack index.
type Modpack struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	Icon          string
	GameVersion   string
	LoaderKind    string
	LoaderVersion string
	MemoryMB      int
	ExtraArgs     string
	CreatedAt     time.Time
	LastPlayedAt  *time.Time
	Mods          []InstalledMod `gorm:"foreignKey:ModpackID;constraint:OnDelete:CASCADE"`
}

// InstalledMod is a mod staged into a modpack's mods directory.
type InstalledMod struct {
	ID          uint   `gorm:"primaryKey"`
	ModpackID   string `gorm:"uniqueIndex:idx_pack_mod_source;index"`
	ModID       string `gorm:"uniqueIndex:idx_pack_mod_source"`
	Source      string `gorm:"uniqueIndex:idx_pack_mod_source"`
	Position    int    // keeps the installation order stable across reloads
	Name        string
	Author      string
	FileName    string
	SourceURL   string
	InstalledAt time.Time
}

func fromModel(p model.Modpack) Modpack {
	row := Modpack{
		ID:            p.ID,
		Name:          p.Name,
		Icon:          p.Icon,
		GameVersion:   p.GameVersion,
		LoaderKind:    string(p.Loader.Kind),
		LoaderVersion: p.Loader.Version,
		MemoryMB:      p.Settings.MemoryMB,
		ExtraArgs:     p.Settings.ExtraArgs,
		CreatedAt:     p.CreatedAt,
		LastPlayedAt:  p.LastPlayedAt,
	}
	for i, m := range p.Mods {
		row.Mods = append(row.Mods, InstalledMod{
			ModpackID:   p.ID,
			ModID:       m.ID,
			Source:      string(m.Source),
			Position:    i,
			Name:        m.Name,
			Author:      m.Author,
			FileName:    m.FileName,
			SourceURL:   m.SourceURL,
			InstalledAt: m.InstalledAt,
		})
	}
	return row
}

func (r Modpack) toModel() model.Modpack {
	p := model.Modpack{
		ID:          r.ID,
		Name:        r.Name,
		Icon:        r.Icon,
		GameVersion: r.GameVersion,
		Loader: model.LoaderSpec{
			Kind:    model.LoaderKind(r.LoaderKind),
			Version: r.LoaderVersion,
		},
		Mods: make([]model.InstalledMod, 0, len(r.Mods)),
		Settings: model.Settings{
			MemoryMB:  r.MemoryMB,
			ExtraArgs: r.ExtraArgs,
		},
		CreatedAt:    r.CreatedAt,
		LastPlayedAt: r.LastPlayedAt,
	}
	for _, m := range r.Mods {
		p.Mods = append(p.Mods, model.InstalledMod{
			ID:          m.ModID,
			Name:        m.Name,
			Author:      m.Author,
			Source:      model.Source(m.Source),
			FileName:    m.FileName,
			SourceURL:   m.SourceURL,
			InstalledAt: m.InstalledAt,
		})
	}
	return p
}
