// Package model holds the domain records shared by the catalog clients, the
// acquisition pipeline, the launcher and the modpack store.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Source identifies the catalog a mod was found in.
type Source string

const (
	SourceCurseForge Source = "curseforge"
	SourceModrinth   Source = "modrinth"
)

// Sources lists every supported catalog in display order.
var Sources = []Source{SourceCurseForge, SourceModrinth}

// ParseSource accepts a catalog name as typed by a user.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "curseforge", "cf":
		return SourceCurseForge, nil
	case "modrinth", "mr":
		return SourceModrinth, nil
	default:
		return "", NewInvalidInputError(fmt.Sprintf("unknown catalog %q (expected curseforge or modrinth)", s), nil)
	}
}

// ModKey is the identity of a mod: ids are only unique within one catalog.
type ModKey struct {
	ID     string
	Source Source
}

func (k ModKey) String() string {
	return string(k.Source) + ":" + k.ID
}

// ModRef is a search result. It is never persisted.
type ModRef struct {
	ID            string
	Source        Source
	Slug          string
	Name          string
	Author        string
	Summary       string
	DownloadCount int64
	IconURL       string
	WebsiteURL    string
	Categories    []string
}

func (r ModRef) Key() ModKey {
	return ModKey{ID: r.ID, Source: r.Source}
}

// ModFileCandidate is one downloadable file of a mod, as listed by its catalog.
type ModFileCandidate struct {
	FileID        string
	DisplayName   string
	FileName      string
	DownloadURL   string
	FileSizeBytes int64
	GameVersions  []string
	PublishedAt   time.Time
	SHA1          string
}

// InstalledMod is the record kept inside a Modpack once a file has been staged.
type InstalledMod struct {
	ID          string
	Name        string
	Author      string
	Source      Source
	FileName    string
	SourceURL   string
	InstalledAt time.Time
}

func (m InstalledMod) Key() ModKey {
	return ModKey{ID: m.ID, Source: m.Source}
}

type LoaderKind string

const (
	LoaderVanilla  LoaderKind = "vanilla"
	LoaderFabric   LoaderKind = "fabric"
	LoaderForge    LoaderKind = "forge"
	LoaderQuilt    LoaderKind = "quilt"
	LoaderNeoForge LoaderKind = "neoforge"
)

// LatestLoaderVersion asks the provisioner to pick the newest loader build.
const LatestLoaderVersion = "latest"

func ParseLoaderKind(s string) (LoaderKind, error) {
	switch k := LoaderKind(strings.ToLower(strings.TrimSpace(s))); k {
	case LoaderVanilla, LoaderFabric, LoaderForge, LoaderQuilt, LoaderNeoForge:
		return k, nil
	case "":
		return LoaderVanilla, nil
	default:
		return "", NewInvalidInputError(fmt.Sprintf("unknown loader %q", s), nil)
	}
}

type LoaderSpec struct {
	Kind    LoaderKind
	Version string
}

// ResolvedVersion returns the requested loader version, or "latest" when unset.
func (l LoaderSpec) ResolvedVersion() string {
	if l.Version == "" {
		return LatestLoaderVersion
	}
	return l.Version
}

func (l LoaderSpec) String() string {
	if l.Kind == LoaderVanilla || l.Kind == "" {
		return string(LoaderVanilla)
	}
	return string(l.Kind) + " " + l.ResolvedVersion()
}

const (
	DefaultMemoryMB = 4096
	MinMemoryMB     = 2048
)

type Settings struct {
	MemoryMB  int
	ExtraArgs string
}

// Modpack is owned by the store; callers work on copies and write back the whole record.
type Modpack struct {
	ID           string
	Name         string
	Icon         string
	GameVersion  string
	Loader       LoaderSpec
	Mods         []InstalledMod
	Settings     Settings
	CreatedAt    time.Time
	LastPlayedAt *time.Time
}

// FindMod returns the index of the installed mod with the given id. An empty
// source matches any catalog.
func (m Modpack) FindMod(id string, source Source) int {
	for i, mod := range m.Mods {
		if mod.ID == id && (source == "" || mod.Source == source) {
			return i
		}
	}
	return -1
}

func (m Modpack) HasMod(key ModKey) bool {
	return m.FindMod(key.ID, key.Source) >= 0
}

// HasFile reports whether any installed mod references fileName.
func (m Modpack) HasFile(fileName string) bool {
	for _, mod := range m.Mods {
		if mod.FileName == fileName {
			return true
		}
	}
	return false
}

// Clone returns a copy whose Mods slice can be mutated independently.
func (m Modpack) Clone() Modpack {
	c := m
	c.Mods = append([]InstalledMod(nil), m.Mods...)
	if m.LastPlayedAt != nil {
		t := *m.LastPlayedAt
		c.LastPlayedAt = &t
	}
	return c
}

// Credentials are produced by the auth collaborator and passed through untouched.
type Credentials struct {
	Username    string
	AccountID   string
	AccessToken string
}
