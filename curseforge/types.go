package curseforge

import "time"

// CurseForge API v1 response types, trimmed to the fields the launcher reads.

// Response wraps CurseForge API responses.
type Response[T any] struct {
	Data       T           `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Index       int `json:"index"`
	PageSize    int `json:"pageSize"`
	ResultCount int `json:"resultCount"`
	TotalCount  int `json:"totalCount"`
}

type Mod struct {
	ID            int        `json:"id"`
	GameID        int        `json:"gameId"`
	Name          string     `json:"name"`
	Slug          string     `json:"slug"`
	Links         ModLinks   `json:"links"`
	Summary       string     `json:"summary"`
	DownloadCount float64    `json:"downloadCount"`
	Categories    []Category `json:"categories"`
	Authors       []Author   `json:"authors"`
	Logo          *Logo      `json:"logo"`
}

type ModLinks struct {
	WebsiteURL string `json:"websiteUrl"`
}

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Author struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Logo struct {
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

type File struct {
	ID           int        `json:"id"`
	ModID        int        `json:"modId"`
	DisplayName  string     `json:"displayName"`
	FileName     string     `json:"fileName"`
	FileDate     time.Time  `json:"fileDate"`
	FileLength   int64      `json:"fileLength"`
	DownloadURL  *string    `json:"downloadUrl"`
	GameVersions []string   `json:"gameVersions"`
	Hashes       []FileHash `json:"hashes"`
}

// FileHash algo 1 is SHA-1, 2 is MD5.
type FileHash struct {
	Value string `json:"value"`
	Algo  int    `json:"algo"`
}

const hashAlgoSHA1 = 1
