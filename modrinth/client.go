package modrinth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"modpack-launcher/catalog"
	"modpack-launcher/config"
	"modpack-launcher/model"
)

const (
	modrinthAPIURL  = "https://api.modrinth.com/v2"
	modrinthSiteURL = "https://modrinth.com"
)

// Client handles communication with the Modrinth API. No credential is needed.
type Client struct {
	req   *catalog.Requester
	limit int
	log   *zap.SugaredLogger
}

var (
	_ catalog.Client = (*Client)(nil)
	_ catalog.Lookup = (*Client)(nil)
)

// NewClient creates a new Modrinth API client using the provided configuration.
func NewClient(cfg config.Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.UserAgent == "" {
		// Should be handled by LoadConfig default, but double-check
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	return newClient(modrinthAPIURL, cfg.UserAgent, cfg.SearchLimit, cfg.CatalogTimeout, cfg.DownloadTimeout, log), nil
}

func newClient(baseURL, userAgent string, limit int, timeout, downloadTimeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		req: &catalog.Requester{
			BaseURL:         baseURL,
			UserAgent:       userAgent,
			HTTPClient:      &http.Client{},
			Timeout:         timeout,
			DownloadTimeout: downloadTimeout,
		},
		limit: limit,
		log:   log.With(zap.String("source", string(model.SourceModrinth))),
	}
}

func (c *Client) Source() model.Source {
	return model.SourceModrinth
}

// Search queries /search restricted to mods, optionally for one game version.
func (c *Client) Search(ctx context.Context, query, gameVersion string) ([]model.ModRef, error) {
	facets := `[["project_type:mod"]]`
	if gameVersion != "" {
		facets = `[["project_type:mod"],["versions:` + gameVersion + `"]]`
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(c.limit))
	params.Set("facets", facets)

	var res SearchResponse
	if err := c.req.GetJSON(ctx, "/search", params, &res); err != nil {
		return []model.ModRef{}, catalog.Absorb(c.log, c.Source(), "search", err)
	}

	refs := make([]model.ModRef, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if hit.ProjectID == "" {
			continue
		}
		refs = append(refs, hit.toModRef())
	}
	return refs, nil
}

// ListFiles lists a project's versions, newest first, one candidate per version.
func (c *Client) ListFiles(ctx context.Context, modID, gameVersion string) ([]model.ModFileCandidate, error) {
	var params url.Values
	if gameVersion != "" {
		params = url.Values{}
		// Construct JSON array strings manually to avoid Sprintf issues
		params.Add("game_versions", "[\""+gameVersion+"\"]")
	}

	var versions []Version
	if err := c.req.GetJSON(ctx, fmt.Sprintf("/project/%s/version", url.PathEscape(modID)), params, &versions); err != nil {
		return []model.ModFileCandidate{}, catalog.Absorb(c.log, c.Source(), "list files", err)
	}

	files := make([]model.ModFileCandidate, 0, len(versions))
	for _, v := range versions {
		f := findPrimaryFile(v)
		if f == nil || f.URL == "" {
			c.log.Debugw("Skipping version without downloadable file", zap.String("version_id", v.ID))
			continue
		}
		files = append(files, v.toCandidate(f))
	}
	catalog.SortNewestFirst(files)
	return files, nil
}

func (c *Client) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	return c.req.Download(ctx, downloadURL)
}

// VersionByHash retrieves version information using the file's SHA1 hash.
func (c *Client) VersionByHash(ctx context.Context, hash string) (*Version, error) {
	var version Version
	params := url.Values{"algorithm": {"sha1"}}
	if err := c.req.GetJSON(ctx, fmt.Sprintf("/version_file/%s", hash), params, &version); err != nil {
		return nil, fmt.Errorf("failed to get version by hash '%s': %w", hash, err)
	}
	return &version, nil
}

// Project retrieves details for a specific project by id or slug.
func (c *Client) Project(ctx context.Context, idOrSlug string) (*Project, error) {
	var project Project
	if err := c.req.GetJSON(ctx, fmt.Sprintf("/project/%s", url.PathEscape(idOrSlug)), nil, &project); err != nil {
		return nil, fmt.Errorf("failed to get project '%s': %w", idOrSlug, err)
	}
	return &project, nil
}

// Lookup describes one project as a search result.
func (c *Client) Lookup(ctx context.Context, idOrSlug string) (model.ModRef, error) {
	p, err := c.Project(ctx, idOrSlug)
	if err != nil {
		return model.ModRef{}, catalog.LookupError(c.Source(), idOrSlug, err)
	}
	return p.toModRef(), nil
}

// findPrimaryFile locates the primary file in a Modrinth version, or the first file if no primary is marked.
func findPrimaryFile(v Version) *File {
	for i := range v.Files {
		if v.Files[i].Primary {
			return &v.Files[i]
		}
	}
	if len(v.Files) > 0 {
		return &v.Files[0]
	}
	return nil
}

func projectURL(slug string) string {
	return modrinthSiteURL + "/mod/" + slug
}

// --- Structs for API Responses ---

// SearchResponse is the body of /search.
type SearchResponse struct {
	Hits      []SearchHit `json:"hits"`
	Offset    int         `json:"offset"`
	Limit     int         `json:"limit"`
	TotalHits int         `json:"total_hits"`
}

// SearchHit is one project in a search response.
type SearchHit struct {
	ProjectID   string   `json:"project_id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Downloads   int64    `json:"downloads"`
	IconURL     string   `json:"icon_url"`
	Color       int      `json:"color"`
	Categories  []string `json:"categories"`
}

func (h SearchHit) toModRef() model.ModRef {
	slug := h.Slug
	if slug == "" {
		slug = h.ProjectID
	}
	return model.ModRef{
		ID:            h.ProjectID,
		Source:        model.SourceModrinth,
		Slug:          h.Slug,
		Name:          h.Title,
		Author:        h.Author,
		Summary:       h.Description,
		DownloadCount: h.Downloads,
		IconURL:       h.IconURL,
		WebsiteURL:    projectURL(slug),
		Categories:    append([]string(nil), h.Categories...),
	}
}

// Project represents a Modrinth project
type Project struct {
	Slug        string   `json:"slug"`
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IconURL     string   `json:"icon_url"`
	Color       int      `json:"color"`
	Updated     string   `json:"updated"`
	ProjectType string   `json:"project_type"` // e.g., "mod"
	Downloads   int64    `json:"downloads"`
	Categories  []string `json:"categories"`
	ClientSide  string   `json:"client_side"` // required, optional, unsupported, unknown
	ServerSide  string   `json:"server_side"` // required, optional, unsupported, unknown
}

// URL is the public page of the project.
func (p Project) URL() string {
	if p.Slug != "" {
		return projectURL(p.Slug)
	}
	return projectURL(p.ID)
}

func (p Project) toModRef() model.ModRef {
	return model.ModRef{
		ID:            p.ID,
		Source:        model.SourceModrinth,
		Slug:          p.Slug,
		Name:          p.Title,
		Summary:       p.Description,
		DownloadCount: p.Downloads,
		IconURL:       p.IconURL,
		WebsiteURL:    p.URL(),
		Categories:    append([]string(nil), p.Categories...),
	}
}

// Version represents a Modrinth project version.
type Version struct {
	ID            string   `json:"id"`
	ProjectID     string   `json:"project_id"`
	Name          string   `json:"name"`
	VersionNumber string   `json:"version_number"`
	GameVersions  []string `json:"game_versions"`
	Loaders       []string `json:"loaders"`
	DatePublished string   `json:"date_published"`
	Files         []File   `json:"files"`
}

func (v Version) published() time.Time {
	t, err := time.Parse(time.RFC3339Nano, v.DatePublished)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (v Version) toCandidate(f *File) model.ModFileCandidate {
	name := v.Name
	if name == "" {
		name = v.VersionNumber
	}
	return model.ModFileCandidate{
		FileID:        v.ID,
		DisplayName:   name,
		FileName:      f.Filename,
		DownloadURL:   f.URL,
		FileSizeBytes: f.Size,
		GameVersions:  append([]string(nil), v.GameVersions...),
		PublishedAt:   v.published(),
		SHA1:          f.Hashes["sha1"],
	}
}

// File represents a file within a Modrinth version.
type File struct {
	Filename string            `json:"filename"`
	URL      string            `json:"url"`
	Primary  bool              `json:"primary"`
	Size     int64             `json:"size"`
	Hashes   map[string]string `json:"hashes"` // e.g., {"sha512": "...", "sha1": "..."}
}
