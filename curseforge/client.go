package curseforge

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
	curseforgeAPIURL = "https://api.curseforge.com/v1"

	minecraftGameID = 432
	modsClassID     = 6
	filesPageSize   = 10
	unknownAuthor   = "Unknown"
)

// Client handles communication with the CurseForge API. Every listing call
// needs an API key.
type Client struct {
	req    *catalog.Requester
	apiKey string
	limit  int
	log    *zap.SugaredLogger
}

var (
	_ catalog.Client = (*Client)(nil)
	_ catalog.Lookup = (*Client)(nil)
)

func NewClient(cfg config.Config, log *zap.SugaredLogger) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	return newClient(curseforgeAPIURL, cfg.CurseForgeAPIKey, cfg.UserAgent, cfg.SearchLimit, cfg.CatalogTimeout, cfg.DownloadTimeout, log), nil
}

func newClient(baseURL, apiKey, userAgent string, limit int, timeout, downloadTimeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		req: &catalog.Requester{
			BaseURL:         baseURL,
			UserAgent:       userAgent,
			Headers:         map[string]string{"x-api-key": apiKey},
			HTTPClient:      &http.Client{},
			Timeout:         timeout,
			DownloadTimeout: downloadTimeout,
		},
		apiKey: apiKey,
		limit:  limit,
		log:    log.With(zap.String("source", string(model.SourceCurseForge))),
	}
}

func (c *Client) Source() model.Source {
	return model.SourceCurseForge
}

func (c *Client) requireKey() error {
	if c.apiKey == "" {
		return model.NewInvalidCatalogCredentialError(c.Source(), fmt.Errorf("CURSEFORGE_API_KEY is not set"))
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query, gameVersion string) ([]model.ModRef, error) {
	if err := c.requireKey(); err != nil {
		return []model.ModRef{}, err
	}
	params := url.Values{}
	params.Set("gameId", strconv.Itoa(minecraftGameID))
	params.Set("classId", strconv.Itoa(modsClassID))
	params.Set("searchFilter", query)
	params.Set("pageSize", strconv.Itoa(c.limit))
	if gameVersion != "" {
		params.Set("gameVersion", gameVersion)
	}

	var res Response[[]Mod]
	if err := c.req.GetJSON(ctx, "/mods/search", params, &res); err != nil {
		return []model.ModRef{}, catalog.Absorb(c.log, c.Source(), "search", err)
	}

	refs := make([]model.ModRef, 0, len(res.Data))
	for _, m := range res.Data {
		if m.ID == 0 {
			continue
		}
		refs = append(refs, m.toModRef())
	}
	return refs, nil
}

func (c *Client) ListFiles(ctx context.Context, modID, gameVersion string) ([]model.ModFileCandidate, error) {
	if err := c.requireKey(); err != nil {
		return []model.ModFileCandidate{}, err
	}
	if _, err := strconv.Atoi(modID); err != nil {
		return []model.ModFileCandidate{}, model.NewInvalidInputError(fmt.Sprintf("%q is not a CurseForge mod id", modID), err)
	}
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(filesPageSize))
	if gameVersion != "" {
		params.Set("gameVersion", gameVersion)
	}

	var res Response[[]File]
	if err := c.req.GetJSON(ctx, "/mods/"+modID+"/files", params, &res); err != nil {
		return []model.ModFileCandidate{}, catalog.Absorb(c.log, c.Source(), "list files", err)
	}

	files := make([]model.ModFileCandidate, 0, len(res.Data))
	for _, f := range res.Data {
		// Authors can opt out of third-party distribution, leaving no URL.
		if f.DownloadURL == nil || *f.DownloadURL == "" || f.FileName == "" {
			c.log.Debugw("Skipping file without download url", zap.Int("file_id", f.ID))
			continue
		}
		files = append(files, f.toCandidate())
	}
	catalog.SortNewestFirst(files)
	return files, nil
}

// Lookup fetches a single mod by its numeric id.
func (c *Client) Lookup(ctx context.Context, modID string) (model.ModRef, error) {
	if err := c.requireKey(); err != nil {
		return model.ModRef{}, err
	}
	if _, err := strconv.Atoi(modID); err != nil {
		return model.ModRef{}, model.NewInvalidInputError(fmt.Sprintf("%q is not a CurseForge mod id", modID), err)
	}
	var res Response[Mod]
	if err := c.req.GetJSON(ctx, "/mods/"+modID, nil, &res); err != nil {
		return model.ModRef{}, catalog.LookupError(c.Source(), modID, err)
	}
	return res.Data.toModRef(), nil
}

func (c *Client) Fetch(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	return c.req.Download(ctx, downloadURL)
}

func (m Mod) toModRef() model.ModRef {
	author := unknownAuthor
	if len(m.Authors) > 0 && m.Authors[0].Name != "" {
		author = m.Authors[0].Name
	}
	var icon string
	if m.Logo != nil {
		icon = m.Logo.URL
	}
	categories := make([]string, 0, len(m.Categories))
	for _, cat := range m.Categories {
		categories = append(categories, cat.Name)
	}
	return model.ModRef{
		ID:            strconv.Itoa(m.ID),
		Source:        model.SourceCurseForge,
		Slug:          m.Slug,
		Name:          m.Name,
		Author:        author,
		Summary:       m.Summary,
		DownloadCount: int64(m.DownloadCount),
		IconURL:       icon,
		WebsiteURL:    m.Links.WebsiteURL,
		Categories:    categories,
	}
}

func (f File) toCandidate() model.ModFileCandidate {
	var sha1 string
	for _, h := range f.Hashes {
		if h.Algo == hashAlgoSHA1 {
			sha1 = h.Value
		}
	}
	return model.ModFileCandidate{
		FileID:        strconv.Itoa(f.ID),
		DisplayName:   f.DisplayName,
		FileName:      f.FileName,
		DownloadURL:   *f.DownloadURL,
		FileSizeBytes: f.FileLength,
		GameVersions:  append([]string(nil), f.GameVersions...),
		PublishedAt:   f.FileDate,
		SHA1:          sha1,
	}
}
