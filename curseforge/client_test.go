package curseforge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modpack-launcher/model"
)

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return newClient(srv.URL, apiKey, "test-agent", 20, time.Second, time.Second, nil), &calls
}

func TestSearchNormalizesMods(t *testing.T) {
	c, _ := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/search", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		q := r.URL.Query()
		assert.Equal(t, "432", q.Get("gameId"))
		assert.Equal(t, "6", q.Get("classId"))
		assert.Equal(t, "jei", q.Get("searchFilter"))
		assert.Equal(t, "1.20.1", q.Get("gameVersion"))
		w.Write([]byte(`{"data":[
			{"id":238222,"name":"Just Enough Items","slug":"jei","summary":"View items","downloadCount":3.5e8,
			 "links":{"websiteUrl":"https://www.curseforge.com/minecraft/mc-mods/jei"},
			 "authors":[{"id":1,"name":"mezz"}],"logo":{"url":"https://media/jei.png"},
			 "categories":[{"id":1,"name":"API and Library"}]},
			{"id":42,"name":"Anonymous","links":{},"authors":[],"categories":[]}
		],"pagination":{"index":0,"pageSize":20,"resultCount":2,"totalCount":2}}`))
	})

	refs, err := c.Search(context.Background(), "jei", "1.20.1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, model.ModRef{
		ID:            "238222",
		Source:        model.SourceCurseForge,
		Slug:          "jei",
		Name:          "Just Enough Items",
		Author:        "mezz",
		Summary:       "View items",
		DownloadCount: 350000000,
		IconURL:       "https://media/jei.png",
		WebsiteURL:    "https://www.curseforge.com/minecraft/mc-mods/jei",
		Categories:    []string{"API and Library"},
	}, refs[0])
	assert.Equal(t, "Unknown", refs[1].Author)
	assert.Empty(t, refs[1].IconURL)
}

func TestSearchMissingKeyIsCredentialErrorWithoutCall(t *testing.T) {
	c, calls := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {})

	refs, err := c.Search(context.Background(), "jei", "")
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))
	assert.Empty(t, refs)
	assert.Equal(t, int32(0), calls.Load())
}

func TestSearchRejectedKeyIsCredentialError(t *testing.T) {
	for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := newTestClient(t, "bad", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid key", code)
		})
		_, err := c.Search(context.Background(), "jei", "")
		assert.True(t, model.Is(err, model.InvalidCatalogCredential), "status %d", code)
	}
}

func TestSearchServerErrorIsEmpty(t *testing.T) {
	c, _ := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})
	refs, err := c.Search(context.Background(), "jei", "")
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func TestListFilesDropsUndistributableAndSorts(t *testing.T) {
	c, _ := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mods/238222/files", r.URL.Path)
		assert.Equal(t, "1.20.1", r.URL.Query().Get("gameVersion"))
		assert.Equal(t, "10", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{"data":[
			{"id":1,"displayName":"JEI old","fileName":"jei-old.jar","fileDate":"2023-01-01T00:00:00Z","fileLength":100,
			 "downloadUrl":"https://edge/old.jar","gameVersions":["1.20.1","Forge"],"hashes":[{"value":"md5","algo":2},{"value":"sha","algo":1}]},
			{"id":2,"displayName":"JEI hidden","fileName":"jei-hidden.jar","fileDate":"2023-09-01T00:00:00Z","downloadUrl":null},
			{"id":3,"displayName":"JEI new","fileName":"jei-new.jar","fileDate":"2023-06-01T00:00:00Z","fileLength":200,
			 "downloadUrl":"https://edge/new.jar","gameVersions":["1.20.1"]}
		]}`))
	})

	files, err := c.ListFiles(context.Background(), "238222", "1.20.1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "jei-new.jar", files[0].FileName)
	assert.Equal(t, "3", files[0].FileID)
	assert.Equal(t, int64(200), files[0].FileSizeBytes)
	assert.Equal(t, "jei-old.jar", files[1].FileName)
	assert.Equal(t, "sha", files[1].SHA1)
	assert.Equal(t, []string{"1.20.1", "Forge"}, files[1].GameVersions)
}

func TestListFilesRejectsNonNumericID(t *testing.T) {
	c, calls := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.ListFiles(context.Background(), "sodium", "")
	assert.True(t, model.Is(err, model.InvalidInput))
	assert.Equal(t, int32(0), calls.Load())
}

func TestListFilesRejectedKey(t *testing.T) {
	c, _ := newTestClient(t, "bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.ListFiles(context.Background(), "1", "")
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))
}

func TestLookup(t *testing.T) {
	c, _ := newTestClient(t, "key", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mods/238222" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"data":{"id":238222,"name":"Just Enough Items","slug":"jei","downloadCount":10,
			"links":{"websiteUrl":"https://www.curseforge.com/minecraft/mc-mods/jei"},"authors":[{"id":1,"name":"mezz"}]}}`))
	})

	ref, err := c.Lookup(context.Background(), "238222")
	require.NoError(t, err)
	assert.Equal(t, "Just Enough Items", ref.Name)
	assert.Equal(t, "mezz", ref.Author)
	assert.Equal(t, model.SourceCurseForge, ref.Source)

	_, err = c.Lookup(context.Background(), "404")
	assert.True(t, model.Is(err, model.TransportError))

	_, err = c.Lookup(context.Background(), "jei")
	assert.True(t, model.Is(err, model.InvalidInput))
}

func TestLookupMissingKey(t *testing.T) {
	c, calls := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {})
	_, err := c.Lookup(context.Background(), "238222")
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))
	assert.Equal(t, int32(0), calls.Load())
}
