package catalog

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"modpack-launcher/model"
)

func TestGetJSONSendsHeadersAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/thing", r.URL.Path)
		assert.Equal(t, "q", r.URL.Query().Get("query"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"name":"sodium"}`))
	}))
	defer srv.Close()

	r := &Requester{BaseURL: srv.URL + "/v1", UserAgent: "test-agent", Headers: map[string]string{"x-api-key": "k"}}
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, r.GetJSON(context.Background(), "/thing", url.Values{"query": {"q"}}, &out))
	assert.Equal(t, "sodium", out.Name)
}

func TestGetJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	r := &Requester{BaseURL: srv.URL}
	err := r.GetJSON(context.Background(), "/", nil, &struct{}{})
	require.Error(t, err)
	assert.True(t, IsAuthFailure(err))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Code)
}

func TestGetJSONTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := &Requester{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}
	start := time.Now()
	err := r.GetJSON(context.Background(), "/", nil, &struct{}{})
	require.Error(t, err)
	assert.False(t, IsAuthFailure(err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jar-bytes"))
	}))
	defer srv.Close()

	r := &Requester{DownloadTimeout: time.Second}
	body, err := r.Download(context.Background(), srv.URL+"/file.jar")
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, "jar-bytes", string(data))

	_, err = r.Download(context.Background(), srv.URL+"/missing")
	assert.True(t, model.Is(err, model.TransportError))
}

func TestAbsorb(t *testing.T) {
	log := zap.NewNop().Sugar()

	assert.NoError(t, Absorb(log, model.SourceModrinth, "search", nil))
	assert.NoError(t, Absorb(log, model.SourceModrinth, "search", errors.New("connection refused")))
	assert.NoError(t, Absorb(log, model.SourceModrinth, "search", &StatusError{Code: 500}))

	err := Absorb(log, model.SourceCurseForge, "search", &StatusError{Code: 401})
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))

	err = Absorb(log, model.SourceCurseForge, "search", model.NewInvalidCatalogCredentialError(model.SourceCurseForge, nil))
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))
}

func TestLookupError(t *testing.T) {
	err := LookupError(model.SourceCurseForge, "1", &StatusError{Code: 403})
	assert.True(t, model.Is(err, model.InvalidCatalogCredential))

	err = LookupError(model.SourceModrinth, "x", &StatusError{Code: 404})
	assert.True(t, model.Is(err, model.TransportError))

	err = LookupError(model.SourceModrinth, "x", model.NewInvalidInputError("bad id", nil))
	assert.True(t, model.Is(err, model.InvalidInput))
}

func TestSortNewestFirstIsStable(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	files := []model.ModFileCandidate{
		{FileID: "a", PublishedAt: day(1)},
		{FileID: "b", PublishedAt: day(3)},
		{FileID: "c", PublishedAt: day(3)},
		{FileID: "d", PublishedAt: day(2)},
	}
	SortNewestFirst(files)

	var ids []string
	for _, f := range files {
		ids = append(ids, f.FileID)
	}
	assert.Equal(t, []string{"b", "c", "d", "a"}, ids)
}

type stubClient struct{ source model.Source }

func (s stubClient) Source() model.Source { return s.source }
func (s stubClient) Search(context.Context, string, string) ([]model.ModRef, error) {
	return nil, nil
}
func (s stubClient) ListFiles(context.Context, string, string) ([]model.ModFileCandidate, error) {
	return nil, nil
}
func (s stubClient) Fetch(context.Context, string) (io.ReadCloser, error) { return nil, nil }

func TestRegistry(t *testing.T) {
	reg := NewRegistry(stubClient{model.SourceModrinth})

	c, err := reg.Get(model.SourceModrinth)
	require.NoError(t, err)
	assert.Equal(t, model.SourceModrinth, c.Source())

	_, err = reg.Get(model.SourceCurseForge)
	assert.True(t, model.Is(err, model.InvalidInput))
}
