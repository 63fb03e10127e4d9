package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modpack-launcher/model"
)

const profileJSON = `{"id":"fabric-loader-0.15.0-1.20.1","inheritsFrom":"1.20.1","mainClass":"net.fabricmc.loader.impl.launch.knot.KnotClient"}`

type pathLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *pathLog) add(p string) {
	l.mu.Lock()
	l.paths = append(l.paths, p)
	l.mu.Unlock()
}

func (l *pathLog) get() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

func fabricMeta(t *testing.T) (*httptest.Server, *pathLog) {
	t.Helper()
	paths := &pathLog{}
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/versions/loader/1.20.1", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		_, _ = w.Write([]byte(`[{"loader":{"version":"0.16.9","stable":true}},{"loader":{"version":"0.15.0","stable":true}}]`))
	})
	mux.HandleFunc("/v2/versions/loader/1.20.1/0.15.0/profile/json", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		_, _ = w.Write([]byte(profileJSON))
	})
	mux.HandleFunc("/v2/versions/loader/1.20.1/0.16.9/profile/json", func(w http.ResponseWriter, r *http.Request) {
		paths.add(r.URL.Path)
		_, _ = w.Write([]byte(profileJSON))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, paths
}

func newTestProvisioner(url string) *Provisioner {
	return newProvisioner(url, "test-agent", 2*time.Second, 2*time.Second, nil)
}

func TestProvisionVanillaIsNoop(t *testing.T) {
	gameDir := t.TempDir()
	res := newTestProvisioner("http://127.0.0.1:1").Provision(context.Background(), "1.20.1", model.LoaderSpec{Kind: model.LoaderVanilla}, gameDir)
	assert.True(t, res.OK)
	assert.Empty(t, res.ProfilePath)
	assert.Empty(t, res.Notice())
	assert.NoError(t, res.Degraded())

	entries, err := os.ReadDir(gameDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestProvisionFabricPinnedVersion(t *testing.T) {
	srv, paths := fabricMeta(t)
	gameDir := t.TempDir()

	res := newTestProvisioner(srv.URL).Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: model.LoaderFabric, Version: "0.15.0"}, gameDir)
	require.True(t, res.OK, res.Notice())
	assert.Equal(t, filepath.Join(gameDir, ProfileFileName), res.ProfilePath)
	assert.Equal(t, "0.15.0", res.Version)
	assert.Equal(t, []string{"/v2/versions/loader/1.20.1/0.15.0/profile/json"}, paths.get())

	data, err := os.ReadFile(res.ProfilePath)
	require.NoError(t, err)
	assert.Equal(t, profileJSON, string(data))
}

func TestProvisionFabricLatestResolvesNewest(t *testing.T) {
	srv, paths := fabricMeta(t)
	gameDir := t.TempDir()

	res := newTestProvisioner(srv.URL).Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: model.LoaderFabric}, gameDir)
	require.True(t, res.OK, res.Notice())
	assert.Equal(t, "0.16.9", res.Version)
	assert.Equal(t, []string{
		"/v2/versions/loader/1.20.1",
		"/v2/versions/loader/1.20.1/0.16.9/profile/json",
	}, paths.get())
}

func TestProvisionFabricFetchFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	gameDir := t.TempDir()

	res := newTestProvisioner(srv.URL).Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: model.LoaderFabric, Version: "0.15.0"}, gameDir)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonFetchFailed, res.Reason)
	assert.Contains(t, res.Notice(), "vanilla")
	assert.True(t, model.Is(res.Degraded(), model.ProvisionDegraded))

	_, err := os.Stat(filepath.Join(gameDir, ProfileFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestProvisionFabricUnreachable(t *testing.T) {
	res := newTestProvisioner("http://127.0.0.1:1").Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: model.LoaderFabric}, t.TempDir())
	assert.False(t, res.OK)
	assert.Equal(t, ReasonFetchFailed, res.Reason)
}

func TestProvisionFabricWriteFailureDegrades(t *testing.T) {
	srv, _ := fabricMeta(t)
	// A regular file where the game directory should be makes every write fail.
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	res := newTestProvisioner(srv.URL).Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: model.LoaderFabric, Version: "0.15.0"}, blocker)
	assert.False(t, res.OK)
	assert.Equal(t, ReasonWriteFailed, res.Reason)
}

func TestProvisionManualLoaders(t *testing.T) {
	for _, kind := range []model.LoaderKind{model.LoaderForge, model.LoaderQuilt, model.LoaderNeoForge} {
		t.Run(string(kind), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unexpected request %s", r.URL.Path)
			}))
			defer srv.Close()

			res := newTestProvisioner(srv.URL).Provision(context.Background(), "1.20.1", model.LoaderSpec{Kind: kind}, t.TempDir())
			assert.False(t, res.OK)
			assert.Equal(t, ReasonManualInstallRequired, res.Reason)
			assert.Contains(t, res.Notice(), "manually")
		})
	}
}

func TestProvisionUnknownLoader(t *testing.T) {
	res := newTestProvisioner("http://127.0.0.1:1").Provision(context.Background(), "1.20.1",
		model.LoaderSpec{Kind: "liteloader"}, t.TempDir())
	assert.False(t, res.OK)
	assert.Equal(t, ReasonUnsupportedLoader, res.Reason)
}
