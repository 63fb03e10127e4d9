package launch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestStageModsCopiesOnlyMissingFiles(t *testing.T) {
	src := filepath.Join(t.TempDir(), "mods")
	dst := filepath.Join(t.TempDir(), "instance", "mods")

	writeFile(t, filepath.Join(src, "a.jar"), "a")
	writeFile(t, filepath.Join(src, "b.jar"), "b")
	writeFile(t, filepath.Join(src, ".b.jar-123.part"), "partial")
	writeFile(t, filepath.Join(dst, "b.jar"), "instance copy")
	writeFile(t, filepath.Join(dst, "local-only.jar"), "kept")

	var progress []int
	copied, err := StageMods(context.Background(), src, dst, func(name string, done, total int) {
		assert.Equal(t, "a.jar", name)
		assert.Equal(t, 1, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, copied)
	assert.Equal(t, []int{1}, progress)

	data, err := os.ReadFile(filepath.Join(dst, "b.jar"))
	require.NoError(t, err)
	assert.Equal(t, "instance copy", string(data), "existing files are never overwritten")

	_, err = os.Stat(filepath.Join(dst, "local-only.jar"))
	assert.NoError(t, err, "instance-local files are never deleted")

	_, err = os.Stat(filepath.Join(dst, ".b.jar-123.part"))
	assert.True(t, os.IsNotExist(err))
}

func TestStageModsIsIdempotent(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "mods")
	writeFile(t, filepath.Join(src, "a.jar"), "a")
	writeFile(t, filepath.Join(src, "b.jar"), "b")

	copied, err := StageMods(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, copied)

	copied, err = StageMods(context.Background(), src, dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, copied)
}

func TestStageModsMissingSource(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "mods")
	copied, err := StageMods(context.Background(), filepath.Join(t.TempDir(), "nope"), dst, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, copied)

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestStageModsCancelled(t *testing.T) {
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "a.jar"), "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	copied, err := StageMods(ctx, src, filepath.Join(t.TempDir(), "mods"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, copied)
}
