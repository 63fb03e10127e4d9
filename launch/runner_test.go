package launch

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modpack-launcher/model"
)

func fakeJava(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in for java")
	}
	path := filepath.Join(t.TempDir(), "java")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return path
}

func runnerOptions(t *testing.T, javaPath string) ProcessOptions {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "versions", "1.20.1", "1.20.1.jar"), "jar")
	gameDir := filepath.Join(root, "instances", "x")
	require.NoError(t, os.MkdirAll(gameDir, 0755))
	return ProcessOptions{
		JavaPath:      javaPath,
		Root:          root,
		VersionNumber: "1.20.1",
		VersionType:   "release",
		MemoryMinMB:   2048,
		MemoryMaxMB:   4096,
		GameDirectory: gameDir,
		Auth:          model.Credentials{Username: "Steve", AccountID: "id", AccessToken: "tok"},
	}
}

func TestExecRunnerForwardsOutputAndExitCode(t *testing.T) {
	java := fakeJava(t, "echo \"args $*\"\necho \"warning\" >&2\nexit 3\n")
	opts := runnerOptions(t, java)

	proc, err := ExecRunner{}.Start(context.Background(), opts)
	require.NoError(t, err)

	var data, debug []string
	for sig := range proc.Signals() {
		switch sig.Kind {
		case EventData:
			data = append(data, sig.Line)
		case EventDebug:
			debug = append(debug, sig.Line)
		}
	}
	code, err := proc.Wait()
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	require.Len(t, data, 1)
	assert.True(t, strings.HasPrefix(data[0], "args -Xms2048M -Xmx4096M -jar "), data[0])
	assert.Contains(t, data[0], "--username Steve")
	assert.Equal(t, []string{"warning"}, debug)
}

func TestExecRunnerKill(t *testing.T) {
	java := fakeJava(t, "exec sleep 30\n")
	proc, err := ExecRunner{}.Start(context.Background(), runnerOptions(t, java))
	require.NoError(t, err)

	require.NoError(t, proc.Kill())
	for range proc.Signals() {
	}
	code, _ := proc.Wait()
	assert.NotEqual(t, 0, code)
}

func TestExecRunnerMissingGameVersion(t *testing.T) {
	opts := runnerOptions(t, "java")
	opts.VersionNumber = "1.7.10"

	_, err := ExecRunner{}.Start(context.Background(), opts)
	assert.True(t, model.Is(err, model.IOError))
}
