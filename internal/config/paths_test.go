package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	absOut := filepath.Join(t.TempDir(), "out")

	paths, err := NewPaths(PathsConfig{
		BaseDir:   base,
		InputDir:  "Data",
		OutputDir: absOut,
		LogsDir:   "logs",
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "Data"), paths.InputDir)
	assert.Equal(t, absOut, paths.OutputDir)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)
	assert.True(t, filepath.IsAbs(paths.BaseDir))
}

func TestPathHelperMethods(t *testing.T) {
	paths := &Paths{
		BaseDir:   "/base",
		InputDir:  "/base/Data",
		OutputDir: "/base/ProcessedData",
		LogsDir:   "/base/logs",
	}

	assert.Equal(t, filepath.Join("/base/Data", "testing.csv"), paths.GetInputPath("testing.csv"))
	assert.Equal(t, filepath.Join("/base/ProcessedData", "processed_testing.csv"), paths.GetOutputPath("processed_testing.csv"))
	assert.Equal(t, filepath.Join("/base/logs", "covidprep.log"), paths.GetLogPath("covidprep.log"))
	assert.Equal(t, filepath.Join("/base/ProcessedData", "manifest.json"), paths.GetManifestPath())
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths, err := NewPaths(PathsConfig{BaseDir: base, InputDir: "in", OutputDir: "out/nested", LogsDir: "logs"})
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())

	assert.DirExists(t, paths.OutputDir)
	assert.DirExists(t, paths.LogsDir)
	assert.NoDirExists(t, paths.InputDir)
}

func TestEnsureDirectoriesBlockedByFile(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "out"), []byte("x"), 0644))

	paths, err := NewPaths(PathsConfig{BaseDir: base, InputDir: "in", OutputDir: "out", LogsDir: "logs"})
	require.NoError(t, err)

	assert.Error(t, paths.EnsureDirectories())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.csv")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(filepath.Join(dir, "b.csv")))
}
