package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rberrors "github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/logging"
	"github.com/refnlabs/refbuild/internal/registry"
)

func newTestScanner() *SchemaScanner {
	return NewSchemaScanner(registry.NewSchemaRegistry(), logging.NewDiscard())
}

func writeSchema(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverFiles_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "zeta.schema", "@schema name=zeta\n")
	writeSchema(t, dir, "alpha.schema", "@schema name=alpha\n")
	writeSchema(t, dir, "nested/mid.schema", "@schema name=mid\n")
	writeSchema(t, dir, "notes.txt", "not a schema\n")

	s := newTestScanner()
	paths, err := s.DiscoverFiles(dir)
	require.NoError(t, err)

	require.Len(t, paths, 3)
	assert.True(t, filepath.IsAbs(paths[0]))
	// Sorted by absolute path.
	assert.Equal(t, "alpha.schema", filepath.Base(paths[0]))
	assert.Equal(t, "mid.schema", filepath.Base(paths[1]))
	assert.Equal(t, "zeta.schema", filepath.Base(paths[2]))
}

func TestDiscoverFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeSchema(t, dir, "user.schema", "@schema name=user\n")

	s := newTestScanner()
	paths, err := s.DiscoverFiles(path)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "user.schema", filepath.Base(paths[0]))
}

func TestDiscoverFiles_MissingRoot(t *testing.T) {
	s := newTestScanner()
	_, err := s.DiscoverFiles(filepath.Join(t.TempDir(), "gone"))
	assert.Error(t, err)
}

func TestDiscoverFiles_ExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "keep.schema", "@schema name=keep\n")
	writeSchema(t, dir, "skip.schema", "@schema name=skip\n")
	writeSchema(t, dir, "vendor/dep.schema", "@schema name=dep\n")

	s := newTestScanner()
	s.SetExcludePatterns([]string{"skip.schema", "vendor"})

	paths, err := s.DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	assert.Equal(t, "keep.schema", filepath.Base(paths[0]))
}

func TestScanPaths_RegistersGraph(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "base.schema", "@schema name=base\n")
	writeSchema(t, dir, "top.schema", "@schema name=top\nfield b refn:base\n")

	s := newTestScanner()
	paths, err := s.DiscoverFiles(dir)
	require.NoError(t, err)

	collector := s.ScanPaths(context.Background(), paths)
	assert.False(t, collector.HasErrors())

	reg := s.GetRegistry()
	assert.Equal(t, []string{"base", "top"}, reg.Names())
	top, _ := reg.Get("top")
	assert.Equal(t, []string{"base"}, top.Dependencies)
}

func TestScanPaths_BadFileDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "good.schema", "@schema name=good\n")
	writeSchema(t, dir, "headless.schema", "no marker here\n")

	s := newTestScanner()
	paths, err := s.DiscoverFiles(dir)
	require.NoError(t, err)

	collector := s.ScanPaths(context.Background(), paths)
	require.True(t, collector.HasErrors())
	require.Len(t, collector.Errors(), 1)
	assert.Equal(t, rberrors.KindMissingHeader, collector.Errors()[0].Kind)

	// The good file still made it into the registry.
	_, exists := s.GetRegistry().Get("good")
	assert.True(t, exists)
}

func TestScanPaths_DuplicateIdentifierCollected(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "a.schema", "@schema name=user\n")
	writeSchema(t, dir, "b.schema", "@schema name=user\n")

	s := newTestScanner()
	paths, err := s.DiscoverFiles(dir)
	require.NoError(t, err)

	collector := s.ScanPaths(context.Background(), paths)
	require.Len(t, collector.Errors(), 1)
	assert.Equal(t, rberrors.KindDuplicateIdentifier, collector.Errors()[0].Kind)

	// Sorted discovery means a.schema wins deterministically.
	path, perr := s.GetRegistry().PathOf("user")
	require.Nil(t, perr)
	assert.Equal(t, "a.schema", filepath.Base(path))
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, "one.schema", "@schema name=one\n")

	s := newTestScanner()
	paths, collector, err := s.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, paths, 1)
	assert.False(t, collector.HasErrors())
	assert.Equal(t, 1, s.GetRegistry().Count())
}
