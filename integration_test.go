package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refnlabs/refbuild/internal/build"
	"github.com/refnlabs/refbuild/internal/cache"
	"github.com/refnlabs/refbuild/internal/config"
	"github.com/refnlabs/refbuild/internal/logging"
	"github.com/refnlabs/refbuild/internal/registry"
	"github.com/refnlabs/refbuild/internal/scanner"
)

func writeWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"base.schema":  "@schema name=base\nfield id int\n",
		"user.schema":  "@schema name=user\nfield b refn:base\n",
		"group.schema": "@schema name=group\nfield owner refn:user\nfield b refn:base\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestIntegration_FullBuildPass(t *testing.T) {
	dir := writeWorkspace(t)
	logger := logging.NewDiscard()

	s := scanner.NewSchemaScanner(registry.NewSchemaRegistry(), logger)
	candidates, collector, err := s.ScanDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.False(t, collector.HasErrors())
	require.Len(t, candidates, 3)

	cachePath := filepath.Join(dir, ".refbuild", "cache.json")
	hashCache, cerr := cache.Load(cachePath)
	require.Nil(t, cerr)

	builder, err := build.NewCommandBuilder("cat", nil)
	require.NoError(t, err)

	planner := build.NewPlanner(s.GetRegistry(), hashCache, builder, logger)
	plan, result := planner.Run(context.Background(), candidates)

	require.False(t, result.Errors.HasErrors())
	assert.False(t, plan.HasCycle)
	assert.Equal(t, []string{"base", "user", "group"}, result.Built)
	assert.True(t, result.Persisted)

	// The artifact carries the schema file content.
	artifact := result.Artifacts["user"]
	require.NotNil(t, artifact)
	assert.Contains(t, string(artifact.Output), "refn:base")
}

func TestIntegration_IncrementalRebuild(t *testing.T) {
	dir := writeWorkspace(t)
	logger := logging.NewDiscard()
	cachePath := filepath.Join(dir, ".refbuild", "cache.json")

	builder, err := build.NewCommandBuilder("cat", nil)
	require.NoError(t, err)

	runPass := func() *build.Result {
		s := scanner.NewSchemaScanner(registry.NewSchemaRegistry(), logger)
		candidates, collector, serr := s.ScanDirectory(context.Background(), dir)
		require.NoError(t, serr)
		require.False(t, collector.HasErrors())

		hashCache, cerr := cache.Load(cachePath)
		require.Nil(t, cerr)

		planner := build.NewPlanner(s.GetRegistry(), hashCache, builder, logger)
		_, result := planner.Run(context.Background(), candidates)
		require.False(t, result.Errors.HasErrors())
		return result
	}

	// Cold pass builds everything, the next one nothing.
	assert.Len(t, runPass().Built, 3)
	assert.Empty(t, runPass().Built)

	// Editing user rebuilds user and its dependent group, never base.
	userPath := filepath.Join(dir, "user.schema")
	require.NoError(t, os.WriteFile(userPath, []byte("@schema name=user\nfield b refn:base\nfield email string\n"), 0o644))

	rebuilt := runPass().Built
	assert.Equal(t, []string{"user", "group"}, rebuilt)

	// A whitespace-only touch is not a change.
	content, err := os.ReadFile(userPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(userPath, append(content, '\n'), 0o644))
	assert.Empty(t, runPass().Built)
}

func TestIntegration_ConfigDrivesScanRoots(t *testing.T) {
	dir := writeWorkspace(t)

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("schemas.roots", []string{dir})
	viper.Set("schemas.exclude_patterns", []string{"group.schema"})

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, []string{dir}, cfg.Schemas.Roots)

	s := scanner.NewSchemaScanner(registry.NewSchemaRegistry(), logging.NewDiscard())
	s.SetExcludePatterns(cfg.Schemas.ExcludePatterns)

	candidates, collector, err := s.ScanDirectory(context.Background(), cfg.Schemas.Roots[0])
	require.NoError(t, err)
	require.False(t, collector.HasErrors())
	assert.Len(t, candidates, 2)
	assert.Equal(t, []string{"base", "user"}, s.GetRegistry().Names())
}
