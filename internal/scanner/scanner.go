// Package scanner provides schema discovery for refbuild.
//
// The scanner walks directories for .schema files, parses each through the
// reference parser, and registers the results. Files that fail to parse are
// reported individually through an error collector and excluded from the
// graph; one bad file never aborts the scan.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/logging"
	"github.com/refnlabs/refbuild/internal/parser"
	"github.com/refnlabs/refbuild/internal/registry"
)

// SchemaSuffix is the recognized file extension for schema files.
const SchemaSuffix = ".schema"

// SchemaScanner discovers schema files and populates the registry.
type SchemaScanner struct {
	registry *registry.SchemaRegistry
	parser   *parser.Parser
	exclude  []string
	logger   logging.Logger
}

// NewSchemaScanner creates a scanner feeding the given registry.
func NewSchemaScanner(reg *registry.SchemaRegistry, logger logging.Logger) *SchemaScanner {
	return &SchemaScanner{
		registry: reg,
		parser:   parser.New(),
		logger:   logger.WithComponent("scanner"),
	}
}

// SetExcludePatterns installs glob patterns (matched against the base name
// and the slash path) that exclude files from scanning.
func (s *SchemaScanner) SetExcludePatterns(patterns []string) {
	s.exclude = patterns
}

// GetRegistry returns the registry this scanner feeds.
func (s *SchemaScanner) GetRegistry() *registry.SchemaRegistry {
	return s.registry
}

// DiscoverFiles walks root and returns every .schema path, sorted. If root is
// itself a file it is returned as the single candidate. Sorted order keeps
// duplicate-identifier reporting and build plans reproducible across runs.
func (s *SchemaScanner) DiscoverFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if s.excluded(path) && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), SchemaSuffix) || s.excluded(path) {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		paths = append(paths, abs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	return paths, nil
}

// ScanPaths parses every candidate path and registers the results. Parse and
// registration failures are collected per file; the returned collector holds
// the batch and the scan itself only errors on nothing at all.
func (s *SchemaScanner) ScanPaths(ctx context.Context, paths []string) *errors.ErrorCollector {
	collector := errors.NewErrorCollector()

	for _, path := range paths {
		info, perr := s.parser.ParseFile(path)
		if perr != nil {
			s.logger.Warn(ctx, perr, "skipping schema file", "path", path)
			collector.Add(perr)
			continue
		}

		if rerr := s.registry.Register(info); rerr != nil {
			s.logger.Warn(ctx, rerr, "cannot register schema", "path", path, "name", info.Name)
			collector.Add(rerr)
			continue
		}

		s.logger.Debug(ctx, "registered schema", "name", info.Name, "path", path, "deps", len(info.Dependencies))
	}

	return collector
}

// ScanDirectory discovers and scans every schema file under root.
func (s *SchemaScanner) ScanDirectory(ctx context.Context, root string) ([]string, *errors.ErrorCollector, error) {
	paths, err := s.DiscoverFiles(root)
	if err != nil {
		return nil, nil, err
	}
	collector := s.ScanPaths(ctx, paths)
	return paths, collector, nil
}

// excluded reports whether path matches any exclude pattern.
func (s *SchemaScanner) excluded(path string) bool {
	base := filepath.Base(path)
	slashPath := filepath.ToSlash(path)
	for _, pattern := range s.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		if ok, _ := filepath.Match(pattern, slashPath); ok {
			return true
		}
	}
	return false
}
