package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/refnlabs/refbuild/internal/config"
	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/logging"
	"github.com/refnlabs/refbuild/internal/registry"
	"github.com/refnlabs/refbuild/internal/scanner"
)

// scanWorkspace discovers and parses every schema under the configured roots,
// returning the populated registry, the candidate paths, and the per-file
// error batch. Scan errors never abort the workspace; callers decide how to
// render the batch.
func scanWorkspace(ctx context.Context, cfg *config.Config, logger logging.Logger) (*registry.SchemaRegistry, []string, *errors.ErrorCollector, error) {
	reg := registry.NewSchemaRegistry()
	s := scanner.NewSchemaScanner(reg, logger)
	s.SetExcludePatterns(cfg.Schemas.ExcludePatterns)

	collector := errors.NewErrorCollector()
	var candidates []string

	for _, root := range cfg.Schemas.Roots {
		paths, rootErrors, err := s.ScanDirectory(ctx, root)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to scan %s: %w", root, err)
		}
		candidates = append(candidates, paths...)
		for _, ferr := range rootErrors.Errors() {
			collector.Add(ferr)
		}
	}

	return reg, candidates, collector, nil
}

// printBatchErrors renders a collected error batch to stderr.
func printBatchErrors(collector *errors.ErrorCollector) {
	if collector == nil || !collector.HasErrors() {
		return
	}
	fmt.Fprintf(os.Stderr, "%d file(s) reported problems:\n%s", len(collector.Errors()), collector.Summary())
}
