package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/refnlabs/refbuild/internal/build"
	"github.com/refnlabs/refbuild/internal/cache"
	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild automatically when schema files change",
	Long: `Watch performs an initial incremental build, then monitors the configured
roots and re-plans after each debounced batch of file changes. A background
validation pass reports cycles and dangling references after every batch;
only the newest pending check publishes its result.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	hashCache, cerr := cache.Load(cfg.Build.CacheFile)
	if cerr != nil {
		logger.Warn(ctx, cerr, "cache unreadable, starting cold", "path", cfg.Build.CacheFile)
	}

	builder, err := build.NewCommandBuilder(cfg.Build.Command, cfg.Build.Args)
	if err != nil {
		return err
	}

	checker := build.NewChecker(logger)

	// One full pass rebuilds the graph from scratch, plans against the shared
	// cache, and executes. Watch mode repeats it per change batch; a stale
	// directory listing between batches is reconciled by the rescan.
	runPass := func() {
		reg, candidates, scanErrors, err := scanWorkspace(ctx, cfg, logger)
		if err != nil {
			logger.Error(ctx, err, "scan failed")
			return
		}
		printBatchErrors(scanErrors)

		planner := build.NewPlanner(reg, hashCache, builder, logger)
		plan, planErrors := planner.Plan(ctx, candidates)
		printBatchErrors(planErrors)

		if len(plan.Targets) == 0 {
			fmt.Println("Up to date.")
		} else {
			buildCtx, cancel := context.WithTimeout(ctx, cfg.Build.Timeout)
			result := planner.Execute(buildCtx, plan)
			cancel()
			if result.Errors.HasErrors() {
				printBatchErrors(result.Errors)
			} else {
				fmt.Printf("Built %d schema(s) in %s.\n", len(result.Built), result.Duration.Round(time.Millisecond))
			}
		}

		// Validation runs detached; the foreground only polls the result.
		adjacency := reg.DependencyGraph()
		fileErrors := scanErrors.Errors()
		checker.Check(ctx, adjacency, func(context.Context) ([]*errors.FileError, map[string][]string) {
			return fileErrors, nil
		})
	}

	runPass()

	fw, err := watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(watcher.SchemaFileFilter)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		fmt.Printf("%d change(s) detected, rebuilding...\n", len(events))
		runPass()
		if latest := checker.Latest(); latest != nil {
			for _, cycle := range latest.Cycles {
				fmt.Fprintf(os.Stderr, "warning: dependency cycle: %v\n", cycle)
			}
		}
		return nil
	})

	for _, root := range cfg.Schemas.Roots {
		if err := fw.AddRecursive(root); err != nil {
			return fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}
	fw.Start(ctx)

	fmt.Println("Watching for changes. Press Ctrl+C to stop.")
	<-ctx.Done()
	fmt.Println("\nStopped.")
	return nil
}
