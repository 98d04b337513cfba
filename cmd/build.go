package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/refnlabs/refbuild/internal/build"
	"github.com/refnlabs/refbuild/internal/cache"
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build changed schemas and everything that depends on them",
	Long: `Build compares every schema file against the content-hash cache, expands the
changed set to its transitive dependents, and hands each schema to the
configured build command in dependency order.

The cache is only written after the whole pass succeeds, so an aborted run
never marks a file as built.

Examples:
  refbuild build                  # Incremental build over configured roots
  refbuild build schemas/user.schema   # Consider a single file as candidate
  refbuild build --force          # Ignore the cache and rebuild everything
  refbuild build --dry-run        # Show the plan without building`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

var (
	buildForce  bool
	buildDryRun bool
)

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild everything regardless of the cache")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "Plan only, do not invoke the build command")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Schemas.Roots = []string{args[0]}
	}
	logger := newLogger(cfg)

	reg, candidates, scanErrors, err := scanWorkspace(ctx, cfg, logger)
	if err != nil {
		return err
	}
	printBatchErrors(scanErrors)

	if len(candidates) == 0 {
		fmt.Println("No schema files found.")
		return nil
	}

	var hashCache *cache.ContentHashCache
	if buildForce {
		hashCache = cache.New(cfg.Build.CacheFile)
	} else {
		var cerr error
		hashCache, cerr = cache.Load(cfg.Build.CacheFile)
		if cerr != nil {
			logger.Warn(ctx, cerr, "cache unreadable, starting cold", "path", cfg.Build.CacheFile)
		}
	}

	builder, err := build.NewCommandBuilder(cfg.Build.Command, cfg.Build.Args)
	if err != nil {
		return err
	}

	planner := build.NewPlanner(reg, hashCache, builder, logger)

	plan, planErrors := planner.Plan(ctx, candidates)
	printBatchErrors(planErrors)

	if plan.HasCycle {
		fmt.Fprintln(os.Stderr, "warning: dependency cycle detected, build order is best-effort")
	}

	if len(plan.Targets) == 0 {
		fmt.Printf("Nothing to build: %d schema(s) up to date.\n", len(candidates))
		return nil
	}

	fmt.Printf("Building %d of %d schema(s):\n", len(plan.Targets), reg.Count())
	for _, schema := range plan.Targets {
		status := plan.Statuses[schema.FilePath]
		fmt.Printf("  %-10s %s\n", status.String(), schema.Name)
	}

	if buildDryRun {
		return nil
	}

	buildCtx, cancel := context.WithTimeout(ctx, cfg.Build.Timeout)
	defer cancel()

	result := planner.Execute(buildCtx, plan)
	if result.Errors.HasErrors() {
		printBatchErrors(result.Errors)
		return fmt.Errorf("build aborted after %d successful schema(s)", len(result.Built))
	}

	fmt.Printf("Built %d schema(s) in %s.\n", len(result.Built), result.Duration.Round(time.Millisecond))
	return nil
}
