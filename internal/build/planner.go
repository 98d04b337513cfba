package build

import (
	"context"
	"os"
	"time"

	"github.com/refnlabs/refbuild/internal/cache"
	"github.com/refnlabs/refbuild/internal/errors"
	"github.com/refnlabs/refbuild/internal/graph"
	"github.com/refnlabs/refbuild/internal/logging"
	"github.com/refnlabs/refbuild/internal/registry"
	"github.com/refnlabs/refbuild/internal/types"
)

// Planner intersects cache classification with graph topology to produce the
// ordered rebuild work list and drives it through the build facade.
type Planner struct {
	registry *registry.SchemaRegistry
	cache    *cache.ContentHashCache
	builder  Builder
	logger   logging.Logger
}

// NewPlanner wires a planner over an already-populated registry.
func NewPlanner(reg *registry.SchemaRegistry, hashCache *cache.ContentHashCache, builder Builder, logger logging.Logger) *Planner {
	return &Planner{
		registry: reg,
		cache:    hashCache,
		builder:  builder,
		logger:   logger.WithComponent("planner"),
	}
}

// Plan is the ordered rebuild work list for one pass.
type Plan struct {
	// Targets holds the must-rebuild closure in topological order,
	// dependencies before dependents. Changed files are included.
	Targets []*types.SchemaInfo
	// Statuses records the cache classification per candidate path.
	Statuses map[string]cache.Status
	// Digests holds the freshly computed digest per candidate path, recorded
	// into the cache as each target builds successfully.
	Digests map[string]string
	// Candidates lists every scanned path; the cache is reconciled to this
	// set before persisting.
	Candidates []string
	// HasCycle flags that the dependency graph contains at least one cycle.
	// The plan order is still a best-effort total order.
	HasCycle bool
}

// Result reports the outcome of executing a plan.
type Result struct {
	Built     []string
	Artifacts map[string]*types.Artifact
	Errors    *errors.ErrorCollector
	Duration  time.Duration
	Persisted bool
}

// Plan classifies every candidate path against the cache, expands the
// changed-or-new subset to its dependent closure, and orders the closure
// topologically. Per-file classification failures land in the collector and
// exclude only that file.
func (p *Planner) Plan(ctx context.Context, candidates []string) (*Plan, *errors.ErrorCollector) {
	collector := errors.NewErrorCollector()

	plan := &Plan{
		Statuses:   make(map[string]cache.Status, len(candidates)),
		Digests:    make(map[string]string, len(candidates)),
		Candidates: candidates,
	}

	// Identifier lookup by path, from one registry snapshot.
	byPath := make(map[string]*types.SchemaInfo)
	for _, schema := range p.registry.GetAll() {
		byPath[schema.FilePath] = schema
	}

	var changed []string
	for _, path := range candidates {
		status, digest, err := p.cache.Classify(path)
		if err != nil {
			collector.Add(err)
			continue
		}
		plan.Statuses[path] = status
		plan.Digests[path] = digest

		schema, inGraph := byPath[path]
		if !inGraph {
			// Reported at scan time (missing header or duplicate); the
			// cache still tracks the file but it cannot be planned.
			continue
		}
		if status.NeedsBuild() {
			changed = append(changed, schema.Name)
		}
	}

	adjacency := p.registry.DependencyGraph()
	sorted := graph.TopoSort(adjacency)
	plan.HasCycle = sorted.HasCycle
	if plan.HasCycle {
		p.logger.Warn(ctx, nil, "dependency cycle detected, build order is best-effort")
	}

	if len(changed) == 0 {
		return plan, collector
	}

	closure, aerr := graph.Ancestors(adjacency, changed, true)
	if aerr != nil {
		// Changed names come from the registry itself, so this only fires
		// if the graph mutated mid-plan.
		collector.Add(aerr)
		return plan, collector
	}

	for _, name := range closure {
		if schema, ok := p.registry.Get(name); ok {
			plan.Targets = append(plan.Targets, schema)
		}
	}
	return plan, collector
}

// Execute hands each target to the build facade in plan order. Digests are
// recorded in memory per success but only persisted after the whole plan
// succeeds, so an aborted run never marks a file as built. The first facade
// rejection aborts the pass; prior cache state on disk is left intact.
func (p *Planner) Execute(ctx context.Context, plan *Plan) *Result {
	start := time.Now()
	result := &Result{
		Artifacts: make(map[string]*types.Artifact),
		Errors:    errors.NewErrorCollector(),
	}

	for _, schema := range plan.Targets {
		source, err := os.ReadFile(schema.FilePath)
		if err != nil {
			result.Errors.Add(errors.NewUnreadableFile(schema.FilePath, err))
			result.Duration = time.Since(start)
			return result
		}

		artifact, err := p.builder.Build(ctx, schema, source)
		if err != nil {
			p.logger.Error(ctx, err, "build failed", "name", schema.Name, "path", schema.FilePath)
			result.Errors.Add(errors.NewBuildFailed(schema.Name, schema.FilePath, err))
			result.Duration = time.Since(start)
			return result
		}

		p.logger.Info(ctx, "built schema", "name", schema.Name, "artifact", artifact.ID[:12])
		result.Built = append(result.Built, schema.Name)
		result.Artifacts[schema.Name] = artifact

		if digest, ok := plan.Digests[schema.FilePath]; ok {
			p.cache.Update(schema.FilePath, digest)
		}
	}

	// Record digests for unchanged candidates too, then drop entries for
	// files no longer scanned and write the snapshot once.
	for path, status := range plan.Statuses {
		if status == cache.StatusUnchanged {
			p.cache.Update(path, plan.Digests[path])
		}
	}
	p.cache.Reconcile(plan.Candidates)
	if err := p.cache.Persist(); err != nil {
		p.logger.Error(ctx, err, "cannot persist hash cache", "path", p.cache.Path())
	} else {
		result.Persisted = true
	}

	result.Duration = time.Since(start)
	return result
}

// Run is the full pass: plan then execute. Scan-level errors from the caller
// are merged with plan and execution errors so the batch renders in one list.
func (p *Planner) Run(ctx context.Context, candidates []string) (*Plan, *Result) {
	plan, planErrors := p.Plan(ctx, candidates)
	result := p.Execute(ctx, plan)
	for _, err := range planErrors.Errors() {
		result.Errors.Add(err)
	}
	return plan, result
}
