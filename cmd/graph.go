package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/refnlabs/refbuild/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the dependency graph and build order",
	Long: `Graph prints every schema in topological build order together with its
references, and reports dependency cycles and references that resolve to no
known schema.

Examples:
  refbuild graph                  # Human-readable build order
  refbuild graph --output json    # Machine-readable adjacency
  refbuild graph --output yaml`,
	RunE: runGraph,
}

var graphOutput = outputValue("table")

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().VarP(&graphOutput, "output", "o", "Output format (table|json|yaml)")
}

// graphReport is the serializable form of the graph command output.
type graphReport struct {
	Order    []string            `json:"order" yaml:"order"`
	Edges    map[string][]string `json:"edges" yaml:"edges"`
	Cycles   [][]string          `json:"cycles,omitempty" yaml:"cycles,omitempty"`
	Missing  map[string][]string `json:"missing,omitempty" yaml:"missing,omitempty"`
	HasCycle bool                `json:"has_cycle" yaml:"has_cycle"`
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	reg, _, scanErrors, err := scanWorkspace(ctx, cfg, logger)
	if err != nil {
		return err
	}
	printBatchErrors(scanErrors)

	adjacency := reg.DependencyGraph()
	sorted := graph.TopoSort(adjacency)

	report := graphReport{
		Order:    sorted.Order,
		Edges:    adjacency,
		Cycles:   graph.DetectCycles(adjacency),
		Missing:  graph.MissingTargets(adjacency),
		HasCycle: sorted.HasCycle,
	}

	switch graphOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(report)
	default:
		printGraphTable(report)
		return nil
	}
}

func printGraphTable(report graphReport) {
	fmt.Printf("Build order (%d schemas):\n", len(report.Order))
	for i, name := range report.Order {
		deps := append([]string{}, report.Edges[name]...)
		sort.Strings(deps)
		if len(deps) == 0 {
			fmt.Printf("  %2d. %s\n", i+1, name)
			continue
		}
		fmt.Printf("  %2d. %s -> %v\n", i+1, name, deps)
	}

	for _, cycle := range report.Cycles {
		fmt.Fprintf(os.Stderr, "warning: dependency cycle: %v\n", cycle)
	}

	if len(report.Missing) > 0 {
		names := make([]string, 0, len(report.Missing))
		for name := range report.Missing {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(os.Stderr, "warning: %s references unknown schema(s) %v\n", name, report.Missing[name])
		}
	}
}
