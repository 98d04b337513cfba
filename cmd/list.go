package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all discovered schemas",
	Long: `List scans the configured roots and prints every schema with its file path
and reference count.

Examples:
  refbuild list
  refbuild list --output json
  refbuild list --output yaml`,
	RunE: runList,
}

var listOutput = outputValue("table")

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().VarP(&listOutput, "output", "o", "Output format (table|json|yaml)")
}

// listEntry is one schema in the list output.
type listEntry struct {
	Name       string   `json:"name" yaml:"name"`
	Path       string   `json:"path" yaml:"path"`
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
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

	entries := make([]listEntry, 0, reg.Count())
	for _, name := range reg.Names() {
		schema, _ := reg.Get(name)
		entries = append(entries, listEntry{
			Name:       schema.Name,
			Path:       schema.FilePath,
			References: schema.Dependencies,
		})
	}

	switch listOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(entries)
	default:
		if len(entries) == 0 {
			fmt.Println("No schemas found.")
			return nil
		}
		fmt.Printf("%-24s %-8s %s\n", "NAME", "REFS", "PATH")
		for _, e := range entries {
			fmt.Printf("%-24s %-8d %s\n", e.Name, len(e.References), e.Path)
		}
		return nil
	}
}
