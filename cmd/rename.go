package cmd

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a schema identifier and every reference to it",
	Long: `Rename moves a schema to a new identifier in the dependency graph and
reports every file whose references must change with it. With --write, the
declaring file's header and all refn: references are rewritten on disk.

Examples:
  refbuild rename user account            # Show what would change
  refbuild rename user account --write    # Rewrite the files`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

var renameWrite bool

func init() {
	rootCmd.AddCommand(renameCmd)

	renameCmd.Flags().BoolVar(&renameWrite, "write", false, "Rewrite the affected files on disk")
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	oldName, newName := args[0], args[1]

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

	// Referencing files must be captured before the in-graph rename rewrites
	// the dependency lists.
	var referencing []string
	for _, name := range reg.Names() {
		schema, _ := reg.Get(name)
		for _, dep := range schema.Dependencies {
			if dep == oldName {
				referencing = append(referencing, schema.FilePath)
				break
			}
		}
	}

	ownerPath, perr := reg.PathOf(oldName)
	if perr != nil {
		return perr
	}
	if rerr := reg.Rename(oldName, newName); rerr != nil {
		return rerr
	}

	fmt.Printf("Renamed %s -> %s\n", oldName, newName)
	fmt.Printf("  declaration: %s\n", ownerPath)
	for _, path := range referencing {
		fmt.Printf("  references:  %s\n", path)
	}

	if !renameWrite {
		if len(referencing) > 0 || ownerPath != "" {
			fmt.Println("Run again with --write to rewrite the files.")
		}
		return nil
	}

	if err := rewriteDeclaration(ownerPath, oldName, newName); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", ownerPath, err)
	}
	for _, path := range referencing {
		if err := rewriteReferences(path, oldName, newName); err != nil {
			return fmt.Errorf("failed to rewrite %s: %w", path, err)
		}
	}
	fmt.Printf("Rewrote %d file(s).\n", len(referencing)+1)
	return nil
}

// rewriteDeclaration updates the name= declaration in the header line.
func rewriteDeclaration(path, oldName, newName string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, form := range []string{
			"name=" + oldName,
			`name="` + oldName + `"`,
			`name='` + oldName + `'`,
		} {
			if strings.Contains(line, form) {
				lines[i] = strings.Replace(line, form, strings.Replace(form, oldName, newName, 1), 1)
				break
			}
		}
		break // only the first non-empty line declares the identifier
	}

	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644)
}

// rewriteReferences updates every refn: token for oldName, leaving longer
// identifiers that merely share the prefix untouched.
func rewriteReferences(path, oldName, newName string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	pattern := regexp.MustCompile(`refn:` + regexp.QuoteMeta(oldName) + `([\s\]]|\z)`)
	updated := pattern.ReplaceAll(content, []byte("refn:"+newName+"$1"))

	return os.WriteFile(path, updated, 0o644)
}
