// Package build composes the core into build plans and executes them against
// the external build facade.
//
// The facade boundary is deliberately narrow: one schema's raw text goes in,
// an artifact or a structured validation-error list comes out. The planner
// calls it once per node in topological order and never retries.
package build

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/refnlabs/refbuild/internal/types"
)

// Builder is the external build facade. Implementations consume the raw text
// of one schema file and either produce an artifact with a content-derived
// identifier or reject it with validation errors.
type Builder interface {
	Build(ctx context.Context, schema *types.SchemaInfo, source []byte) (*types.Artifact, error)
}

// ValidationError is one structured rejection from the facade.
type ValidationError struct {
	Line    int
	Message string
}

// ValidationErrors is the facade's rejection list for one schema.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	var b strings.Builder
	for i, e := range ve {
		if i > 0 {
			b.WriteString("; ")
		}
		if e.Line > 0 {
			fmt.Fprintf(&b, "line %d: %s", e.Line, e.Message)
		} else {
			b.WriteString(e.Message)
		}
	}
	return b.String()
}

// CommandBuilder shells out to a configured build command, passing the schema
// file path as the final argument. Stdout is the artifact; a non-zero exit
// turns stderr lines into validation errors.
type CommandBuilder struct {
	command string
	args    []string
}

// NewCommandBuilder creates a command-backed facade.
func NewCommandBuilder(command string, args []string) (*CommandBuilder, error) {
	if err := validateCommand(command, args); err != nil {
		return nil, err
	}
	return &CommandBuilder{command: command, args: args}, nil
}

// Build runs the build command for one schema with context-based timeout.
func (cb *CommandBuilder) Build(ctx context.Context, schema *types.SchemaInfo, source []byte) (*types.Artifact, error) {
	args := append(append([]string{}, cb.args...), schema.FilePath)
	cmd := exec.CommandContext(ctx, cb.command, args...)
	cmd.Stdin = bytes.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build command timed out: %w", ctx.Err())
		}
		return nil, stderrToValidationErrors(stderr.String(), err)
	}

	output := stdout.Bytes()
	sum := sha256.Sum256(output)
	return &types.Artifact{
		ID:      hex.EncodeToString(sum[:]),
		Output:  output,
		BuiltAt: time.Now(),
	}, nil
}

// stderrToValidationErrors converts command stderr into a structured list.
func stderrToValidationErrors(stderr string, cause error) error {
	var ve ValidationErrors
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ve = append(ve, ValidationError{Message: line})
	}
	if len(ve) == 0 {
		ve = append(ve, ValidationError{Message: cause.Error()})
	}
	return ve
}

// validateCommand rejects commands and arguments carrying shell
// metacharacters, since the configured command string comes from user config.
func validateCommand(command string, args []string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("build command is empty")
	}
	for _, s := range append([]string{command}, args...) {
		if strings.ContainsAny(s, ";&|<>`$") {
			return fmt.Errorf("invalid character in build command argument %q", s)
		}
	}
	return nil
}
