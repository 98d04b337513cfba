package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refnlabs/refbuild/internal/types"
)

func TestNewCommandBuilder_RejectsShellMetacharacters(t *testing.T) {
	cases := []struct {
		name    string
		command string
		args    []string
	}{
		{"empty command", "  ", nil},
		{"pipe in command", "cat|grep", nil},
		{"semicolon in arg", "refnc", []string{"compile; rm -rf /"}},
		{"backtick in arg", "refnc", []string{"`id`"}},
		{"redirect in arg", "refnc", []string{"> /etc/passwd"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCommandBuilder(tc.command, tc.args)
			assert.Error(t, err)
		})
	}
}

func TestCommandBuilder_ProducesArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.schema")
	content := []byte("@schema name=user\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cb, err := NewCommandBuilder("cat", nil)
	require.NoError(t, err)

	schema := &types.SchemaInfo{Name: "user", FilePath: path}
	artifact, err := cb.Build(context.Background(), schema, content)
	require.NoError(t, err)

	assert.Equal(t, content, artifact.Output)
	assert.Len(t, artifact.ID, 64)
	assert.False(t, artifact.BuiltAt.IsZero())
}

func TestCommandBuilder_FailureBecomesValidationErrors(t *testing.T) {
	cb, err := NewCommandBuilder("false", nil)
	require.NoError(t, err)

	schema := &types.SchemaInfo{Name: "user", FilePath: "/nonexistent/user.schema"}
	_, err = cb.Build(context.Background(), schema, nil)
	require.Error(t, err)

	var ve ValidationErrors
	require.ErrorAs(t, err, &ve)
	assert.NotEmpty(t, ve)
}

func TestCommandBuilder_Timeout(t *testing.T) {
	cb, err := NewCommandBuilder("sleep", []string{"5"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	schema := &types.SchemaInfo{Name: "user", FilePath: "user.schema"}
	_, err = cb.Build(ctx, schema, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestValidationErrors_Error(t *testing.T) {
	ve := ValidationErrors{
		{Line: 3, Message: "unknown field type"},
		{Message: "trailing garbage"},
	}
	assert.Equal(t, "line 3: unknown field type; trailing garbage", ve.Error())
	assert.Equal(t, "validation failed", ValidationErrors{}.Error())
}
