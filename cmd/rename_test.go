package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestRewriteDeclaration(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			"bare value",
			"@schema name=user\nfield id int\n",
			"@schema name=account\nfield id int\n",
		},
		{
			"double quoted",
			"@schema name=\"user\"\n",
			"@schema name=\"account\"\n",
		},
		{
			"single quoted",
			"@schema name='user'\n",
			"@schema name='account'\n",
		},
		{
			"blank lines before header",
			"\n\n@schema name=user\n",
			"\n\n@schema name=account\n",
		},
		{
			"body mention untouched",
			"@schema name=user\nfield u refn:user_role\n",
			"@schema name=account\nfield u refn:user_role\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeTemp(t, "x.schema", tc.content)
			require.NoError(t, rewriteDeclaration(path, "user", "account"))
			assert.Equal(t, tc.want, readBack(t, path))
		})
	}
}

func TestRewriteReferences(t *testing.T) {
	content := "@schema name=group\n" +
		"field owner refn:user\n" +
		"field list [refn:user]\n" +
		"field role refn:user_role\n" +
		"field last refn:user"
	path := writeTemp(t, "group.schema", content)

	require.NoError(t, rewriteReferences(path, "user", "account"))

	got := readBack(t, path)
	assert.Contains(t, got, "field owner refn:account\n")
	assert.Contains(t, got, "field list [refn:account]\n")
	// Identifiers sharing the prefix stay untouched.
	assert.Contains(t, got, "field role refn:user_role\n")
	// End of file counts as a delimiter.
	assert.Contains(t, got, "field last refn:account")
	assert.NotContains(t, got, "refn:user\n")
}

func TestRewriteReferences_MissingFile(t *testing.T) {
	err := rewriteReferences(filepath.Join(t.TempDir(), "gone.schema"), "a", "b")
	assert.Error(t, err)
}
