package docs

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "skinmap", Short: "Skincare product knowledge base engine", SilenceErrors: true, SilenceUsage: true}
	root.AddCommand(&cobra.Command{Use: "match BRAND NAME", Short: "Resolve a product", Run: func(*cobra.Command, []string) {}})
	root.AddCommand(NewCommand())
	return root
}

func TestDocsToStdout(t *testing.T) {
	root := newRoot()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"docs", "markdown"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "## skinmap")
	assert.Contains(t, out.String(), "skinmap match")

	out.Reset()
	root.SetArgs([]string{"docs", "man"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "SKINMAP")
}

func TestDocsTree(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ref")
	root := newRoot()
	root.SetArgs([]string{"docs", "markdown", "--dir", dir})
	require.NoError(t, root.Execute())

	_, err := os.Stat(filepath.Join(dir, "skinmap_match.md"))
	assert.NoError(t, err)
}

func TestDocsRejectsUnknownFormat(t *testing.T) {
	root := newRoot()
	root.SetArgs([]string{"docs", "html"})
	assert.Error(t, root.Execute())
}
