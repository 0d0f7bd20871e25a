package grid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemplates(t *testing.T, dir string) []string {
	t.Helper()
	mk := filepath.Join(dir, "Makefile")
	src := filepath.Join(dir, "pr_scaleup_kernelbc.cpp")
	require.NoError(t, os.WriteFile(mk, []byte(makefile), 0o644))
	require.NoError(t, os.WriteFile(src, []byte("int kernel() { return 0; }\n"), 0o644))
	return []string{mk, src}
}

func TestMaterialize_CopiesTemplates(t *testing.T) {
	root := t.TempDir()
	templates := writeTemplates(t, root)
	dir := filepath.Join(root, "block_0_0")

	require.NoError(t, Materialize(dir, templates))

	data, err := os.ReadFile(filepath.Join(dir, "Makefile"))
	require.NoError(t, err)
	assert.Equal(t, makefile, string(data))
	assert.FileExists(t, filepath.Join(dir, "pr_scaleup_kernelbc.cpp"))
}

func TestMaterialize_Twice_KeepsExistingFiles(t *testing.T) {
	// GIVEN a workspace that already holds a generated file
	root := t.TempDir()
	templates := writeTemplates(t, root)
	dir := filepath.Join(root, "block_0_1")
	require.NoError(t, Materialize(dir, templates))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.log"), []byte("done"), 0o644))

	// WHEN materialized again
	require.NoError(t, Materialize(dir, templates))

	// THEN nothing previously there is lost
	assert.FileExists(t, filepath.Join(dir, "out.log"))
	assert.FileExists(t, filepath.Join(dir, "Makefile"))
	assert.FileExists(t, filepath.Join(dir, "pr_scaleup_kernelbc.cpp"))
}

func TestMaterialize_MissingTemplate_ReturnsError(t *testing.T) {
	root := t.TempDir()

	err := Materialize(filepath.Join(root, "block_0_0"), []string{filepath.Join(root, "Makefile")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
