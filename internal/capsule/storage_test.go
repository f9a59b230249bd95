package capsule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.bin")

	require.NoError(t, writeFileAtomic(path, []byte("first"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Overwrite replaces the content in one step.
	require.NoError(t, writeFileAtomic(path, []byte("second"), 0o600))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteFileAtomic_MissingDirectory(t *testing.T) {
	err := writeFileAtomic(filepath.Join(t.TempDir(), "no-such-dir", "f"), []byte("x"), 0o600)
	assert.Error(t, err)
}

func TestShred_RemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sensitive.txt")
	require.NoError(t, os.WriteFile(path, []byte("shred me, twelve bytes and then some"), 0o600))

	warnings := Shred(path)
	assert.Empty(t, warnings)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestShred_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	warnings := Shred(path)
	assert.Empty(t, warnings)

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestShred_MissingFileWarns(t *testing.T) {
	warnings := Shred(filepath.Join(t.TempDir(), "ghost"))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "failed to open file for shredding")
}

func TestResolvePaths(t *testing.T) {
	store := newTestStore(t)

	ct, meta := store.resolve("notes.txt")
	assert.Equal(t, filepath.Join(store.Dir(), "notes.txt.tcfs"), ct)
	assert.Equal(t, filepath.Join(store.Dir(), "notes.txt.tcfs.meta"), meta)

	// Suffixed form resolves to the same pair.
	ct2, meta2 := store.resolve("notes.txt.tcfs")
	assert.Equal(t, ct, ct2)
	assert.Equal(t, meta, meta2)

	// Directory components are stripped: capsules live flat in the store.
	ct3, _ := store.resolve("/some/where/notes.txt")
	assert.Equal(t, ct, ct3)
}
