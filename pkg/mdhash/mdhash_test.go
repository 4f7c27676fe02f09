package mdhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashDeterministicAcrossCalls(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644))

	h1, err := Hash(root)
	require.NoError(t, err)
	h2, err := Hash(root)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHashChangesWithContentSize(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	before, err := Hash(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world"), 0o644))
	after, err := Hash(root)
	require.NoError(t, err)

	require.NotEqual(t, before, after)
}

func TestHashIndependentOfDirentOrder(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	names := []string{"zeta.txt", "alpha.txt", "mid.txt"}
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(rootA, n), []byte(n), 0o644))
	}
	// write in a different order into rootB
	for i := len(names) - 1; i >= 0; i-- {
		require.NoError(t, os.WriteFile(filepath.Join(rootB, names[i]), []byte(names[i]), 0o644))
	}

	hA, err := Hash(rootA)
	require.NoError(t, err)
	hB, err := Hash(rootB)
	require.NoError(t, err)
	require.Equal(t, hA, hB)
}
