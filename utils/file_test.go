package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "vacation")
	require.NoError(t, os.Mkdir(sub, 0755))

	for _, name := range []string{"IMG_10.jpg", "IMG_2.jpg", "IMG_1.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "beach.png"), []byte("x"), 0644))

	paths, err := ListImageFiles(dir)
	require.NoError(t, err)

	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}

	// natural ordering: IMG_2 before IMG_10, non-images excluded
	assert.Equal(t, []string{"IMG_1.jpg", "IMG_2.jpg", "IMG_10.jpg", "beach.png"}, names)
}

func TestListImageFilesMissingDir(t *testing.T) {
	_, err := ListImageFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
