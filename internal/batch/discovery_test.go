package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte{}, 0o600))
}

func TestDiscoverImageFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "p01.png"))
	touch(t, filepath.Join(dir, "p02.jpg"))
	touch(t, filepath.Join(dir, "cover.webp"))
	touch(t, filepath.Join(dir, "readme.md"))
	touch(t, filepath.Join(dir, "ch2", "p01.png"))

	tests := []struct {
		name      string
		recursive bool
		include   []string
		exclude   []string
		want      []string
	}{
		{"flat", false, nil, nil, []string{"cover.webp", "p01.png", "p02.jpg"}},
		{"recursive", true, nil, nil, []string{"ch2/p01.png", "cover.webp", "p01.png", "p02.jpg"}},
		{"include", false, []string{"p*"}, nil, []string{"p01.png", "p02.jpg"}},
		{"exclude", false, nil, []string{"cover.*"}, []string{"p01.png", "p02.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := discoverImageFiles([]string{dir}, tt.recursive, tt.include, tt.exclude)
			require.NoError(t, err)
			rel := make([]string, len(got))
			for i, p := range got {
				r, err := filepath.Rel(dir, p)
				require.NoError(t, err)
				rel[i] = filepath.ToSlash(r)
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestDiscoverImageFiles_ExplicitFileKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.tiff")
	touch(t, path)

	got, err := discoverImageFiles([]string{path}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, got)
}

func TestShouldIncludeFile(t *testing.T) {
	assert.True(t, shouldIncludeFile("a/p1.png", nil, nil))
	assert.False(t, shouldIncludeFile("a/p1.png", nil, []string{"*.png"}))
	assert.False(t, shouldIncludeFile("a/p1.png", []string{"*.jpg"}, nil))
	assert.False(t, shouldIncludeFile("a/p1.png", []string{"*.png"}, []string{"p1*"}))
}
