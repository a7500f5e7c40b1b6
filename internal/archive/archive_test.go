package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSelect_Newest(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, dir, "pkg-1.0.tar.gz", base)
	newest := writeFile(t, dir, "pkg-1.1.tar.xz", base.Add(time.Hour))
	writeFile(t, dir, "pkg.spec", base.Add(2*time.Hour))
	writeFile(t, dir, "pkg-1.2.zip", base.Add(3*time.Hour))

	got, err := Select(dir)

	require.NoError(t, err)
	assert.Equal(t, newest, got)
}

func TestSelect_TieBrokenByName(t *testing.T) {
	dir := t.TempDir()
	mtime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeFile(t, dir, "pkg-1.0.tar.gz", mtime)
	last := writeFile(t, dir, "pkg-1.1.tar.gz", mtime)

	got, err := Select(dir)

	require.NoError(t, err)
	assert.Equal(t, last, got)
}

func TestSelect_IgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "unpacked.tar.d"), 0755))

	_, err := Select(dir)

	assert.ErrorIs(t, err, ErrNoArchiveFound)
}

func TestSelect_NoArchive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pkg.spec", time.Now())

	_, err := Select(dir)

	assert.ErrorIs(t, err, ErrNoArchiveFound)
}

func TestSpecFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "python-foo.spec", now)
	writeFile(t, dir, "python-foo-doc.spec", now)
	writeFile(t, dir, "foo-1.0.tar.gz", now)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
	writeFile(t, filepath.Join(dir, "sub"), "nested.spec", now)

	got, err := SpecFiles(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "python-foo-doc.spec"),
		filepath.Join(dir, "python-foo.spec"),
	}, got)
}

func TestSpecFiles_Empty(t *testing.T) {
	got, err := SpecFiles(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, got)
}
