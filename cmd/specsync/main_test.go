package main

import (
	"archive/tar"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frederic-klein/specsync/internal/archive"
)

func init() {
	color.NoColor = true
}

func writeTarball(t *testing.T, path string, files map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	gw := gzip.NewWriter(f)
	defer gw.Close()

	tw := tar.NewWriter(gw)
	defer tw.Close()

	for name, content := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
}

func setupPackageDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeTarball(t, filepath.Join(dir, "foo-1.0.tar.gz"), map[string]string{
		"foo-1.0/requirements.txt":      "pbr>=1.6\nsix>=1.9.0\nsetuptools>=16.0\nenum34;python_version<'3.4'\n",
		"foo-1.0/test-requirements.txt": "hacking<0.11\nmock>=2.0\n",
	})
	spec := "Name:           python-foo\n" +
		"BuildRequires:  python-pbr\n" +
		"BuildRequires:  python-setuptools\n" +
		"Requires:       python-six >= 1.0\n" +
		"Requires:       python-bar\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python-foo.spec"), []byte(spec), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python-foo-doc.spec"),
		[]byte("BuildRequires:  python-pbr\n"), 0644))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_SynchronizesSpecFiles(t *testing.T) {
	// Arrange
	dir := setupPackageDir(t)

	// Act
	out, err := execute(t, "--dir", dir, "--outdir", t.TempDir())

	// Assert
	require.NoError(t, err)

	spec, err := os.ReadFile(filepath.Join(dir, "python-foo.spec"))
	require.NoError(t, err)
	assert.Equal(t, "Name:           python-foo\n"+
		"BuildRequires:  python-pbr >= 1.6\n"+
		"BuildRequires:  python-setuptools\n"+
		"Requires:       python-six >= 1.9.0\n"+
		"Requires:       python-bar\n", string(spec))

	doc, err := os.ReadFile(filepath.Join(dir, "python-foo-doc.spec"))
	require.NoError(t, err)
	assert.Equal(t, "BuildRequires:  python-pbr >= 1.6\n", string(doc))

	assert.Contains(t, out, "ERROR: python-mock (tests) not found in python-foo.spec\n")
	assert.Contains(t, out, "WARNING: python-bar not found in upstream metadata (python-foo.spec)\n")
	assert.NotContains(t, out, "setuptools")
	assert.NotContains(t, out, "enum34")
	assert.NotContains(t, out, "hacking")
	assert.Contains(t, out, "Synchronized 2 spec files against 3 requirements (3 lines updated, 1 with errors)")
}

func TestRun_DryRun(t *testing.T) {
	dir := setupPackageDir(t)
	specPath := filepath.Join(dir, "python-foo.spec")
	before, err := os.ReadFile(specPath)
	require.NoError(t, err)

	out, err := execute(t, "-C", dir, "--dry-run")

	require.NoError(t, err)
	after, err := os.ReadFile(specPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Contains(t, out, "Checked 2 spec files")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := setupPackageDir(t)
	cfg := "extra_ignore:\n  - python-mock\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".specsync.yaml"), []byte(cfg), 0644))

	out, err := execute(t, "--dir", dir)

	require.NoError(t, err)
	assert.NotContains(t, out, "python-mock")
	assert.Contains(t, out, "(3 lines updated, 0 with errors)")
}

func TestRun_ExplicitArchive(t *testing.T) {
	dir := setupPackageDir(t)
	other := filepath.Join(t.TempDir(), "other-2.0.tar.gz")
	writeTarball(t, other, map[string]string{
		"other-2.0/requirements.txt": "six>=2.0\n",
	})

	_, err := execute(t, "--dir", dir, "--archive", other)

	require.NoError(t, err)
	spec, err := os.ReadFile(filepath.Join(dir, "python-foo.spec"))
	require.NoError(t, err)
	assert.Contains(t, string(spec), "Requires:       python-six >= 2.0\n")
	assert.Contains(t, string(spec), "BuildRequires:  python-pbr\n")
}

func TestRun_ArchiveURL(t *testing.T) {
	dir := setupPackageDir(t)
	tarball := filepath.Join(t.TempDir(), "other-2.0.tar.gz")
	writeTarball(t, tarball, map[string]string{
		"other-2.0/requirements.txt": "six>=2.0\n",
	})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, tarball)
	}))
	defer server.Close()

	_, err := execute(t, "--dir", dir, "--archive", server.URL+"/source/other-2.0.tar.gz")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "other-2.0.tar.gz"))
	spec, err := os.ReadFile(filepath.Join(dir, "python-foo.spec"))
	require.NoError(t, err)
	assert.Contains(t, string(spec), "Requires:       python-six >= 2.0\n")
}

func TestRun_ArchiveURLNotFound(t *testing.T) {
	dir := setupPackageDir(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := execute(t, "--dir", dir, "--archive", server.URL+"/missing-1.0.tar.gz")

	assert.ErrorContains(t, err, "fetching archive")
}

func TestRun_NoArchive(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "--dir", dir)

	assert.ErrorIs(t, err, archive.ErrNoArchiveFound)
}

func TestRun_MissingExplicitConfig(t *testing.T) {
	dir := setupPackageDir(t)

	_, err := execute(t, "--dir", dir, "--config", filepath.Join(dir, "nope.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_NoSpecFiles(t *testing.T) {
	dir := t.TempDir()
	writeTarball(t, filepath.Join(dir, "foo-1.0.tar.gz"), map[string]string{
		"foo-1.0/requirements.txt": "six\n",
	})

	out, err := execute(t, "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "No spec files found")
}
