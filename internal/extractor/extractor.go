// Package extractor reads the declared requirements of a Python source
// distribution straight out of its archive.
package extractor

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap"

	"github.com/frederic-klein/specsync/internal/dist"
)

// maxFileSize bounds how much of a single archive member is read into memory.
const maxFileSize = 4 << 20

// ErrUnsupportedArchive is returned for archives with an unknown compression suffix.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// Extractor extracts requirement metadata from sdist tarballs.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a new extractor. A nil logger disables logging.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// fields is what a single metadata source contributes. The has* flags tell a
// key declared empty apart from a key the source does not know about.
type fields struct {
	install    []string
	extras     map[string][]string
	tests      []string
	hasInstall bool
	hasExtras  bool
	hasTests   bool
}

type source struct {
	name string
	read func(files archiveFiles) (*fields, error)
}

// Extract reads install_requires, extras_require and tests_require from the
// archive at tarballPath. For each key the first source that declares it wins:
// egg-info, setup.cfg, pyproject.toml, setup.py, PKG-INFO and finally the
// pbr-style requirement files.
func (e *Extractor) Extract(tarballPath string) (*dist.Metadata, error) {
	files, err := e.readArchive(tarballPath)
	if err != nil {
		return nil, err
	}
	return e.extract(files)
}

func (e *Extractor) extract(files archiveFiles) (*dist.Metadata, error) {
	sources := []source{
		{"egg-info", readEggInfo},
		{"setup.cfg", readSetupCfg},
		{"pyproject.toml", readPyproject},
		{"setup.py", readSetupPy},
		{"PKG-INFO", readPkgInfo},
		{"requirements.txt", readRequirementFiles},
	}

	meta := dist.NewMetadata()
	var haveInstall, haveExtras, haveTests bool
	for _, src := range sources {
		f, err := src.read(files)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", src.name, err)
		}
		if f == nil {
			continue
		}
		if f.hasInstall && !haveInstall {
			meta.InstallRequires = f.install
			haveInstall = true
			e.logger.Debug("install requirements", zap.String("source", src.name), zap.Int("count", len(f.install)))
		}
		if f.hasExtras && !haveExtras {
			meta.ExtrasRequire = f.extras
			haveExtras = true
			e.logger.Debug("extras requirements", zap.String("source", src.name), zap.Int("count", len(f.extras)))
		}
		if f.hasTests && !haveTests {
			meta.TestsRequire = f.tests
			haveTests = true
			e.logger.Debug("tests requirements", zap.String("source", src.name), zap.Int("count", len(f.tests)))
		}
	}
	if meta.ExtrasRequire == nil {
		meta.ExtrasRequire = make(map[string][]string)
	}

	if meta.Empty() {
		e.logger.Debug("no requirement metadata found")
	}
	return meta, nil
}

// archiveFiles maps a member path relative to the archive's top directory
// (for example "setup.cfg" or "foo.egg-info/requires.txt") to its content.
type archiveFiles map[string][]byte

func (f archiveFiles) get(name string) ([]byte, bool) {
	data, ok := f[path.Clean(name)]
	return data, ok
}

func (e *Extractor) readArchive(tarballPath string) (archiveFiles, error) {
	file, err := os.Open(tarballPath)
	if err != nil {
		return nil, fmt.Errorf("opening tarball: %w", err)
	}
	defer file.Close()

	rc, err := decompress(tarballPath, file)
	if err != nil {
		return nil, fmt.Errorf("decompressing tarball: %w", err)
	}
	defer rc.Close()

	tarReader := tar.NewReader(rc)
	files := make(archiveFiles)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tarball: %w", err)
		}
		if header.Typeflag != tar.TypeReg || header.Size > maxFileSize {
			continue
		}

		// Strip the top-level "<name>-<version>/" directory
		name := strings.TrimPrefix(header.Name, "./")
		parts := strings.SplitN(name, "/", 2)
		if len(parts) != 2 || !wanted(parts[1]) {
			continue
		}

		data, err := io.ReadAll(tarReader)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", header.Name, err)
		}
		files[path.Clean(parts[1])] = data
	}

	e.logger.Debug("read archive", zap.String("path", tarballPath), zap.Int("files", len(files)))
	return files, nil
}

// wanted reports whether a member can feed one of the metadata sources.
func wanted(rel string) bool {
	switch rel {
	case "setup.cfg", "setup.py", "pyproject.toml", "PKG-INFO":
		return true
	}
	dir, base := path.Split(rel)
	if base == "requires.txt" && strings.HasSuffix(strings.TrimSuffix(dir, "/"), ".egg-info") {
		return true
	}
	// Requirement files, including those referenced from setup.cfg "file:" values
	return strings.HasSuffix(base, ".txt") || strings.HasSuffix(base, ".in")
}

type funcCloser struct {
	io.Reader
	close func() error
}

func (m funcCloser) Close() error {
	return m.close()
}

// decompress wraps r according to the archive name's suffix.
func decompress(name string, r io.Reader) (io.ReadCloser, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return gzip.NewReader(r)
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz2"):
		return io.NopCloser(bzip2.NewReader(r)), nil
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case strings.HasSuffix(lower, ".tar.zst"), strings.HasSuffix(lower, ".tzst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return funcCloser{Reader: zr, close: func() error { zr.Close(); return nil }}, nil
	case strings.HasSuffix(lower, ".tar"):
		return io.NopCloser(r), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, path.Base(name))
}

// splitLines returns the non-empty trimmed lines of s.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
