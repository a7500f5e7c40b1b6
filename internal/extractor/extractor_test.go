package extractor

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"go.uber.org/zap/zaptest"
)

func createTestTarball(t *testing.T, name string, files map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()
	tarballPath := filepath.Join(tmpDir, name)

	f, err := os.Create(tarballPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var cw io.WriteCloser
	switch filepath.Ext(name) {
	case ".gz":
		cw = gzip.NewWriter(f)
	case ".xz":
		if cw, err = xz.NewWriter(f); err != nil {
			t.Fatal(err)
		}
	case ".zst":
		if cw, err = zstd.NewWriter(f); err != nil {
			t.Fatal(err)
		}
	default:
		t.Fatalf("unsupported test archive %s", name)
	}
	defer cw.Close()

	tw := tar.NewWriter(cw)
	defer tw.Close()

	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	return tarballPath
}

func assertStrings(t *testing.T, field string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s = %q, want %q", field, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s[%d] = %q, want %q", field, i, got[i], want[i])
		}
	}
}

func TestExtractor_Extract_EggInfo(t *testing.T) {
	// Arrange
	requires := `pbr>=1.6
six>=1.9.0

[test]
mock>=2.0

[:(python_version<'3.4')]
enum34
`
	tarballPath := createTestTarball(t, "oslo.config-3.0.0.tar.gz", map[string]string{
		"oslo.config-3.0.0/oslo.config.egg-info/requires.txt": requires,
		"oslo.config-3.0.0/requirements.txt":                  "ignored>=1.0\n",
		"oslo.config-3.0.0/test-requirements.txt":             "hacking<0.11\n",
	})

	ext := NewExtractor(zaptest.NewLogger(t))

	// Act
	meta, err := ext.Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"pbr>=1.6", "six>=1.9.0"})
	assertStrings(t, "ExtrasRequire[test]", meta.ExtrasRequire["test"], []string{"mock>=2.0"})
	assertStrings(t, "ExtrasRequire[marker]", meta.ExtrasRequire[":(python_version<'3.4')"], []string{"enum34"})
	// egg-info has no tests_require, so the next source providing it wins
	assertStrings(t, "TestsRequire", meta.TestsRequire, []string{"hacking<0.11"})
}

func TestExtractor_Extract_Compression(t *testing.T) {
	for _, name := range []string{"pkg-1.0.tar.gz", "pkg-1.0.tar.xz", "pkg-1.0.tar.zst"} {
		t.Run(name, func(t *testing.T) {
			tarballPath := createTestTarball(t, name, map[string]string{
				"pkg-1.0/requirements.txt": "six\n",
			})

			meta, err := NewExtractor(nil).Extract(tarballPath)

			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"six"})
		})
	}
}

func TestExtractor_Extract_SetupCfg(t *testing.T) {
	// Arrange
	setupCfg := `[metadata]
name = pkg

[options]
install_requires =
    requests>=2.0
    six # MIT
tests_require = file: test-requirements.txt

[options.extras_require]
yaml =
    PyYAML>=3.10
`
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/setup.cfg":             setupCfg,
		"pkg-1.0/test-requirements.txt": "# tests\nmock>=2.0\n",
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"requests>=2.0", "six # MIT"})
	assertStrings(t, "TestsRequire", meta.TestsRequire, []string{"mock>=2.0"})
	assertStrings(t, "ExtrasRequire[yaml]", meta.ExtrasRequire["yaml"], []string{"PyYAML>=3.10"})
}

func TestExtractor_Extract_SetupCfgMissingFileReference(t *testing.T) {
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/setup.cfg": "[options]\ninstall_requires = file: base.txt\n",
	})

	_, err := NewExtractor(nil).Extract(tarballPath)

	if err == nil {
		t.Fatal("Extract() should fail when setup.cfg references a missing file")
	}
}

func TestExtractor_Extract_Pyproject(t *testing.T) {
	// Arrange
	pyproject := `[build-system]
requires = ["setuptools>=61"]

[project]
name = "pkg"
dependencies = [
    "httpx>=0.23",
    "attrs",
]

[project.optional-dependencies]
cli = ["click>=8.0"]
`
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/pyproject.toml": pyproject,
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"httpx>=0.23", "attrs"})
	assertStrings(t, "ExtrasRequire[cli]", meta.ExtrasRequire["cli"], []string{"click>=8.0"})
	if len(meta.TestsRequire) != 0 {
		t.Errorf("TestsRequire = %q, want empty", meta.TestsRequire)
	}
}

func TestExtractor_Extract_SetupPy(t *testing.T) {
	// Arrange
	setupPy := `import setuptools

BASE = ['six>=1.9.0', "pbr>=1.6"]
TESTS = ('mock>=2.0',)

if __name__ == '__main__':
    setuptools.setup(
        name='pkg',
        install_requires=BASE + ['requests'],
        tests_require=TESTS,
        extras_require={
            'yaml': ['PyYAML>=3.10'],
            ':python_version=="2.7"': 'futures>=3.0',
        },
        # computed at runtime
        version=open('VERSION').read(),
    )
`
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/setup.py": setupPy,
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"six>=1.9.0", "pbr>=1.6", "requests"})
	assertStrings(t, "TestsRequire", meta.TestsRequire, []string{"mock>=2.0"})
	assertStrings(t, "ExtrasRequire[yaml]", meta.ExtrasRequire["yaml"], []string{"PyYAML>=3.10"})
	assertStrings(t, "ExtrasRequire[marker]", meta.ExtrasRequire[`:python_version=="2.7"`], []string{"futures>=3.0"})
}

func TestExtractor_Extract_SetupPyDynamic(t *testing.T) {
	// Arrange: requirements computed at runtime fall through to requirements.txt
	setupPy := `from setuptools import setup

setup(install_requires=open('requirements.txt').read().splitlines())
`
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/setup.py":         setupPy,
		"pkg-1.0/requirements.txt": "six\n",
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"six"})
}

func TestExtractor_Extract_PkgInfo(t *testing.T) {
	// Arrange
	pkgInfo := `Metadata-Version: 2.1
Name: pkg
Version: 1.0
Requires-Dist: six (>=1.9.0)
Requires-Dist: pytest ; extra == 'test'
Requires-Dist: enum34 ; python_version < "3.4"

Requires-Dist: not-a-header
`
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/PKG-INFO": pkgInfo,
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	assertStrings(t, "InstallRequires", meta.InstallRequires, []string{"six (>=1.9.0)", `enum34 ; python_version < "3.4"`})
	assertStrings(t, "ExtrasRequire[test]", meta.ExtrasRequire["test"], []string{"pytest ; extra == 'test'"})
}

func TestExtractor_Extract_NoMetadata(t *testing.T) {
	// Arrange
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/pkg/__init__.py": "",
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !meta.Empty() {
		t.Errorf("Extract() = %+v, want empty metadata", meta)
	}
}

func TestExtractor_Extract_NestedFilesIgnored(t *testing.T) {
	// Arrange: a setup.cfg below the top directory belongs to a vendored project
	tarballPath := createTestTarball(t, "pkg-1.0.tar.gz", map[string]string{
		"pkg-1.0/vendor/setup.cfg": "[options]\ninstall_requires = six\n",
	})

	// Act
	meta, err := NewExtractor(nil).Extract(tarballPath)

	// Assert
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !meta.Empty() {
		t.Errorf("Extract() = %+v, want empty metadata", meta)
	}
}

func TestExtractor_Extract_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg-1.0.zip")
	if err := os.WriteFile(path, []byte("PK"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewExtractor(nil).Extract(path)

	if !errors.Is(err, ErrUnsupportedArchive) {
		t.Errorf("Extract() error = %v, want ErrUnsupportedArchive", err)
	}
}

func TestExtractor_Extract_MissingArchive(t *testing.T) {
	_, err := NewExtractor(nil).Extract(filepath.Join(t.TempDir(), "missing.tar.gz"))
	if err == nil {
		t.Error("Extract() should return error for a missing archive")
	}
}

func TestStringLiteral(t *testing.T) {
	tests := []struct {
		src  string
		want string
		ok   bool
	}{
		{`x = 'six'`, "six", true},
		{`x = "six"`, "six", true},
		{`x = u'six'`, "six", true},
		{`x = r"six"`, "six", true},
		{`x = """six
pbr"""`, "six\npbr", true},
		{`x = 'six' 'pbr'`, "sixpbr", true},
		{`x = f'{name}'`, "", false},
		{`x = b'six'`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			sp := parseModule(t, tt.src)
			got, ok := stringLiteral(sp.names["x"], sp.src)
			if ok != tt.ok || got != tt.want {
				t.Errorf("stringLiteral(%s) = %q, %v, want %q, %v", tt.src, got, ok, tt.want, tt.ok)
			}
		})
	}
}
