package specfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/frederic-klein/specsync/internal/dist"
	"github.com/frederic-klein/specsync/internal/report"
)

// ErrSpecFileIO is wrapped by every IOError.
var ErrSpecFileIO = errors.New("spec file I/O error")

// IOError reports a failure to read or write a spec file.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s spec file %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error {
	return []error{ErrSpecFileIO, e.Err}
}

// Options controls SyncFile.
type Options struct {
	// DryRun audits the file without writing it.
	DryRun bool
	// Ignore exempts package names from the audit; may be nil.
	Ignore Ignorer
	// Logger receives entries removed by rewrites; nil disables logging.
	Logger *zap.Logger
}

// SyncFile synchronizes the spec file at path with reqs and writes the
// result back in place. The file is rewritten even when nothing changed.
func SyncFile(path string, reqs dist.Requirements, opts Options) (rep *report.Report, err error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	flag := os.O_RDWR
	if opts.DryRun {
		flag = os.O_RDONLY
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, &IOError{Op: "opening", Path: path, Err: err}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil && !opts.DryRun {
			rep, err = nil, &IOError{Op: "closing", Path: path, Err: closeErr}
		}
	}()

	parsed, err := NewParser(file).Parse()
	if err != nil {
		return nil, &IOError{Op: "reading", Path: path, Err: err}
	}

	name := strings.TrimSuffix(filepath.Base(path), ".spec")
	rep = Synchronize(name, parsed, reqs, opts.Ignore)
	for _, entry := range rep.Dropped {
		logger.Warn("entry removed from rewritten line",
			zap.String("spec", filepath.Base(path)),
			zap.String("entry", entry))
	}
	if opts.DryRun {
		return rep, nil
	}

	if err := file.Truncate(0); err != nil {
		return nil, &IOError{Op: "truncating", Path: path, Err: err}
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, &IOError{Op: "seeking", Path: path, Err: err}
	}
	if err := NewEmitter(file).Emit(parsed); err != nil {
		return nil, &IOError{Op: "writing", Path: path, Err: err}
	}
	if err := file.Sync(); err != nil {
		return nil, &IOError{Op: "syncing", Path: path, Err: err}
	}
	return rep, nil
}
