package specfile

import (
	"io"
	"strings"
)

// Emitter writes spec files.
type Emitter struct {
	w io.Writer
}

// NewEmitter creates a new spec file emitter.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit writes every line of f with its original line ending.
func (e *Emitter) Emit(f *File) error {
	for _, line := range f.Lines {
		if _, err := io.WriteString(e.w, line.Text+line.Ending); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) String() string {
	var b strings.Builder
	// strings.Builder never fails to write
	_ = NewEmitter(&b).Emit(f)
	return b.String()
}
