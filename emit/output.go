package emit

import (
	"bytes"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Output is one file to generate.
type Output struct {
	Path    string
	Emitter Emitter
}

// Writer renders documents to files.
type Writer struct {
	// Lazy keeps files whose content did not change untouched, so build
	// tools do not see them as modified.
	Lazy bool

	log *zap.Logger
}

func NewWriter(lazy bool, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Writer{Lazy: lazy, log: log}
}

// WriteAll renders every output in memory first and only then writes them,
// so a failing emitter leaves all files untouched.
func (w *Writer) WriteAll(doc *Document, outputs []Output) error {
	if len(outputs) == 0 {
		w.log.Info("No output requested, schema checked only")
		return nil
	}

	rendered := make([][]byte, len(outputs))
	for i, out := range outputs {
		var buf bytes.Buffer
		if err := out.Emitter.Emit(&buf, doc); err != nil {
			return fmt.Errorf("Failed to render %s: %w", out.Path, err)
		}

		rendered[i] = buf.Bytes()
	}

	var err error
	for i, out := range outputs {
		if werr := w.write(out.Path, rendered[i]); werr != nil {
			err = multierr.Append(err, fmt.Errorf("Failed to write %s: %w", out.Path, werr))
		}
	}

	return err
}

func (w *Writer) write(path string, content []byte) error {
	if !w.Lazy {
		w.log.Info("Writing output", zap.String("path", path))
		return os.WriteFile(path, content, 0o644)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return err
	}

	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, content) {
		w.log.Info("Output unchanged", zap.String("path", path))
		return os.Remove(tmp)
	}

	w.log.Info("Writing output", zap.String("path", path))

	return os.Rename(tmp, path)
}
