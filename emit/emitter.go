package emit

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Disclaimer heads every emitted file that allows comments.
const Disclaimer = "This file was generated by " + Generator + ". DO NOT CHANGE THIS FILE"

// Emitter serializes a document in one output format.
type Emitter interface {
	// Name identifies the format, e.g. "json".
	Name() string

	Emit(w io.Writer, doc *Document) error
}

// JSON emits the whole document as indented JSON.
type JSON struct{}

func (JSON) Name() string { return "json" }

func (JSON) Emit(w io.Writer, doc *Document) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	_, err = w.Write(append(out, '\n'))
	return err
}

// YAML emits the document without the dense table.
type YAML struct{}

func (YAML) Name() string { return "yaml" }

func (YAML) Emit(w io.Writer, doc *Document) error {
	if _, err := fmt.Fprintf(w, "# %s\n", Disclaimer); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(doc); err != nil {
		return err
	}

	return enc.Close()
}

// Table emits the dense packet tables, one line per packet number with its
// name and game info flag. Unused numbers are named "unknown".
type Table struct{}

func (Table) Name() string { return "table" }

func (Table) Emit(w io.Writer, doc *Document) error {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n", Disclaimer)
	fmt.Fprintf(&buf, "# functional capability: %q\n", doc.Capability)

	for _, s := range doc.Table {
		gameInfo := 0
		if s.HasGameInfo {
			gameInfo = 1
		}

		fmt.Fprintf(&buf, "%d\t%s\t%d\n", s.ID, s.Name, gameInfo)
	}

	_, err := w.Write(buf.Bytes())
	return err
}

// ByName returns the emitter of a format.
func ByName(name string) (Emitter, bool) {
	for _, e := range []Emitter{JSON{}, YAML{}, Table{}} {
		if e.Name() == name {
			return e, true
		}
	}

	return nil, false
}
