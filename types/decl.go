package types

import (
	"strings"
)

// Decl is the structured form of a declaration: a storage member of a packet
// struct or a parameter of a direct send or handler function. Emitters turn it
// into target language text.
type Decl struct {
	Type string   `json:"type" yaml:"type"`
	Name string   `json:"name" yaml:"name"`
	Dims []string `json:"dims,omitempty" yaml:"dims,omitempty"`

	// Pointer marks declarations held through a pointer (dynamic storage).
	Pointer bool `json:"pointer,omitempty" yaml:"pointer,omitempty"`

	// Ref marks parameters passed by constant reference.
	Ref bool `json:"ref,omitempty" yaml:"ref,omitempty"`
}

// Equal reports whether two declarations are structurally identical.
func (d Decl) Equal(other Decl) bool {
	if d.Type != other.Type || d.Name != other.Name ||
		d.Pointer != other.Pointer || d.Ref != other.Ref ||
		len(d.Dims) != len(other.Dims) {
		return false
	}

	for i := range d.Dims {
		if d.Dims[i] != other.Dims[i] {
			return false
		}
	}

	return true
}

func (d Decl) String() string {
	var b strings.Builder

	if d.Ref {
		b.WriteString("const ")
	}

	b.WriteString(d.Type)
	b.WriteByte(' ')

	if d.Pointer || d.Ref {
		b.WriteByte('*')
	}

	b.WriteString(d.Name)

	for _, dim := range d.Dims {
		b.WriteByte('[')
		b.WriteString(dim)
		b.WriteByte(']')
	}

	return b.String()
}

func withDim(d Decl, dim string) Decl {
	dims := make([]string, 0, len(d.Dims)+1)
	dims = append(dims, dim)
	d.Dims = append(dims, d.Dims...)

	return d
}
