package model

import (
	"fmt"
	"sort"

	"github.com/luma/pktgen/types"
)

// FieldFlags are the per field markers of a field line.
type FieldFlags struct {
	IsKey bool `json:"key,omitempty" yaml:"key,omitempty"`
	Diff  bool `json:"diff,omitempty" yaml:"diff,omitempty"`

	// AddCaps and RemoveCaps are sorted and disjoint.
	AddCaps    []string `json:"add_caps,omitempty" yaml:"add_caps,omitempty"`
	RemoveCaps []string `json:"remove_caps,omitempty" yaml:"remove_caps,omitempty"`
}

// NewFieldFlags normalizes the capability sets and checks they are
// disjoint.
func NewFieldFlags(isKey, diff bool, addCaps, removeCaps []string) (FieldFlags, error) {
	flags := FieldFlags{
		IsKey:      isKey,
		Diff:       diff,
		AddCaps:    sortedSet(addCaps),
		RemoveCaps: sortedSet(removeCaps),
	}

	for _, c := range flags.AddCaps {
		if contains(flags.RemoveCaps, c) {
			return FieldFlags{}, fmt.Errorf("%s: %w", c, ErrCapabilityConflict)
		}
	}

	return flags, nil
}

// Field is one member of a packet.
type Field struct {
	Name  string
	Type  types.FieldType
	Flags FieldFlags
}

// IsKey reports whether the field selects the delta cache entry.
func (f *Field) IsKey() bool {
	return f.Flags.IsKey
}

// Folded reports whether the field's value travels in the presence
// bitvector instead of the body.
func (f *Field) Folded(cfg Config) bool {
	return cfg.FoldBool && f.Type.Kind() == types.KindBool
}

// DiffArray reports whether the field uses the array diff encoding.
func (f *Field) DiffArray() bool {
	if !f.Flags.Diff {
		return false
	}

	kind := f.Type.Kind()

	return kind == types.KindArray || kind == types.KindVector
}

// Capabilities returns every capability the field refers to.
func (f *Field) Capabilities() []string {
	return sortedSet(append(append([]string{}, f.Flags.AddCaps...), f.Flags.RemoveCaps...))
}

// Present reports whether the field exists under the capability set caps.
func (f *Field) Present(caps map[string]bool) bool {
	for _, c := range f.Flags.AddCaps {
		if !caps[c] {
			return false
		}
	}

	for _, c := range f.Flags.RemoveCaps {
		if caps[c] {
			return false
		}
	}

	return true
}

func sortedSet(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	sort.Strings(out)

	return out
}

func contains(set []string, s string) bool {
	i := sort.SearchStrings(set, s)
	return i < len(set) && set[i] == s
}
