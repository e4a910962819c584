package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/luma/pktgen/protocol"
)

// Env gives field types access to the sibling fields of the value being
// encoded or decoded, so that variable array sizes can be resolved.
type Env interface {
	Lookup(name string) (interface{}, bool)
}

// SizeInfo describes the size of one array dimension: the declared capacity
// and, for variable arrays, the sibling field carrying the actual length.
type SizeInfo struct {
	// Declared is the capacity as written in the schema.
	Declared string `json:"declared" yaml:"declared"`

	// Max is the numeric value of Declared.
	Max int `json:"max" yaml:"max"`

	// Actual names the field holding the runtime length. Empty for constant
	// sized arrays.
	Actual string `json:"actual,omitempty" yaml:"actual,omitempty"`
}

// Constant reports whether the array always holds Max elements.
func (s SizeInfo) Constant() bool {
	return s.Actual == ""
}

// Resolve returns the number of elements in use. Variable sizes are looked up
// in env and must not exceed the declared capacity.
func (s SizeInfo) Resolve(env Env) (int, error) {
	if s.Constant() {
		return s.Max, nil
	}

	if env == nil {
		return 0, fmt.Errorf("%s: %w", s.Actual, ErrActualSizeField)
	}

	raw, ok := env.Lookup(s.Actual)
	if !ok {
		return 0, fmt.Errorf("%s: %w", s.Actual, ErrActualSizeField)
	}

	n, ok := AsInt(raw)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%s: %v: %w", s.Actual, raw, ErrActualSizeField)
	}

	if n > int64(s.Max) {
		return 0, fmt.Errorf("%s is %d but capacity is %s: %w", s.Actual, n, s.Declared, protocol.ErrTruncatedArray)
	}

	return int(n), nil
}

// IndexWidth is the width in bits of the element index used by the diff
// encoding of an array with the given capacity.
func IndexWidth(capacity int) int {
	if capacity <= 255 {
		return 8
	}

	return 16
}

func (s SizeInfo) String() string {
	if s.Constant() {
		return s.Declared
	}

	return s.Declared + ":" + s.Actual
}

var (
	identPattern  = regexp.MustCompile(`^[A-Za-z_]\w*$`)
	numberPattern = regexp.MustCompile(`^\d+$`)
)

// Dim is one bracketed dimension of a field declaration.
type Dim struct {
	Vector bool
	Size   SizeInfo
}

// ParseDim parses the inside of a bracket: `*`, `N` or `N:field`. Symbolic
// capacities are looked up in constants.
func ParseDim(text string, constants map[string]int) (Dim, error) {
	text = strings.TrimSpace(text)
	if text == "*" {
		return Dim{Vector: true}, nil
	}

	declared, actual := text, ""
	if i := strings.IndexByte(text, ':'); i >= 0 {
		declared, actual = strings.TrimSpace(text[:i]), strings.TrimSpace(text[i+1:])
		if !identPattern.MatchString(actual) {
			return Dim{}, fmt.Errorf("[%s]: %w", text, ErrInvalidSize)
		}
	}

	size := SizeInfo{Declared: declared, Actual: actual}

	switch {
	case numberPattern.MatchString(declared):
		n, err := strconv.Atoi(declared)
		if err != nil {
			return Dim{}, fmt.Errorf("[%s]: %w", text, ErrInvalidSize)
		}

		size.Max = n

	case identPattern.MatchString(declared):
		n, ok := constants[declared]
		if !ok {
			return Dim{}, fmt.Errorf("[%s]: %s: %w", text, declared, ErrUnknownConstant)
		}

		size.Max = n

	default:
		return Dim{}, fmt.Errorf("[%s]: %w", text, ErrInvalidSize)
	}

	if size.Max <= 0 {
		return Dim{}, fmt.Errorf("[%s]: capacity must be positive: %w", text, ErrInvalidSize)
	}

	return Dim{Size: size}, nil
}
