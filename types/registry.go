package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Constructor builds a field type from a descriptor. match holds the
// submatches of the pattern that selected the constructor, if any.
type Constructor func(dataio, public string, match []string) (FieldType, error)

type patternEntry struct {
	re   *regexp.Regexp
	ctor Constructor
}

// Registry resolves dataio(public) descriptors and type aliases into field
// types. Dispatch order: exact dataio, dataio patterns, exact public, public
// patterns, fallback.
type Registry struct {
	mu sync.Mutex

	aliases map[string]string

	dataioExact    map[string]Constructor
	dataioPatterns []patternEntry
	publicExact    map[string]Constructor
	publicPatterns []patternEntry
	fallback       Constructor

	// matched caches the pattern that selected a dataio or public name.
	dataioMatched map[string]int
	publicMatched map[string]int
}

var descriptorPattern = regexp.MustCompile(`^\s*([^()\s]+)\s*\((.*)\)\s*$`)

// NewRegistry returns a registry knowing every built in field type.
func NewRegistry() *Registry {
	r := &Registry{
		aliases:       map[string]string{},
		dataioExact:   map[string]Constructor{},
		publicExact:   map[string]Constructor{},
		dataioMatched: map[string]int{},
		publicMatched: map[string]int{},
		fallback: func(dataio, public string, _ []string) (FieldType, error) {
			return NewPlainType(dataio, public), nil
		},
	}

	r.DataioExact("bool", func(dataio, public string, _ []string) (FieldType, error) {
		if public != "bool" {
			return nil, fmt.Errorf("%s(%s): %w", dataio, public, ErrIllegalType)
		}

		return &BoolType{}, nil
	})
	r.DataioExact("bitvector", func(_, public string, _ []string) (FieldType, error) {
		return NewBitvectorType(public), nil
	})
	r.DataioExact("string", unsized(sizedString))
	r.DataioExact("estring", unsized(sizedEstring))
	r.DataioExact("memory", unsized(sizedMemory))
	r.DataioExact("worklist", func(_, public string, _ []string) (FieldType, error) {
		return NewWorklistType(public), nil
	})
	r.DataioExact("cm_parameter", func(_, public string, _ []string) (FieldType, error) {
		return NewCmParameterType(public), nil
	})
	r.DataioExact("strvec", func(_, public string, _ []string) (FieldType, error) {
		return NewStringVectorType(public), nil
	})

	r.DataioPattern(regexp.MustCompile(`^(s|u)int(8|16|32)$`), func(dataio, public string, m []string) (FieldType, error) {
		if public == "bool" || public == "float" {
			return nil, fmt.Errorf("%s(%s): %w", dataio, public, ErrIllegalType)
		}

		width, _ := strconv.Atoi(m[2])
		return NewIntType(dataio, public, width, m[1] == "s"), nil
	})
	r.DataioPattern(regexp.MustCompile(`^(s|u)float(\d+)$`), func(dataio, public string, m []string) (FieldType, error) {
		if public != "float" {
			return nil, fmt.Errorf("%s(%s): %w", dataio, public, ErrIllegalType)
		}

		factor, err := strconv.Atoi(m[2])
		if err != nil || factor <= 0 {
			return nil, fmt.Errorf("%s(%s): %w", dataio, public, ErrFloatFactor)
		}

		return NewFloatType(dataio, m[1] == "s", factor), nil
	})

	r.PublicExact("float", func(dataio, public string, _ []string) (FieldType, error) {
		return nil, fmt.Errorf("%s(%s): %w", dataio, public, ErrFloatFactor)
	})
	r.PublicPattern(regexp.MustCompile(`^struct\s+(\w+)$`), func(dataio, public string, m []string) (FieldType, error) {
		return NewStructType(dataio, public, m[1]), nil
	})

	return r
}

func unsized(kind sizedKind) Constructor {
	return func(dataio, public string, _ []string) (FieldType, error) {
		return &UnsizedType{dataio: dataio, public: public, kind: kind}, nil
	}
}

// DataioExact registers a constructor for one dataio name.
func (r *Registry) DataioExact(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dataioExact[name] = ctor
}

// DataioPattern registers a constructor for dataio names matching re.
func (r *Registry) DataioPattern(re *regexp.Regexp, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.dataioPatterns = append(r.dataioPatterns, patternEntry{re: re, ctor: ctor})
	r.dataioMatched = map[string]int{}
}

// PublicExact registers a constructor for one public type name.
func (r *Registry) PublicExact(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.publicExact[name] = ctor
}

// PublicPattern registers a constructor for public names matching re.
func (r *Registry) PublicPattern(re *regexp.Regexp, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.publicPatterns = append(r.publicPatterns, patternEntry{re: re, ctor: ctor})
	r.publicMatched = map[string]int{}
}

// Define records `alias = meaning`. Redefining an alias with the same
// meaning is allowed.
func (r *Registry) Define(alias, meaning string) error {
	alias, meaning = strings.TrimSpace(alias), strings.TrimSpace(meaning)

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.aliases[alias]; ok {
		if prev == meaning {
			return nil
		}

		return fmt.Errorf("%s = %s, was %s: %w", alias, meaning, prev, ErrDuplicateAlias)
	}

	r.aliases[alias] = meaning

	return nil
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}

	return out
}

// Expand follows aliases until it reaches a name that is not one.
func (r *Registry) Expand(text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.expand(text)
}

func (r *Registry) expand(text string) (string, error) {
	text = strings.TrimSpace(text)
	seen := map[string]bool{}

	for {
		meaning, ok := r.aliases[text]
		if !ok {
			return text, nil
		}

		if seen[text] {
			return "", fmt.Errorf("%s: %w", text, ErrAliasCycle)
		}

		seen[text] = true
		text = meaning
	}
}

// Resolve turns an alias or a dataio(public) descriptor into a field type.
func (r *Registry) Resolve(text string) (FieldType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expanded, err := r.expand(text)
	if err != nil {
		return nil, err
	}

	m := descriptorPattern.FindStringSubmatch(expanded)
	if m == nil {
		return nil, fmt.Errorf("%q: %w", text, ErrUndefinedType)
	}

	dataio, public := m[1], strings.TrimSpace(m[2])
	if public == "" {
		return nil, fmt.Errorf("%q: %w", text, ErrUndefinedType)
	}

	return r.dispatch(dataio, public)
}

func (r *Registry) dispatch(dataio, public string) (FieldType, error) {
	if ctor, ok := r.dataioExact[dataio]; ok {
		return ctor(dataio, public, nil)
	}

	if ctor, match := r.lookupPattern(r.dataioPatterns, r.dataioMatched, dataio); ctor != nil {
		return ctor(dataio, public, match)
	}

	if ctor, ok := r.publicExact[public]; ok {
		return ctor(dataio, public, nil)
	}

	if ctor, match := r.lookupPattern(r.publicPatterns, r.publicMatched, public); ctor != nil {
		return ctor(dataio, public, match)
	}

	return r.fallback(dataio, public, nil)
}

// lookupPattern finds the first pattern matching name. Positive and
// negative results are cached.
func (r *Registry) lookupPattern(patterns []patternEntry, cache map[string]int, name string) (Constructor, []string) {
	if i, ok := cache[name]; ok {
		if i < 0 {
			return nil, nil
		}

		return patterns[i].ctor, patterns[i].re.FindStringSubmatch(name)
	}

	for i, p := range patterns {
		if m := p.re.FindStringSubmatch(name); m != nil {
			cache[name] = i
			return p.ctor, m
		}
	}

	cache[name] = -1

	return nil, nil
}
