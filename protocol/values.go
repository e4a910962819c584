package protocol

// Values holds the decoded or to-be-encoded fields of one packet, keyed by
// field name.
type Values map[string]interface{}

// Clone returns a shallow copy of v.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for name, value := range v {
		out[name] = value
	}

	return out
}

// Lookup returns the value of the named field.
func (v Values) Lookup(name string) (interface{}, bool) {
	value, ok := v[name]
	return value, ok
}

// MaxWorklistLen is the largest number of entries a worklist may carry.
const MaxWorklistLen = 64

// WorkItem is one entry of a city production worklist.
type WorkItem struct {
	Kind  uint8
	Value uint16
}

type Worklist []WorkItem

// Equal reports whether both worklists hold the same entries in the same order.
func (w Worklist) Equal(other Worklist) bool {
	if len(w) != len(other) {
		return false
	}

	for i := range w {
		if w[i] != other[i] {
			return false
		}
	}

	return true
}

// OutputTypes is the number of city output types a CmParameter weighs.
const OutputTypes = 6

// CmParameter is the parameter set of the city governor.
type CmParameter struct {
	MinimalSurplus   [OutputTypes]int16
	MaxGrowth        bool
	RequireHappy     bool
	AllowDisorder    bool
	AllowSpecialists bool
	Factor           [OutputTypes]uint16
	HappyFactor      uint16
}

// Equal compares two parameter sets. The governor treats the surplus and
// factor arrays as the significant part; the flags only matter together.
func (c CmParameter) Equal(other CmParameter) bool {
	if c.MinimalSurplus != other.MinimalSurplus || c.Factor != other.Factor {
		return false
	}

	return c.HappyFactor == other.HappyFactor &&
		c.MaxGrowth == other.MaxGrowth &&
		c.RequireHappy == other.RequireHappy &&
		c.AllowDisorder == other.AllowDisorder &&
		c.AllowSpecialists == other.AllowSpecialists
}
