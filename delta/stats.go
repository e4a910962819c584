package delta

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// VariantStats counts the traffic of one packet variant.
type VariantStats struct {
	Packet    string         `json:"packet"`
	Variant   int            `json:"variant"`
	Sent      int            `json:"sent"`
	Discarded int            `json:"discarded"`
	Changes   map[string]int `json:"changes"`
}

// Stats collects delta statistics of a session. It is safe to read while
// the session is in use.
type Stats struct {
	mu       sync.Mutex
	variants map[string]*VariantStats
}

func NewStats() *Stats {
	return &Stats{variants: map[string]*VariantStats{}}
}

func (s *Stats) entry(plan *Plan) *VariantStats {
	e, ok := s.variants[plan.Variant.Name]
	if !ok {
		e = &VariantStats{
			Packet:  plan.Packet.Type,
			Variant: plan.Variant.No,
			Changes: map[string]int{},
		}
		s.variants[plan.Variant.Name] = e
	}

	return e
}

func (s *Stats) record(plan *Plan, changed []string, discarded bool) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(plan)
	if discarded {
		e.Discarded++
		return
	}

	e.Sent++
	for _, name := range changed {
		e.Changes[name]++
	}
}

// Snapshot returns a copy of the counters ordered by variant name.
func (s *Stats) Snapshot() []VariantStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.variants))
	for name := range s.variants {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]VariantStats, 0, len(names))
	for _, name := range names {
		e := *s.variants[name]

		e.Changes = make(map[string]int, len(s.variants[name].Changes))
		for field, n := range s.variants[name].Changes {
			e.Changes[field] = n
		}

		out = append(out, e)
	}

	return out
}

// Report logs one line per variant.
func (s *Stats) Report(log *zap.Logger) {
	for _, e := range s.Snapshot() {
		total := e.Sent + e.Discarded

		var ratio float64
		if total > 0 {
			ratio = float64(e.Discarded) / float64(total)
		}

		log.Info("Delta stats",
			zap.String("packet", e.Packet),
			zap.Int("variant", e.Variant),
			zap.Int("sent", e.Sent),
			zap.Int("discarded", e.Discarded),
			zap.Float64("discard_ratio", ratio),
			zap.Any("changes", e.Changes))
	}
}

// Reset clears all counters.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.variants = map[string]*VariantStats{}
}
