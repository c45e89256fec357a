package mmu

import (
	"fmt"
	"io"
)

// Stats counts what the MMU has done so far.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Flushes   uint64 `json:"flushes"`
	Loads     uint64 `json:"loads"`
}

// Accesses returns the number of successful translations.
func (s Stats) Accesses() uint64 {
	return s.Hits + s.Misses
}

// MissRate returns the fraction of accesses that faulted. It is 0 when there
// was no access.
func (s Stats) MissRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}

	return float64(s.Misses) / float64(s.Accesses())
}

// Print writes a human-readable report.
func (s Stats) Print(w io.Writer) {
	missRate := s.MissRate()

	hitRate := 0.0
	if s.Accesses() > 0 {
		hitRate = 1 - missRate
	}

	fmt.Fprintln(w, "===== MMU Statistics =====")
	fmt.Fprintf(w, "Total accesses: %d\n", s.Accesses())
	fmt.Fprintf(w, "  Misses: %6d (%6.2f %%)\n", s.Misses, missRate*100)
	fmt.Fprintf(w, "  Hits:   %6d (%6.2f %%)\n", s.Hits, hitRate*100)
	fmt.Fprintf(w, "Evictions: %d\n", s.Evictions)
	fmt.Fprintf(w, "Flushes:   %d\n", s.Flushes)
	fmt.Fprintf(w, "Loads:     %d\n", s.Loads)
}
