package memory

import (
	"fmt"
	"strings"
)

// Stats is a snapshot of the manager's counters
type Stats struct {
	Retains  int64 // Successful retains
	Releases int64 // Successful releases
	Allocs   int64 // Records created, copy-on-write clones included
	Frees    int64 // Records destroyed by release, free or scope pop
	Live     int64 // Records currently alive (gauge)
}

// Stats returns the current counters
func (m *Manager) Stats() Stats {
	return Stats{
		Retains:  m.retains.Load(),
		Releases: m.releases.Load(),
		Allocs:   m.allocs.Load(),
		Frees:    m.frees.Load(),
		Live:     m.live.Load(),
	}
}

// ResetStats zeroes the cumulative counters. Live is a gauge and is kept.
func (m *Manager) ResetStats() {
	m.retains.Store(0)
	m.releases.Store(0)
	m.allocs.Store(0)
	m.frees.Store(0)
}

// Sub returns the counter deltas since an earlier snapshot. Live is taken
// from s as is.
func (s Stats) Sub(earlier Stats) Stats {
	return Stats{
		Retains:  s.Retains - earlier.Retains,
		Releases: s.Releases - earlier.Releases,
		Allocs:   s.Allocs - earlier.Allocs,
		Frees:    s.Frees - earlier.Frees,
		Live:     s.Live,
	}
}

// String returns a formatted report
func (s Stats) String() string {
	var sb strings.Builder

	sb.WriteString("=== Memory Statistics ===\n\n")

	sb.WriteString("Reference Counting:\n")
	sb.WriteString(fmt.Sprintf("  Retains:             %d\n", s.Retains))
	sb.WriteString(fmt.Sprintf("  Releases:            %d\n", s.Releases))

	sb.WriteString("\nAllocation:\n")
	sb.WriteString(fmt.Sprintf("  Allocs:              %d\n", s.Allocs))
	sb.WriteString(fmt.Sprintf("  Frees:               %d\n", s.Frees))
	sb.WriteString(fmt.Sprintf("  Live:                %d\n", s.Live))
	if s.Allocs > 0 {
		pct := float64(s.Frees) / float64(s.Allocs) * 100
		sb.WriteString(fmt.Sprintf("  Freed ratio:         %.1f%%\n", pct))
	}

	return sb.String()
}

// Summary returns a one-line summary
func (s Stats) Summary() string {
	if s.Allocs == 0 && s.Retains == 0 && s.Releases == 0 {
		return "No memory activity"
	}
	return fmt.Sprintf("Memory: %d allocs, %d frees, %d live, %d retains, %d releases",
		s.Allocs, s.Frees, s.Live, s.Retains, s.Releases)
}
