package memory

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestStats_Counters(t *testing.T) {
	m := newManager(t)
	m.PushScope()
	a := mustAlloc(t, m, 8)
	b := mustAlloc(t, m, 8)
	m.Retain(a)
	m.Release(a)
	m.Release(b)

	want := Stats{Retains: 1, Releases: 2, Allocs: 2, Frees: 1, Live: 1}
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	m.PopScope()
	want.Frees, want.Live = 2, 0
	if diff := cmp.Diff(want, m.Stats()); diff != "" {
		t.Errorf("stats after pop mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_ResetKeepsLive(t *testing.T) {
	m := newManager(t)
	p := mustAlloc(t, m, 8)
	mustAlloc(t, m, 8)
	m.Retain(p)

	m.ResetStats()
	if diff := cmp.Diff(Stats{Live: 2}, m.Stats()); diff != "" {
		t.Errorf("reset mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_Sub(t *testing.T) {
	before := Stats{Retains: 3, Releases: 1, Allocs: 10, Frees: 4, Live: 6}
	after := Stats{Retains: 5, Releases: 4, Allocs: 12, Frees: 9, Live: 3}
	got := after.Sub(before)
	if diff := cmp.Diff(Stats{Retains: 2, Releases: 3, Allocs: 2, Frees: 5, Live: 3}, got); diff != "" {
		t.Errorf("sub mismatch (-want +got):\n%s", diff)
	}
}

func TestStats_Format(t *testing.T) {
	assert.Equal(t, "No memory activity", Stats{}.Summary())

	s := Stats{Retains: 1, Releases: 2, Allocs: 4, Frees: 2, Live: 2}
	assert.Equal(t, "Memory: 4 allocs, 2 frees, 2 live, 1 retains, 2 releases", s.Summary())
	assert.Contains(t, s.String(), "Freed ratio:         50.0%")
	assert.Contains(t, s.String(), "Live:                2")
}
