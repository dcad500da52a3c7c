package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/xyproto/env/v2"
)

// Runtime settings read from the process environment.
//
// The memory manager consults these exactly once. Later changes to the
// environment are not observed by a running process.
//
//   MM              "0", "off", "none", "false", "no" disable refcounting
//   MM_ATOMIC       "0", "false", "no" select relaxed (non-atomic) counts
//   MM_DIAG         any value not starting with '0' logs every retain/release
//   MM_PTRMAP       first char in "0fFnN" disables the pointer index
//   MM_PTRMAP_SCAN  first char not in "0fFnN" enables the linear scan fallback
//   MM_PTRMAP_CAP   initial pointer index capacity
//   MM_HEAP         "go" (default) or "mmap"

const (
	EnvDisable       = "MM"
	EnvAtomic        = "MM_ATOMIC"
	EnvDiag          = "MM_DIAG"
	EnvPtrIndex      = "MM_PTRMAP"
	EnvPtrIndexScan  = "MM_PTRMAP_SCAN"
	EnvIndexCapacity = "MM_PTRMAP_CAP"
	EnvHeap          = "MM_HEAP"
)

// Heap backends
const (
	HeapGo   = "go"
	HeapMmap = "mmap"
)

// DefaultIndexCapacity is the initial pointer index size
const DefaultIndexCapacity = 1024

// Config holds the manager switches
type Config struct {
	Disabled      bool   // Refcounting elided entirely
	Atomic        bool   // Retain/Release use atomic read-modify-write
	PtrIndex      bool   // Pointer index consulted for lookups
	PtrIndexScan  bool   // Fall back to a scope-chain scan on index miss
	Diag          bool   // Log every retain/release
	Heap          string // System heap backend
	IndexCapacity int    // Initial pointer index capacity
}

// Default returns the settings used when no variable is set
func Default() Config {
	return Config{
		Disabled:      false,
		Atomic:        true,
		PtrIndex:      true,
		PtrIndexScan:  false,
		Diag:          false,
		Heap:          HeapGo,
		IndexCapacity: DefaultIndexCapacity,
	}
}

// FromEnv parses the current process environment
func FromEnv() Config {
	return FromLookup(func(name string) string {
		return env.Str(name)
	})
}

// FromLookup parses settings from an arbitrary name -> value source
func FromLookup(lookup func(string) string) Config {
	cfg := Default()
	cfg.Disabled = parseDisabled(lookup(EnvDisable))
	cfg.Atomic = parseAtomic(lookup(EnvAtomic))
	cfg.Diag = parseDiag(lookup(EnvDiag))
	cfg.PtrIndex = parseSwitch(lookup(EnvPtrIndex), true)
	cfg.PtrIndexScan = parseSwitch(lookup(EnvPtrIndexScan), false)

	switch strings.ToLower(lookup(EnvHeap)) {
	case HeapMmap:
		cfg.Heap = HeapMmap
	default:
		cfg.Heap = HeapGo
	}

	if raw := lookup(EnvIndexCapacity); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.IndexCapacity = n
		}
	}
	return cfg
}

var (
	cachedOnce sync.Once
	cached     Config
)

// Cached returns FromEnv, evaluated on first use only
func Cached() Config {
	cachedOnce.Do(func() {
		cached = FromEnv()
	})
	return cached
}

func parseDisabled(v string) bool {
	if v == "" {
		return false
	}
	if v[0] == '0' {
		return true
	}
	switch v {
	case "off", "none", "false", "no":
		return true
	}
	return false
}

func parseAtomic(v string) bool {
	switch v {
	case "":
		return true
	case "0", "false", "no":
		return false
	}
	return true
}

func parseDiag(v string) bool {
	return v != "" && v[0] != '0'
}

// parseSwitch treats a leading 0/f/n (either case) as off
func parseSwitch(v string, def bool) bool {
	if v == "" {
		return def
	}
	switch v[0] {
	case '0', 'f', 'F', 'n', 'N':
		return false
	}
	return true
}
