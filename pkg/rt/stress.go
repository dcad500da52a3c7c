package rt

import (
	"sync"

	"scoperc/pkg/memory"
)

// StressOptions shapes a synthetic workload
type StressOptions struct {
	Scopes   int  // Scopes pushed and popped
	Allocs   int  // Allocations per scope
	Parallel int  // Goroutines hammering atomic retain/release on shared values
	Atomic   bool // Use the atomic entry points for the scope workload
	Messages int  // Values pushed through the channel pipeline
}

// StressReport summarizes a workload run
type StressReport struct {
	Stats       memory.Stats
	Escaped     int   // Allocations escaped and still alive
	CopiesMade  int   // Copy-on-write clones taken
	PipelineSum int64 // Sum received through the channel
}

// Stress runs a mixed scope/refcount/realloc/channel workload. Every value
// it escapes is released before it returns, so a correct runtime ends with
// the same live count it started with.
func Stress(r *Runtime, opts StressOptions) StressReport {
	retain, release := r.Retain, r.Release
	if opts.Atomic {
		retain, release = r.RetainAtomic, r.ReleaseAtomic
	}
	before := r.mem.Stats()
	var rep StressReport

	var escaped []uintptr
	for s := 0; s < opts.Scopes; s++ {
		r.ScopePush()
		for i := 0; i < opts.Allocs; i++ {
			p := r.Malloc(int32(16 + i%48))
			if p == 0 {
				continue
			}
			switch i % 4 {
			case 0:
				retain(p)
				release(p)
			case 1:
				retain(p)
				if q := r.Realloc(p, 96); q != 0 && q != p {
					rep.CopiesMade++
				}
			case 2:
				retain(p)
				r.ScopeEscapeGlobal(p)
				escaped = append(escaped, p)
			}
		}
		r.ScopePop()
	}
	rep.Escaped = len(escaped)

	if opts.Parallel > 0 {
		shared := r.Malloc(32)
		r.ScopeEscapeGlobal(shared)
		var wg sync.WaitGroup
		for w := 0; w < opts.Parallel; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < opts.Allocs; i++ {
					r.RetainAtomic(shared)
					r.ReleaseAtomic(shared)
				}
			}()
		}
		wg.Wait()
		r.ReleaseAtomic(shared)
	}

	for _, p := range escaped {
		release(p)
		release(p)
	}

	if opts.Messages > 0 {
		rep.PipelineSum = pipeline(r, opts.Messages)
	}

	rep.Stats = r.mem.Stats().Sub(before)
	return rep
}

// pipeline pushes n values through a small channel with a producer task and
// a consumer task, and returns what the consumer summed
func pipeline(r *Runtime, n int) int64 {
	ch := r.ChanI32New(4)
	done := r.AsyncPendingI32()
	defer r.ObjRelease(ch)
	defer r.ObjRelease(done)

	var sum int64
	var produce TaskFunc
	produce = func(i uintptr) {
		if int(i) >= n {
			return
		}
		if r.ChanI32Send(ch, int32(i)) == 0 {
			return
		}
		r.Spawn(produce, i+1)
	}
	r.Spawn(produce, 0)
	r.Spawn(func(uintptr) {
		for i := 0; i < n; i++ {
			v, ok := r.ChanI32Recv(ch)
			if ok == 0 {
				break
			}
			sum += int64(v)
		}
		r.AsyncSetI32(done, 1)
	}, 0)
	r.AwaitI32(done)
	r.SchedRun()
	return sum
}
