package rt

import (
	"go.uber.org/zap"

	"scoperc/pkg/handles"
	"scoperc/pkg/sched"
)

// TaskFunc is a deferred unit of work: a function plus an opaque context
type TaskFunc func(ctx uintptr)

// Spawn queues fn(ctx). A nil fn is ignored.
func (r *Runtime) Spawn(fn TaskFunc, ctx uintptr) {
	if fn == nil {
		return
	}
	r.sched.Spawn(func() { fn(ctx) })
}

// SchedPending returns the number of queued tasks
func (r *Runtime) SchedPending() int32 { return int32(r.sched.Pending()) }

// SchedRunOnce runs one task and returns 1, or 0 if the queue was empty
func (r *Runtime) SchedRunOnce() int32 { return boolToInt32(r.sched.RunOnce()) }

// SchedRun drains the queue
func (r *Runtime) SchedRun() { r.sched.Run() }

// ============ Async cells ============

// AsyncPendingI32 returns a handle to an unset int32 cell
func (r *Runtime) AsyncPendingI32() uint64 {
	return r.registerObj(sched.NewPending[int32](r.sched))
}

// AsyncReadyI32 returns a handle to a cell already holding v
func (r *Runtime) AsyncReadyI32(v int32) uint64 {
	return r.registerObj(sched.NewReady(r.sched, v))
}

// AsyncSetI32 stores v in the cell behind h
func (r *Runtime) AsyncSetI32(h uint64, v int32) {
	if c, ok := resolveObj[*sched.Cell[int32]](r, h); ok {
		c.Set(v)
	}
}

// AwaitI32 runs tasks until the cell behind h is set and returns its value.
// An invalid handle returns 0 immediately.
func (r *Runtime) AwaitI32(h uint64) int32 {
	c, ok := resolveObj[*sched.Cell[int32]](r, h)
	if !ok {
		return 0
	}
	return c.Await()
}

// AsyncPendingVoid returns a handle to an unset void cell
func (r *Runtime) AsyncPendingVoid() uint64 {
	return r.registerObj(sched.NewPendingVoid(r.sched))
}

// AsyncReadyVoid returns a handle to a completed void cell
func (r *Runtime) AsyncReadyVoid() uint64 {
	return r.registerObj(sched.NewReadyVoid(r.sched))
}

// AsyncSetVoid completes the void cell behind h
func (r *Runtime) AsyncSetVoid(h uint64) {
	if v, ok := resolveObj[*sched.Void](r, h); ok {
		v.Done()
	}
}

// AwaitVoid runs tasks until the void cell behind h completes
func (r *Runtime) AwaitVoid(h uint64) {
	if v, ok := resolveObj[*sched.Void](r, h); ok {
		v.Wait()
	}
}

// ============ Channels ============

// ChanI32New returns a handle to a bounded int32 channel, or 0 if the
// capacity is above sched.MaxChannelCapacity
func (r *Runtime) ChanI32New(capacity int32) uint64 {
	ch, err := sched.NewChannel[int32](r.sched, int(capacity))
	if err != nil {
		r.log.Warn("channel create failed", zap.Int32("cap", capacity), zap.Error(err))
		return 0
	}
	return r.registerObj(ch)
}

// ChanI32Send sends v and returns 1, or 0 if the channel stalled or h is invalid
func (r *Runtime) ChanI32Send(h uint64, v int32) int32 {
	ch, ok := resolveObj[*sched.Channel[int32]](r, h)
	if !ok {
		return 0
	}
	return boolToInt32(ch.Send(v))
}

// ChanI32Recv receives a value. The second result is 1 on success and 0 if
// the channel stalled or h is invalid.
func (r *Runtime) ChanI32Recv(h uint64) (int32, int32) {
	ch, ok := resolveObj[*sched.Channel[int32]](r, h)
	if !ok {
		return 0, 0
	}
	v, ok := ch.Recv()
	return v, boolToInt32(ok)
}

// ObjRelease drops a cell or channel handle
func (r *Runtime) ObjRelease(h uint64) int32 {
	if err := r.objs.Invalidate(handles.Handle(h)); err != nil {
		return StatusInvalid
	}
	return StatusOK
}

func (r *Runtime) registerObj(v any) uint64 {
	h, err := r.objs.Register(v)
	if err != nil {
		r.log.Warn("object handle register failed", zap.Error(err))
		return 0
	}
	return uint64(h)
}

func resolveObj[T any](r *Runtime, h uint64) (T, bool) {
	var zero T
	v, ok := r.objs.Resolve(handles.Handle(h))
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
