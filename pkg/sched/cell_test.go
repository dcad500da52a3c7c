package sched

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCell_ReadyReturnsImmediately(t *testing.T) {
	s := New(Options{})
	c := NewReady(s, 7)
	assert.True(t, c.Ready())
	assert.Equal(t, 7, c.Await())
}

func TestCell_AwaitRunsProducer(t *testing.T) {
	s := New(Options{})
	c := NewPending[string](s)
	assert.False(t, c.Ready())

	s.Spawn(func() { c.Set("done") })
	assert.Equal(t, "done", c.Await())
	assert.Equal(t, 0, s.Pending())
}

func TestCell_AwaitStopsOnceReady(t *testing.T) {
	s := New(Options{})
	c := NewPending[int](s)
	s.Spawn(func() { c.Set(1) })
	s.Spawn(func() { t.Error("task after the producer must not run") })

	assert.Equal(t, 1, c.Await())
	assert.Equal(t, 1, s.Pending())
	s.Reset()
}

func TestCell_SetOverwrites(t *testing.T) {
	s := New(Options{})
	c := NewReady(s, 1)
	c.Set(2)
	assert.Equal(t, 2, c.Await())
}

func TestCell_ExternalProducer(t *testing.T) {
	s := New(Options{})
	c := NewPending[int](s)
	go func() {
		time.Sleep(5 * time.Millisecond)
		c.Set(42)
	}()
	assert.Equal(t, 42, c.Await())
}

func TestCell_AwaitContextCancelled(t *testing.T) {
	s := New(Options{})
	c := NewPending[int](s)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.AwaitContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, c.Ready())
}

func TestCell_ChainedTasks(t *testing.T) {
	s := New(Options{})
	first := NewPending[int](s)
	second := NewPending[int](s)
	s.Spawn(func() {
		s.Spawn(func() { second.Set(first.Await() * 2) })
		first.Set(21)
	})
	assert.Equal(t, 42, second.Await())
}

func TestVoid(t *testing.T) {
	s := New(Options{})
	assert.True(t, NewReadyVoid(s).Ready())

	v := NewPendingVoid(s)
	s.Spawn(v.Done)
	v.Wait()
	assert.True(t, v.Ready())
}
