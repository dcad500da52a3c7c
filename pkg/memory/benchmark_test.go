package memory

import (
	"testing"
)

// ============ Scope Benchmarks ============

func BenchmarkScope_Alloc(b *testing.B) {
	m := newManager(b)
	m.PushScope()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Alloc(32)
	}
}

func BenchmarkScope_PushPop(b *testing.B) {
	m := newManager(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.PushScope()
		m.Alloc(16)
		m.Alloc(16)
		m.PopScope()
	}
}

func BenchmarkScope_Escape(b *testing.B) {
	m := newManager(b)
	m.PushScope()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.PushScope()
		p, _ := m.Alloc(16)
		m.Escape(p)
		m.PopScope()
	}
}

// ============ Refcount Benchmarks ============

func BenchmarkRefcount_RetainReleaseRelaxed(b *testing.B) {
	m := newManager(b, relaxed)
	p, _ := m.Alloc(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Retain(p)
		m.Release(p)
	}
}

func BenchmarkRefcount_RetainReleaseAtomic(b *testing.B) {
	m := newManager(b)
	p, _ := m.Alloc(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.RetainAtomic(p)
		m.ReleaseAtomic(p)
	}
}

func BenchmarkRefcount_RetainReleaseScan(b *testing.B) {
	m := newManager(b, noIndex)
	for i := 0; i < 256; i++ {
		m.Alloc(16)
	}
	p, _ := m.Alloc(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Retain(p)
		m.Release(p)
	}
}

func BenchmarkRefcount_ParallelAtomic(b *testing.B) {
	m := newManager(b)
	p, _ := m.Alloc(16)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.RetainAtomic(p)
			m.ReleaseAtomic(p)
		}
	})
}

// ============ Realloc Benchmarks ============

func BenchmarkRealloc_Unique(b *testing.B) {
	m := newManager(b)
	p, _ := m.Alloc(16)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, _ = m.Realloc(p, 16+i%64)
	}
}

func BenchmarkRealloc_CopyOnWrite(b *testing.B) {
	m := newManager(b)
	m.PushScope()
	p, _ := m.Alloc(64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Retain(p)
		q, _ := m.Realloc(p, 128)
		m.Release(q)
	}
}

func BenchmarkSeq_Append(b *testing.B) {
	m := newManager(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var s Seq
		for j := int32(0); j < 64; j++ {
			m.SeqSetGrow(&s, j, 8)
		}
		m.Release(s.Buf)
	}
}
