package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_Record_And_Snapshot verifies entries are aggregated per kind.
func TestCollector_Record_And_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /login", StatusCode: 200, DurationMs: 10, Timestamp: now})
	c.Record(Entry{Kind: KindRequest, Path: "GET /login", StatusCode: 200, DurationMs: 30, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "api.Login", StatusCode: 401, DurationMs: 8, Timestamp: now})
	c.Record(Entry{Kind: KindStore, Path: "session.Get", DurationMs: 1, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 {
		t.Errorf("TotalRecorded = %d, want 4", snap.TotalRecorded)
	}
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths len = %d, want 1", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].AvgMs != 20 {
		t.Errorf("AvgMs = %v, want 20", snap.SlowestPaths[0].AvgMs)
	}
	if len(snap.SlowestUpstream) != 1 || snap.SlowestUpstream[0].Path != "api.Login" {
		t.Errorf("SlowestUpstream = %+v, want api.Login", snap.SlowestUpstream)
	}
	if len(snap.SlowestStore) != 1 {
		t.Errorf("SlowestStore len = %d, want 1", len(snap.SlowestStore))
	}
	if snap.Upstream.Count != 1 {
		t.Errorf("Upstream.Count = %d, want 1", snap.Upstream.Count)
	}
	if snap.UpstreamErrors != 0 {
		t.Errorf("UpstreamErrors = %d, want 0 (401 is an answer)", snap.UpstreamErrors)
	}
}

// TestCollector_UpstreamErrors counts transport failures and 5xx answers.
func TestCollector_UpstreamErrors(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()

	c.Record(Entry{Kind: KindUpstream, Path: "api.ListEvents", StatusCode: 0, DurationMs: 3000, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "api.ListEvents", StatusCode: 503, DurationMs: 5, Timestamp: now})
	c.Record(Entry{Kind: KindUpstream, Path: "api.ListEvents", StatusCode: 200, DurationMs: 5, Timestamp: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.UpstreamErrors != 2 {
		t.Errorf("UpstreamErrors = %d, want 2", snap.UpstreamErrors)
	}
}

// TestCollector_RingBuffer_Overwrites verifies oldest entries are overwritten when full.
func TestCollector_RingBuffer_Overwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /x", DurationMs: float64(i), Timestamp: now})
	}

	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths len = %d, want 1", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].Count != 3 {
		t.Errorf("Count = %d, want 3 (ring buffer kept last 3)", snap.SlowestPaths[0].Count)
	}
}

// TestCollector_Percentiles verifies P50/P95/P99 calculation.
func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()

	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Path: "GET /p", DurationMs: float64(i), Timestamp: now})
	}

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.Requests.P50Ms < 49 || snap.Requests.P50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.Requests.P50Ms)
	}
	if snap.Requests.P95Ms < 94 || snap.Requests.P95Ms > 96 {
		t.Errorf("P95 = %v, want ~95", snap.Requests.P95Ms)
	}
	if snap.Requests.P99Ms < 98 || snap.Requests.P99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.Requests.P99Ms)
	}
	if snap.Upstream.Count != 0 {
		t.Errorf("Upstream.Count = %d, want 0", snap.Upstream.Count)
	}
}

// TestCollector_Snapshot_FiltersBySince verifies old entries are excluded.
func TestCollector_Snapshot_FiltersBySince(t *testing.T) {
	c := NewCollector(100)
	old := time.Now().Add(-2 * time.Hour)
	recent := time.Now()

	c.Record(Entry{Kind: KindRequest, Path: "GET /old", DurationMs: 100, Timestamp: old})
	c.Record(Entry{Kind: KindRequest, Path: "GET /new", DurationMs: 10, Timestamp: recent})

	snap := c.Snapshot(time.Now().Add(-1*time.Hour), 10)
	if len(snap.SlowestPaths) != 1 {
		t.Fatalf("SlowestPaths len = %d, want 1 (old entry filtered)", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].Path != "GET /new" {
		t.Errorf("Path = %q, want GET /new", snap.SlowestPaths[0].Path)
	}
}

// TestCollector_NilSafe verifies a nil collector discards entries.
func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	c.Record(Entry{Kind: KindRequest})
	c.Since(KindUpstream, "api.Login", 200, time.Now())
}

// TestCollector_Since records elapsed time from start.
func TestCollector_Since(t *testing.T) {
	c := NewCollector(10)
	start := time.Now().Add(-5 * time.Millisecond)
	c.Since(KindUpstream, "api.GetEvent", 200, start)

	snap := c.Snapshot(start.Add(-time.Second), 10)
	if len(snap.SlowestUpstream) != 1 {
		t.Fatalf("SlowestUpstream len = %d, want 1", len(snap.SlowestUpstream))
	}
	if snap.SlowestUpstream[0].MaxMs < 5 {
		t.Errorf("MaxMs = %v, want >= 5", snap.SlowestUpstream[0].MaxMs)
	}
}

// TestCollector_ConcurrentWrites verifies goroutine safety of Record.
func TestCollector_ConcurrentWrites(t *testing.T) {
	c := NewCollector(1000)
	now := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.Record(Entry{Kind: KindRequest, Path: "GET /c", DurationMs: float64(n), Timestamp: now})
			}
		}(i)
	}
	wg.Wait()
	if c.TotalRecorded() != 1000 {
		t.Errorf("TotalRecorded = %d, want 1000", c.TotalRecorded())
	}
}

// BenchmarkCollectorRecord measures per-call cost of Record().
func BenchmarkCollectorRecord(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	e := Entry{Kind: KindRequest, Path: "GET /bench", StatusCode: 200, DurationMs: 1.5, Timestamp: time.Now()}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Record(e)
	}
}

// BenchmarkCollectorSnapshot measures cost of computing percentiles + top-N.
func BenchmarkCollectorSnapshot(b *testing.B) {
	c := NewCollector(DefaultRingSize)
	now := time.Now()
	for i := 0; i < DefaultRingSize; i++ {
		c.Record(Entry{Kind: EntryKind(i % 3), Path: "GET /bench", DurationMs: float64(i % 50), Timestamp: now})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Snapshot(now.Add(-time.Minute), 10)
	}
}
