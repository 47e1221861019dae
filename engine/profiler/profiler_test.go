package profiler

import (
	"testing"
	"time"
)

func TestProfilerReport(t *testing.T) {
	p := NewProfiler()
	p.SetUpdateInterval(time.Hour)
	p.Record(10, 1, 2*time.Millisecond)
	if p.Tick() {
		t.Fatal("Profiler.Tick before the interval:\nhave true\nwant false")
	}

	p.SetUpdateInterval(time.Nanosecond)
	p.Record(10, 0, 2*time.Millisecond)
	time.Sleep(time.Millisecond)
	if !p.Tick() {
		t.Fatal("Profiler.Tick after the interval:\nhave false\nwant true")
	}
	r := p.LastReport()
	if r.EvaluatedPerTick != 10 || r.Skipped != 1 || r.EvalMillisPerTick != 2 {
		t.Fatalf("Profiler.LastReport:\nhave %+v\nwant 10 evaluated/tick, 1 skipped, 2 ms/tick", r)
	}
	if r.TicksPerSecond <= 0 {
		t.Fatalf("Profiler.LastReport TicksPerSecond:\nhave %v\nwant > 0", r.TicksPerSecond)
	}

	// Totals restart after each report.
	p.Record(4, 0, 0)
	time.Sleep(time.Millisecond)
	p.Tick()
	if r := p.LastReport(); r.EvaluatedPerTick != 4 || r.Skipped != 0 {
		t.Fatalf("Profiler.LastReport after reset:\nhave %+v\nwant 4 evaluated/tick, 0 skipped", r)
	}
}
