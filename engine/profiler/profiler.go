package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// Profiler tracks tick rate, character evaluation and memory statistics for
// performance monitoring. Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu *sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// evaluation totals since the last report
	evaluated, skipped int
	evalTime           time.Duration

	last Report
}

// Report is one logged interval of statistics.
type Report struct {
	TicksPerSecond      float64
	EvaluatedPerTick    float64
	Skipped             int
	EvalMillisPerTick   float64
	HeapMB, AllocRateMB float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		mu:             &sync.Mutex{},
		lastTime:       time.Now(),
		updateInterval: time.Second,
	}
}

// SetUpdateInterval sets how often Tick logs. Non-positive values are ignored.
//
// Parameters:
//   - d: the reporting interval
func (p *Profiler) SetUpdateInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateInterval = d
}

// Record adds one scene frame's evaluation results to the current interval.
//
// Parameters:
//   - evaluated: characters evaluated successfully
//   - skipped: characters skipped after an evaluation error
//   - d: wall time spent evaluating and staging the frame
func (p *Profiler) Record(evaluated, skipped int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.evaluated += evaluated
	p.skipped += skipped
	p.evalTime += d
}

// Tick should be called once per engine tick to track timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: ticks per second, characters evaluated per tick, skipped
// characters, evaluation time, heap usage, allocation rate, GC count/pause times.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	tps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	p.last = Report{
		TicksPerSecond:    tps,
		EvaluatedPerTick:  float64(p.evaluated) / float64(p.frameCount),
		Skipped:           p.skipped,
		EvalMillisPerTick: float64(p.evalTime.Microseconds()) / 1000 / float64(p.frameCount),
		HeapMB:            allocMB,
		AllocRateMB:       allocRateMB,
	}
	log.Printf("[Profiler] TPS: %.2f | Characters: %.1f/tick | Skipped: %d | Eval: %.3f ms/tick | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs)",
		tps, p.last.EvaluatedPerTick, p.skipped, p.last.EvalMillisPerTick, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs)

	p.frameCount = 0
	p.evaluated, p.skipped, p.evalTime = 0, 0, 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// LastReport returns the statistics of the most recent logged interval.
//
// Returns:
//   - Report: the last report, zero before the first one
func (p *Profiler) LastReport() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
