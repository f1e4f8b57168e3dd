package engine

import (
	"sort"
	"time"
)

// PerfStats accumulates per-phase step timings, grounded on
// pthm-soup/game/perf.go's PerfStats (a bounded ring of samples per
// named system, averaged on read). Opt-in: an Engine with no PerfStats
// attached still reads time.Now() around each phase but records nothing.
type PerfStats struct {
	samples    map[string][]time.Duration
	maxSamples int
}

// NewPerfStats creates a tracker retaining the last maxSamples
// observations per phase (60 matches roughly one second at a 60Hz step
// rate, the teacher's own default).
func NewPerfStats() *PerfStats {
	return &PerfStats{samples: make(map[string][]time.Duration), maxSamples: 60}
}

func (p *PerfStats) record(name string, d time.Duration) {
	p.samples[name] = append(p.samples[name], d)
	if len(p.samples[name]) > p.maxSamples {
		p.samples[name] = p.samples[name][1:]
	}
}

// Avg returns the average duration recorded for phase name.
func (p *PerfStats) Avg(name string) time.Duration {
	s := p.samples[name]
	if len(s) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s))
}

// Total sums every phase's average duration, an estimate of one step's
// wall-clock cost.
func (p *PerfStats) Total() time.Duration {
	var total time.Duration
	for name := range p.samples {
		total += p.Avg(name)
	}
	return total
}

// SortedNames returns phase names ordered by descending average cost.
func (p *PerfStats) SortedNames() []string {
	names := make([]string, 0, len(p.samples))
	for name := range p.samples {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return p.Avg(names[i]) > p.Avg(names[j]) })
	return names
}

// LogReport writes one Logf line per phase, slowest first.
func (p *PerfStats) LogReport() {
	total := p.Total()
	Logf("=== step perf | total %s ===", total.Round(time.Microsecond))
	for _, name := range p.SortedNames() {
		avg := p.Avg(name)
		pct := float64(0)
		if total > 0 {
			pct = float64(avg) / float64(total) * 100
		}
		Logf("  %-10s %10s  %5.1f%%", name, avg.Round(time.Microsecond), pct)
	}
}
