package evolve

import (
	"fmt"
	"io"
	"os"
	"time"
)

// GenerationStats summarizes one finished generation.
type GenerationStats struct {
	Generation  int
	Size        int
	Retired     int
	Steps       int // Simulation steps the generation ran for
	BestScore   float64
	MinScore    float64
	MeanScore   float64
	StdevScore  float64
	MedianScore float64
	Degenerate  bool // Fitness fell back to uniform
	Duration    time.Duration
}

// Reporter receives generation lifecycle events from an Evolution.
type Reporter interface {
	StartGeneration(generation int)
	EndGeneration(stats GenerationStats)
}

// ReporterSet fans events out to several reporters.
type ReporterSet struct {
	reporters []Reporter
}

// NewReporterSet creates a set holding reporters.
func NewReporterSet(reporters ...Reporter) *ReporterSet {
	return &ReporterSet{reporters: reporters}
}

// Add appends a reporter to the set.
func (rs *ReporterSet) Add(r Reporter) {
	rs.reporters = append(rs.reporters, r)
}

// StartGeneration forwards to every reporter.
func (rs *ReporterSet) StartGeneration(generation int) {
	for _, r := range rs.reporters {
		r.StartGeneration(generation)
	}
}

// EndGeneration forwards to every reporter.
func (rs *ReporterSet) EndGeneration(stats GenerationStats) {
	for _, r := range rs.reporters {
		r.EndGeneration(stats)
	}
}

// StdOutReporter prints a short summary of every generation.
type StdOutReporter struct {
	w io.Writer
}

// NewStdOutReporter creates a reporter writing to w, or to os.Stdout if w is nil.
func NewStdOutReporter(w io.Writer) *StdOutReporter {
	if w == nil {
		w = os.Stdout
	}
	return &StdOutReporter{w: w}
}

// StartGeneration prints the generation banner.
func (r *StdOutReporter) StartGeneration(generation int) {
	fmt.Fprintf(r.w, "****** Generation %d ******\n", generation)
}

// EndGeneration prints the score summary.
func (r *StdOutReporter) EndGeneration(stats GenerationStats) {
	fmt.Fprintf(r.w, " Agents: %d, steps: %d\n", stats.Size, stats.Steps)
	fmt.Fprintf(r.w, " Score best: %.2f, mean: %.2f, stdev: %.2f, median: %.2f\n",
		stats.BestScore, stats.MeanScore, stats.StdevScore, stats.MedianScore)
	if stats.Degenerate {
		fmt.Fprintln(r.w, " Warning: every agent scored zero, fitness fell back to uniform.")
	}
	fmt.Fprintf(r.w, "Generation %d finished in %s\n\n", stats.Generation, stats.Duration)
}
