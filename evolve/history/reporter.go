package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/baldhumanity/neuroevo-go/evolve"
)

// Reporter appends every finished generation of one run to a Store. Reporter
// callbacks cannot fail, so write errors are collected and exposed by Err.
type Reporter struct {
	store Store
	runID string

	mu   sync.Mutex
	errs []error
}

// NewReporter creates a reporter for a new run with a random run ID.
func NewReporter(store Store) *Reporter {
	return NewReporterForRun(store, uuid.NewString())
}

// NewReporterForRun creates a reporter that records under runID.
func NewReporterForRun(store Store, runID string) *Reporter {
	return &Reporter{store: store, runID: runID}
}

// RunID returns the identifier the records are stored under.
func (r *Reporter) RunID() string {
	return r.runID
}

// StartGeneration implements evolve.Reporter.
func (r *Reporter) StartGeneration(int) {}

// EndGeneration implements evolve.Reporter.
func (r *Reporter) EndGeneration(stats evolve.GenerationStats) {
	record := Record{
		RunID:       r.runID,
		Generation:  stats.Generation,
		Size:        stats.Size,
		Steps:       stats.Steps,
		BestScore:   stats.BestScore,
		MeanScore:   stats.MeanScore,
		StdevScore:  stats.StdevScore,
		MedianScore: stats.MedianScore,
		Degenerate:  stats.Degenerate,
	}
	if err := r.store.Append(context.Background(), record); err != nil {
		r.mu.Lock()
		r.errs = append(r.errs, fmt.Errorf("record generation %d: %w", stats.Generation, err))
		r.mu.Unlock()
	}
}

// Err returns the joined write errors seen so far, or nil.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}
