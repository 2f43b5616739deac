// Package history records per-generation summaries of evolution runs. Only
// score statistics are kept; policy parameters are never stored.
package history

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when a store is used before Init.
var ErrNotInitialized = errors.New("store is not initialized")

// Record is the summary of one generation of one run.
type Record struct {
	RunID       string
	Generation  int
	Size        int
	Steps       int
	BestScore   float64
	MeanScore   float64
	StdevScore  float64
	MedianScore float64
	Degenerate  bool
}

// Store persists generation records.
type Store interface {
	Init(ctx context.Context) error
	Append(ctx context.Context, record Record) error
	// List returns the records of runID ordered by generation.
	List(ctx context.Context, runID string) ([]Record, error)
	Close() error
}

// NewStore creates a store of the given kind: "memory" (the default) or
// "sqlite", which needs the sqlite build tag.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported history backend: %s", kind)
	}
}
