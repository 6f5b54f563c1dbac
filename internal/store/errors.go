package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("document not found")

// SkipError records a per-item failure that was logged and skipped
// instead of aborting the surrounding operation.
type SkipError struct {
	Op   string
	Path string
	ID   string
	Err  error
}

func (e *SkipError) Error() string {
	target := e.ID
	if e.Path != "" {
		target = e.Path
	}
	return fmt.Sprintf("%s %s: %v", e.Op, target, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// RebuildReport summarizes a folder scan.
type RebuildReport struct {
	Added   int
	Skipped []*SkipError
}

// LoadReport summarizes loading the persisted index.
type LoadReport struct {
	Loaded  int
	Dropped []*SkipError
}
