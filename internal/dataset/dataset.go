// Package dataset holds the loaded, scored event table and the read-only
// views derived from it.
package dataset

import (
	"slices"
	"sort"

	"socdash/pkg/models"
)

// Dataset is an immutable, time-ordered table of scored events. Every
// derivation returns a new Dataset; the receiver is never modified.
type Dataset struct {
	events   []models.ScoredEvent
	failures []error
}

// New builds a Dataset from scored events, sorted by timestamp. The input
// slice is copied.
func New(events []models.ScoredEvent, failures []error) *Dataset {
	out := slices.Clone(events)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return &Dataset{events: out, failures: slices.Clone(failures)}
}

// Events returns a copy of the rows in timestamp order.
func (d *Dataset) Events() []models.ScoredEvent {
	if d == nil {
		return nil
	}
	return slices.Clone(d.events)
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.events)
}

// Empty reports whether the dataset has no rows.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// Failures returns the per-row load and scoring failures.
func (d *Dataset) Failures() []error {
	if d == nil {
		return nil
	}
	return slices.Clone(d.failures)
}

func (d *Dataset) derive(keep func(*models.ScoredEvent) bool) *Dataset {
	out := make([]models.ScoredEvent, 0, len(d.events))
	for i := range d.events {
		if keep(&d.events[i]) {
			out = append(out, d.events[i])
		}
	}
	return &Dataset{events: out}
}
