package rules

import "socdash/pkg/models"

// Engine tags scored events with detection labels.
type Engine interface {
	Apply(event *models.ScoredEvent) []string
}

// NoopEngine returns no tags.
type NoopEngine struct{}

// Apply returns an empty tag list.
func (n *NoopEngine) Apply(event *models.ScoredEvent) []string {
	return nil
}
