// Package pipeline wires loading, scoring, tagging and alert detection.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"socdash/config"
	"socdash/internal/alerts"
	"socdash/internal/dataset"
	"socdash/internal/logger"
	"socdash/internal/metrics"
	"socdash/internal/risk"
	"socdash/internal/rules"
)

// maxLoggedFailures caps the per-row warnings written at load time.
const maxLoggedFailures = 5

// Pipeline loads an event snapshot and turns it into a scored dataset.
type Pipeline struct {
	source     Source
	sourceName string
	scorer     *risk.Scorer
	engine     rules.Engine
}

// New creates a pipeline. A nil engine disables rule tagging.
func New(source Source, sourceName string, scorer *risk.Scorer, engine rules.Engine) *Pipeline {
	if engine == nil {
		engine = &rules.NoopEngine{}
	}
	return &Pipeline{
		source:     source,
		sourceName: sourceName,
		scorer:     scorer,
		engine:     engine,
	}
}

// FromConfig builds the source, scorer and rule engine described by cfg.
func FromConfig(cfg *config.Config) (*Pipeline, error) {
	c := cfg.SocDash

	scorer, err := risk.New(c.Scoring)
	if err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}

	var engine rules.Engine = &rules.NoopEngine{}
	if c.Rules.Enabled {
		sigmaEngine, stats, err := rules.NewSigmaEngine(c.Rules.Path)
		if err != nil {
			return nil, fmt.Errorf("load sigma rules: %w", err)
		}
		logger.Infof("Sigma rules loaded: %d/%d (skipped: datasource=%d complex=%d invalid=%d)",
			stats.Loaded, stats.TotalFiles, stats.SkippedDatasource, stats.SkippedComplex, stats.SkippedInvalid)
		engine = sigmaEngine
	}

	source, name, err := NewSource(c.Input)
	if err != nil {
		return nil, err
	}
	return New(source, name, scorer, engine), nil
}

// Scorer returns the scorer used for annotation.
func (p *Pipeline) Scorer() *risk.Scorer {
	return p.scorer
}

// Load reads the source once and returns the scored dataset. Malformed rows
// end up in Dataset.Failures; only source-level errors are returned.
func (p *Pipeline) Load(ctx context.Context) (*dataset.Dataset, error) {
	raw, failures, err := p.source.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	scored, scoreFailures := p.scorer.Annotate(raw)
	failures = append(failures, scoreFailures...)

	for i := range scored {
		ev := &scored[i]
		ev.Tags = p.engine.Apply(ev)
		metrics.RiskScore.Observe(float64(ev.RiskScore))
	}

	metrics.EventsLoaded.WithLabelValues(p.sourceName).Add(float64(len(scored)))
	metrics.EventsMalformed.Add(float64(len(failures)))
	logFailures(failures)
	logger.Infof("Loaded %d events from %s (%d malformed)", len(scored), p.sourceName, len(failures))

	return dataset.New(scored, failures), nil
}

// Close releases the source.
func (p *Pipeline) Close() error {
	if p.source != nil {
		return p.source.Close()
	}
	return nil
}

// DetectorConfig maps the alerts config block onto the detector config.
func DetectorConfig(c config.AlertsConfig) alerts.Config {
	return alerts.Config{
		TriggerEvent: c.TriggerEvent,
		Window:       c.Window,
		Threshold:    c.Threshold,
		GroupBy:      c.GroupBy,
		Label:        c.Label,
		MaxGroups:    c.MaxGroups,
	}
}

// RunAlerts evaluates the detector over ds and hands the alerts to writer
// when one is given.
func RunAlerts(ds *dataset.Dataset, detector *alerts.Detector, writer AlertWriter) (alerts.Result, error) {
	res := detector.Run(ds.Events())
	scope := detector.Config().GroupBy
	metrics.AlertsEmitted.WithLabelValues(scope).Add(float64(len(res.Alerts)))
	if res.SkippedGroups > 0 {
		logger.Warnf("Alert group budget reached: evaluated %d groups, skipped %d", res.Groups, res.SkippedGroups)
	}
	logger.Debugf("Rule %q produced %d alerts over %d groups", detector.Rule(), len(res.Alerts), res.Groups)

	if writer != nil && len(res.Alerts) > 0 {
		if err := writer.WriteAlerts(res.Alerts); err != nil {
			return res, fmt.Errorf("write alerts: %w", err)
		}
	}
	return res, nil
}

func logFailures(failures []error) {
	for i, err := range failures {
		if i == maxLoggedFailures {
			logger.Warnf("... %d more malformed rows", len(failures)-maxLoggedFailures)
			return
		}
		var malformed *risk.MalformedEventError
		if errors.As(err, &malformed) {
			logger.Warnf("Skipping row %d: %s", malformed.Row, malformed.Reason)
			continue
		}
		logger.Warnf("Skipping row: %v", err)
	}
}
