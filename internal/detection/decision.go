// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package detection

// Stage names the step at which a decision was reached.
type Stage string

const (
	StageStart    Stage = "start"
	StageSpatial  Stage = "spatial"
	StageTemporal Stage = "temporal"
	StageClean    Stage = "clean"
)

// PolicyConfig configures the decision policy.
type PolicyConfig struct {
	// MinHistory is the snapshot size below which no analysis runs.
	MinHistory int `json:"min_history"`

	Temporal TemporalConfig `json:"temporal"`
	Spatial  SpatialConfig  `json:"spatial"`
}

// DefaultPolicyConfig returns the canonical policy.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinHistory: 10,
		Temporal:   DefaultTemporalConfig(),
		Spatial:    DefaultSpatialConfig(),
	}
}

// Decision is a Verdict plus the analyzer output that produced it.
type Decision struct {
	Verdict Verdict
	Stage   Stage

	// Spatial is nil when the spatial check did not run.
	Spatial *SpatialResult

	// Temporal is nil when the decision was reached before the temporal check.
	Temporal *TemporalResult
}

// Policy sequences the analyzers. It holds no per-call state and is safe for
// concurrent use.
type Policy struct {
	minHistory int
	temporal   *TemporalAnalyzer
	spatial    *SpatialAnalyzer
}

// NewPolicy creates a decision policy.
func NewPolicy(cfg PolicyConfig) *Policy {
	return &Policy{
		minHistory: cfg.MinHistory,
		temporal:   NewTemporalAnalyzer(cfg.Temporal),
		spatial:    NewSpatialAnalyzer(cfg.Spatial),
	}
}

// Decide scores event against history, which must be ordered newest first.
// Location is always checked before time; the first anomaly wins.
func (p *Policy) Decide(history []HistoricalEvent, event LoginEvent) Decision {
	if len(history) < p.minHistory {
		return Decision{
			Verdict: Verdict{Reason: ReasonInsufficientHistory},
			Stage:   StageStart,
		}
	}

	var d Decision

	if event.Location != nil {
		sr := p.spatial.Analyze(history, *event.Location)
		d.Spatial = &sr
		if sr.Outcome == OutcomeAnomalous {
			d.Stage = StageSpatial
			d.Verdict = anomalous(ReasonUnusualLocation, history)
			return d
		}
	}

	tr := p.temporal.Analyze(history, event.Timestamp)
	d.Temporal = &tr
	switch tr.Outcome {
	case OutcomeAnomalous:
		d.Stage = StageTemporal
		d.Verdict = anomalous(ReasonUnusualTime, history)
	case OutcomeInsufficient:
		d.Stage = StageTemporal
		d.Verdict = Verdict{Reason: ReasonInsufficientHistory}
	default:
		d.Stage = StageClean
		d.Verdict = Verdict{}
	}
	return d
}

// anomalous attaches the id of the newest historical event.
func anomalous(reason Reason, history []HistoricalEvent) Verdict {
	v := Verdict{Anomalous: true, Reason: reason}
	if len(history) > 0 {
		v.LogID = history[0].ID
	}
	return v
}
