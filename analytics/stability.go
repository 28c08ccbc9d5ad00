/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import "fmt"

// StabilityCoreMarkers feed the TRT stability index.
var StabilityCoreMarkers = []string{
	MarkerTestosterone,
	MarkerEstradiol,
	MarkerHematocrit,
	MarkerSHBG,
}

// A coefficient of variation at or above stabilityZeroCV scores 0.
const (
	stabilityMinPoints = 2
	stabilityZeroCV    = 0.4
)

// StabilityComponent is one core marker's contribution.
type StabilityComponent struct {
	Marker   string   `json:"marker"`
	Points   int      `json:"points"`
	Mean     float64  `json:"mean"`
	StdDev   float64  `json:"stdDev"`
	CV       float64  `json:"cv"`
	Score    *float64 `json:"score"`
	Included bool     `json:"included"`
	Reason   string   `json:"reason,omitempty"`
}

// StabilityIndex is the composite score. Score is nil, not zero, when no
// core marker has enough data.
type StabilityIndex struct {
	Score      *float64             `json:"score"`
	Label      string               `json:"label"`
	Components []StabilityComponent `json:"components"`
}

// StabilityScoreForCV maps a coefficient of variation onto 0..100.
func StabilityScoreForCV(cv float64) float64 {
	return clamp(100*(1-cv/stabilityZeroCV), 0, 100)
}

// ComputeTRTStabilityIndex averages per-marker CV scores over the core
// markers present with at least two results.
func ComputeTRTStabilityIndex(reports []LabReport, system UnitSystem) StabilityIndex {
	index := StabilityIndex{Components: make([]StabilityComponent, 0, len(StabilityCoreMarkers))}

	var scores []float64

	for _, marker := range StabilityCoreMarkers {
		series := BuildMarkerSeries(reports, marker, system)

		values := make([]float64, len(series))
		for i, p := range series {
			values[i] = p.Value
		}

		comp := StabilityComponent{Marker: marker, Points: len(values)}

		if len(values) < stabilityMinPoints {
			comp.Reason = fmt.Sprintf("Needs at least %d results; has %d.", stabilityMinPoints, len(values))
			index.Components = append(index.Components, comp)

			continue
		}

		comp.Mean, comp.StdDev = meanStdDev(values)

		cv, ok := coefficientOfVariation(values)
		if !ok {
			comp.Reason = "Average is zero; variation cannot be expressed relative to it."
			index.Components = append(index.Components, comp)

			continue
		}

		score := StabilityScoreForCV(cv)
		comp.CV = cv
		comp.Score = &score
		comp.Included = true
		scores = append(scores, score)

		index.Components = append(index.Components, comp)
	}

	if len(scores) == 0 {
		index.Label = "insufficient data"
		return index
	}

	overall := clamp(mean(scores), 0, 100)
	index.Score = &overall
	index.Label = stabilityLabel(overall)

	return index
}

func stabilityLabel(score float64) string {
	switch {
	case score >= 80:
		return "stable"
	case score >= 60:
		return "moderate"
	default:
		return "variable"
	}
}
