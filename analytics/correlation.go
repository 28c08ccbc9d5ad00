/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const correlationMinPairs = 3

// MarkerCorrelation is the Pearson coefficient between two markers over the
// reports that contain both.
type MarkerCorrelation struct {
	MarkerA     string  `json:"markerA"`
	MarkerB     string  `json:"markerB"`
	Pairs       int     `json:"pairs"`
	Coefficient float64 `json:"coefficient"`
	Strength    string  `json:"strength"`
}

// CorrelateMarkers returns nil when fewer than three reports carry both
// markers or either side has no variation.
func CorrelateMarkers(reports []LabReport, markerA, markerB string, system UnitSystem) *MarkerCorrelation {
	var xs, ys []float64

	for _, report := range SortReports(reports) {
		a, okA := pickMarker(report, markerA)
		b, okB := pickMarker(report, markerB)

		if !okA || !okB {
			continue
		}

		xs = append(xs, ConvertBySystem(markerA, a.Value, a.Unit, system).Value)
		ys = append(ys, ConvertBySystem(markerB, b.Value, b.Unit, system).Value)
	}

	if len(xs) < correlationMinPairs {
		return nil
	}

	r := stat.Correlation(xs, ys, nil)
	if !isFinite(r) {
		return nil
	}

	return &MarkerCorrelation{
		MarkerA:     markerA,
		MarkerB:     markerB,
		Pairs:       len(xs),
		Coefficient: r,
		Strength:    correlationStrength(r),
	}
}

func correlationStrength(r float64) string {
	switch abs := math.Abs(r); {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "weak"
	default:
		return "none"
	}
}
