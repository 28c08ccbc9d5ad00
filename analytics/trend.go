/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"fmt"
	"math"
)

// TrendDirection is the qualitative label of a marker's recent course.
type TrendDirection string

// TrendDirection values.
const (
	TrendRising       TrendDirection = "rising"
	TrendFalling      TrendDirection = "falling"
	TrendStable       TrendDirection = "stable"
	TrendVolatile     TrendDirection = "volatile"
	TrendInsufficient TrendDirection = "insufficient"
)

// Trend classification constants. Thresholds are fractions of the window
// mean so markers of different magnitudes behave alike.
const (
	TrendWindow            = 6
	TrendMinPoints         = 3
	trendSlopeThreshold    = 0.03
	trendVolatileThreshold = 0.15
)

// TrendResult is the outcome of ClassifyMarkerTrend.
type TrendResult struct {
	Marker         string         `json:"marker"`
	Direction      TrendDirection `json:"direction"`
	Explanation    string         `json:"explanation"`
	Points         int            `json:"points"`
	SlopePerPoint  float64        `json:"slopePerPoint"`
	RelativeChange float64        `json:"relativeChange"`
	ResidualCV     float64        `json:"residualCv"`
}

// ClassifyMarkerTrend fits a least-squares line over the most recent
// points of a series and labels it.
func ClassifyMarkerTrend(series []MarkerSeriesPoint, marker string) TrendResult {
	series = finitePoints(series)
	result := TrendResult{Marker: marker, Points: len(series)}

	if len(series) < TrendMinPoints {
		result.Direction = TrendInsufficient
		result.Explanation = fmt.Sprintf("%s has %d result(s); at least %d are needed to judge a trend.",
			marker, len(series), TrendMinPoints)

		return result
	}

	window := series
	if len(window) > TrendWindow {
		window = window[len(window)-TrendWindow:]
	}

	x := make([]float64, len(window))
	y := make([]float64, len(window))

	for i, p := range window {
		x[i] = float64(i)
		y[i] = p.Value
	}

	result.Points = len(window)

	scale := math.Abs(mean(y))
	if scale == 0 {
		scale = valueSpread(y)
	}

	if scale == 0 {
		result.Direction = TrendStable
		result.Explanation = fmt.Sprintf("%s has not changed over the last %d results.", marker, len(window))

		return result
	}

	fit := fitLine(x, y)
	_, residualSD := meanStdDev(fit.Residuals)

	result.SlopePerPoint = fit.Slope
	result.RelativeChange = fit.Slope * float64(len(window)-1) / scale
	result.ResidualCV = residualSD / scale

	pct := math.Abs(result.RelativeChange) * 100

	switch {
	case fit.Slope > trendSlopeThreshold*scale:
		result.Direction = TrendRising
		result.Explanation = fmt.Sprintf("%s rose by about %.0f%% over the last %d results.", marker, pct, len(window))
	case fit.Slope < -trendSlopeThreshold*scale:
		result.Direction = TrendFalling
		result.Explanation = fmt.Sprintf("%s fell by about %.0f%% over the last %d results.", marker, pct, len(window))
	case result.ResidualCV > trendVolatileThreshold:
		result.Direction = TrendVolatile
		result.Explanation = fmt.Sprintf("%s has no clear direction but swings by about %.0f%% around its average.",
			marker, result.ResidualCV*100)
	default:
		result.Direction = TrendStable
		result.Explanation = fmt.Sprintf("%s has held steady over the last %d results.", marker, len(window))
	}

	return result
}

// finitePoints drops NaN and infinite values so they never reach the fit.
func finitePoints(series []MarkerSeriesPoint) []MarkerSeriesPoint {
	out := make([]MarkerSeriesPoint, 0, len(series))
	for _, p := range series {
		if isFinite(p.Value) {
			out = append(out, p)
		}
	}

	return out
}
