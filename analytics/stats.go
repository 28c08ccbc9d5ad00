/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// linearFit is an ordinary least-squares line y = Intercept + Slope*x.
type linearFit struct {
	Intercept float64
	Slope     float64
	RSquared  float64
	Residuals []float64
}

// fitLine fits y against x. Callers must ensure len(x) == len(y) >= 2 and
// that x has non-zero spread.
func fitLine(x, y []float64) linearFit {
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - (alpha + beta*x[i])
	}

	r2 := stat.RSquared(x, y, nil, alpha, beta)
	if math.IsNaN(r2) {
		// Constant y: the line explains everything there is to explain.
		r2 = 1
	}

	return linearFit{Intercept: alpha, Slope: beta, RSquared: r2, Residuals: residuals}
}

// meanStdDev returns the mean and sample standard deviation. The standard
// deviation is 0 for fewer than two values.
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}

	return stat.MeanStdDev(values, nil)
}

// coefficientOfVariation is stdev/|mean|; ok is false when the mean is zero.
func coefficientOfVariation(values []float64) (cv float64, ok bool) {
	mean, sd := meanStdDev(values)
	if mean == 0 {
		return 0, false
	}

	return sd / math.Abs(mean), true
}

func valueSpread(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return floats.Max(values) - floats.Min(values)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	return stat.Mean(values, nil)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}

	return math.Max(lo, math.Min(hi, v))
}
