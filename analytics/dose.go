/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// DoseStatus tells whether a personal dose-response fit was produced.
type DoseStatus string

// DoseStatus values.
const (
	DoseStatusClear        DoseStatus = "clear"
	DoseStatusInsufficient DoseStatus = "insufficient"
)

// DoseModelSource labels where a prediction's line comes from.
type DoseModelSource string

// DoseModelSource values.
const (
	SourcePersonal   DoseModelSource = "personal"
	SourceLiterature DoseModelSource = "literature"
	SourceNone       DoseModelSource = "none"
)

// ConfidenceLevel is a qualitative confidence bucket.
type ConfidenceLevel string

// ConfidenceLevel values.
const (
	ConfidenceInsufficient ConfidenceLevel = "insufficient"
	ConfidenceLow          ConfidenceLevel = "low"
	ConfidenceMedium       ConfidenceLevel = "medium"
	ConfidenceHigh         ConfidenceLevel = "high"
)

// Dose-response fitting limits.
const (
	DoseMinSamples = 3
	DoseMinSpread  = 20.0 // mg/week
)

// DoseResponseMarkers are estimated when no explicit marker list is given.
var DoseResponseMarkers = []string{
	MarkerTestosterone,
	MarkerFreeTestosterone,
	MarkerEstradiol,
	MarkerHematocrit,
	MarkerSHBG,
}

// DoseDataPoint is one (dose, value) pair taken from a report.
type DoseDataPoint struct {
	ReportID uuid.UUID      `json:"reportId"`
	Date     time.Time      `json:"date"`
	Dose     *float64       `json:"dose,omitempty"`
	Value    float64        `json:"value"`
	Timing   SamplingTiming `json:"timing"`
}

// ExcludedDosePoint is a data point left out of the fit, with the reason.
type ExcludedDosePoint struct {
	DoseDataPoint
	Reason string `json:"reason"`
}

// DoseFit is a personal least-squares line value = Intercept + Slope*dose.
type DoseFit struct {
	Slope      float64 `json:"slope"`
	Intercept  float64 `json:"intercept"`
	RSquared   float64 `json:"rSquared"`
	ResidualSD float64 `json:"residualSd"`
}

// DosePrediction is the dose-response estimate for one marker.
type DosePrediction struct {
	Marker          string              `json:"marker"`
	Unit            string              `json:"unit"`
	Status          DoseStatus          `json:"status"`
	Reason          string              `json:"reason,omitempty"`
	Source          DoseModelSource     `json:"source"`
	Confidence      ConfidenceLevel     `json:"confidence"`
	SampleCount     int                 `json:"sampleCount"`
	CurrentDose     *float64            `json:"currentDose,omitempty"`
	CurrentEstimate *float64            `json:"currentEstimate,omitempty"`
	Fit             *DoseFit            `json:"fit,omitempty"`
	Prior           *DosePrior          `json:"prior,omitempty"`
	PriorEstimate   *float64            `json:"priorEstimate,omitempty"`
	Included        []DoseDataPoint     `json:"included"`
	Excluded        []ExcludedDosePoint `json:"excluded"`
	Warnings        []string            `json:"warnings,omitempty"`
}

// PredictAt evaluates the personal fit at a weekly dose.
func (p DosePrediction) PredictAt(dose float64) (float64, bool) {
	if p.Fit == nil {
		return 0, false
	}

	return p.Fit.Intercept + p.Fit.Slope*dose, true
}

// EstimateDoseResponse fits value = intercept + slope*dose per marker from
// the user's own reports. Markers without enough usable data get status
// insufficient and, where available, a literature prior labelled as such.
func EstimateDoseResponse(reports []LabReport, markers []string, system UnitSystem) []DosePrediction {
	if len(markers) == 0 {
		markers = DoseResponseMarkers
	}

	sorted := SortReports(reports)
	currentDose := latestDose(sorted)

	predictions := make([]DosePrediction, 0, len(markers))
	for _, marker := range markers {
		predictions = append(predictions, estimateMarker(sorted, marker, system, currentDose))
	}

	return predictions
}

func latestDose(sorted []LabReport) *float64 {
	for i := len(sorted) - 1; i >= 0; i-- {
		if dose, ok := sorted[i].Dose(); ok {
			return floatPtr(dose)
		}
	}

	return nil
}

func estimateMarker(sorted []LabReport, marker string, system UnitSystem, currentDose *float64) DosePrediction {
	pred := DosePrediction{
		Marker:      marker,
		Status:      DoseStatusInsufficient,
		Source:      SourceNone,
		Confidence:  ConfidenceInsufficient,
		CurrentDose: copyFloat(currentDose),
		Included:    []DoseDataPoint{},
		Excluded:    []ExcludedDosePoint{},
	}

	if def, ok := LookupMarker(marker); ok {
		pred.Unit = def.UnitFor(system)
	}

	eligible := collectDosePoints(sorted, marker, system, &pred)
	pred.Included = applyTimingPolicy(eligible, &pred)
	pred.SampleCount = len(pred.Included)

	doses := make([]float64, len(pred.Included))
	values := make([]float64, len(pred.Included))

	for i, p := range pred.Included {
		doses[i] = *p.Dose
		values[i] = p.Value
	}

	switch {
	case pred.SampleCount < DoseMinSamples:
		pred.Reason = fmt.Sprintf("Need at least %d results with a recorded dose; have %d.", DoseMinSamples, pred.SampleCount)
	case valueSpread(doses) < DoseMinSpread:
		pred.Reason = fmt.Sprintf("Doses only span %.0f mg/week; at least %.0f mg/week of variation is needed.",
			valueSpread(doses), DoseMinSpread)
	default:
		fit := fitLine(doses, values)
		_, residualSD := meanStdDev(fit.Residuals)

		pred.Fit = &DoseFit{
			Slope:      fit.Slope,
			Intercept:  fit.Intercept,
			RSquared:   fit.RSquared,
			ResidualSD: residualSD,
		}
		pred.Status = DoseStatusClear
		pred.Source = SourcePersonal
		pred.Confidence = doseConfidence(pred.SampleCount, fit.RSquared, residualSD, values)

		if currentDose != nil {
			estimate, _ := pred.PredictAt(*currentDose)
			pred.CurrentEstimate = floatPtr(estimate)
		}

		return pred
	}

	if prior, ok := LookupDosePrior(marker, system); ok {
		pred.Prior = &prior
		pred.Source = SourceLiterature

		if pred.Unit == "" {
			pred.Unit = prior.Unit
		}

		if currentDose != nil {
			pred.PriorEstimate = floatPtr(prior.PredictAt(*currentDose))
		}
	}

	return pred
}

// collectDosePoints gathers the marker's values, moving rows without a
// usable dose straight to the excluded list.
func collectDosePoints(sorted []LabReport, marker string, system UnitSystem, pred *DosePrediction) []DoseDataPoint {
	var eligible []DoseDataPoint

	for _, report := range sorted {
		mv, ok := pickMarker(report, marker)
		if !ok {
			// A report whose only rows are non-finite is still listed, so
			// the exclusion below can explain why it was left out.
			if mv, ok = nonFiniteMarker(report, marker); !ok {
				continue
			}
		}

		converted := ConvertBySystem(marker, mv.Value, mv.Unit, system)
		if pred.Unit == "" {
			pred.Unit = converted.Unit
		}

		point := DoseDataPoint{
			ReportID: report.ID,
			Date:     report.TestDate,
			Dose:     copyFloat(report.Annotations.DoseMgPerWeek),
			Value:    converted.Value,
			Timing:   ParseSamplingTiming(string(report.Annotations.SamplingTiming)),
		}

		dose, hasDose := report.Dose()

		switch {
		case report.Annotations.DoseMgPerWeek == nil:
			pred.Excluded = append(pred.Excluded, ExcludedDosePoint{point, "No dose recorded for this report."})
		case !hasDose:
			pred.Excluded = append(pred.Excluded, ExcludedDosePoint{point, "Recorded dose is not a number."})
		case dose < 0:
			pred.Excluded = append(pred.Excluded, ExcludedDosePoint{point, "Recorded dose is negative."})
		case !isFinite(converted.Value):
			pred.Excluded = append(pred.Excluded, ExcludedDosePoint{point, "Value is not a finite number."})
		default:
			eligible = append(eligible, point)
		}
	}

	return eligible
}

// nonFiniteMarker returns the first row for marker whose value is NaN or
// infinite.
func nonFiniteMarker(report LabReport, marker string) (MarkerValue, bool) {
	for _, mv := range report.Markers {
		if markerName(mv) == marker && !isFinite(mv.Value) {
			return mv, true
		}
	}

	return MarkerValue{}, false
}

// applyTimingPolicy keeps trough samples only, unless there are none at
// all, in which case every sample is used and a warning is recorded.
func applyTimingPolicy(eligible []DoseDataPoint, pred *DosePrediction) []DoseDataPoint {
	hasTrough := false

	for _, p := range eligible {
		if p.Timing == TimingTrough {
			hasTrough = true
			break
		}
	}

	if !hasTrough {
		if len(eligible) > 0 {
			pred.Warnings = append(pred.Warnings,
				"No trough-timed samples recorded; using all samples regardless of timing.")
		}

		return append([]DoseDataPoint{}, eligible...)
	}

	included := make([]DoseDataPoint, 0, len(eligible))

	for _, p := range eligible {
		if p.Timing != TimingTrough {
			pred.Excluded = append(pred.Excluded, ExcludedDosePoint{p,
				fmt.Sprintf("Sampled at %s timing; only trough samples are used.", p.Timing)})

			continue
		}

		included = append(included, p)
	}

	return included
}

func doseConfidence(n int, r2, residualSD float64, values []float64) ConfidenceLevel {
	relResidual := 1.0
	if m := math.Abs(mean(values)); m > 0 {
		relResidual = residualSD / m
	}

	switch {
	case n >= 6 && r2 >= 0.7 && relResidual <= 0.15:
		return ConfidenceHigh
	case (n >= 4 && r2 >= 0.4 && relResidual <= 0.3) || r2 >= 0.9:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
