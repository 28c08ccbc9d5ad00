/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package analytics holds the pure computations over lab reports: marker
// canonicalization and unit conversion, per-marker series, trends,
// dose-response fits, protocol impact windows and the stability index.
// Nothing in this package performs I/O.
package analytics

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// UnitSystem selects the unit family values are displayed in.
type UnitSystem string

// Supported unit systems.
const (
	UnitSystemEU UnitSystem = "EU" // SI units (nmol/L, pmol/L, L/L)
	UnitSystemUS UnitSystem = "US" // conventional units (ng/dL, pg/mL, %)
)

// ParseUnitSystem returns the unit system for s, defaulting to EU.
func ParseUnitSystem(s string) UnitSystem {
	if UnitSystem(s) == UnitSystemUS {
		return UnitSystemUS
	}

	return UnitSystemEU
}

// AbnormalFlag classifies a value against its reference range.
type AbnormalFlag string

// AbnormalFlag values.
const (
	FlagHigh    AbnormalFlag = "high"
	FlagLow     AbnormalFlag = "low"
	FlagNormal  AbnormalFlag = "normal"
	FlagUnknown AbnormalFlag = "unknown"
)

// SamplingTiming is the blood draw timing relative to the last injection.
type SamplingTiming string

// SamplingTiming values.
const (
	TimingTrough  SamplingTiming = "trough"
	TimingPeak    SamplingTiming = "peak"
	TimingMid     SamplingTiming = "mid"
	TimingUnknown SamplingTiming = "unknown"
)

// ParseSamplingTiming maps free input to a known timing.
func ParseSamplingTiming(s string) SamplingTiming {
	switch SamplingTiming(s) {
	case TimingTrough, TimingPeak, TimingMid:
		return SamplingTiming(s)
	default:
		return TimingUnknown
	}
}

// MarkerValue is one measurement within a report.
type MarkerValue struct {
	ID            uuid.UUID `json:"id"`
	RawLabel      string    `json:"rawLabel"`
	CanonicalName string    `json:"canonicalName"`
	Value         float64   `json:"value"`
	Unit          string    `json:"unit"`
	RefMin        *float64  `json:"refMin,omitempty"`
	RefMax        *float64  `json:"refMax,omitempty"`
	Confidence    float64   `json:"confidence"`
	IsCalculated  bool      `json:"isCalculated,omitempty"`
}

// Abnormal derives the flag from the current value and reference range.
func (m MarkerValue) Abnormal() AbnormalFlag {
	return ComputeAbnormalFlag(m.Value, m.RefMin, m.RefMax)
}

// SetValue replaces the value and unit.
func (m *MarkerValue) SetValue(value float64, unit string) {
	m.Value = value
	m.Unit = unit
}

// SetReferenceRange replaces both reference bounds.
func (m *MarkerValue) SetReferenceRange(refMin, refMax *float64) {
	m.RefMin = copyFloat(refMin)
	m.RefMax = copyFloat(refMax)
}

// ComputeAbnormalFlag compares value against an optional range.
func ComputeAbnormalFlag(value float64, refMin, refMax *float64) AbnormalFlag {
	if !isFinite(value) || (refMin == nil && refMax == nil) {
		return FlagUnknown
	}

	if refMin != nil && value < *refMin {
		return FlagLow
	}

	if refMax != nil && value > *refMax {
		return FlagHigh
	}

	return FlagNormal
}

// ReportAnnotations is the free-text context attached to a report.
type ReportAnnotations struct {
	DoseMgPerWeek  *float64       `json:"doseMgPerWeek,omitempty"`
	Protocol       string         `json:"protocol,omitempty"`
	Supplements    string         `json:"supplements,omitempty"`
	Symptoms       string         `json:"symptoms,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	SamplingTiming SamplingTiming `json:"samplingTiming,omitempty"`
}

// ExtractionMeta describes how a report's values were obtained.
type ExtractionMeta struct {
	Provider    string  `json:"provider,omitempty"`
	Confidence  float64 `json:"confidence"`
	NeedsReview bool    `json:"needsReview"`
}

// LabReport is one PDF or manual entry event.
type LabReport struct {
	ID             uuid.UUID         `json:"id"`
	SourceFileName string            `json:"sourceFileName"`
	TestDate       time.Time         `json:"testDate"`
	CreatedAt      time.Time         `json:"createdAt"`
	Markers        []MarkerValue     `json:"markers"`
	Annotations    ReportAnnotations `json:"annotations"`
	Extraction     ExtractionMeta    `json:"extraction"`
	IsBaseline     bool              `json:"isBaseline,omitempty"`
}

// Dose returns the recorded weekly dose if it is a usable number.
func (r LabReport) Dose() (float64, bool) {
	if r.Annotations.DoseMgPerWeek == nil || !isFinite(*r.Annotations.DoseMgPerWeek) {
		return 0, false
	}

	return *r.Annotations.DoseMgPerWeek, true
}

// MarkerSeriesPoint is a per-marker projection of one report.
type MarkerSeriesPoint struct {
	ReportID  uuid.UUID         `json:"reportId"`
	Date      time.Time         `json:"date"`
	CreatedAt time.Time         `json:"createdAt"`
	Value     float64           `json:"value"`
	Unit      string            `json:"unit"`
	RefMin    *float64          `json:"refMin,omitempty"`
	RefMax    *float64          `json:"refMax,omitempty"`
	Abnormal  AbnormalFlag      `json:"abnormal"`
	Context   ReportAnnotations `json:"context"`
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}

	v := *f

	return &v
}

func floatPtr(f float64) *float64 {
	return &f
}
