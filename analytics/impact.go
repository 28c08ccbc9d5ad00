/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TrendArrow is the direction of a before/after change.
type TrendArrow string

// TrendArrow values.
const (
	ArrowUp      TrendArrow = "up"
	ArrowDown    TrendArrow = "down"
	ArrowFlat    TrendArrow = "flat"
	ArrowUnknown TrendArrow = "unknown"
)

// Protocol impact defaults.
const (
	ImpactDefaultWindow = 3
	impactDeadZonePct   = 5.0
)

// ProtocolImpactRow compares one marker across a dose change.
type ProtocolImpactRow struct {
	Marker        string          `json:"marker"`
	Unit          string          `json:"unit"`
	BeforeAvg     *float64        `json:"beforeAvg"`
	AfterAvg      *float64        `json:"afterAvg"`
	BeforeCount   int             `json:"beforeCount"`
	AfterCount    int             `json:"afterCount"`
	AbsoluteDelta *float64        `json:"absoluteDelta"`
	PercentDelta  *float64        `json:"percentDelta"`
	Trend         TrendArrow      `json:"trend"`
	Confidence    ConfidenceLevel `json:"confidence"`
}

// ProtocolImpactDoseEvent is a detected dose change with its windows.
type ProtocolImpactDoseEvent struct {
	ChangeDate      time.Time           `json:"changeDate"`
	FromDose        float64             `json:"fromDose"`
	ToDose          float64             `json:"toDose"`
	BeforeReportIDs []uuid.UUID         `json:"beforeReportIds"`
	AfterReportIDs  []uuid.UUID         `json:"afterReportIds"`
	Rows            []ProtocolImpactRow `json:"rows"`
}

type doseSegment struct {
	dose    float64
	reports []LabReport
}

// BuildProtocolImpactDoseEvents finds every change of recorded weekly dose
// and compares marker averages in the windows on either side. Reports
// without a dose inherit the last recorded one; windows never cross into
// a neighbouring dose segment.
func BuildProtocolImpactDoseEvents(reports []LabReport, system UnitSystem, windowSize int) []ProtocolImpactDoseEvent {
	if windowSize <= 0 {
		windowSize = ImpactDefaultWindow
	}

	segments := segmentByDose(SortReports(reports))

	events := make([]ProtocolImpactDoseEvent, 0, len(segments))
	for i := 1; i < len(segments); i++ {
		prev, next := segments[i-1], segments[i]

		before := prev.reports
		if len(before) > windowSize {
			before = before[len(before)-windowSize:]
		}

		after := next.reports
		if len(after) > windowSize {
			after = after[:windowSize]
		}

		events = append(events, ProtocolImpactDoseEvent{
			ChangeDate:      next.reports[0].TestDate,
			FromDose:        prev.dose,
			ToDose:          next.dose,
			BeforeReportIDs: reportIDs(before),
			AfterReportIDs:  reportIDs(after),
			Rows:            impactRows(before, after, system),
		})
	}

	return events
}

func segmentByDose(sorted []LabReport) []doseSegment {
	var segments []doseSegment

	for _, report := range sorted {
		dose, ok := report.Dose()

		switch {
		case ok && (len(segments) == 0 || math.Abs(segments[len(segments)-1].dose-dose) > 1e-9):
			segments = append(segments, doseSegment{dose: dose, reports: []LabReport{report}})
		case len(segments) > 0:
			last := &segments[len(segments)-1]
			last.reports = append(last.reports, report)
		}
	}

	return segments
}

func reportIDs(reports []LabReport) []uuid.UUID {
	ids := make([]uuid.UUID, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}

	return ids
}

func impactRows(before, after []LabReport, system UnitSystem) []ProtocolImpactRow {
	markers := MarkerNames(append(append([]LabReport{}, before...), after...))

	rows := make([]ProtocolImpactRow, 0, len(markers))
	for _, marker := range markers {
		beforeVals, unit := windowValues(before, marker, system, "")
		afterVals, unit := windowValues(after, marker, system, unit)

		row := ProtocolImpactRow{
			Marker:      marker,
			Unit:        unit,
			BeforeCount: len(beforeVals),
			AfterCount:  len(afterVals),
			Trend:       ArrowUnknown,
		}

		if len(beforeVals) > 0 {
			row.BeforeAvg = floatPtr(mean(beforeVals))
		}

		if len(afterVals) > 0 {
			row.AfterAvg = floatPtr(mean(afterVals))
		}

		if row.BeforeAvg != nil && row.AfterAvg != nil {
			delta := *row.AfterAvg - *row.BeforeAvg
			row.AbsoluteDelta = floatPtr(delta)

			if *row.BeforeAvg != 0 {
				row.PercentDelta = floatPtr(delta / math.Abs(*row.BeforeAvg) * 100)
			}

			row.Trend = impactArrow(delta, row.PercentDelta)
		}

		row.Confidence = impactConfidence(row.BeforeCount, row.AfterCount)
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Marker < rows[j].Marker })

	return rows
}

func windowValues(reports []LabReport, marker string, system UnitSystem, unit string) ([]float64, string) {
	var values []float64

	for _, report := range reports {
		mv, ok := pickMarker(report, marker)
		if !ok {
			continue
		}

		converted := ConvertBySystem(marker, mv.Value, mv.Unit, system)
		if unit == "" {
			unit = converted.Unit
		}

		values = append(values, converted.Value)
	}

	return values, unit
}

func impactArrow(delta float64, pct *float64) TrendArrow {
	if pct != nil {
		switch {
		case math.Abs(*pct) <= impactDeadZonePct:
			return ArrowFlat
		case *pct > 0:
			return ArrowUp
		default:
			return ArrowDown
		}
	}

	switch {
	case delta > 0:
		return ArrowUp
	case delta < 0:
		return ArrowDown
	default:
		return ArrowFlat
	}
}

func impactConfidence(beforeCount, afterCount int) ConfidenceLevel {
	switch n := min(beforeCount, afterCount); {
	case n == 0:
		return ConfidenceInsufficient
	case n == 1:
		return ConfidenceLow
	case n == 2:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}
