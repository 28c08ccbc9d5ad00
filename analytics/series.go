/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"sort"
	"time"
)

// BuildMarkerSeries projects reports onto one canonical marker, converted
// into the requested unit system and ordered by test date. Within a report
// the highest-confidence row wins; the first row wins ties.
func BuildMarkerSeries(reports []LabReport, marker string, system UnitSystem) []MarkerSeriesPoint {
	points := make([]MarkerSeriesPoint, 0, len(reports))

	for _, report := range reports {
		mv, ok := pickMarker(report, marker)
		if !ok {
			continue
		}

		converted := ConvertBySystem(marker, mv.Value, mv.Unit, system)
		refMin, refMax := convertRange(marker, mv.RefMin, mv.RefMax, mv.Unit, system)

		points = append(points, MarkerSeriesPoint{
			ReportID:  report.ID,
			Date:      report.TestDate,
			CreatedAt: report.CreatedAt,
			Value:     converted.Value,
			Unit:      converted.Unit,
			RefMin:    refMin,
			RefMax:    refMax,
			Abnormal:  ComputeAbnormalFlag(converted.Value, refMin, refMax),
			Context:   report.Annotations,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return chronologicallyBefore(points[i].Date, points[i].CreatedAt, points[j].Date, points[j].CreatedAt)
	})

	return points
}

// pickMarker returns the best row for marker within one report.
func pickMarker(report LabReport, marker string) (MarkerValue, bool) {
	var (
		best  MarkerValue
		found bool
	)

	for _, mv := range report.Markers {
		if markerName(mv) != marker || !isFinite(mv.Value) {
			continue
		}

		if !found || mv.Confidence > best.Confidence {
			best = mv
			found = true
		}
	}

	return best, found
}

// markerName is the canonical name of a row, falling back to its raw label.
func markerName(mv MarkerValue) string {
	if mv.CanonicalName != "" {
		return mv.CanonicalName
	}

	return CanonicalizeMarker(mv.RawLabel)
}

func chronologicallyBefore(dateA, createdA, dateB, createdB time.Time) bool {
	if !dateA.Equal(dateB) {
		return dateA.Before(dateB)
	}

	return createdA.Before(createdB)
}

// SortReports returns a copy of reports in chronological order.
func SortReports(reports []LabReport) []LabReport {
	sorted := make([]LabReport, len(reports))
	copy(sorted, reports)

	sort.SliceStable(sorted, func(i, j int) bool {
		return chronologicallyBefore(sorted[i].TestDate, sorted[i].CreatedAt, sorted[j].TestDate, sorted[j].CreatedAt)
	})

	return sorted
}

// MarkerNames returns the distinct canonical marker names across reports.
func MarkerNames(reports []LabReport) []string {
	seen := make(map[string]struct{})

	var names []string

	for _, report := range reports {
		for _, mv := range report.Markers {
			name := markerName(mv)
			if _, ok := seen[name]; ok {
				continue
			}

			seen[name] = struct{}{}
			names = append(names, name)
		}
	}

	sort.Strings(names)

	return names
}

// WindowReports keeps the reports tested on or after since. A zero since
// keeps everything.
func WindowReports(reports []LabReport, since time.Time) []LabReport {
	if since.IsZero() {
		return reports
	}

	out := make([]LabReport, 0, len(reports))
	for _, report := range reports {
		if !report.TestDate.Before(since) {
			out = append(out, report)
		}
	}

	return out
}
