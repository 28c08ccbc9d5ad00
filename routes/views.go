/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/humaidq/trtlog/analytics"
)

// BreadcrumbItem represents a single breadcrumb navigation item
type BreadcrumbItem struct {
	Name      string
	URL       string
	IsCurrent bool
}

func homeBreadcrumb() BreadcrumbItem {
	return BreadcrumbItem{Name: "Dashboard", URL: "/"}
}

// analysisData is everything the analyses need: the user's settings and
// every report, sorted, with calculated markers added.
type analysisData struct {
	Settings analytics.Settings
	Reports  []analytics.LabReport
}

func loadAnalysisData(ctx context.Context) (analysisData, error) {
	settings, err := getSettingsDBFn(ctx)
	if err != nil {
		return analysisData{}, err
	}

	reports, err := listReportsDBFn(ctx)
	if err != nil {
		return analysisData{}, err
	}

	return analysisData{
		Settings: settings,
		Reports:  analytics.SortReports(analytics.WithCalculatedMarkersAll(reports)),
	}, nil
}

// stabilityWindow returns the reports inside the stability window ending at now.
func (a analysisData) stabilityWindow(now time.Time) []analytics.LabReport {
	return analytics.WindowReports(a.Reports, now.AddDate(0, -a.Settings.StabilityWindowMonths, 0))
}

type reportRow struct {
	ID             uuid.UUID
	TestDate       time.Time
	SourceFileName string
	Dose           *float64
	Timing         analytics.SamplingTiming
	MarkerCount    int
	AbnormalCount  int
	NeedsReview    bool
	IsBaseline     bool
}

// reportRows lists reports newest first for display.
func reportRows(reports []analytics.LabReport) []reportRow {
	rows := make([]reportRow, 0, len(reports))

	for _, r := range reports {
		row := reportRow{
			ID:             r.ID,
			TestDate:       r.TestDate,
			SourceFileName: r.SourceFileName,
			Dose:           r.Annotations.DoseMgPerWeek,
			Timing:         r.Annotations.SamplingTiming,
			NeedsReview:    r.Extraction.NeedsReview,
			IsBaseline:     r.IsBaseline,
		}

		for _, mv := range r.Markers {
			if mv.IsCalculated {
				continue
			}

			row.MarkerCount++

			if flag := mv.Abnormal(); flag == analytics.FlagHigh || flag == analytics.FlagLow {
				row.AbnormalCount++
			}
		}

		rows = append(rows, row)
	}

	slices.Reverse(rows)

	return rows
}

type markerSummary struct {
	Name   string
	Latest analytics.MarkerSeriesPoint
	Count  int
	Trend  analytics.TrendResult
}

type markerGroup struct {
	Category analytics.MarkerCategory
	Markers  []markerSummary
}

var categoryOrder = []analytics.MarkerCategory{
	analytics.CategoryHormones,
	analytics.CategoryHematology,
	analytics.CategoryLipids,
	analytics.CategoryMetabolic,
	analytics.CategoryLiver,
	analytics.CategoryVitamins,
	analytics.CategoryOther,
}

// markerGroups summarises every marker's latest value and trend, grouped
// by category in display order.
func markerGroups(reports []analytics.LabReport, system analytics.UnitSystem) []markerGroup {
	byCategory := make(map[analytics.MarkerCategory][]markerSummary)

	for _, name := range analytics.MarkerNames(reports) {
		series := analytics.BuildMarkerSeries(reports, name, system)
		if len(series) == 0 {
			continue
		}

		category := analytics.MarkerCategoryOf(name)
		byCategory[category] = append(byCategory[category], markerSummary{
			Name:   name,
			Latest: series[len(series)-1],
			Count:  len(series),
			Trend:  analytics.ClassifyMarkerTrend(series, name),
		})
	}

	groups := make([]markerGroup, 0, len(byCategory))

	for _, category := range categoryOrder {
		if markers, ok := byCategory[category]; ok {
			groups = append(groups, markerGroup{Category: category, Markers: markers})
		}
	}

	return groups
}

// correlationPairs are the marker pairs shown on the dashboard.
var correlationPairs = [][2]string{
	{analytics.MarkerTestosterone, analytics.MarkerHematocrit},
	{analytics.MarkerTestosterone, analytics.MarkerEstradiol},
	{analytics.MarkerEstradiol, analytics.MarkerHematocrit},
}

func dashboardCorrelations(reports []analytics.LabReport, system analytics.UnitSystem) []analytics.MarkerCorrelation {
	var out []analytics.MarkerCorrelation

	for _, pair := range correlationPairs {
		if corr := analytics.CorrelateMarkers(reports, pair[0], pair[1], system); corr != nil {
			out = append(out, *corr)
		}
	}

	return out
}
