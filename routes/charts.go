/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"bytes"
	"context"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/humaidq/trtlog/analytics"
	"github.com/humaidq/trtlog/db"
)

// chartBands are the horizontal guide lines drawn on a marker chart.
type chartBands struct {
	RefMin     *float64
	RefMax     *float64
	OptMin     *float64
	OptMax     *float64
	HasOptimal bool
}

// markerBands prefers the stored reference and optimal ranges for the
// user's age and sex, falling back to the range printed on the latest report.
func markerBands(ctx context.Context, marker string, settings analytics.Settings, series []analytics.MarkerSeriesPoint) chartBands {
	if len(series) == 0 {
		return chartBands{}
	}

	latest := series[len(series)-1]

	rr, err := referenceRangeDBFn(ctx, marker, settings.UnitSystem, db.ParseGender(settings.Sex), settings.DateOfBirth, latest.Date)
	if err != nil {
		logger.Warn("Failed to get reference range", "marker", marker, "error", err)
	}

	if rr == nil {
		return chartBands{RefMin: latest.RefMin, RefMax: latest.RefMax}
	}

	var bands chartBands

	bands.RefMin, bands.RefMax, bands.OptMin, bands.OptMax, bands.HasOptimal = rr.GetDisplayRange()

	if bands.RefMin == nil && bands.RefMax == nil {
		bands.RefMin, bands.RefMax = latest.RefMin, latest.RefMax
	}

	return bands
}

// dedupeByDate keeps the most recently entered point for each test date.
// The series must already be in chronological order.
func dedupeByDate(series []analytics.MarkerSeriesPoint) []analytics.MarkerSeriesPoint {
	out := make([]analytics.MarkerSeriesPoint, 0, len(series))

	for _, p := range series {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}

		out = append(out, p)
	}

	return out
}

// axisBounds widens the y axis to include the reference range, with some
// padding, and any data that falls outside it.
func axisBounds(points []analytics.MarkerSeriesPoint, bands chartBands) (yMin, yMax interface{}) {
	if bands.RefMin == nil || bands.RefMax == nil || len(points) == 0 {
		return nil, nil
	}

	dataMin, dataMax := points[0].Value, points[0].Value
	for _, p := range points[1:] {
		dataMin = min(dataMin, p.Value)
		dataMax = max(dataMax, p.Value)
	}

	padding := (*bands.RefMax - *bands.RefMin) * 0.1
	minVal := *bands.RefMin - padding
	maxVal := *bands.RefMax + padding

	if dataMin < minVal {
		minVal = dataMin - (dataMax-dataMin)*0.05
	}

	if dataMax > maxVal {
		maxVal = dataMax + (dataMax-dataMin)*0.05
	}

	return minVal, maxVal
}

func bandLines(bands chartBands) []interface{} {
	var items []interface{}

	if bands.RefMin != nil {
		items = append(items, opts.MarkLineNameYAxisItem{Name: "Ref Min", YAxis: *bands.RefMin})
	}

	if bands.RefMax != nil {
		items = append(items, opts.MarkLineNameYAxisItem{Name: "Ref Max", YAxis: *bands.RefMax})
	}

	if bands.HasOptimal {
		// A zero lower bound is just the reference floor.
		if bands.OptMin != nil && *bands.OptMin != 0 {
			items = append(items, opts.MarkLineNameYAxisItem{Name: "Opt Min", YAxis: *bands.OptMin})
		}

		if bands.OptMax != nil {
			items = append(items, opts.MarkLineNameYAxisItem{Name: "Opt Max", YAxis: *bands.OptMax})
		}
	}

	return items
}

// renderMarkerChart draws a marker's history as a line chart with its
// reference and optimal bands. It returns "" when there is nothing to draw.
func renderMarkerChart(marker string, series []analytics.MarkerSeriesPoint, bands chartBands) (string, error) {
	points := dedupeByDate(series)
	if len(points) == 0 {
		return "", nil
	}

	xAxis := make([]string, 0, len(points))
	yData := make([]opts.LineData, 0, len(points))

	for _, p := range points {
		xAxis = append(xAxis, p.Date.Format("Jan 2, 2006"))
		yData = append(yData, opts.LineData{Value: p.Value})
	}

	yMin, yMax := axisBounds(points, bands)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: marker}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: points[0].Unit,
			Min:  yMin,
			Max:  yMax,
		}),
	)

	seriesOpts := []charts.SeriesOpts{
		charts.WithLineChartOpts(opts.LineChart{
			Smooth:     opts.Bool(true),
			ShowSymbol: opts.Bool(true),
		}),
		charts.WithMarkPointNameTypeItemOpts(
			opts.MarkPointNameTypeItem{Name: "Max", Type: "max"},
			opts.MarkPointNameTypeItem{Name: "Min", Type: "min"},
		),
	}

	if items := bandLines(bands); len(items) > 0 {
		seriesOpts = append(seriesOpts, func(s *charts.SingleSeries) {
			s.MarkLines = &opts.MarkLines{
				Data: items,
				MarkLineStyle: opts.MarkLineStyle{
					Symbol: []string{"none", "none"},
					LineStyle: &opts.LineStyle{
						Color: "rgba(128, 128, 128, 0.6)",
						Type:  "dashed",
						Width: 1.5,
					},
				},
			}
		})
	}

	line.SetXAxis(xAxis).
		AddSeries(marker, yData).
		SetSeriesOptions(seriesOpts...)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// renderDoseChart plots the included (dose, value) points and, when a
// personal fit exists, its line across the observed dose range.
func renderDoseChart(pred analytics.DosePrediction) (string, error) {
	if len(pred.Included) == 0 {
		return "", nil
	}

	points := make([]opts.ScatterData, 0, len(pred.Included))
	doseMin, doseMax := math.Inf(1), math.Inf(-1)

	for _, p := range pred.Included {
		if p.Dose == nil {
			continue
		}

		doseMin = min(doseMin, *p.Dose)
		doseMax = max(doseMax, *p.Dose)

		points = append(points, opts.ScatterData{
			Value:      []interface{}{*p.Dose, p.Value},
			Name:       p.Date.Format("Jan 2, 2006"),
			SymbolSize: 10,
		})
	}

	if len(points) == 0 {
		return "", nil
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: pred.Marker + " vs dose"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "mg/week", Min: "dataMin", Max: "dataMax"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: pred.Unit, Min: "dataMin"}),
	)
	scatter.AddSeries(pred.Marker, points)

	if pred.Fit != nil {
		lo, _ := pred.PredictAt(doseMin)
		hi, _ := pred.PredictAt(doseMax)

		fit := charts.NewLine()
		fit.AddSeries("Fit", []opts.LineData{
			{Value: []interface{}{doseMin, lo}},
			{Value: []interface{}{doseMax, hi}},
		}, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

		scatter.Overlap(fit)
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}
