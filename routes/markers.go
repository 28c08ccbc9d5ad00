/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	htmltemplate "html/template"
	"net/http"
	"slices"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/trtlog/analytics"
)

// ViewMarker shows one marker's chart, trend, history and dose response.
func ViewMarker(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsMarkers"] = true
	ctx := c.Request().Context()
	name := c.Param("name")

	ad, err := loadAnalysisData(ctx)
	if err != nil {
		logger.Error("Error loading reports", "error", err)
		SetErrorFlash(s, "Failed to load reports")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	series := analytics.BuildMarkerSeries(ad.Reports, name, ad.Settings.UnitSystem)
	if len(series) == 0 {
		SetErrorFlash(s, "Marker not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	chart, err := renderMarkerChart(name, series, markerBands(ctx, name, ad.Settings, series))
	if err != nil {
		logger.Error("Error generating chart", "marker", name, "error", err)
	} else if chart != "" {
		data["Chart"] = htmltemplate.HTML(chart) //nolint:gosec // Rendered by go-echarts from numeric data.
	}

	history := slices.Clone(series)
	slices.Reverse(history)

	data["Marker"] = name
	data["Category"] = analytics.MarkerCategoryOf(name)
	data["Trend"] = analytics.ClassifyMarkerTrend(series, name)
	data["History"] = history
	data["Dose"] = analytics.EstimateDoseResponse(ad.Reports, []string{name}, ad.Settings.UnitSystem)[0]
	data["Breadcrumbs"] = []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: name, IsCurrent: true},
	}

	t.HTML(http.StatusOK, "marker_view")
}
