/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/template"

	"github.com/humaidq/trtlog/analytics"
)

// Dashboard shows the stability index, every marker's latest value and
// trend, and the report list.
func Dashboard(c flamego.Context, t template.Template, data template.Data) {
	data["IsDashboard"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{{Name: "Dashboard", IsCurrent: true}}

	ad, err := loadAnalysisData(c.Request().Context())
	if err != nil {
		logger.Error("Error loading reports", "error", err)
		data["Error"] = "Failed to load reports"
		t.HTML(http.StatusOK, "dashboard")

		return
	}

	system := ad.Settings.UnitSystem

	data["Settings"] = ad.Settings
	data["Stability"] = analytics.ComputeTRTStabilityIndex(ad.stabilityWindow(time.Now()), system)
	data["MarkerGroups"] = markerGroups(ad.Reports, system)
	data["Correlations"] = dashboardCorrelations(ad.Reports, system)
	data["Reports"] = reportRows(ad.Reports)

	t.HTML(http.StatusOK, "dashboard")
}
