/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"github.com/humaidq/trtlog/analytics"
	"github.com/humaidq/trtlog/db"
)

func analysisBreadcrumbs(name string) []BreadcrumbItem {
	return []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: name, IsCurrent: true},
	}
}

type doseView struct {
	analytics.DosePrediction
	Chart  htmltemplate.HTML
	WhatIf *float64
}

// DoseResponse shows the per-marker dose-response estimates. An optional
// ?dose= query evaluates every personal fit at that weekly dose.
func DoseResponse(c flamego.Context, t template.Template, data template.Data) {
	data["IsAnalysis"] = true
	data["Breadcrumbs"] = analysisBreadcrumbs("Dose Response")

	ad, err := loadAnalysisData(c.Request().Context())
	if err != nil {
		logger.Error("Error loading reports", "error", err)
		data["Error"] = "Failed to load reports"
		t.HTML(http.StatusOK, "analysis_dose")

		return
	}

	whatIf, err := parseOptionalFloat(c.Query("dose"))
	if err != nil || (whatIf != nil && *whatIf < 0) {
		data["Error"] = "Invalid dose"
		whatIf = nil
	}

	predictions := analytics.EstimateDoseResponse(ad.Reports, nil, ad.Settings.UnitSystem)
	views := make([]doseView, 0, len(predictions))

	for _, pred := range predictions {
		view := doseView{DosePrediction: pred}

		chart, err := renderDoseChart(pred)
		if err != nil {
			logger.Error("Error generating dose chart", "marker", pred.Marker, "error", err)
		} else {
			view.Chart = htmltemplate.HTML(chart) //nolint:gosec // Rendered by go-echarts from numeric data.
		}

		if whatIf != nil {
			if v, ok := pred.PredictAt(*whatIf); ok {
				view.WhatIf = &v
			} else if pred.Prior != nil {
				v := pred.Prior.PredictAt(*whatIf)
				view.WhatIf = &v
			}
		}

		views = append(views, view)
	}

	data["Predictions"] = views
	data["WhatIfDose"] = whatIf
	data["Settings"] = ad.Settings

	t.HTML(http.StatusOK, "analysis_dose")
}

// ProtocolImpact compares marker averages around each dose change. The
// window defaults to the user's setting and can be overridden with ?window=.
func ProtocolImpact(c flamego.Context, t template.Template, data template.Data) {
	data["IsAnalysis"] = true
	data["Breadcrumbs"] = analysisBreadcrumbs("Protocol Impact")

	ad, err := loadAnalysisData(c.Request().Context())
	if err != nil {
		logger.Error("Error loading reports", "error", err)
		data["Error"] = "Failed to load reports"
		t.HTML(http.StatusOK, "analysis_impact")

		return
	}

	window := ad.Settings.ProtocolWindowSize
	if q := strings.TrimSpace(c.Query("window")); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n >= 1 && n <= 24 {
			window = n
		} else {
			data["Error"] = "Window must be between 1 and 24"
		}
	}

	data["Window"] = window
	data["Events"] = analytics.BuildProtocolImpactDoseEvents(ad.Reports, ad.Settings.UnitSystem, window)

	t.HTML(http.StatusOK, "analysis_impact")
}

// mergeCandidates splits stored names into those no alias table knows and
// the rest, which are merge targets.
func mergeCandidates(names []string) (unknown, targets []string) {
	for _, name := range names {
		if _, known := analytics.LookupMarker(name); known {
			targets = append(targets, name)
		} else {
			unknown = append(unknown, name)
		}
	}

	return unknown, targets
}

// MergeSuggestions lists likely duplicate marker names and past merges.
func MergeSuggestions(c flamego.Context, t template.Template, data template.Data) {
	data["IsAnalysis"] = true
	data["Breadcrumbs"] = analysisBreadcrumbs("Merge Markers")
	ctx := c.Request().Context()

	names, err := listMarkerNamesDBFn(ctx)
	if err != nil {
		logger.Error("Error listing marker names", "error", err)
		data["Error"] = "Failed to load marker names"
		t.HTML(http.StatusOK, "analysis_merge")

		return
	}

	unknown, targets := mergeCandidates(names)

	suggestions := analytics.DetectMarkerMergeSuggestions(unknown, targets)

	matched := make(map[string]bool, len(suggestions))
	for _, sg := range suggestions {
		matched[sg.Source] = true
	}

	// Unknown names left over can still duplicate each other. Comparing
	// only against later names yields one direction per pair.
	for i, name := range unknown {
		if matched[name] {
			continue
		}

		suggestions = append(suggestions, analytics.DetectMarkerMergeSuggestions([]string{name}, unknown[i+1:])...)
	}

	merges, err := listMarkerMergesDBFn(ctx)
	if err != nil {
		logger.Error("Error listing marker merges", "error", err)
	}

	data["Suggestions"] = suggestions
	data["Names"] = names
	data["Merges"] = merges

	t.HTML(http.StatusOK, "analysis_merge")
}

// AcceptMerge renames every row of one marker to another.
func AcceptMerge(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Error parsing form", "error", err)
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/analysis/merge", http.StatusSeeOther)

		return
	}

	from := strings.TrimSpace(c.Request().Form.Get("source"))
	to := strings.TrimSpace(c.Request().Form.Get("target"))

	changed, err := renameMarkerDBFn(ctx, from, to)
	if err != nil {
		logger.Error("Error merging markers", "from", from, "to", to, "error", err)

		switch {
		case errors.Is(err, db.ErrSameMarkerName):
			SetErrorFlash(s, "Choose two different marker names")
		case errors.Is(err, db.ErrInvalidInput):
			SetErrorFlash(s, "Both marker names are required")
		default:
			SetErrorFlash(s, "Failed to merge markers")
		}

		c.Redirect("/analysis/merge", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, fmt.Sprintf("Merged %q into %q (%d values)", from, to, changed))
	c.Redirect("/analysis/merge", http.StatusSeeOther)
}

// AIAnalysis streams an AI review of the lab history using Server-Sent
// Events, which keeps reverse proxies from timing out during generation.
func AIAnalysis(c flamego.Context) {
	ctx := c.Request().Context()
	w := c.ResponseWriter()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	sendEvent := func(event, payload string) {
		var b strings.Builder

		if event != "" {
			b.WriteString("event: " + event + "\n")
		}

		b.WriteString("data: " + strings.ReplaceAll(payload, "\n", "\ndata: ") + "\n\n")

		if _, err := w.Write([]byte(b.String())); err != nil {
			logger.Warn("Failed to write SSE event", "error", err)
			return
		}

		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
	}

	ad, err := loadAnalysisData(ctx)
	if err != nil {
		logger.Error("Error loading reports", "error", err)
		sendEvent("error", "Failed to load reports")

		return
	}

	if len(ad.Reports) == 0 {
		sendEvent("error", "No lab reports to analyse")
		return
	}

	err = streamTRTAnalysisFn(ctx, ad.Settings, ad.Reports, func(chunk string) error {
		sendEvent("chunk", chunk)
		return nil
	})
	if err != nil {
		logger.Error("Error generating AI analysis", "error", err)

		if errors.Is(err, db.ErrAIConfigIncomplete) {
			sendEvent("error", "AI analysis is not configured")
		} else {
			sendEvent("error", "Failed to generate analysis: "+err.Error())
		}

		return
	}

	sendEvent("done", "")
}
