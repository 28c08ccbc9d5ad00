/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"github.com/google/uuid"

	"github.com/humaidq/trtlog/analytics"
	"github.com/humaidq/trtlog/db"
)

// maxUploadSize bounds PDF uploads.
const maxUploadSize = 20 << 20

func reportPath(id uuid.UUID) string {
	return "/reports/" + id.String()
}

// inputErrorMessage turns a validation or parse error into flash text.
func inputErrorMessage(prefix string, err error) string {
	if errors.Is(err, db.ErrInvalidInput) || errors.Is(err, errInvalidNumber) ||
		errors.Is(err, errMissingDate) || errors.Is(err, errInvalidDate) ||
		errors.Is(err, errYearOutOfRange) || errors.Is(err, errNoMarkerRows) ||
		errors.Is(err, errMismatchedMarkers) {
		return fmt.Sprintf("%s: %v", prefix, err)
	}

	return prefix
}

// NewReportForm renders the manual entry and PDF upload forms.
func NewReportForm(t template.Template, data template.Data) {
	data["IsReports"] = true
	data["Breadcrumbs"] = []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: "New Report", IsCurrent: true},
	}
	data["KnownMarkers"] = analytics.KnownMarkers()
	data["Today"] = time.Now().Format(dateLayout)

	t.HTML(http.StatusOK, "report_new")
}

// CreateReport handles the manual entry form.
func CreateReport(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Error parsing form", "error", err)
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	form := c.Request().Form

	testDate, err := parseDate(form.Get("test_date"))
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid test date", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	annotations, err := parseAnnotationsForm(form)
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid dose", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	markers, err := parseMarkerRows(form)
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid marker rows", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	id, err := createReportDBFn(ctx, db.CreateReportInput{
		TestDate:    testDate,
		IsBaseline:  form.Get("is_baseline") == "on",
		Annotations: annotations,
		Markers:     markers,
	})
	if err != nil {
		logger.Error("Error creating report", "error", err)
		SetErrorFlash(s, inputErrorMessage("Failed to create report", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Report created successfully")
	c.Redirect(reportPath(id), http.StatusSeeOther)
}

// UploadReport sends a PDF to the extraction service and stores the draft
// it returns. Drafts with low confidence are flagged for review.
func UploadReport(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()
	r := c.Request().Request

	r.Body = http.MaxBytesReader(c.ResponseWriter(), r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		logger.Error("Error parsing upload", "error", err)
		SetErrorFlash(s, "Failed to read upload")
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		SetErrorFlash(s, "Please choose a PDF file")
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("Failed to close upload", "error", err)
		}
	}()

	fileName := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(fileName), ".pdf") {
		SetErrorFlash(s, errNotPDF.Error())
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	annotations, err := parseAnnotationsForm(r.Form)
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid dose", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	draft, err := extractPDFFn(ctx, fileName, file)
	if err != nil {
		logger.Error("Error extracting report", "file", fileName, "error", err)

		switch {
		case errors.Is(err, db.ErrExtractionNotEnabled):
			SetErrorFlash(s, "PDF extraction is not configured")
		case errors.Is(err, db.ErrExtractionEmpty):
			SetErrorFlash(s, "No lab values were found in the PDF")
		default:
			SetErrorFlash(s, "Failed to extract lab values from the PDF")
		}

		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	input := draft.ReportInput(fileName, time.Now().UTC().Truncate(24*time.Hour))
	input.Annotations = annotations
	input.IsBaseline = r.Form.Get("is_baseline") == "on"

	existing, err := listMarkerNamesDBFn(ctx)
	if err != nil {
		logger.Warn("Failed to list marker names", "error", err)
	}

	id, err := createReportDBFn(ctx, input)
	if err != nil {
		logger.Error("Error creating extracted report", "file", fileName, "error", err)
		SetErrorFlash(s, inputErrorMessage("Failed to save extracted report", err))
		c.Redirect("/reports/new", http.StatusSeeOther)

		return
	}

	incoming := make([]string, 0, len(input.Markers))
	for _, m := range input.Markers {
		incoming = append(incoming, analytics.CanonicalizeMarker(m.Label))
	}

	suggestions := analytics.DetectMarkerMergeSuggestions(incoming, existing)

	switch {
	case input.Extraction.NeedsReview:
		SetWarningFlash(s, "Report extracted; some values have low confidence, please review them")
	case len(suggestions) > 0:
		SetFlashLink(s, FlashInfo,
			fmt.Sprintf("Report extracted; %d marker names look like existing ones", len(suggestions)),
			"/analysis/merge", "Review merges")
	default:
		SetSuccessFlash(s, "Report extracted successfully")
	}

	c.Redirect(reportPath(id), http.StatusSeeOther)
}

type reportMarkerRow struct {
	analytics.MarkerValue
	Category analytics.MarkerCategory
	Flag     analytics.AbnormalFlag
}

// ViewReport shows one report in the user's unit system, with calculated
// markers appended.
func ViewReport(c flamego.Context, s session.Session, t template.Template, data template.Data) {
	data["IsReports"] = true
	ctx := c.Request().Context()

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SetErrorFlash(s, "Report not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	report, err := getReportDBFn(ctx, id)
	if err != nil {
		logger.Error("Error fetching report", "report_id", id, "error", err)
		SetErrorFlash(s, "Report not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	settings, err := getSettingsDBFn(ctx)
	if err != nil {
		logger.Error("Error fetching settings", "error", err)

		settings = analytics.DefaultSettings()
	}

	withCalculated := analytics.WithCalculatedMarkers(*report)

	rows := make([]reportMarkerRow, 0, len(withCalculated.Markers))
	for _, mv := range withCalculated.Markers {
		converted := analytics.ConvertMarkerValue(mv, settings.UnitSystem)
		rows = append(rows, reportMarkerRow{
			MarkerValue: converted,
			Category:    analytics.MarkerCategoryOf(converted.CanonicalName),
			Flag:        converted.Abnormal(),
		})
	}

	order := make(map[analytics.MarkerCategory]int, len(categoryOrder))
	for i, category := range categoryOrder {
		order[category] = i
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return order[rows[i].Category] < order[rows[j].Category]
	})

	data["Report"] = report
	data["Markers"] = rows
	data["Settings"] = settings
	data["Breadcrumbs"] = []BreadcrumbItem{
		homeBreadcrumb(),
		{Name: "Report " + formatDate(report.TestDate), IsCurrent: true},
	}

	t.HTML(http.StatusOK, "report_view")
}

// UpdateReportDetails saves the test date, flags and annotations.
func UpdateReportDetails(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SetErrorFlash(s, "Report not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Error parsing form", "error", err)
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	form := c.Request().Form

	testDate, err := parseDate(form.Get("test_date"))
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid test date", err))
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	annotations, err := parseAnnotationsForm(form)
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid dose", err))
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	err = updateReportDBFn(ctx, id, db.ReportDetailsInput{
		TestDate:    testDate,
		IsBaseline:  form.Get("is_baseline") == "on",
		NeedsReview: form.Get("needs_review") == "on",
		Annotations: annotations,
	})
	if err != nil {
		logger.Error("Error updating report", "report_id", id, "error", err)
		SetErrorFlash(s, inputErrorMessage("Failed to update report", err))
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Report updated successfully")
	c.Redirect(reportPath(id), http.StatusSeeOther)
}

// UpdateReportMarker saves one edited marker row.
func UpdateReportMarker(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SetErrorFlash(s, "Report not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	markerID, err := parseUUIDParam(c, "marker_id")
	if err != nil {
		SetErrorFlash(s, "Marker not found")
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Error parsing form", "error", err)
		SetErrorFlash(s, "Failed to parse form")
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	form := c.Request().Form

	row, err := parseMarkerRow(form.Get("label"), form.Get("value"), form.Get("unit"), form.Get("ref_min"), form.Get("ref_max"))
	if err != nil {
		SetErrorFlash(s, inputErrorMessage("Invalid marker", err))
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	if err := updateMarkerDBFn(ctx, id, markerID, row); err != nil {
		logger.Error("Error updating marker", "report_id", id, "marker_id", markerID, "error", err)
		SetErrorFlash(s, inputErrorMessage("Failed to update marker", err))
		c.Redirect(reportPath(id), http.StatusSeeOther)

		return
	}

	SetSuccessFlash(s, "Marker updated successfully")
	c.Redirect(reportPath(id), http.StatusSeeOther)
}

// DeleteReportMarker removes one marker row.
func DeleteReportMarker(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SetErrorFlash(s, "Report not found")
		c.Redirect("/", http.StatusSeeOther)

		return
	}

	markerID, err := parseUUIDParam(c, "marker_id")
	if err == nil {
		err = deleteMarkerDBFn(ctx, id, markerID)
	}

	if err != nil {
		logger.Error("Error deleting marker", "report_id", id, "error", err)
		SetErrorFlash(s, "Failed to delete marker")
	} else {
		SetSuccessFlash(s, "Marker deleted successfully")
	}

	c.Redirect(reportPath(id), http.StatusSeeOther)
}

// DeleteReport removes a report and its markers.
func DeleteReport(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	id, err := parseUUIDParam(c, "id")
	if err == nil {
		err = deleteReportDBFn(ctx, id)
	}

	if err != nil {
		logger.Error("Error deleting report", "id", c.Param("id"), "error", err)
		SetErrorFlash(s, "Failed to delete report")
	} else {
		SetSuccessFlash(s, "Report deleted successfully")
	}

	c.Redirect("/", http.StatusSeeOther)
}
