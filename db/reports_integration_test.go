// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/humaidq/trtlog/analytics"
)

func TestCreateAndGetReport(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	mustUpdateSettings(t, SettingsInput{UnitSystem: "EU", ProtocolWindowSize: 3, StabilityWindowMonths: 12, Sex: "Male"})

	id := mustCreateReport(t, simpleReport(testDate(2024, 1, 10), 100, 18))

	report, err := GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if len(report.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(report.Markers))
	}

	tt := report.Markers[0]
	if tt.CanonicalName != analytics.MarkerTestosterone {
		t.Fatalf("expected canonical testosterone, got %q", tt.CanonicalName)
	}

	if tt.RawLabel != "Testosteron totaal" {
		t.Fatalf("expected raw label to be kept, got %q", tt.RawLabel)
	}

	if tt.RefMin == nil || tt.RefMax == nil {
		t.Fatalf("expected default reference range to be filled")
	}

	if dose, ok := report.Dose(); !ok || dose != 100 {
		t.Fatalf("expected dose 100, got %v (%v)", dose, ok)
	}

	if report.Annotations.SamplingTiming != analytics.TimingTrough {
		t.Fatalf("expected trough timing, got %q", report.Annotations.SamplingTiming)
	}

	if report.Extraction.Confidence != 1 {
		t.Fatalf("expected manual report confidence 1, got %v", report.Extraction.Confidence)
	}
}

func TestCreateReportConvertsToUserUnits(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	mustUpdateSettings(t, SettingsInput{UnitSystem: "US", ProtocolWindowSize: 3, StabilityWindowMonths: 12})

	id := mustCreateReport(t, simpleReport(testDate(2024, 2, 1), 120, 20))

	report, err := GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	tt := report.Markers[0]
	if tt.Unit != "ng/dL" {
		t.Fatalf("expected ng/dL, got %q", tt.Unit)
	}

	if math.Abs(tt.Value-20*28.842) > 0.01 {
		t.Fatalf("expected converted value, got %v", tt.Value)
	}
}

func TestCreateReportValidation(t *testing.T) {
	resetDatabase(t)

	input := simpleReport(testDate(2024, 1, 1), 100, 18)
	input.Markers = nil

	if _, err := CreateReport(testContext(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty markers, got %v", err)
	}

	input = simpleReport(testDate(2024, 1, 1), 100, math.NaN())
	if _, err := CreateReport(testContext(), input); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for NaN value, got %v", err)
	}
}

func TestListReportsOrdered(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	mustCreateReport(t, simpleReport(testDate(2024, 3, 1), 120, 22))
	mustCreateReport(t, simpleReport(testDate(2024, 1, 1), 100, 18))

	reports, err := ListReports(ctx)
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}

	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}

	if !reports[0].TestDate.Before(reports[1].TestDate) {
		t.Fatalf("expected oldest report first")
	}

	for _, r := range reports {
		if len(r.Markers) != 2 {
			t.Fatalf("expected markers attached to report %s", r.ID)
		}
	}
}

func TestUpdateReportDetailsAndMarkers(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	id := mustCreateReport(t, simpleReport(testDate(2024, 1, 1), 100, 18))

	err := UpdateReportDetails(ctx, id, ReportDetailsInput{
		TestDate: testDate(2024, 1, 2),
		Annotations: AnnotationsInput{
			DoseMgPerWeek:  floatPtr(125),
			Protocol:       "2x weekly",
			SamplingTiming: "peak",
		},
	})
	if err != nil {
		t.Fatalf("UpdateReportDetails failed: %v", err)
	}

	report, err := GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if report.Annotations.Protocol != "2x weekly" || report.Annotations.SamplingTiming != analytics.TimingPeak {
		t.Fatalf("annotations not updated: %+v", report.Annotations)
	}

	markerID := report.Markers[1].ID

	err = UpdateMarker(ctx, id, markerID, MarkerInput{Label: "Hematocrit", Value: 49, Unit: "%", Confidence: 1})
	if err != nil {
		t.Fatalf("UpdateMarker failed: %v", err)
	}

	report, _ = GetReport(ctx, id)
	if got := report.Markers[1]; got.Unit != "L/L" || math.Abs(got.Value-0.49) > 1e-9 {
		t.Fatalf("expected hematocrit converted to L/L, got %v %s", got.Value, got.Unit)
	}

	if err := DeleteMarker(ctx, id, markerID); err != nil {
		t.Fatalf("DeleteMarker failed: %v", err)
	}

	if err := DeleteMarker(ctx, id, markerID); !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("expected ErrMarkerNotFound, got %v", err)
	}
}

func TestDeleteReport(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	id := mustCreateReport(t, simpleReport(testDate(2024, 1, 1), 100, 18))

	if err := DeleteReport(ctx, id); err != nil {
		t.Fatalf("DeleteReport failed: %v", err)
	}

	if _, err := GetReport(ctx, id); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}

	if err := DeleteReport(ctx, uuid.New()); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound for unknown id, got %v", err)
	}
}

func TestRenameMarker(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	input := simpleReport(testDate(2024, 1, 1), 100, 18)
	input.Markers = append(input.Markers, MarkerInput{Label: "Vit D3 25-OH", Value: 80, Unit: "nmol/L", Confidence: 1})
	mustCreateReport(t, input)

	names, err := ListMarkerNames(ctx)
	if err != nil {
		t.Fatalf("ListMarkerNames failed: %v", err)
	}

	var unknown string

	for _, name := range names {
		if _, known := analytics.LookupMarker(name); !known {
			unknown = name
		}
	}

	if unknown == "" {
		t.Fatalf("expected an unrecognised marker name in %v", names)
	}

	changed, err := RenameMarker(ctx, unknown, analytics.MarkerVitaminD)
	if err != nil {
		t.Fatalf("RenameMarker failed: %v", err)
	}

	if changed != 1 {
		t.Fatalf("expected 1 row changed, got %d", changed)
	}

	merges, err := ListMarkerMerges(ctx)
	if err != nil {
		t.Fatalf("ListMarkerMerges failed: %v", err)
	}

	if len(merges) != 1 || merges[0].TargetName != analytics.MarkerVitaminD {
		t.Fatalf("expected recorded merge, got %+v", merges)
	}

	if _, err := RenameMarker(ctx, analytics.MarkerVitaminD, analytics.MarkerVitaminD); !errors.Is(err, ErrSameMarkerName) {
		t.Fatalf("expected ErrSameMarkerName, got %v", err)
	}
}
