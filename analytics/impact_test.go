// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package analytics

import "testing"

func findImpactRow(rows []ProtocolImpactRow, marker string) *ProtocolImpactRow {
	for i := range rows {
		if rows[i].Marker == marker {
			return &rows[i]
		}
	}

	return nil
}

func TestBuildProtocolImpactDoseEvents(t *testing.T) {
	t.Parallel()

	reports := []LabReport{
		report(day(0), floatPtr(100), marker(MarkerTestosterone, 15, "nmol/L"), marker(MarkerHematocrit, 0.45, "L/L")),
		report(day(30), floatPtr(100), marker(MarkerTestosterone, 17, "nmol/L"), marker(MarkerHematocrit, 0.46, "L/L")),
		report(day(60), floatPtr(150), marker(MarkerTestosterone, 24, "nmol/L"), marker(MarkerHematocrit, 0.455, "L/L")),
		// No dose recorded: carried forward from the previous report.
		report(day(90), nil, marker(MarkerTestosterone, 26, "nmol/L"), marker(MarkerEstradiol, 110, "pmol/L")),
	}

	events := BuildProtocolImpactDoseEvents(reports, UnitSystemEU, 3)
	if len(events) != 1 {
		t.Fatalf("expected 1 dose event, got %d", len(events))
	}

	event := events[0]
	if event.FromDose != 100 || event.ToDose != 150 || !event.ChangeDate.Equal(day(60)) {
		t.Fatalf("unexpected event header %+v", event)
	}

	if len(event.BeforeReportIDs) != 2 || len(event.AfterReportIDs) != 2 {
		t.Fatalf("expected 2 reports each side, got %d/%d", len(event.BeforeReportIDs), len(event.AfterReportIDs))
	}

	tt := findImpactRow(event.Rows, MarkerTestosterone)
	if tt == nil || tt.BeforeAvg == nil || tt.AfterAvg == nil {
		t.Fatalf("expected testosterone averages, got %+v", tt)
	}

	assertFloatClose(t, *tt.BeforeAvg, 16)
	assertFloatClose(t, *tt.AfterAvg, 25)
	assertFloatClose(t, *tt.AbsoluteDelta, 9)
	assertFloatClose(t, *tt.PercentDelta, 56.25)

	if tt.Trend != ArrowUp || tt.Confidence != ConfidenceMedium {
		t.Fatalf("expected up/medium, got %s/%s", tt.Trend, tt.Confidence)
	}

	hct := findImpactRow(event.Rows, MarkerHematocrit)
	if hct == nil || hct.Trend != ArrowFlat {
		t.Fatalf("expected flat hematocrit inside the dead zone, got %+v", hct)
	}

	if hct.Confidence != ConfidenceLow {
		t.Fatalf("expected low confidence with one sample after, got %s", hct.Confidence)
	}

	e2 := findImpactRow(event.Rows, MarkerEstradiol)
	if e2 == nil || e2.BeforeAvg != nil || e2.AfterAvg == nil {
		t.Fatalf("expected estradiol with no before average, got %+v", e2)
	}

	if e2.AbsoluteDelta != nil || e2.PercentDelta != nil || e2.Trend != ArrowUnknown {
		t.Fatalf("expected no delta for one-sided row, got %+v", e2)
	}

	if e2.Confidence != ConfidenceInsufficient {
		t.Fatalf("expected insufficient confidence, got %s", e2.Confidence)
	}
}

func TestBuildProtocolImpactAfterAvgMissing(t *testing.T) {
	t.Parallel()

	reports := []LabReport{
		report(day(0), floatPtr(120), marker(MarkerTestosterone, 20, "nmol/L")),
		report(day(40), floatPtr(100), marker(MarkerSHBG, 30, "nmol/L")),
	}

	events := BuildProtocolImpactDoseEvents(reports, UnitSystemEU, 0)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	row := findImpactRow(events[0].Rows, MarkerTestosterone)
	if row == nil || row.AfterAvg != nil || row.BeforeAvg == nil {
		t.Fatalf("expected a nil after average, got %+v", row)
	}
}

func TestBuildProtocolImpactWindowLimits(t *testing.T) {
	t.Parallel()

	var reports []LabReport
	for i := range 5 {
		reports = append(reports, report(day(i*10), floatPtr(100), marker(MarkerTestosterone, 15, "nmol/L")))
	}

	for i := range 5 {
		reports = append(reports, report(day(100+i*10), floatPtr(200), marker(MarkerTestosterone, 30, "nmol/L")))
	}

	events := BuildProtocolImpactDoseEvents(reports, UnitSystemEU, 2)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if len(events[0].BeforeReportIDs) != 2 || len(events[0].AfterReportIDs) != 2 {
		t.Fatalf("expected windows of 2, got %d/%d", len(events[0].BeforeReportIDs), len(events[0].AfterReportIDs))
	}

	if events[0].BeforeReportIDs[1] != reports[4].ID || events[0].AfterReportIDs[0] != reports[5].ID {
		t.Fatalf("windows should hug the change date")
	}
}

func TestBuildProtocolImpactNoDoses(t *testing.T) {
	t.Parallel()

	reports := []LabReport{report(day(0), nil, marker(MarkerTestosterone, 15, "nmol/L"))}
	if events := BuildProtocolImpactDoseEvents(reports, UnitSystemEU, 3); len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
