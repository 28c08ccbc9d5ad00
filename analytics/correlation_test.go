// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package analytics

import "testing"

func TestCorrelateMarkers(t *testing.T) {
	t.Parallel()

	reports := []LabReport{
		report(day(0), nil, marker(MarkerTestosterone, 15, "nmol/L"), marker(MarkerEstradiol, 80, "pmol/L")),
		report(day(30), nil, marker(MarkerTestosterone, 20, "nmol/L"), marker(MarkerEstradiol, 100, "pmol/L")),
		report(day(60), nil, marker(MarkerTestosterone, 25, "nmol/L"), marker(MarkerEstradiol, 120, "pmol/L")),
		report(day(90), nil, marker(MarkerTestosterone, 30, "nmol/L")),
	}

	corr := CorrelateMarkers(reports, MarkerTestosterone, MarkerEstradiol, UnitSystemEU)
	if corr == nil {
		t.Fatalf("expected a correlation")
	}

	if corr.Pairs != 3 || corr.Strength != "strong" {
		t.Fatalf("unexpected correlation %+v", corr)
	}

	assertFloatClose(t, corr.Coefficient, 1)

	if got := CorrelateMarkers(reports[:2], MarkerTestosterone, MarkerEstradiol, UnitSystemEU); got != nil {
		t.Fatalf("expected nil below three pairs, got %+v", got)
	}
}
