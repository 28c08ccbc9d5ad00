// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package analytics

import (
	"math"
	"reflect"
	"testing"
)

func doseScenario() []LabReport {
	return []LabReport{
		trough(report(day(0), floatPtr(60), marker(MarkerTestosterone, 80, "nmol/L"))),
		trough(report(day(60), floatPtr(100), marker(MarkerTestosterone, 110, "nmol/L"))),
		trough(report(day(120), floatPtr(140), marker(MarkerTestosterone, 140, "nmol/L"))),
	}
}

func TestEstimateDoseResponseClearFit(t *testing.T) {
	t.Parallel()

	preds := EstimateDoseResponse(doseScenario(), []string{MarkerTestosterone}, UnitSystemEU)
	if len(preds) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(preds))
	}

	pred := preds[0]
	if pred.Status != DoseStatusClear || pred.Source != SourcePersonal {
		t.Fatalf("expected clear personal fit, got %s/%s (%s)", pred.Status, pred.Source, pred.Reason)
	}

	if pred.Fit == nil || pred.Fit.Slope <= 0 {
		t.Fatalf("expected positive slope, got %+v", pred.Fit)
	}

	assertFloatClose(t, pred.Fit.Slope, 0.75)
	assertFloatClose(t, pred.Fit.Intercept, 35)

	if pred.SampleCount != 3 || pred.Prior != nil {
		t.Fatalf("expected 3 samples and no prior, got %d / %+v", pred.SampleCount, pred.Prior)
	}

	if pred.CurrentDose == nil || *pred.CurrentDose != 140 {
		t.Fatalf("expected current dose 140, got %v", pred.CurrentDose)
	}

	if pred.CurrentEstimate == nil {
		t.Fatalf("expected a current estimate")
	}

	assertFloatClose(t, *pred.CurrentEstimate, 140)

	if pred.Confidence == ConfidenceInsufficient {
		t.Fatalf("expected a confidence bucket above insufficient")
	}
}

func TestEstimateDoseResponseInsufficient(t *testing.T) {
	t.Parallel()

	t.Run("too few samples falls back to prior", func(t *testing.T) {
		t.Parallel()

		reports := doseScenario()[:2]

		pred := EstimateDoseResponse(reports, []string{MarkerTestosterone}, UnitSystemEU)[0]
		if pred.Status != DoseStatusInsufficient || pred.Fit != nil {
			t.Fatalf("expected insufficient without fit, got %+v", pred)
		}

		if pred.Source != SourceLiterature || pred.Prior == nil || pred.Prior.Citation == "" {
			t.Fatalf("expected a cited literature prior, got %+v", pred.Prior)
		}

		if pred.PriorEstimate == nil {
			t.Fatalf("expected a prior estimate at the current dose")
		}
	})

	t.Run("narrow dose spread", func(t *testing.T) {
		t.Parallel()

		reports := []LabReport{
			trough(report(day(0), floatPtr(100), marker(MarkerTestosterone, 18, "nmol/L"))),
			trough(report(day(30), floatPtr(110), marker(MarkerTestosterone, 19, "nmol/L"))),
			trough(report(day(60), floatPtr(115), marker(MarkerTestosterone, 21, "nmol/L"))),
		}

		pred := EstimateDoseResponse(reports, []string{MarkerTestosterone}, UnitSystemEU)[0]
		if pred.Status != DoseStatusInsufficient || pred.Reason == "" {
			t.Fatalf("expected insufficient with reason, got %+v", pred)
		}
	})

	t.Run("marker without prior", func(t *testing.T) {
		t.Parallel()

		pred := EstimateDoseResponse(nil, []string{MarkerPSA}, UnitSystemEU)[0]
		if pred.Source != SourceNone || pred.Prior != nil {
			t.Fatalf("expected no model, got %+v", pred)
		}

		if pred.Included == nil || pred.Excluded == nil {
			t.Fatalf("expected empty, non-nil point lists")
		}
	})
}

func TestEstimateDoseResponseExclusions(t *testing.T) {
	t.Parallel()

	reports := append(doseScenario(),
		trough(report(day(150), nil, marker(MarkerTestosterone, 100, "nmol/L"))),
		trough(report(day(160), floatPtr(-10), marker(MarkerTestosterone, 100, "nmol/L"))),
		trough(report(day(170), floatPtr(math.NaN()), marker(MarkerTestosterone, 100, "nmol/L"))),
		report(day(180), floatPtr(120), marker(MarkerTestosterone, 300, "nmol/L")),
		trough(report(day(190), floatPtr(120), marker(MarkerTestosterone, math.NaN(), "nmol/L"))),
		trough(report(day(200), floatPtr(120), marker(MarkerTestosterone, math.Inf(1), "nmol/L"))),
	)

	pred := EstimateDoseResponse(reports, []string{MarkerTestosterone}, UnitSystemEU)[0]
	if pred.SampleCount != 3 {
		t.Fatalf("expected 3 included samples, got %d", pred.SampleCount)
	}

	if len(pred.Excluded) != 6 {
		t.Fatalf("expected 6 exclusions, got %d: %+v", len(pred.Excluded), pred.Excluded)
	}

	nonFinite := 0

	for _, ex := range pred.Excluded {
		if ex.Reason == "" {
			t.Fatalf("excluded point without reason: %+v", ex)
		}

		if ex.Reason == "Value is not a finite number." {
			nonFinite++
		}
	}

	if nonFinite != 2 {
		t.Fatalf("expected 2 non-finite exclusions, got %d: %+v", nonFinite, pred.Excluded)
	}
}

func TestEstimateDoseResponseEstradiol(t *testing.T) {
	t.Parallel()

	reports := []LabReport{
		trough(report(day(0), floatPtr(60), marker(MarkerEstradiol, 80, "pmol/L"))),
		trough(report(day(60), floatPtr(100), marker(MarkerEstradiol, 110, "pmol/L"))),
		trough(report(day(120), floatPtr(140), marker(MarkerEstradiol, 140, "pmol/L"))),
	}

	pred := EstimateDoseResponse(reports, []string{MarkerEstradiol}, UnitSystemEU)[0]
	if pred.Status != DoseStatusClear || pred.Fit == nil {
		t.Fatalf("expected a clear fit, got %s (%s)", pred.Status, pred.Reason)
	}

	assertFloatClose(t, pred.Fit.Slope, 0.75)
	assertFloatClose(t, pred.Fit.Intercept, 35)

	if pred.Unit != "pmol/L" || pred.SampleCount != 3 || len(pred.Excluded) != 0 {
		t.Fatalf("unexpected prediction: unit=%q n=%d excluded=%+v", pred.Unit, pred.SampleCount, pred.Excluded)
	}
}

func TestEstimateDoseResponseWithoutTroughs(t *testing.T) {
	t.Parallel()

	reports := doseScenario()
	for i := range reports {
		reports[i].Annotations.SamplingTiming = ""
	}

	pred := EstimateDoseResponse(reports, []string{MarkerTestosterone}, UnitSystemEU)[0]
	if pred.Status != DoseStatusClear {
		t.Fatalf("expected clear fit from untimed samples, got %s", pred.Status)
	}

	if len(pred.Warnings) == 0 {
		t.Fatalf("expected a timing warning")
	}
}

func TestEstimateDoseResponseUSUnits(t *testing.T) {
	t.Parallel()

	pred := EstimateDoseResponse(doseScenario(), []string{MarkerTestosterone}, UnitSystemUS)[0]
	if pred.Unit != "ng/dL" {
		t.Fatalf("expected ng/dL, got %q", pred.Unit)
	}

	assertFloatClose(t, pred.Fit.Slope, 0.75*28.842)
}

func TestEstimateDoseResponseDeterministic(t *testing.T) {
	t.Parallel()

	reports := doseScenario()

	first := EstimateDoseResponse(reports, nil, UnitSystemEU)
	second := EstimateDoseResponse(reports, nil, UnitSystemEU)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results for identical input")
	}

	if len(first) != len(DoseResponseMarkers) {
		t.Fatalf("expected default markers, got %d predictions", len(first))
	}
}

func TestLookupDosePriorUnits(t *testing.T) {
	t.Parallel()

	eu, ok := LookupDosePrior(MarkerHematocrit, UnitSystemEU)
	if !ok {
		t.Fatalf("expected hematocrit prior")
	}

	us, _ := LookupDosePrior(MarkerHematocrit, UnitSystemUS)
	assertFloatClose(t, us.PredictAt(100), eu.PredictAt(100)*100)

	if us.Unit != "%" || eu.Unit != "L/L" {
		t.Fatalf("unexpected prior units %q / %q", eu.Unit, us.Unit)
	}
}
