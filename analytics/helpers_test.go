// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

var baseDate = time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

func day(offset int) time.Time {
	return baseDate.AddDate(0, 0, offset)
}

func marker(name string, value float64, unit string) MarkerValue {
	return MarkerValue{
		ID:            uuid.New(),
		RawLabel:      name,
		CanonicalName: name,
		Value:         value,
		Unit:          unit,
		Confidence:    1,
	}
}

func report(date time.Time, dose *float64, markers ...MarkerValue) LabReport {
	return LabReport{
		ID:          uuid.New(),
		TestDate:    date,
		CreatedAt:   date,
		Markers:     markers,
		Annotations: ReportAnnotations{DoseMgPerWeek: dose},
	}
}

func trough(r LabReport) LabReport {
	r.Annotations.SamplingTiming = TimingTrough
	return r
}

func assertFloatClose(t *testing.T, got, want float64) {
	t.Helper()

	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
