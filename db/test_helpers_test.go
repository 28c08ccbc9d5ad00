// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testContext() context.Context {
	return context.Background()
}

func floatPtr(value float64) *float64 {
	return &value
}

func testDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func mustUpdateSettings(t *testing.T, input SettingsInput) {
	t.Helper()

	if err := UpdateSettings(testContext(), input); err != nil {
		t.Fatalf("failed to update settings: %v", err)
	}
}

func mustCreateReport(t *testing.T, input CreateReportInput) uuid.UUID {
	t.Helper()

	id, err := CreateReport(testContext(), input)
	if err != nil {
		t.Fatalf("failed to create report: %v", err)
	}

	return id
}

func simpleReport(date time.Time, dose float64, testosterone float64) CreateReportInput {
	return CreateReportInput{
		SourceFileName: "lab.pdf",
		TestDate:       date,
		Annotations: AnnotationsInput{
			DoseMgPerWeek:  floatPtr(dose),
			SamplingTiming: "trough",
		},
		Markers: []MarkerInput{
			{Label: "Testosteron totaal", Value: testosterone, Unit: "nmol/L", Confidence: 1},
			{Label: "Hematocriet", Value: 0.47, Unit: "L/L", Confidence: 0.9},
		},
	}
}
