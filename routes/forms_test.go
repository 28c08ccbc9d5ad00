// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"errors"
	"net/url"
	"testing"

	"github.com/humaidq/trtlog/analytics"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		wantErr error
	}{
		{input: "2024-03-15"},
		{input: "  2024-03-15  "},
		{input: "", wantErr: errMissingDate},
		{input: "15/03/2024", wantErr: errInvalidDate},
		{input: "1850-01-01", wantErr: errYearOutOfRange},
		{input: "2301-01-01", wantErr: errYearOutOfRange},
	}

	for _, tt := range tests {
		got, err := parseDate(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseDate(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}

			continue
		}

		if err != nil {
			t.Fatalf("parseDate(%q) unexpected error: %v", tt.input, err)
		}

		if !got.Equal(testDate(2024, 3, 15)) {
			t.Fatalf("parseDate(%q) = %v", tt.input, got)
		}
	}
}

func TestParseOptionalDateBlank(t *testing.T) {
	t.Parallel()

	got, err := parseOptionalDate("   ")
	if err != nil || got != nil {
		t.Fatalf("expected nil date, got %v, %v", got, err)
	}
}

func TestParseFloat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "12.5", want: 12.5},
		{input: " 12,5 ", want: 12.5},
		{input: "0.47", want: 0.47},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseFloat(tt.input)
		if tt.wantErr {
			if !errors.Is(err, errInvalidNumber) {
				t.Fatalf("parseFloat(%q) error = %v", tt.input, err)
			}

			continue
		}

		if err != nil || got != tt.want {
			t.Fatalf("parseFloat(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestParseMarkerRows(t *testing.T) {
	t.Parallel()

	form := url.Values{
		"marker_label":   {"Testosteron totaal", "", "Hematocriet"},
		"marker_value":   {"18,4", "", "0.47"},
		"marker_unit":    {"nmol/L", "", "L/L"},
		"marker_ref_min": {"8.6", "", ""},
		"marker_ref_max": {"29", "", "0.5"},
	}

	rows, err := parseMarkerRows(form)
	if err != nil {
		t.Fatalf("parseMarkerRows returned error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected blank row to be skipped, got %d rows", len(rows))
	}

	if rows[0].Label != "Testosteron totaal" || rows[0].Value != 18.4 || rows[0].Confidence != 1 {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}

	if rows[1].RefMin != nil || rows[1].RefMax == nil || *rows[1].RefMax != 0.5 {
		t.Fatalf("unexpected second row range: %#v", rows[1])
	}
}

func TestParseMarkerRowsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		form    url.Values
		wantErr error
	}{
		{
			name: "mismatched",
			form: url.Values{
				"marker_label": {"A", "B"},
				"marker_value": {"1"},
			},
			wantErr: errMismatchedMarkers,
		},
		{
			name: "all blank",
			form: url.Values{
				"marker_label":   {""},
				"marker_value":   {""},
				"marker_unit":    {""},
				"marker_ref_min": {""},
				"marker_ref_max": {""},
			},
			wantErr: errNoMarkerRows,
		},
		{
			name: "bad value",
			form: url.Values{
				"marker_label":   {"LH"},
				"marker_value":   {"high"},
				"marker_unit":    {"U/L"},
				"marker_ref_min": {""},
				"marker_ref_max": {""},
			},
			wantErr: errInvalidNumber,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := parseMarkerRows(tt.form); !errors.Is(err, tt.wantErr) {
				t.Fatalf("parseMarkerRows error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseAnnotationsForm(t *testing.T) {
	t.Parallel()

	got, err := parseAnnotationsForm(url.Values{
		"dose_mg_per_week": {"125"},
		"protocol":         {"  2x per week  "},
		"sampling_timing":  {"trough"},
	})
	if err != nil {
		t.Fatalf("parseAnnotationsForm returned error: %v", err)
	}

	if got.DoseMgPerWeek == nil || *got.DoseMgPerWeek != 125 {
		t.Fatalf("unexpected dose: %#v", got.DoseMgPerWeek)
	}

	if got.Protocol != "2x per week" || got.SamplingTiming != "trough" {
		t.Fatalf("unexpected annotations: %#v", got)
	}

	if _, err := parseAnnotationsForm(url.Values{"dose_mg_per_week": {"lots"}}); !errors.Is(err, errInvalidNumber) {
		t.Fatalf("expected invalid number for dose, got %v", err)
	}
}

func TestParseSettingsForm(t *testing.T) {
	t.Parallel()

	input, err := parseSettingsForm("us", "", "6", "Male", "1980-05-01")
	if err != nil {
		t.Fatalf("parseSettingsForm returned error: %v", err)
	}

	if input.UnitSystem != string(analytics.UnitSystemUS) {
		t.Fatalf("unexpected unit system: %q", input.UnitSystem)
	}

	if input.ProtocolWindowSize != analytics.ImpactDefaultWindow || input.StabilityWindowMonths != 6 {
		t.Fatalf("unexpected windows: %#v", input)
	}

	if input.DateOfBirth == nil || !input.DateOfBirth.Equal(testDate(1980, 5, 1)) {
		t.Fatalf("unexpected date of birth: %v", input.DateOfBirth)
	}

	if _, err := parseSettingsForm("EU", "x", "", "", ""); !errors.Is(err, errInvalidNumber) {
		t.Fatalf("expected invalid number, got %v", err)
	}
}
