// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateMarkerInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   MarkerInput
		wantErr string
	}{
		{name: "ok", input: MarkerInput{Label: "TT", Value: 20, Unit: "nmol/L", Confidence: 1}},
		{name: "missing label", input: MarkerInput{Value: 20}, wantErr: "Label"},
		{name: "nan", input: MarkerInput{Label: "TT", Value: math.NaN()}, wantErr: "finite"},
		{name: "infinite range", input: MarkerInput{Label: "TT", Value: 1, RefMax: floatPtr(math.Inf(1))}, wantErr: "RefMax"},
		{name: "confidence", input: MarkerInput{Label: "TT", Value: 1, Confidence: 1.5}, wantErr: "Confidence"},
	}

	for _, tc := range cases {
		err := validateInput(tc.input)
		if tc.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}

			continue
		}

		if !errors.Is(err, ErrInvalidInput) || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected ErrInvalidInput mentioning %q, got %v", tc.name, tc.wantErr, err)
		}
	}
}

func TestValidateAnnotations(t *testing.T) {
	t.Parallel()

	if err := validateInput(AnnotationsInput{DoseMgPerWeek: floatPtr(-1)}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected negative dose to fail, got %v", err)
	}

	if err := validateInput(AnnotationsInput{SamplingTiming: "evening"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected unknown timing to fail, got %v", err)
	}

	if err := validateInput(AnnotationsInput{DoseMgPerWeek: floatPtr(0), SamplingTiming: "trough"}); err != nil {
		t.Fatalf("expected zero dose to pass, got %v", err)
	}
}
