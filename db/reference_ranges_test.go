// SPDX-FileCopyrightText: 2025 Humaid Alqasimi
// SPDX-License-Identifier: Apache-2.0

package db

import (
	"io/fs"
	"math"
	"testing"

	"github.com/humaidq/trtlog/analytics"
)

func TestReferenceRangeDefinitionsUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)

	for _, def := range GetReferenceRangeDefinitions() {
		key := def.TestName + "|" + string(def.AgeRange) + "|" + string(def.Gender)
		if seen[key] {
			t.Fatalf("duplicate reference range %s", key)
		}

		seen[key] = true

		if _, known := analytics.LookupMarker(def.TestName); !known {
			t.Fatalf("reference range for unknown marker %q", def.TestName)
		}
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	t.Parallel()

	entries, err := fs.ReadDir(GetEmbeddedMigrations(), MigrationsDir)
	if err != nil {
		t.Fatalf("expected embedded migrations: %v", err)
	}

	if len(entries) == 0 {
		t.Fatalf("expected at least one migration")
	}
}

func TestReferenceRangeLookup(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	defs := GetReferenceRangeDefinitions()

	first := defs[0]

	rangeResult, err := GetReferenceRange(ctx, first.TestName, first.AgeRange, first.Gender)
	if err != nil {
		t.Fatalf("GetReferenceRange failed: %v", err)
	}

	if rangeResult == nil {
		t.Fatalf("expected reference range result")
	}

	missing, err := GetReferenceRange(ctx, "Not a marker", AgeAdult, GenderMale)
	if err != nil || missing != nil {
		t.Fatalf("expected nil range for unknown marker, got %v, %v", missing, err)
	}
}

func TestDefaultReferenceRangeConverts(t *testing.T) {
	resetDatabase(t)
	ctx := testContext()

	male := GenderMale
	at := testDate(2024, 1, 1)

	euMin, euMax, err := DefaultReferenceRange(ctx, analytics.MarkerHematocrit, analytics.UnitSystemEU, &male, nil, at)
	if err != nil || euMin == nil || euMax == nil {
		t.Fatalf("expected EU range, got %v %v %v", euMin, euMax, err)
	}

	usMin, usMax, err := DefaultReferenceRange(ctx, analytics.MarkerHematocrit, analytics.UnitSystemUS, &male, nil, at)
	if err != nil || usMin == nil || usMax == nil {
		t.Fatalf("expected US range, got %v %v %v", usMin, usMax, err)
	}

	if math.Abs(*usMax-*euMax*100) > 1e-9 {
		t.Fatalf("expected %% range, got %v vs %v", *usMax, *euMax)
	}
}
