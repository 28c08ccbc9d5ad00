/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/humaidq/trtlog/analytics"
)

// ExportState returns every report and the settings as a state document.
func ExportState(ctx context.Context) (analytics.State, error) {
	settings, err := GetSettings(ctx)
	if err != nil {
		return analytics.State{}, err
	}

	reports, err := ListReports(ctx)
	if err != nil {
		return analytics.State{}, err
	}

	return analytics.State{
		SchemaVersion: analytics.StateSchemaVersion,
		Settings:      settings,
		Reports:       reports,
	}, nil
}

// ImportState replaces all reports and settings with the document's
// contents in one transaction. Rows with non-finite values are dropped.
func ImportState(ctx context.Context, state analytics.State) (int, error) {
	if pool == nil {
		return 0, ErrDatabaseConnectionNotInitialized
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer rollback(ctx, tx)

	if _, err := tx.Exec(ctx, `DELETE FROM lab_reports`); err != nil {
		return 0, fmt.Errorf("failed to clear lab reports: %w", err)
	}

	for _, r := range state.Reports {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}

		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = r.TestDate
		}

		a := r.Annotations

		dose := a.DoseMgPerWeek
		if dose != nil && (math.IsNaN(*dose) || math.IsInf(*dose, 0) || *dose < 0) {
			dose = nil
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO lab_reports (
				id, source_file_name, test_date, created_at, dose_mg_per_week, protocol, supplements, symptoms,
				notes, sampling_timing, extraction_provider, extraction_confidence, needs_review, is_baseline
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		`,
			r.ID, r.SourceFileName, r.TestDate, createdAt, dose, a.Protocol, a.Supplements, a.Symptoms,
			a.Notes, string(analytics.ParseSamplingTiming(string(a.SamplingTiming))),
			r.Extraction.Provider, clampUnit(r.Extraction.Confidence), r.Extraction.NeedsReview, r.IsBaseline,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to import lab report %s: %w", r.ID, err)
		}

		markers := make([]analytics.MarkerValue, 0, len(r.Markers))
		for _, mv := range r.Markers {
			if math.IsNaN(mv.Value) || math.IsInf(mv.Value, 0) || mv.IsCalculated {
				continue
			}

			if mv.ID == uuid.Nil {
				mv.ID = uuid.New()
			}

			if mv.CanonicalName == "" {
				mv.CanonicalName = analytics.CanonicalizeMarker(mv.RawLabel)
			}

			if mv.RawLabel == "" {
				mv.RawLabel = mv.CanonicalName
			}

			mv.Confidence = clampUnit(mv.Confidence)
			markers = append(markers, mv)
		}

		if err := insertMarkers(ctx, tx, r.ID, markers); err != nil {
			return 0, err
		}
	}

	if err := upsertSettings(ctx, tx, state.Settings); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit state import: %w", err)
	}

	logger.Info("Imported state", "reports", len(state.Reports), "schema_version", state.SchemaVersion)

	return len(state.Reports), nil
}
