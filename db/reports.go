/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/humaidq/trtlog/analytics"
)

// AnnotationsInput is the user-supplied context for a report.
type AnnotationsInput struct {
	DoseMgPerWeek  *float64 `validate:"omitempty,finite,gte=0,lte=5000"`
	Protocol       string   `validate:"max=500"`
	Supplements    string   `validate:"max=2000"`
	Symptoms       string   `validate:"max=2000"`
	Notes          string   `validate:"max=5000"`
	SamplingTiming string   `validate:"omitempty,oneof=trough peak mid unknown"`
}

func (a AnnotationsInput) toAnnotations() analytics.ReportAnnotations {
	return analytics.ReportAnnotations{
		DoseMgPerWeek:  a.DoseMgPerWeek,
		Protocol:       a.Protocol,
		Supplements:    a.Supplements,
		Symptoms:       a.Symptoms,
		Notes:          a.Notes,
		SamplingTiming: analytics.ParseSamplingTiming(a.SamplingTiming),
	}
}

// MarkerInput is one marker row as entered or extracted.
type MarkerInput struct {
	Label      string   `validate:"required,max=200"`
	Value      float64  `validate:"finite"`
	Unit       string   `validate:"max=32"`
	RefMin     *float64 `validate:"omitempty,finite"`
	RefMax     *float64 `validate:"omitempty,finite"`
	Confidence float64  `validate:"gte=0,lte=1"`
}

// CreateReportInput is a new report with its markers.
type CreateReportInput struct {
	SourceFileName string    `validate:"max=255"`
	TestDate       time.Time `validate:"required"`
	IsBaseline     bool
	Annotations    AnnotationsInput
	Extraction     analytics.ExtractionMeta
	Markers        []MarkerInput `validate:"required,min=1,dive"`
}

// ReportDetailsInput updates a report's header and annotations.
type ReportDetailsInput struct {
	TestDate    time.Time `validate:"required"`
	IsBaseline  bool
	NeedsReview bool
	Annotations AnnotationsInput
}

const reportColumns = `
	id, source_file_name, test_date, created_at,
	dose_mg_per_week, protocol, supplements, symptoms, notes, sampling_timing,
	extraction_provider, extraction_confidence, needs_review, is_baseline
`

const markerColumns = `
	id, report_id, raw_label, canonical_name, value, unit, ref_min, ref_max, confidence
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (analytics.LabReport, error) {
	var (
		r      analytics.LabReport
		timing string
	)

	err := row.Scan(
		&r.ID, &r.SourceFileName, &r.TestDate, &r.CreatedAt,
		&r.Annotations.DoseMgPerWeek, &r.Annotations.Protocol, &r.Annotations.Supplements,
		&r.Annotations.Symptoms, &r.Annotations.Notes, &timing,
		&r.Extraction.Provider, &r.Extraction.Confidence, &r.Extraction.NeedsReview, &r.IsBaseline,
	)
	if err != nil {
		return analytics.LabReport{}, err
	}

	r.Annotations.SamplingTiming = analytics.ParseSamplingTiming(timing)
	r.Markers = []analytics.MarkerValue{}

	return r, nil
}

func scanMarker(row rowScanner) (analytics.MarkerValue, uuid.UUID, error) {
	var (
		mv       analytics.MarkerValue
		reportID uuid.UUID
	)

	err := row.Scan(
		&mv.ID, &reportID, &mv.RawLabel, &mv.CanonicalName,
		&mv.Value, &mv.Unit, &mv.RefMin, &mv.RefMax, &mv.Confidence,
	)

	return mv, reportID, err
}

// normalizeMarkers canonicalizes and converts each input row into the
// user's unit system, filling missing reference ranges from the stored
// defaults.
func normalizeMarkers(ctx context.Context, inputs []MarkerInput, settings analytics.Settings, testDate time.Time) ([]analytics.MarkerValue, error) {
	markers := make([]analytics.MarkerValue, 0, len(inputs))

	for _, in := range inputs {
		mv := analytics.NormalizeMarkerMeasurement(analytics.RawMeasurement{
			Label:      in.Label,
			Value:      in.Value,
			Unit:       in.Unit,
			RefMin:     in.RefMin,
			RefMax:     in.RefMax,
			Confidence: in.Confidence,
		}, settings.UnitSystem)

		if mv.RefMin == nil && mv.RefMax == nil {
			def, known := analytics.LookupMarker(mv.CanonicalName)
			if known && mv.Unit == def.UnitFor(settings.UnitSystem) {
				refMin, refMax, err := DefaultReferenceRange(ctx, mv.CanonicalName, settings.UnitSystem,
					ParseGender(settings.Sex), settings.DateOfBirth, testDate)
				if err != nil {
					return nil, err
				}

				mv.SetReferenceRange(refMin, refMax)
			}
		}

		markers = append(markers, mv)
	}

	return markers, nil
}

func insertMarkers(ctx context.Context, tx pgx.Tx, reportID uuid.UUID, markers []analytics.MarkerValue) error {
	rows := make([][]any, len(markers))
	for i, mv := range markers {
		rows[i] = []any{
			mv.ID, reportID, i, mv.RawLabel, mv.CanonicalName,
			mv.Value, mv.Unit, mv.RefMin, mv.RefMax, mv.Confidence,
		}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"marker_values"},
		[]string{"id", "report_id", "position", "raw_label", "canonical_name", "value", "unit", "ref_min", "ref_max", "confidence"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to insert marker values: %w", err)
	}

	return nil
}

// CreateReport validates and stores a report with its markers, returning
// the new report ID.
func CreateReport(ctx context.Context, input CreateReportInput) (uuid.UUID, error) {
	if pool == nil {
		return uuid.Nil, ErrDatabaseConnectionNotInitialized
	}

	if err := validateInput(input); err != nil {
		return uuid.Nil, err
	}

	settings, err := GetSettings(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	markers, err := normalizeMarkers(ctx, input.Markers, settings, input.TestDate)
	if err != nil {
		return uuid.Nil, err
	}

	annotations := input.Annotations.toAnnotations()

	confidence := input.Extraction.Confidence
	if input.Extraction.Provider == "" {
		confidence = 1
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer rollback(ctx, tx)

	reportID := uuid.New()

	_, err = tx.Exec(ctx, `
		INSERT INTO lab_reports (
			id, source_file_name, test_date, dose_mg_per_week, protocol, supplements, symptoms, notes,
			sampling_timing, extraction_provider, extraction_confidence, needs_review, is_baseline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		reportID, input.SourceFileName, input.TestDate, annotations.DoseMgPerWeek,
		annotations.Protocol, annotations.Supplements, annotations.Symptoms, annotations.Notes,
		string(annotations.SamplingTiming), input.Extraction.Provider, clampUnit(confidence),
		input.Extraction.NeedsReview, input.IsBaseline,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create lab report: %w", err)
	}

	if err := insertMarkers(ctx, tx, reportID, markers); err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit lab report: %w", err)
	}

	logger.Info("Created lab report", "report_id", reportID, "markers", len(markers),
		"needs_review", input.Extraction.NeedsReview)

	return reportID, nil
}

// ListReports returns every report with its markers, oldest first.
func ListReports(ctx context.Context) ([]analytics.LabReport, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `SELECT `+reportColumns+` FROM lab_reports ORDER BY test_date ASC, created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lab reports: %w", err)
	}
	defer rows.Close()

	reports := []analytics.LabReport{}
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lab report: %w", err)
		}

		index[r.ID] = len(reports)
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lab reports: %w", err)
	}

	markerRows, err := pool.Query(ctx, `SELECT `+markerColumns+` FROM marker_values ORDER BY report_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to list marker values: %w", err)
	}
	defer markerRows.Close()

	for markerRows.Next() {
		mv, reportID, err := scanMarker(markerRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan marker value: %w", err)
		}

		if i, ok := index[reportID]; ok {
			reports[i].Markers = append(reports[i].Markers, mv)
		}
	}

	if err := markerRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marker values: %w", err)
	}

	return reports, nil
}

// GetReport returns one report with its markers.
func GetReport(ctx context.Context, id uuid.UUID) (*analytics.LabReport, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	r, err := scanReport(pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM lab_reports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}

		return nil, fmt.Errorf("failed to get lab report: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT `+markerColumns+` FROM marker_values WHERE report_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get marker values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		mv, _, err := scanMarker(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan marker value: %w", err)
		}

		r.Markers = append(r.Markers, mv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating marker values: %w", err)
	}

	return &r, nil
}

// UpdateReportDetails replaces the test date, flags and annotations.
func UpdateReportDetails(ctx context.Context, id uuid.UUID, input ReportDetailsInput) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if err := validateInput(input); err != nil {
		return err
	}

	a := input.Annotations.toAnnotations()

	tag, err := pool.Exec(ctx, `
		UPDATE lab_reports
		SET test_date = $1, is_baseline = $2, needs_review = $3,
			dose_mg_per_week = $4, protocol = $5, supplements = $6, symptoms = $7, notes = $8,
			sampling_timing = $9, updated_at = now()
		WHERE id = $10
	`, input.TestDate, input.IsBaseline, input.NeedsReview,
		a.DoseMgPerWeek, a.Protocol, a.Supplements, a.Symptoms, a.Notes, string(a.SamplingTiming), id)
	if err != nil {
		return fmt.Errorf("failed to update lab report: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}

	return nil
}

// UpdateMarker replaces one marker row, re-normalizing its label and unit.
func UpdateMarker(ctx context.Context, reportID, markerID uuid.UUID, input MarkerInput) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	if err := validateInput(input); err != nil {
		return err
	}

	settings, err := GetSettings(ctx)
	if err != nil {
		return err
	}

	mv := analytics.NormalizeMarkerMeasurement(analytics.RawMeasurement{
		ID:         markerID,
		Label:      input.Label,
		Value:      input.Value,
		Unit:       input.Unit,
		RefMin:     input.RefMin,
		RefMax:     input.RefMax,
		Confidence: input.Confidence,
	}, settings.UnitSystem)

	tag, err := pool.Exec(ctx, `
		UPDATE marker_values
		SET raw_label = $1, canonical_name = $2, value = $3, unit = $4, ref_min = $5, ref_max = $6, confidence = $7
		WHERE id = $8 AND report_id = $9
	`, mv.RawLabel, mv.CanonicalName, mv.Value, mv.Unit, mv.RefMin, mv.RefMax, mv.Confidence, markerID, reportID)
	if err != nil {
		return fmt.Errorf("failed to update marker value: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMarkerNotFound
	}

	return nil
}

// DeleteMarker removes one marker row from a report.
func DeleteMarker(ctx context.Context, reportID, markerID uuid.UUID) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `DELETE FROM marker_values WHERE id = $1 AND report_id = $2`, markerID, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete marker value: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrMarkerNotFound
	}

	return nil
}

// DeleteReport deletes a report; its markers cascade.
func DeleteReport(ctx context.Context, id uuid.UUID) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	tag, err := pool.Exec(ctx, `DELETE FROM lab_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete lab report: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}

	logger.Info("Deleted lab report", "report_id", id)

	return nil
}

// ListMarkerNames returns the distinct canonical names in use.
func ListMarkerNames(ctx context.Context) ([]string, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `SELECT DISTINCT canonical_name FROM marker_values ORDER BY canonical_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list marker names: %w", err)
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to collect marker names: %w", err)
	}

	return names, nil
}

// RenameMarker relabels every row of from as to and records the merge.
func RenameMarker(ctx context.Context, from, to string) (int, error) {
	if pool == nil {
		return 0, ErrDatabaseConnectionNotInitialized
	}

	if from == "" || to == "" {
		return 0, fmt.Errorf("%w: marker names are required", ErrInvalidInput)
	}

	if from == to {
		return 0, ErrSameMarkerName
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer rollback(ctx, tx)

	tag, err := tx.Exec(ctx, `UPDATE marker_values SET canonical_name = $2 WHERE canonical_name = $1`, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to rename marker: %w", err)
	}

	changed := int(tag.RowsAffected())

	_, err = tx.Exec(ctx,
		`INSERT INTO marker_merges (source_name, target_name, rows_changed) VALUES ($1, $2, $3)`,
		from, to, changed)
	if err != nil {
		return 0, fmt.Errorf("failed to record marker merge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit marker merge: %w", err)
	}

	logger.Info("Merged marker", "from", from, "to", to, "rows", changed)

	return changed, nil
}

// ListMarkerMerges returns accepted merges, newest first.
func ListMarkerMerges(ctx context.Context) ([]MarkerMerge, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	rows, err := pool.Query(ctx, `
		SELECT id, source_name, target_name, rows_changed, created_at
		FROM marker_merges
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list marker merges: %w", err)
	}

	merges, err := pgx.CollectRows(rows, pgx.RowToStructByName[MarkerMerge])
	if err != nil {
		return nil, fmt.Errorf("failed to collect marker merges: %w", err)
	}

	return merges, nil
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.Warn("Failed to roll back transaction", "error", err)
	}
}

func clampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
