/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/humaidq/trtlog/analytics"
)

// ReferenceRangeDefinition is a reference range synced to the database.
// Bounds are in the marker's EU unit.
type ReferenceRangeDefinition struct {
	TestName     string
	AgeRange     AgeRange
	Gender       Gender
	ReferenceMin *float64
	ReferenceMax *float64
	OptimalMin   *float64
	OptimalMax   *float64
}

func ptr(f float64) *float64 {
	return &f
}

// allAges expands one definition over every age bucket.
func allAges(marker string, gender Gender, refMin, refMax, optMin, optMax *float64) []ReferenceRangeDefinition {
	defs := make([]ReferenceRangeDefinition, 0, 3)
	for _, age := range []AgeRange{AgeAdult, AgeMiddleAge, AgeSenior} {
		defs = append(defs, ReferenceRangeDefinition{
			TestName: marker, AgeRange: age, Gender: gender,
			ReferenceMin: refMin, ReferenceMax: refMax,
			OptimalMin: optMin, OptimalMax: optMax,
		})
	}

	return defs
}

// GetReferenceRangeDefinitions returns every range to be synced. This list
// is the source of truth; the table is rewritten from it at startup.
func GetReferenceRangeDefinitions() []ReferenceRangeDefinition {
	defs := []ReferenceRangeDefinition{
		// ===== TESTOSTERONE (nmol/L) =====
		// Male ranges drift down with age; optimal reflects typical TRT targets.
		{
			TestName: analytics.MarkerTestosterone, AgeRange: AgeAdult, Gender: GenderMale,
			ReferenceMin: ptr(8.6), ReferenceMax: ptr(29.0),
			OptimalMin: ptr(15.0), OptimalMax: ptr(28.0),
		},
		{
			TestName: analytics.MarkerTestosterone, AgeRange: AgeMiddleAge, Gender: GenderMale,
			ReferenceMin: ptr(7.5), ReferenceMax: ptr(26.0),
			OptimalMin: ptr(14.0), OptimalMax: ptr(26.0),
		},
		{
			TestName: analytics.MarkerTestosterone, AgeRange: AgeSenior, Gender: GenderMale,
			ReferenceMin: ptr(6.7), ReferenceMax: ptr(25.8),
			OptimalMin: ptr(12.0), OptimalMax: ptr(25.0),
		},

		// ===== FREE TESTOSTERONE (pmol/L) =====
		{
			TestName: analytics.MarkerFreeTestosterone, AgeRange: AgeAdult, Gender: GenderMale,
			ReferenceMin: ptr(170), ReferenceMax: ptr(660),
			OptimalMin: ptr(300), OptimalMax: ptr(600),
		},
		{
			TestName: analytics.MarkerFreeTestosterone, AgeRange: AgeMiddleAge, Gender: GenderMale,
			ReferenceMin: ptr(150), ReferenceMax: ptr(580),
			OptimalMin: ptr(250), OptimalMax: ptr(550),
		},
		{
			TestName: analytics.MarkerFreeTestosterone, AgeRange: AgeSenior, Gender: GenderMale,
			ReferenceMin: ptr(120), ReferenceMax: ptr(500),
			OptimalMin: ptr(200), OptimalMax: ptr(480),
		},

		// ===== SHBG (nmol/L) =====
		// Rises with age in men.
		{
			TestName: analytics.MarkerSHBG, AgeRange: AgeAdult, Gender: GenderMale,
			ReferenceMin: ptr(18), ReferenceMax: ptr(54),
		},
		{
			TestName: analytics.MarkerSHBG, AgeRange: AgeMiddleAge, Gender: GenderMale,
			ReferenceMin: ptr(20), ReferenceMax: ptr(60),
		},
		{
			TestName: analytics.MarkerSHBG, AgeRange: AgeSenior, Gender: GenderMale,
			ReferenceMin: ptr(25), ReferenceMax: ptr(70),
		},

		// ===== PSA (ug/L) =====
		// Age-specific upper limits.
		{
			TestName: analytics.MarkerPSA, AgeRange: AgeAdult, Gender: GenderMale,
			ReferenceMin: ptr(0), ReferenceMax: ptr(2.5),
		},
		{
			TestName: analytics.MarkerPSA, AgeRange: AgeMiddleAge, Gender: GenderMale,
			ReferenceMin: ptr(0), ReferenceMax: ptr(3.5),
		},
		{
			TestName: analytics.MarkerPSA, AgeRange: AgeSenior, Gender: GenderMale,
			ReferenceMin: ptr(0), ReferenceMax: ptr(4.5),
		},
	}

	// Age-independent ranges.
	defs = append(defs, allAges(analytics.MarkerTestosterone, GenderFemale, ptr(0.29), ptr(1.67), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerFreeTestosterone, GenderFemale, ptr(3), ptr(33), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerSHBG, GenderFemale, ptr(26), ptr(110), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerEstradiol, GenderMale, ptr(40), ptr(160), ptr(70), ptr(130))...)
	defs = append(defs, allAges(analytics.MarkerFreeAndrogenIndex, GenderMale, ptr(30), ptr(150), nil, nil)...)

	// Hematocrit (L/L): keep well below 0.54 on TRT.
	defs = append(defs, allAges(analytics.MarkerHematocrit, GenderMale, ptr(0.40), ptr(0.54), ptr(0.42), ptr(0.50))...)
	defs = append(defs, allAges(analytics.MarkerHematocrit, GenderFemale, ptr(0.36), ptr(0.46), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerHemoglobin, GenderMale, ptr(8.5), ptr(11.0), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerHemoglobin, GenderFemale, ptr(7.5), ptr(10.0), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerRedBloodCells, GenderMale, ptr(4.35), ptr(5.65), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerPlatelets, GenderUnisex, ptr(150), ptr(400), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerWhiteBloodCells, GenderUnisex, ptr(4.0), ptr(10.0), nil, nil)...)

	// Pituitary (U/L, mU/L); suppressed LH and FSH are expected on TRT.
	defs = append(defs, allAges(analytics.MarkerLH, GenderMale, ptr(1.7), ptr(8.6), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerFSH, GenderMale, ptr(1.5), ptr(12.4), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerProlactin, GenderMale, ptr(86), ptr(324), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerTSH, GenderUnisex, ptr(0.4), ptr(4.0), ptr(0.5), ptr(2.5))...)

	// Lipids (mmol/L).
	defs = append(defs, allAges(analytics.MarkerTotalCholesterol, GenderUnisex, nil, ptr(5.0), nil, ptr(4.5))...)
	defs = append(defs, allAges(analytics.MarkerLDLCholesterol, GenderUnisex, nil, ptr(3.0), nil, ptr(2.6))...)
	defs = append(defs, allAges(analytics.MarkerHDLCholesterol, GenderMale, ptr(1.0), nil, ptr(1.3), nil)...)
	defs = append(defs, allAges(analytics.MarkerHDLCholesterol, GenderFemale, ptr(1.2), nil, ptr(1.5), nil)...)
	defs = append(defs, allAges(analytics.MarkerTriglycerides, GenderUnisex, nil, ptr(1.7), nil, ptr(1.1))...)

	// Metabolic and organ function.
	defs = append(defs, allAges(analytics.MarkerGlucose, GenderUnisex, ptr(3.9), ptr(5.6), ptr(4.0), ptr(5.3))...)
	defs = append(defs, allAges(analytics.MarkerHbA1c, GenderUnisex, ptr(20), ptr(42), nil, ptr(38))...)
	defs = append(defs, allAges(analytics.MarkerCreatinine, GenderMale, ptr(64), ptr(104), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerCreatinine, GenderFemale, ptr(49), ptr(90), nil, nil)...)
	defs = append(defs, allAges(analytics.MarkerALT, GenderMale, ptr(0), ptr(45), nil, ptr(30))...)
	defs = append(defs, allAges(analytics.MarkerAST, GenderUnisex, ptr(0), ptr(35), nil, ptr(30))...)
	defs = append(defs, allAges(analytics.MarkerAlbumin, GenderUnisex, ptr(35), ptr(52), nil, nil)...)

	// Vitamins and minerals.
	defs = append(defs, allAges(analytics.MarkerVitaminD, GenderUnisex, ptr(50), ptr(125), ptr(75), ptr(125))...)
	defs = append(defs, allAges(analytics.MarkerFerritin, GenderMale, ptr(30), ptr(400), ptr(50), ptr(200))...)
	defs = append(defs, allAges(analytics.MarkerFerritin, GenderFemale, ptr(15), ptr(150), nil, nil)...)

	return defs
}

// SyncReferenceRanges upserts every definition into reference_ranges.
func SyncReferenceRanges(ctx context.Context) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	definitions := GetReferenceRangeDefinitions()
	logger.Infof("Syncing %d reference range definitions to database...", len(definitions))

	query := `
		INSERT INTO reference_ranges (test_name, age_range, gender, reference_min, reference_max, optimal_min, optimal_max)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (test_name, age_range, gender)
		DO UPDATE SET
			reference_min = EXCLUDED.reference_min,
			reference_max = EXCLUDED.reference_max,
			optimal_min = EXCLUDED.optimal_min,
			optimal_max = EXCLUDED.optimal_max,
			updated_at = now()
	`

	batch := &pgx.Batch{}
	for _, def := range definitions {
		batch.Queue(query,
			def.TestName, string(def.AgeRange), string(def.Gender),
			def.ReferenceMin, def.ReferenceMax,
			def.OptimalMin, def.OptimalMax,
		)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to sync reference ranges: %w", err)
	}

	logger.Infof("Successfully synced %d reference ranges", len(definitions))

	return nil
}

// GetReferenceRange returns the range for a marker, preferring a
// sex-specific row over a unisex one. It returns nil when none exists.
func GetReferenceRange(ctx context.Context, testName string, ageRange AgeRange, gender Gender) (*ReferenceRange, error) {
	if pool == nil {
		return nil, ErrDatabaseConnectionNotInitialized
	}

	query := `
		SELECT id, test_name, age_range, gender, reference_min, reference_max, optimal_min, optimal_max, created_at, updated_at
		FROM reference_ranges
		WHERE test_name = $1 AND age_range::text = $2 AND gender::text = ANY($3::text[])
		ORDER BY (gender = 'Unisex') ASC
		LIMIT 1
	`

	genders := []string{string(GenderUnisex)}
	if gender != "" && gender != GenderUnisex {
		genders = append(genders, string(gender))
	}

	var (
		rr                ReferenceRange
		ageStr, genderStr string
	)

	err := pool.QueryRow(ctx, query, testName, string(ageRange), genders).Scan(
		&rr.ID, &rr.TestName, &ageStr, &genderStr,
		&rr.ReferenceMin, &rr.ReferenceMax,
		&rr.OptimalMin, &rr.OptimalMax,
		&rr.CreatedAt, &rr.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // Missing reference ranges are expected for some markers.
		}

		return nil, fmt.Errorf("failed to get reference range: %w", err)
	}

	rr.AgeRange = AgeRange(ageStr)
	rr.Gender = Gender(genderStr)

	return &rr, nil
}

// ConvertedReferenceRange returns the stored range for a marker with every
// bound converted into the requested unit system, for a person of the given
// sex and date of birth on date at. It returns nil when none exists.
func ConvertedReferenceRange(ctx context.Context, marker string, system analytics.UnitSystem, sex *Gender, dob *time.Time, at time.Time) (*ReferenceRange, error) {
	gender := GenderUnisex
	if sex != nil {
		gender = *sex
	}

	rr, err := GetReferenceRange(ctx, marker, AgeRangeAt(dob, at), gender)
	if err != nil || rr == nil {
		return nil, err
	}

	def, ok := analytics.LookupMarker(marker)
	if !ok {
		return rr, nil
	}

	convert := func(v *float64) *float64 {
		if v == nil {
			return nil
		}

		return ptr(analytics.ConvertBySystem(marker, *v, def.EUUnit, system).Value)
	}

	rr.ReferenceMin = convert(rr.ReferenceMin)
	rr.ReferenceMax = convert(rr.ReferenceMax)
	rr.OptimalMin = convert(rr.OptimalMin)
	rr.OptimalMax = convert(rr.OptimalMax)

	return rr, nil
}

// DefaultReferenceRange returns the converted reference bounds used to fill
// marker rows that arrive without a range.
func DefaultReferenceRange(ctx context.Context, marker string, system analytics.UnitSystem, sex *Gender, dob *time.Time, at time.Time) (refMin, refMax *float64, err error) {
	rr, err := ConvertedReferenceRange(ctx, marker, system, sex, dob, at)
	if err != nil || rr == nil {
		return nil, nil, err
	}

	return rr.ReferenceMin, rr.ReferenceMax, nil
}
