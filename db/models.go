/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"time"

	"github.com/google/uuid"
)

// Gender represents biological sex for reference ranges.
type Gender string

// Gender values.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderUnisex Gender = "Unisex" // ranges that don't vary by sex
)

// ParseGender maps form input to a Gender, nil when unset or unknown.
func ParseGender(s string) *Gender {
	switch g := Gender(s); g {
	case GenderMale, GenderFemale:
		return &g
	default:
		return nil
	}
}

// AgeRange buckets adults for reference ranges.
type AgeRange string

// AgeRange values.
const (
	AgeAdult     AgeRange = "Adult"     // up to 49
	AgeMiddleAge AgeRange = "MiddleAge" // 50-64
	AgeSenior    AgeRange = "Senior"    // 65+
)

// AgeAt returns whole years between dob and at, nil without a date of birth.
func AgeAt(dob *time.Time, at time.Time) *int {
	if dob == nil {
		return nil
	}

	years := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}

	return &years
}

// AgeRangeAt returns the age bucket at a date, defaulting to adult.
func AgeRangeAt(dob *time.Time, at time.Time) AgeRange {
	age := AgeAt(dob, at)

	switch {
	case age == nil || *age <= 49:
		return AgeAdult
	case *age <= 64:
		return AgeMiddleAge
	default:
		return AgeSenior
	}
}

// ReferenceRange holds reference and optimal bounds for a marker, in the
// marker's EU unit.
type ReferenceRange struct {
	ID           uuid.UUID `db:"id"`
	TestName     string    `db:"test_name"`
	AgeRange     AgeRange  `db:"age_range"`
	Gender       Gender    `db:"gender"`
	ReferenceMin *float64  `db:"reference_min"`
	ReferenceMax *float64  `db:"reference_max"`
	OptimalMin   *float64  `db:"optimal_min"`
	OptimalMax   *float64  `db:"optimal_max"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// GetDisplayRange fills missing optimal bounds from the reference bounds.
// hasOptimal is false when neither optimal bound is set.
func (r *ReferenceRange) GetDisplayRange() (refMin, refMax, optMin, optMax *float64, hasOptimal bool) {
	refMin = r.ReferenceMin
	refMax = r.ReferenceMax

	if r.OptimalMin == nil && r.OptimalMax == nil {
		return refMin, refMax, nil, nil, false
	}

	optMin = r.OptimalMin
	if optMin == nil {
		optMin = r.ReferenceMin
	}

	optMax = r.OptimalMax
	if optMax == nil {
		optMax = r.ReferenceMax
	}

	return refMin, refMax, optMin, optMax, true
}

// MarkerMerge records an accepted merge of one marker name into another.
type MarkerMerge struct {
	ID          uuid.UUID `db:"id"`
	SourceName  string    `db:"source_name"`
	TargetName  string    `db:"target_name"`
	RowsChanged int       `db:"rows_changed"`
	CreatedAt   time.Time `db:"created_at"`
}
