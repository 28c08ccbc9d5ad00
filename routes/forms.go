/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/google/uuid"

	"github.com/humaidq/trtlog/db"
)

const dateLayout = "2006-01-02"

// parseDate reads a YYYY-MM-DD form value.
func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errMissingDate
	}

	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", errInvalidDate, err)
	}

	if parsed.Year() < 1900 || parsed.Year() > 2200 {
		return time.Time{}, errYearOutOfRange
	}

	return parsed, nil
}

// parseOptionalDate is parseDate that accepts an empty value.
func parseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil //nolint:nilnil // An empty field means no date.
	}

	parsed, err := parseDate(value)
	if err != nil {
		return nil, err
	}

	return &parsed, nil
}

// parseFloat accepts both "12.5" and the "12,5" decimal comma.
func parseFloat(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ",", ".")

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidNumber, value)
	}

	return f, nil
}

func parseOptionalFloat(value string) (*float64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil //nolint:nilnil // An empty field means no value.
	}

	f, err := parseFloat(value)
	if err != nil {
		return nil, err
	}

	return &f, nil
}

func parseUUIDParam(c flamego.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", errInvalidID, err)
	}

	return id, nil
}

func parseAnnotationsForm(form url.Values) (db.AnnotationsInput, error) {
	dose, err := parseOptionalFloat(form.Get("dose_mg_per_week"))
	if err != nil {
		return db.AnnotationsInput{}, err
	}

	return db.AnnotationsInput{
		DoseMgPerWeek:  dose,
		Protocol:       strings.TrimSpace(form.Get("protocol")),
		Supplements:    strings.TrimSpace(form.Get("supplements")),
		Symptoms:       strings.TrimSpace(form.Get("symptoms")),
		Notes:          strings.TrimSpace(form.Get("notes")),
		SamplingTiming: strings.TrimSpace(form.Get("sampling_timing")),
	}, nil
}

// parseMarkerRows reads the repeated marker_* fields of the report form.
// Rows with neither a label nor a value are skipped.
func parseMarkerRows(form url.Values) ([]db.MarkerInput, error) {
	labels := form["marker_label"]
	values := form["marker_value"]
	units := form["marker_unit"]
	refMins := form["marker_ref_min"]
	refMaxs := form["marker_ref_max"]

	if len(values) != len(labels) || len(units) != len(labels) ||
		len(refMins) != len(labels) || len(refMaxs) != len(labels) {
		return nil, errMismatchedMarkers
	}

	rows := make([]db.MarkerInput, 0, len(labels))

	for i := range labels {
		label := strings.TrimSpace(labels[i])
		if label == "" && strings.TrimSpace(values[i]) == "" {
			continue
		}

		row, err := parseMarkerRow(label, values[i], units[i], refMins[i], refMaxs[i])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, errNoMarkerRows
	}

	return rows, nil
}

func parseMarkerRow(label, value, unit, refMin, refMax string) (db.MarkerInput, error) {
	v, err := parseFloat(value)
	if err != nil {
		return db.MarkerInput{}, err
	}

	lo, err := parseOptionalFloat(refMin)
	if err != nil {
		return db.MarkerInput{}, err
	}

	hi, err := parseOptionalFloat(refMax)
	if err != nil {
		return db.MarkerInput{}, err
	}

	return db.MarkerInput{
		Label:      strings.TrimSpace(label),
		Value:      v,
		Unit:       strings.TrimSpace(unit),
		RefMin:     lo,
		RefMax:     hi,
		Confidence: 1,
	}, nil
}
