/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// StateSchemaVersion is the version written by EncodeState.
const StateSchemaVersion = 2

// Setting defaults.
const (
	DefaultStabilityWindowMonths = 12
	maxWindowSize                = 24
	maxStabilityWindowMonths     = 120
)

// Settings are the user preferences that influence analysis.
type Settings struct {
	UnitSystem            UnitSystem `json:"unitSystem"`
	ProtocolWindowSize    int        `json:"protocolWindowSize"`
	StabilityWindowMonths int        `json:"stabilityWindowMonths"`
	Sex                   string     `json:"sex,omitempty"`
	DateOfBirth           *time.Time `json:"dateOfBirth,omitempty"`
}

// DefaultSettings returns the settings used before the user changes any.
func DefaultSettings() Settings {
	return Settings{
		UnitSystem:            UnitSystemEU,
		ProtocolWindowSize:    ImpactDefaultWindow,
		StabilityWindowMonths: DefaultStabilityWindowMonths,
	}
}

// Normalized fills in defaults for missing or out-of-range fields.
func (s Settings) Normalized() Settings {
	s.UnitSystem = ParseUnitSystem(string(s.UnitSystem))

	if s.ProtocolWindowSize <= 0 || s.ProtocolWindowSize > maxWindowSize {
		s.ProtocolWindowSize = ImpactDefaultWindow
	}

	if s.StabilityWindowMonths <= 0 || s.StabilityWindowMonths > maxStabilityWindowMonths {
		s.StabilityWindowMonths = DefaultStabilityWindowMonths
	}

	return s
}

// State is the portable document holding every report and setting.
type State struct {
	SchemaVersion int         `json:"schemaVersion"`
	Settings      Settings    `json:"settings"`
	Reports       []LabReport `json:"reports"`
}

// DecodeState reads a state document, migrating older schema versions.
func DecodeState(r io.Reader) (State, error) {
	var state State

	dec := json.NewDecoder(r)
	if err := dec.Decode(&state); err != nil {
		return State{}, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	switch {
	case state.SchemaVersion > StateSchemaVersion:
		return State{}, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, state.SchemaVersion)
	case state.SchemaVersion < StateSchemaVersion:
		state = migrateV1(state)
	}

	state.Settings = state.Settings.Normalized()
	if state.Reports == nil {
		state.Reports = []LabReport{}
	}

	return state, nil
}

// EncodeState writes state at the current schema version.
func EncodeState(w io.Writer, state State) error {
	state.SchemaVersion = StateSchemaVersion
	state.Settings = state.Settings.Normalized()

	if state.Reports == nil {
		state.Reports = []LabReport{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(state); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return nil
}

// migrateV1 upgrades documents that predate canonical marker names and
// per-row identifiers.
func migrateV1(state State) State {
	reports := make([]LabReport, len(state.Reports))

	for i, report := range state.Reports {
		if report.ID == uuid.Nil {
			report.ID = uuid.New()
		}

		if report.CreatedAt.IsZero() {
			report.CreatedAt = report.TestDate
		}

		markers := make([]MarkerValue, len(report.Markers))
		for j, mv := range report.Markers {
			if mv.ID == uuid.Nil {
				mv.ID = uuid.New()
			}

			if mv.CanonicalName == "" {
				mv.CanonicalName = CanonicalizeMarker(mv.RawLabel)
			}

			if mv.Confidence == 0 {
				mv.Confidence = 1
			}

			markers[j] = mv
		}

		report.Markers = markers
		report.Annotations.SamplingTiming = ParseSamplingTiming(string(report.Annotations.SamplingTiming))
		reports[i] = report
	}

	state.Reports = reports
	state.SchemaVersion = StateSchemaVersion

	return state
}
