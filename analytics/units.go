/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"github.com/google/uuid"
)

// Measurement is a value with its unit label.
type Measurement struct {
	Value float64
	Unit  string
}

// RawMeasurement is an extracted or hand-edited row before normalization.
type RawMeasurement struct {
	ID         uuid.UUID
	Label      string
	Value      float64
	Unit       string
	RefMin     *float64
	RefMax     *float64
	Confidence float64
}

// ConvertBySystem converts value into the target system's unit for a
// canonical marker. Unknown markers and unrecognised units pass through
// unchanged so they still display.
func ConvertBySystem(marker string, value float64, sourceUnit string, target UnitSystem) Measurement {
	def, ok := LookupMarker(marker)
	if !ok || !def.Convertible() {
		return Measurement{Value: value, Unit: sourceUnit}
	}

	eu, us := unitSystemOf(marker, sourceUnit)

	switch target {
	case UnitSystemUS:
		if us {
			return Measurement{Value: value, Unit: def.USUnit}
		}

		if eu {
			return Measurement{Value: value*def.Factor + def.Offset, Unit: def.USUnit}
		}
	default:
		if eu {
			return Measurement{Value: value, Unit: def.EUUnit}
		}

		if us {
			return Measurement{Value: (value - def.Offset) / def.Factor, Unit: def.EUUnit}
		}
	}

	return Measurement{Value: value, Unit: sourceUnit}
}

// convertRange converts optional bounds with the same rule as the value.
func convertRange(marker string, refMin, refMax *float64, sourceUnit string, target UnitSystem) (*float64, *float64) {
	var outMin, outMax *float64

	if refMin != nil {
		outMin = floatPtr(ConvertBySystem(marker, *refMin, sourceUnit, target).Value)
	}

	if refMax != nil {
		outMax = floatPtr(ConvertBySystem(marker, *refMax, sourceUnit, target).Value)
	}

	return outMin, outMax
}

// NormalizeMarkerMeasurement canonicalizes the label and converts the
// value and reference range into the target system together.
func NormalizeMarkerMeasurement(raw RawMeasurement, target UnitSystem) MarkerValue {
	canonical := CanonicalizeMarker(raw.Label)

	converted := ConvertBySystem(canonical, raw.Value, raw.Unit, target)
	refMin, refMax := convertRange(canonical, raw.RefMin, raw.RefMax, raw.Unit, target)

	id := raw.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	mv := MarkerValue{
		ID:            id,
		RawLabel:      collapseSpaces(raw.Label),
		CanonicalName: canonical,
		Confidence:    clamp(raw.Confidence, 0, 1),
	}
	mv.SetValue(converted.Value, converted.Unit)
	mv.SetReferenceRange(refMin, refMax)

	return mv
}

// ConvertMarkerValue returns a copy of mv with its value and reference
// range expressed in the target system.
func ConvertMarkerValue(mv MarkerValue, target UnitSystem) MarkerValue {
	name := markerName(mv)

	converted := ConvertBySystem(name, mv.Value, mv.Unit, target)
	refMin, refMax := convertRange(name, mv.RefMin, mv.RefMax, mv.Unit, target)

	mv.SetValue(converted.Value, converted.Unit)
	mv.SetReferenceRange(refMin, refMax)

	return mv
}
