/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"math"

	"github.com/google/uuid"
)

// Vermeulen equation constants.
const (
	kaAlbumin            = 3.6e4 // L/mol
	ktSHBG               = 1e9   // L/mol
	albuminMolarMass     = 69000 // g/mol
	defaultAlbuminGPerL  = 43.0
	calculatedConfidence = 1.0
)

// FreeTestosteroneVermeulen returns free testosterone in pmol/L from total
// testosterone (nmol/L), SHBG (nmol/L) and albumin (g/L).
func FreeTestosteroneVermeulen(totalNmol, shbgNmol, albuminGPerL float64) (float64, bool) {
	if totalNmol <= 0 || shbgNmol < 0 || albuminGPerL <= 0 ||
		!isFinite(totalNmol) || !isFinite(shbgNmol) || !isFinite(albuminGPerL) {
		return 0, false
	}

	tt := totalNmol * 1e-9
	shbg := shbgNmol * 1e-9
	n := 1 + kaAlbumin*albuminGPerL/albuminMolarMass

	a := n * ktSHBG
	b := n + ktSHBG*(shbg-tt)
	c := -tt

	ft := (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
	if !isFinite(ft) || ft <= 0 {
		return 0, false
	}

	return ft * 1e12, true
}

// WithCalculatedMarkers returns a copy of report with derived markers
// (Free Testosterone, Free Androgen Index) appended when their inputs are
// present and the lab did not report them directly. Values are in EU units.
func WithCalculatedMarkers(report LabReport) LabReport {
	markers := make([]MarkerValue, len(report.Markers))
	copy(markers, report.Markers)
	report.Markers = markers

	tt, ttConf, okTT := euValue(report, MarkerTestosterone)
	shbg, shbgConf, okSHBG := euValue(report, MarkerSHBG)

	if !okTT || !okSHBG {
		return report
	}

	conf := math.Min(ttConf, shbgConf)

	if _, present := pickMarker(report, MarkerFreeTestosterone); !present {
		albumin, albConf, okAlb := euValue(report, MarkerAlbumin)
		if !okAlb {
			albumin = defaultAlbuminGPerL
		} else {
			conf = math.Min(conf, albConf)
		}

		if ft, ok := FreeTestosteroneVermeulen(tt, shbg, albumin); ok {
			report.Markers = append(report.Markers, calculatedMarker(report.ID, MarkerFreeTestosterone, ft, "pmol/L", conf))
		}
	}

	if _, present := pickMarker(report, MarkerFreeAndrogenIndex); !present && shbg > 0 {
		report.Markers = append(report.Markers, calculatedMarker(report.ID, MarkerFreeAndrogenIndex, 100*tt/shbg, "%", conf))
	}

	return report
}

// WithCalculatedMarkersAll applies WithCalculatedMarkers to every report.
func WithCalculatedMarkersAll(reports []LabReport) []LabReport {
	out := make([]LabReport, len(reports))
	for i, report := range reports {
		out[i] = WithCalculatedMarkers(report)
	}

	return out
}

func calculatedMarker(reportID uuid.UUID, name string, value float64, unit string, confidence float64) MarkerValue {
	return MarkerValue{
		// Deterministic so repeated projections agree on identity.
		ID:            uuid.NewSHA1(reportID, []byte(name)),
		RawLabel:      name + " (calculated)",
		CanonicalName: name,
		Value:         value,
		Unit:          unit,
		Confidence:    clamp(confidence, 0, calculatedConfidence),
		IsCalculated:  true,
	}
}

// euValue returns the marker value converted to its EU unit, failing when
// the stored unit is not recognised.
func euValue(report LabReport, marker string) (float64, float64, bool) {
	mv, ok := pickMarker(report, marker)
	if !ok {
		return 0, 0, false
	}

	def, ok := LookupMarker(marker)
	if !ok {
		return 0, 0, false
	}

	converted := ConvertBySystem(marker, mv.Value, mv.Unit, UnitSystemEU)
	if unitKey(converted.Unit) != unitKey(def.EUUnit) {
		return 0, 0, false
	}

	return converted.Value, mv.Confidence, true
}
