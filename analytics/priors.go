/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import "sync"

// DosePrior is a population dose-response line taken from published
// studies. It is informational and never a fit of the user's data.
type DosePrior struct {
	Marker    string  `json:"marker"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Unit      string  `json:"unit"`
	Citation  string  `json:"citation"`
}

// PredictAt evaluates the prior line at a weekly dose.
func (p DosePrior) PredictAt(dose float64) float64 {
	return p.Intercept + p.Slope*dose
}

// Priors are stored in EU units per mg/week of testosterone ester.
func dosePriorDefinitions() []DosePrior {
	return []DosePrior{
		{
			Marker: MarkerTestosterone, Slope: 0.12, Intercept: 5.0,
			Citation: "Bhasin et al., Am J Physiol Endocrinol Metab 2001 (25-600 mg/week enanthate)",
		},
		{
			Marker: MarkerFreeTestosterone, Slope: 2.6, Intercept: 90,
			Citation: "Bhasin et al., Am J Physiol Endocrinol Metab 2001 (25-600 mg/week enanthate)",
		},
		{
			Marker: MarkerEstradiol, Slope: 0.9, Intercept: 40,
			Citation: "Finkelstein et al., N Engl J Med 2013 (graded testosterone dosing)",
		},
		{
			Marker: MarkerHematocrit, Slope: 0.00025, Intercept: 0.42,
			Citation: "Coviello et al., J Clin Endocrinol Metab 2008 (dose-dependent erythropoiesis)",
		},
		{
			Marker: MarkerSHBG, Slope: -0.04, Intercept: 34,
			Citation: "Bhasin et al., Am J Physiol Endocrinol Metab 2001 (25-600 mg/week enanthate)",
		},
	}
}

var loadDosePriors = sync.OnceValue(func() map[string]DosePrior {
	priors := make(map[string]DosePrior)
	for _, p := range dosePriorDefinitions() {
		priors[p.Marker] = p
	}

	return priors
})

// LookupDosePrior returns the literature prior for marker, expressed in
// the requested unit system.
func LookupDosePrior(marker string, system UnitSystem) (DosePrior, bool) {
	prior, ok := loadDosePriors()[marker]
	if !ok {
		return DosePrior{}, false
	}

	def, ok := LookupMarker(marker)
	if !ok {
		return DosePrior{}, false
	}

	prior.Unit = def.EUUnit

	if system == UnitSystemUS {
		// US = EU*Factor + Offset, so the slope scales and the offset rides
		// on the intercept.
		prior.Slope *= def.Factor
		prior.Intercept = prior.Intercept*def.Factor + def.Offset
		prior.Unit = def.USUnit
	}

	return prior, true
}
