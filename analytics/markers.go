/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"sort"
	"sync"
)

// Canonical marker names referenced by the analyses.
const (
	MarkerTestosterone      = "Testosterone"
	MarkerFreeTestosterone  = "Free Testosterone"
	MarkerFreeAndrogenIndex = "Free Androgen Index"
	MarkerEstradiol         = "Estradiol"
	MarkerSHBG              = "SHBG"
	MarkerHematocrit        = "Hematocrit"
	MarkerHemoglobin        = "Hemoglobin"
	MarkerAlbumin           = "Albumin"
	MarkerLH                = "LH"
	MarkerFSH               = "FSH"
	MarkerProlactin         = "Prolactin"
	MarkerPSA               = "PSA"
	MarkerDHT               = "DHT"
	MarkerTotalCholesterol  = "Total Cholesterol"
	MarkerLDLCholesterol    = "LDL Cholesterol"
	MarkerHDLCholesterol    = "HDL Cholesterol"
	MarkerTriglycerides     = "Triglycerides"
	MarkerGlucose           = "Glucose"
	MarkerHbA1c             = "HbA1c"
	MarkerCreatinine        = "Creatinine"
	MarkerALT               = "ALT"
	MarkerAST               = "AST"
	MarkerVitaminD          = "Vitamin D"
	MarkerFerritin          = "Ferritin"
	MarkerTSH               = "TSH"
	MarkerCortisol          = "Cortisol"
	MarkerDHEAS             = "DHEA-S"
	MarkerRedBloodCells     = "Red Blood Cells"
	MarkerPlatelets         = "Platelets"
	MarkerWhiteBloodCells   = "White Blood Cells"
)

// MarkerCategory groups markers for display.
type MarkerCategory string

// MarkerCategory values.
const (
	CategoryHormones   MarkerCategory = "Hormones"
	CategoryHematology MarkerCategory = "Hematology"
	CategoryLipids     MarkerCategory = "Lipids"
	CategoryMetabolic  MarkerCategory = "Metabolic"
	CategoryLiver      MarkerCategory = "Liver"
	CategoryVitamins   MarkerCategory = "Vitamins & Minerals"
	CategoryOther      MarkerCategory = "Other"
)

// MarkerDefinition describes a canonical marker and its unit pair.
// US values are EU values times Factor plus Offset.
type MarkerDefinition struct {
	Name     string
	Category MarkerCategory
	EUUnit   string
	USUnit   string
	Factor   float64
	Offset   float64

	aliases   []string
	euAliases []string
	usAliases []string
}

// Convertible reports whether the definition carries a usable factor.
func (d MarkerDefinition) Convertible() bool {
	return d.Factor != 0
}

// UnitFor returns the display unit for the given system.
func (d MarkerDefinition) UnitFor(system UnitSystem) string {
	if system == UnitSystemUS {
		return d.USUnit
	}

	return d.EUUnit
}

func markerDefinitions() []MarkerDefinition {
	return []MarkerDefinition{
		// ===== Hormones =====
		{
			Name: MarkerTestosterone, Category: CategoryHormones,
			EUUnit: "nmol/L", USUnit: "ng/dL", Factor: 28.842,
			aliases: []string{
				"total testosterone", "testosterone total", "testosterone, total", "testosterone (total)",
				"serum testosterone", "testosterone serum", "testosterone lc-ms/ms", "tt",
				"testosteron", "testosteron totaal", "totaal testosteron", "testosteron (totaal)",
				"testosteron serum", "testosteron, totaal",
			},
		},
		{
			Name: MarkerFreeTestosterone, Category: CategoryHormones,
			EUUnit: "pmol/L", USUnit: "pg/mL", Factor: 0.28842,
			usAliases: []string{"ng/L"},
			aliases: []string{
				"testosterone free", "testosterone, free", "free t", "ft", "free testosterone (calculated)",
				"calculated free testosterone", "free testosterone calc", "free testosterone direct",
				"vrij testosteron", "testosteron vrij", "testosteron, vrij", "berekend vrij testosteron",
				"vrij testosteron (berekend)",
			},
		},
		{
			Name: MarkerFreeAndrogenIndex, Category: CategoryHormones,
			EUUnit: "%", USUnit: "%", Factor: 1,
			aliases: []string{"fai", "free androgen index (fai)", "vrije androgeen index"},
		},
		{
			Name: MarkerEstradiol, Category: CategoryHormones,
			EUUnit: "pmol/L", USUnit: "pg/mL", Factor: 0.27238,
			usAliases: []string{"ng/L"},
			aliases: []string{
				"oestradiol", "e2", "estradiol (e2)", "oestradiol (e2)", "17-beta estradiol", "17 beta-estradiol",
				"17b-estradiol", "estradiol sensitive", "sensitive estradiol", "estradiol ultrasensitive",
				"estradiol lc-ms/ms", "estradiol, serum", "oestradiol serum", "17-beta oestradiol",
			},
		},
		{
			Name: MarkerSHBG, Category: CategoryHormones,
			EUUnit: "nmol/L", USUnit: "nmol/L", Factor: 1,
			aliases: []string{
				"sex hormone binding globulin", "sex hormone-binding globulin", "shbg serum",
				"geslachtshormoon bindend globuline", "sekshormoon bindend globuline",
				"sexhormoon bindend globuline", "sex hormoon bindend globuline",
			},
		},
		{
			Name: MarkerLH, Category: CategoryHormones,
			EUUnit: "U/L", USUnit: "mIU/mL", Factor: 1,
			euAliases: []string{"IU/L"}, usAliases: []string{"mU/mL"},
			aliases: []string{"luteinizing hormone", "luteinising hormone", "luteiniserend hormoon", "lh serum"},
		},
		{
			Name: MarkerFSH, Category: CategoryHormones,
			EUUnit: "U/L", USUnit: "mIU/mL", Factor: 1,
			euAliases: []string{"IU/L"}, usAliases: []string{"mU/mL"},
			aliases: []string{"follicle stimulating hormone", "follicle-stimulating hormone", "follikel stimulerend hormoon"},
		},
		{
			Name: MarkerProlactin, Category: CategoryHormones,
			EUUnit: "mU/L", USUnit: "ng/mL", Factor: 0.04717,
			euAliases: []string{"mIU/L"}, usAliases: []string{"ug/L"},
			aliases: []string{"prolactine", "prl"},
		},
		{
			Name: MarkerDHT, Category: CategoryHormones,
			EUUnit: "nmol/L", USUnit: "ng/dL", Factor: 29.04,
			aliases: []string{"dihydrotestosterone", "dihydrotestosteron", "5-alpha dihydrotestosterone"},
		},
		{
			Name: MarkerCortisol, Category: CategoryHormones,
			EUUnit: "nmol/L", USUnit: "ug/dL", Factor: 0.03625,
			aliases: []string{"cortisol serum", "cortisol (ochtend)", "morning cortisol"},
		},
		{
			Name: MarkerDHEAS, Category: CategoryHormones,
			EUUnit: "umol/L", USUnit: "ug/dL", Factor: 36.81,
			aliases: []string{"dheas", "dhea sulfate", "dhea sulphate", "dhea-so4", "dehydroepiandrosterone sulfate"},
		},
		{
			Name: MarkerTSH, Category: CategoryHormones,
			EUUnit: "mU/L", USUnit: "uIU/mL", Factor: 1,
			euAliases: []string{"mIU/L"},
			aliases: []string{"thyroid stimulating hormone", "thyrotropin", "thyreotropine", "tsh serum"},
		},
		{
			Name: MarkerPSA, Category: CategoryOther,
			EUUnit: "ug/L", USUnit: "ng/mL", Factor: 1,
			aliases: []string{"prostate specific antigen", "psa total", "total psa", "totaal psa", "psa totaal", "prostaat specifiek antigeen"},
		},

		// ===== Hematology =====
		{
			Name: MarkerHematocrit, Category: CategoryHematology,
			EUUnit: "L/L", USUnit: "%", Factor: 100,
			aliases: []string{"haematocrit", "hct", "ht", "hematocriet", "packed cell volume", "pcv"},
		},
		{
			Name: MarkerHemoglobin, Category: CategoryHematology,
			EUUnit: "mmol/L", USUnit: "g/dL", Factor: 1.6114,
			aliases: []string{"haemoglobin", "hb", "hgb", "hemoglobine", "haemoglobine"},
		},
		{
			Name: MarkerRedBloodCells, Category: CategoryHematology,
			EUUnit: "x10^12/L", USUnit: "x10^6/uL", Factor: 1,
			aliases: []string{"red blood cells", "rbc", "erythrocytes", "erytrocyten", "erythrocyten"},
		},
		{
			Name: MarkerWhiteBloodCells, Category: CategoryHematology,
			EUUnit: "x10^9/L", USUnit: "x10^3/uL", Factor: 1,
			aliases: []string{"wbc", "leukocytes", "leukocyten", "leucocyten", "white blood cell count"},
		},
		{
			Name: MarkerPlatelets, Category: CategoryHematology,
			EUUnit: "x10^9/L", USUnit: "x10^3/uL", Factor: 1,
			aliases: []string{"plt", "thrombocytes", "trombocyten", "thrombocyten", "platelet count"},
		},

		// ===== Lipids =====
		{
			Name: MarkerTotalCholesterol, Category: CategoryLipids,
			EUUnit: "mmol/L", USUnit: "mg/dL", Factor: 38.67,
			aliases: []string{"cholesterol", "cholesterol total", "cholesterol, total", "totaal cholesterol", "cholesterol totaal"},
		},
		{
			Name: MarkerLDLCholesterol, Category: CategoryLipids,
			EUUnit: "mmol/L", USUnit: "mg/dL", Factor: 38.67,
			aliases: []string{"ldl", "ldl-c", "ldl cholesterol calculated", "ldl cholesterol (berekend)", "ldl-cholesterol"},
		},
		{
			Name: MarkerHDLCholesterol, Category: CategoryLipids,
			EUUnit: "mmol/L", USUnit: "mg/dL", Factor: 38.67,
			aliases: []string{"hdl", "hdl-c", "hdl-cholesterol"},
		},
		{
			Name: MarkerTriglycerides, Category: CategoryLipids,
			EUUnit: "mmol/L", USUnit: "mg/dL", Factor: 88.57,
			aliases: []string{"triglyceriden", "tg", "triglyceride", "triacylglycerol"},
		},

		// ===== Metabolic =====
		{
			Name: MarkerGlucose, Category: CategoryMetabolic,
			EUUnit: "mmol/L", USUnit: "mg/dL", Factor: 18.016,
			aliases: []string{"fasting glucose", "glucose fasting", "glucose nuchter", "nuchtere glucose", "glucose (nuchter)"},
		},
		{
			// NGSP % = 0.09148 x IFCC mmol/mol + 2.152
			Name: MarkerHbA1c, Category: CategoryMetabolic,
			EUUnit: "mmol/mol", USUnit: "%", Factor: 0.09148, Offset: 2.152,
			aliases: []string{"hemoglobin a1c", "haemoglobin a1c", "glycated hemoglobin", "geglyceerd hemoglobine", "hba1c (ifcc)"},
		},
		{
			Name: MarkerCreatinine, Category: CategoryMetabolic,
			EUUnit: "umol/L", USUnit: "mg/dL", Factor: 0.01131,
			aliases: []string{"kreatinine", "creat", "creatinine serum", "kreatinine serum"},
		},

		// ===== Liver =====
		{
			Name: MarkerALT, Category: CategoryLiver,
			EUUnit: "U/L", USUnit: "U/L", Factor: 1,
			euAliases: []string{"IU/L"}, usAliases: []string{"IU/L"},
			aliases: []string{"alat", "sgpt", "alanine aminotransferase", "alat (gpt)", "sgpt (alt)"},
		},
		{
			Name: MarkerAST, Category: CategoryLiver,
			EUUnit: "U/L", USUnit: "U/L", Factor: 1,
			euAliases: []string{"IU/L"}, usAliases: []string{"IU/L"},
			aliases: []string{"asat", "sgot", "aspartate aminotransferase", "asat (got)", "sgot (ast)"},
		},
		{
			Name: MarkerAlbumin, Category: CategoryLiver,
			EUUnit: "g/L", USUnit: "g/dL", Factor: 0.1,
			aliases: []string{"albumine", "albumin serum", "albumine serum"},
		},

		// ===== Vitamins & Minerals =====
		{
			Name: MarkerVitaminD, Category: CategoryVitamins,
			EUUnit: "nmol/L", USUnit: "ng/mL", Factor: 0.4006,
			aliases: []string{"vitamine d", "25-oh vitamin d", "25-hydroxyvitamin d", "vitamin d3", "vitamine d3", "25-oh-d", "25(oh)d"},
		},
		{
			Name: MarkerFerritin, Category: CategoryVitamins,
			EUUnit: "ug/L", USUnit: "ng/mL", Factor: 1,
			aliases: []string{"ferritine", "ferritin serum"},
		},
	}
}

type markerIndex struct {
	byKey  map[string]int
	byName map[string]int
	defs   []MarkerDefinition
	euUnit []map[string]struct{}
	usUnit []map[string]struct{}
}

var loadMarkerIndex = sync.OnceValue(func() *markerIndex {
	defs := markerDefinitions()
	idx := &markerIndex{
		byKey:  make(map[string]int),
		byName: make(map[string]int, len(defs)),
		defs:   defs,
		euUnit: make([]map[string]struct{}, len(defs)),
		usUnit: make([]map[string]struct{}, len(defs)),
	}

	// Canonical names first so aliases can never shadow one.
	for i, def := range defs {
		idx.byName[def.Name] = i
		idx.byKey[nameKey(def.Name)] = i
	}

	for i, def := range defs {
		for _, alias := range def.aliases {
			key := nameKey(alias)
			if _, taken := idx.byKey[key]; !taken {
				idx.byKey[key] = i
			}
		}

		idx.euUnit[i] = unitSet(def.EUUnit, def.euAliases)
		idx.usUnit[i] = unitSet(def.USUnit, def.usAliases)
	}

	return idx
})

func unitSet(primary string, aliases []string) map[string]struct{} {
	set := map[string]struct{}{unitKey(primary): {}}
	for _, a := range aliases {
		set[unitKey(a)] = struct{}{}
	}

	return set
}

// CanonicalizeMarker maps a raw lab label to its canonical marker name.
// Unknown labels come back trimmed with whitespace collapsed.
func CanonicalizeMarker(raw string) string {
	trimmed := collapseSpaces(raw)

	key := nameKey(trimmed)
	if key == "" {
		return trimmed
	}

	idx := loadMarkerIndex()
	if i, ok := idx.byKey[key]; ok {
		return idx.defs[i].Name
	}

	return trimmed
}

// LookupMarker returns the definition for a canonical marker name.
func LookupMarker(name string) (MarkerDefinition, bool) {
	idx := loadMarkerIndex()

	i, ok := idx.byName[name]
	if !ok {
		return MarkerDefinition{}, false
	}

	return idx.defs[i], true
}

// KnownMarkers returns the canonical marker names, sorted.
func KnownMarkers() []string {
	idx := loadMarkerIndex()

	names := make([]string, 0, len(idx.defs))
	for _, def := range idx.defs {
		names = append(names, def.Name)
	}

	sort.Strings(names)

	return names
}

// MarkerCategoryOf returns the display category, CategoryOther if unknown.
func MarkerCategoryOf(name string) MarkerCategory {
	def, ok := LookupMarker(name)
	if !ok {
		return CategoryOther
	}

	return def.Category
}

// unitSystemOf reports which system a unit belongs to for a marker.
func unitSystemOf(name, unit string) (eu, us bool) {
	idx := loadMarkerIndex()

	i, ok := idx.byName[name]
	if !ok {
		return false, false
	}

	key := unitKey(unit)
	_, eu = idx.euUnit[i][key]
	_, us = idx.usUnit[i][key]

	return eu, us
}
