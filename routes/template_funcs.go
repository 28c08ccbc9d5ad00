/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	htmltemplate "html/template"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TemplateFuncs returns the helpers available to every template.
func TemplateFuncs() htmltemplate.FuncMap {
	return htmltemplate.FuncMap{
		"formatFloat":    formatFloat,
		"formatOptional": formatOptional,
		"formatDate":     formatDate,
		"inputDate":      inputDate,
		"markerPath":     markerPath,
		"percent":        percent,
	}
}

// formatFloat prints lab values with precision that suits their magnitude.
func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}

	decimals := 3

	switch abs := math.Abs(v); {
	case abs >= 100:
		decimals = 1
	case abs >= 1:
		decimals = 2
	}

	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}

	return s
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}

	return formatFloat(*v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format("Jan 2, 2006")
}

// inputDate formats a date for <input type="date">. It accepts a value or
// pointer so optional dates can be passed directly.
func inputDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return ""
		}

		return t.Format(dateLayout)
	case *time.Time:
		if t == nil {
			return ""
		}

		return t.Format(dateLayout)
	}

	return ""
}

func markerPath(name string) string {
	return "/markers/" + url.PathEscape(name)
}

func percent(v float64) string {
	return formatFloat(v*100) + "%"
}
