/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldText lowercases s and strips diacritics ("Hématocrite" -> "hematocrite").
// Transformers are stateful, so a fresh chain is built per call.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	return cases.Fold().String(folded)
}

// collapseSpaces trims s and reduces inner whitespace runs to one space.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// nameKey is the lookup key for marker labels: folded, punctuation
// replaced by spaces, whitespace collapsed.
func nameKey(s string) string {
	folded := foldText(s)

	var b strings.Builder
	b.Grow(len(folded))

	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	return collapseSpaces(b.String())
}

// unitKey is the lookup key for unit strings. Micro signs are spelled "u"
// and "mcg" is treated as "ug".
func unitKey(s string) string {
	s = strings.NewReplacer("µ", "u", "μ", "u", "×", "x").Replace(strings.TrimSpace(s))
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	s = strings.ReplaceAll(s, "mcg", "ug")

	return s
}
