/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */
package analytics

import (
	"sort"
	"strings"
)

// Merge scoring weights and limits.
const (
	MergeThreshold        = 0.82
	mergeTokenWeight      = 0.65
	mergeBigramWeight     = 0.35
	mergeContainmentScore = 0.9
)

// MarkerMergeSuggestion proposes folding Source into Target.
type MarkerMergeSuggestion struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Score  float64 `json:"score"`
}

// MarkerNameSimilarity scores two marker names in [0,1]. It is symmetric.
func MarkerNameSimilarity(a, b string) float64 {
	ka, kb := nameKey(a), nameKey(b)

	switch {
	case ka == "" || kb == "":
		return 0
	case ka == kb:
		return 1
	case strings.Contains(ka, kb) || strings.Contains(kb, ka):
		return mergeContainmentScore
	}

	return mergeTokenWeight*jaccard(strings.Fields(ka), strings.Fields(kb)) +
		mergeBigramWeight*dice(bigrams(ka), bigrams(kb))
}

// DetectMarkerMergeSuggestions compares names not yet known against the
// existing canonical names and proposes the best match when it scores at
// least MergeThreshold.
func DetectMarkerMergeSuggestions(incoming, existing []string) []MarkerMergeSuggestion {
	known := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		known[nameKey(name)] = struct{}{}
	}

	type pair struct{ source, target string }

	best := make(map[pair]float64)

	for _, source := range incoming {
		if _, ok := known[nameKey(source)]; ok || nameKey(source) == "" {
			continue
		}

		var (
			target   string
			topScore float64
		)

		for _, candidate := range existing {
			if score := MarkerNameSimilarity(source, candidate); score > topScore {
				target, topScore = candidate, score
			}
		}

		if topScore < MergeThreshold {
			continue
		}

		key := pair{source, target}
		if prev, ok := best[key]; !ok || topScore > prev {
			best[key] = topScore
		}
	}

	suggestions := make([]MarkerMergeSuggestion, 0, len(best))
	for key, score := range best {
		suggestions = append(suggestions, MarkerMergeSuggestion{Source: key.source, Target: key.target, Score: score})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}

		if suggestions[i].Source != suggestions[j].Source {
			return suggestions[i].Source < suggestions[j].Source
		}

		return suggestions[i].Target < suggestions[j].Target
	})

	return suggestions
}

// RenameMarker returns a copy of reports with every row of marker from
// relabelled as to, and the number of rows changed.
func RenameMarker(reports []LabReport, from, to string) ([]LabReport, int) {
	out := make([]LabReport, len(reports))
	changed := 0

	for i, report := range reports {
		markers := make([]MarkerValue, len(report.Markers))
		copy(markers, report.Markers)

		for j := range markers {
			if markerName(markers[j]) == from {
				markers[j].CanonicalName = to
				changed++
			}
		}

		report.Markers = markers
		out[i] = report
	}

	return out, changed
}

func jaccard(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	inter := 0

	for k := range setA {
		if _, ok := setB[k]; ok {
			inter++
		}
	}

	return float64(inter) / float64(len(setA)+len(setB)-inter)
}

func dice(a, b map[string]struct{}) float64 {
	if len(a)+len(b) == 0 {
		return 0
	}

	inter := 0

	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}

	return 2 * float64(inter) / float64(len(a)+len(b))
}

func bigrams(key string) map[string]struct{} {
	compact := []rune(strings.ReplaceAll(key, " ", ""))
	set := make(map[string]struct{})

	for i := 0; i+1 < len(compact); i++ {
		set[string(compact[i:i+2])] = struct{}{}
	}

	return set
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}

	return set
}
