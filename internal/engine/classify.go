package engine

import (
	"strings"

	"github.com/journalkit/mnemo/internal/store"
)

// Classification says whether a memory is treated as permanent or as
// decaying with time.
type Classification string

const (
	Factual  Classification = "factual"
	Temporal Classification = "temporal"
)

// temporalMarkers are explicit temporal or deictic phrases. Any of these in
// a record's value makes it temporal regardless of category. Includes the
// Chinese equivalents used in production.
var temporalMarkers = []string{
	"today", "yesterday", "this morning", "this afternoon", "last week",
	"recently", "currently", "right now", "went to", "had lunch",
	"was doing", "feeling", "felt",
	"今天", "昨天", "早上", "下午", "上周", "最近", "去了", "吃了", "做了", "感觉",
}

// categoryClassification is the static fallback when the text carries no
// temporal marker.
var categoryClassification = map[string]Classification{
	store.CategoryPersonalInfo:  Factual,
	store.CategoryRelationships: Factual,
	store.CategoryInterests:     Temporal,
	store.CategoryChallenges:    Temporal,
	store.CategoryGoals:         Temporal,
	store.CategoryPreferences:   Temporal,
}

// Classify labels a record factual or temporal. Lexical temporal markers in
// the value win over the category default: a preferences record phrased as a
// lasting habit is still temporal if it says "today". Unknown categories
// default to factual.
func Classify(r store.Record) Classification {
	value := strings.ToLower(r.Value)
	for _, marker := range temporalMarkers {
		if strings.Contains(value, marker) {
			return Temporal
		}
	}
	if c, ok := categoryClassification[r.Category]; ok {
		return c
	}
	return Factual
}
