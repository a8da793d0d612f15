package engine

import (
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

// Policy holds every hand-tuned constant in the engine. The values are
// tunable heuristics carried over from production, not derived from data;
// override individual fields rather than editing call sites.
type Policy struct {
	// Extraction.
	PatternConfidence   float64 // pattern-rule candidates
	KeywordConfidence   float64 // keyword-sentence candidates
	ExtractDedupOverlap float64 // intra-batch Jaccard ratio above which a candidate is a duplicate

	// Store / upsert.
	MergeOverlap   float64 // same-category token overlap treated as the same fact
	ConfidenceStep float64 // confidence increment per reinforcing mention

	// Decay. Band edges are in hours; each curve has len(DecayBands)+1 steps.
	DecayBands           []float64
	ActivityCurve        []float64
	GeneralCurve         []float64
	NeutralDecay         float64   // used when last_updated is missing
	EmptyContextMinDecay float64   // decay floor for the empty-context path

	// Scoring.
	OverlapWeight      float64
	ConfidenceWeight   float64
	RecencyBoost       float64
	RecencyWindow      time.Duration
	MinScore           float64
	MaxResults         int
	FreqBoostHigh      float64 // mention_count >= FreqHighMentions
	FreqBoostMed       float64 // mention_count >= FreqMedMentions
	FreqHighMentions   int
	FreqMedMentions    int

	MoodCategoryBonus         float64
	ActivityCategoryBonus     float64
	RelationshipCategoryBonus float64
	ChallengeCategoryBonus    float64
	MoodSemanticBonus         float64
	RelationshipSemanticBonus float64
	ActivityPersonalPenalty   float64 // multiplier on personal_info in activity context
	RelationshipMiscPenalty   float64 // multiplier on interests/preferences in relationship context
	NoSignalPenalty           float64 // multiplier when overlap and category bonus are both zero

	// Stale-memory exclusion.
	StaleDecayCutoff    float64 // temporal records below this need word overlap
	VeryStaleDecay      float64 // below this, overlap must reach StaleOverlapStrict
	StaleOverlapStrict  int
	StaleOverlapLoose   int
	ActivitySkipDecay   float64 // activity memories below this in activity context
	ActivitySkipOverlap int

	// Fallback.
	FallbackFreshDecay float64 // only records above this qualify for the general fallback
	ShortContextTokens int     // at or below this many tokens a context counts as very short

	// Correction pre-pass.
	CorrectionConfidence float64

	// Formatter.
	FormatShortTokens      int     // below this many context tokens the cap is FormatShortCap
	FormatShortCap         int
	FormatLongCap          int
	FormatPerCategory      int
	MoodMaxAgeDays         int     // mood-only contexts drop non-personal records older than this
	DirectRelevance        float64 // overlap ratio that forces a record through suppression
	TimeOfDayFreshHours    float64 // empty-context filter: time-of-day memories older than this need high confidence
	TimeOfDayMinConfidence float64
}

// DefaultPolicy returns the production tuning.
func DefaultPolicy() Policy {
	return Policy{
		PatternConfidence:   0.8,
		KeywordConfidence:   0.6,
		ExtractDedupOverlap: 0.6,

		MergeOverlap:   0.7,
		ConfidenceStep: 0.1,

		DecayBands:           []float64{24, 72, 168, 720},
		ActivityCurve:        []float64{1.0, 0.7, 0.4, 0.2, 0.05},
		GeneralCurve:         []float64{1.0, 0.8, 0.6, 0.3, 0.1},
		NeutralDecay:         0.5,
		EmptyContextMinDecay: 0.3,

		OverlapWeight:    0.4,
		ConfidenceWeight: 0.3,
		RecencyBoost:     0.2,
		RecencyWindow:    2 * time.Hour,
		MinScore:         0.5,
		MaxResults:       5,
		FreqBoostHigh:    5,
		FreqBoostMed:     3,
		FreqHighMentions: 5,
		FreqMedMentions:  3,

		MoodCategoryBonus:         0.3,
		ActivityCategoryBonus:     0.5,
		RelationshipCategoryBonus: 0.7,
		ChallengeCategoryBonus:    0.5,
		MoodSemanticBonus:         0.4,
		RelationshipSemanticBonus: 0.5,
		ActivityPersonalPenalty:   0.3,
		RelationshipMiscPenalty:   0.4,
		NoSignalPenalty:           0.1,

		StaleDecayCutoff:    0.5,
		VeryStaleDecay:      0.2,
		StaleOverlapStrict:  3,
		StaleOverlapLoose:   2,
		ActivitySkipDecay:   0.1,
		ActivitySkipOverlap: 3,

		FallbackFreshDecay: 0.9,
		ShortContextTokens: 3,

		CorrectionConfidence: 0.95,

		FormatShortTokens:      10,
		FormatShortCap:         2,
		FormatLongCap:          3,
		FormatPerCategory:      3,
		MoodMaxAgeDays:         30,
		DirectRelevance:        0.3,
		TimeOfDayFreshHours:    24,
		TimeOfDayMinConfidence: 0.9,
	}
}

// upsertPolicy projects the policy onto the store's upsert tunables.
func (p Policy) upsertPolicy() store.UpsertPolicy {
	return store.UpsertPolicy{
		MergeOverlap:   p.MergeOverlap,
		ConfidenceStep: p.ConfidenceStep,
	}
}
