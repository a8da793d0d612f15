package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

// Conversation types accepted by RelevantMemories. "current" applies the
// time-of-day filter on the empty-context path.
const (
	ConversationCurrent = "current"
	ConversationReview  = "review"
)

type scoredRecord struct {
	record store.Record
	score  float64
}

// RelevantMemories returns a bounded, ordered list of the owner's memories
// relevant to the given conversational context. Deterministic for identical
// inputs and now. An empty result for off-topic context is a valid outcome,
// not an error.
func (e *Engine) RelevantMemories(ctx context.Context, ownerID, convContext string, now time.Time, limit int, conversationType string) ([]store.Record, error) {
	if limit <= 0 {
		limit = e.pol.MaxResults
	}
	if limit > e.pol.MaxResults {
		limit = e.pol.MaxResults
	}
	if conversationType == "" {
		conversationType = ConversationCurrent
	}

	// Correction pre-pass: a bounded write before the read.
	if strings.TrimSpace(convContext) != "" {
		e.applyCorrections(ctx, ownerID, convContext, now)
	}

	all, err := e.db.ListActive(ownerID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	if strings.TrimSpace(convContext) == "" {
		return e.emptyContextMemories(all, conversationType, now, limit), nil
	}

	contextTokens := tokenize(convContext)
	contextType := detectContextType(contextTokens)

	var scored []scoredRecord
	for _, r := range all {
		score, ok := e.scoreRecord(r, contextTokens, contextType, now)
		if !ok || score <= e.pol.MinScore {
			continue
		}
		scored = append(scored, scoredRecord{record: r, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	if len(scored) == 0 {
		return e.fallbackMemories(all, contextTokens, contextType, now), nil
	}

	out := make([]store.Record, len(scored))
	for i, s := range scored {
		out[i] = s.record
	}
	return out, nil
}

// scoreRecord computes the composite relevance score for one record.
// Returns ok=false when an exclusion rule removes the record entirely.
func (e *Engine) scoreRecord(r store.Record, contextTokens map[string]bool, contextType ContextType, now time.Time) (float64, bool) {
	recordTokens := tokenize(r.Value)
	valueLower := strings.ToLower(r.Value)
	decay := e.DecayMultiplier(r, now)
	overlap := countOverlap(contextTokens, recordTokens)

	// Stale temporal memories stay out unless the context mentions them.
	if Classify(r) == Temporal && decay < e.pol.StaleDecayCutoff {
		need := e.pol.StaleOverlapLoose
		if decay < e.pol.VeryStaleDecay {
			need = e.pol.StaleOverlapStrict
		}
		if overlap < need {
			return 0, false
		}
	}

	// Deeply decayed activity memories add noise to activity talk.
	if contextType == ContextActivity && isActivityMemory(r) &&
		decay < e.pol.ActivitySkipDecay && overlap < e.pol.ActivitySkipOverlap {
		return 0, false
	}

	score := float64(overlap) * e.pol.OverlapWeight * decay

	categoryBonus := 0.0
	switch contextType {
	case ContextMood:
		if r.Category == store.CategoryChallenges || r.Category == store.CategoryPersonalInfo {
			categoryBonus = e.pol.MoodCategoryBonus
		}
	case ContextActivity:
		if r.Category == store.CategoryInterests {
			categoryBonus = e.pol.ActivityCategoryBonus
		}
	case ContextRelationship:
		if r.Category == store.CategoryRelationships {
			categoryBonus = e.pol.RelationshipCategoryBonus
		}
	case ContextChallenge:
		if r.Category == store.CategoryGoals || r.Category == store.CategoryChallenges {
			categoryBonus = e.pol.ChallengeCategoryBonus
		}
	}
	score += categoryBonus * decay

	// Semantic nudges for related concepts.
	switch contextType {
	case ContextMood:
		if containsAny(valueLower, emotionIndicators) {
			score += e.pol.MoodSemanticBonus * decay
		}
	case ContextRelationship:
		if containsAny(valueLower, relationshipIndicators) {
			score += e.pol.RelationshipSemanticBonus * decay
		}
	}

	// Cross-category irrelevance penalties.
	if contextType == ContextActivity && r.Category == store.CategoryPersonalInfo {
		score *= e.pol.ActivityPersonalPenalty
	} else if contextType == ContextRelationship &&
		(r.Category == store.CategoryInterests || r.Category == store.CategoryPreferences) {
		score *= e.pol.RelationshipMiscPenalty
	}

	score += r.Confidence * e.pol.ConfidenceWeight * decay

	if !r.LastUpdated.IsZero() && now.Sub(r.LastUpdated) < e.pol.RecencyWindow {
		score += e.pol.RecencyBoost
	}

	// Frequency-importance boost: facts the user keeps repeating matter.
	switch {
	case r.MentionCount >= e.pol.FreqHighMentions:
		score += e.pol.FreqBoostHigh
	case r.MentionCount >= e.pol.FreqMedMentions:
		score += e.pol.FreqBoostMed
	}

	// No lexical or categorical signal: near-eliminate rather than exclude.
	if overlap == 0 && categoryBonus == 0 {
		score *= e.pol.NoSignalPenalty
	}

	return score, true
}

// emptyContextMemories handles the blank-context path: a conservative
// context-type filter plus a decay floor, no scoring.
func (e *Engine) emptyContextMemories(all []store.Record, conversationType string, now time.Time, limit int) []store.Record {
	var out []store.Record
	for _, r := range all {
		if conversationType == ConversationCurrent && e.isStaleTimeOfDay(r, now) {
			continue
		}
		if e.DecayMultiplier(r, now) <= e.pol.EmptyContextMinDecay {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// timeOfDayIndicators mark memories tied to a specific time of day.
var timeOfDayIndicators = []string{
	"wake up at", "get up at", "sleep at", "bedtime",
	"morning routine", "evening routine", "早上", "晚上", "睡觉时间",
}

// isStaleTimeOfDay reports whether a time-of-day-specific memory is too old
// to quote in a current conversation: older than a day and not high
// confidence.
func (e *Engine) isStaleTimeOfDay(r store.Record, now time.Time) bool {
	if !containsAny(strings.ToLower(r.Value), timeOfDayIndicators) {
		return false
	}
	if r.LastUpdated.IsZero() {
		return false
	}
	hoursOld := now.Sub(r.LastUpdated).Hours()
	return hoursOld > e.pol.TimeOfDayFreshHours && r.Confidence < e.pol.TimeOfDayMinConfidence
}

// fallbackMemories runs when nothing scores above the threshold. For very
// short or general contexts it returns at most one very fresh factual-category
// record; for specific off-topic contexts it returns nothing. The asymmetry is
// deliberate: the two cases encode different confidence about user intent.
func (e *Engine) fallbackMemories(all []store.Record, contextTokens map[string]bool, contextType ContextType, now time.Time) []store.Record {
	if contextType != ContextGeneral && len(contextTokens) > e.pol.ShortContextTokens {
		return nil
	}
	for _, r := range all {
		if categoryClassification[r.Category] != Factual {
			continue
		}
		if e.DecayMultiplier(r, now) > e.pol.FallbackFreshDecay {
			return []store.Record{r}
		}
	}
	return nil
}
