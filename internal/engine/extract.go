package engine

import (
	"regexp"
	"strings"

	"github.com/journalkit/mnemo/internal/store"
)

// categoryRule holds the extraction rules for one category. The tables are
// data, not control flow: the extraction loop is identical for every
// category.
type categoryRule struct {
	patterns []*regexp.Regexp
	keywords []string
}

// categoryRules maps each category to its pattern and keyword tables.
// Patterns run against lowercased text; parenthesized captures become the
// candidate value.
var categoryRules = map[string]categoryRule{
	store.CategoryPersonalInfo: {
		patterns: compilePatterns(
			`my name is (\w+)`,
			`i am (\d+) years old`,
			`i live in ([^.]+)`,
			`i work as a ([^.]+)`,
			`my job is ([^.]+)`,
			`i study ([^.]+)`,
			`i am from ([^.]+)`,
		),
		keywords: []string{"name", "age", "live", "work", "job", "study", "from", "hometown"},
	},
	store.CategoryRelationships: {
		patterns: compilePatterns(
			`my (\w+) is (\w+)`,
			`i have a (\w+) named (\w+)`,
			`my (\w+) and i ([^.]+)`,
		),
		keywords: []string{
			"wife", "husband", "partner", "boyfriend", "girlfriend",
			"cat", "dog", "pet", "mom", "dad", "mother", "father",
			"friend", "colleague",
		},
	},
	store.CategoryInterests: {
		patterns: compilePatterns(
			`i love ([^.]+)`,
			`i enjoy ([^.]+)`,
			`i like ([^.]+)`,
			`i hate ([^.]+)`,
			`i dislike ([^.]+)`,
			`i play ([^.]+)`,
			`i watch ([^.]+)`,
			`my passion is ([^.]+)`,
			`i am passionate about ([^.]+)`,
		),
		keywords: []string{
			"love", "enjoy", "like", "hate", "dislike", "hobby",
			"play", "watch", "read", "listen", "passion", "passionate",
		},
	},
	store.CategoryChallenges: {
		patterns: compilePatterns(
			`i struggle with ([^.]+)`,
			`i have trouble ([^.]+)`,
			`i'm having trouble ([^.]+)`,
			`([^.]+) is difficult for me`,
			`i worry about ([^.]+)`,
			`i am stressed about ([^.]+)`,
		),
		keywords: []string{
			"struggle", "trouble", "difficult", "worry", "stressed",
			"anxiety", "depression", "problem",
		},
	},
	store.CategoryGoals: {
		patterns: compilePatterns(
			`i want to ([^.]+)`,
			`i plan to ([^.]+)`,
			`i hope to ([^.]+)`,
			`my goal is ([^.]+)`,
			`i am trying to ([^.]+)`,
		),
		keywords: []string{"want", "plan", "hope", "goal", "trying", "dream", "aspire", "wish"},
	},
	store.CategoryPreferences: {
		patterns: compilePatterns(
			`i prefer ([^.]+)`,
			`i usually ([^.]+)`,
			`i always ([^.]+)`,
			`i never ([^.]+)`,
			`i typically ([^.]+)`,
		),
		keywords: []string{
			"prefer", "usually", "always", "never", "typically",
			"favorite", "routine", "vegetarian", "vegan",
		},
	},
}

// extractionOrder fixes the category iteration order so extraction output is
// deterministic for identical input.
var extractionOrder = []string{
	store.CategoryPersonalInfo,
	store.CategoryRelationships,
	store.CategoryInterests,
	store.CategoryChallenges,
	store.CategoryGoals,
	store.CategoryPreferences,
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// Extract turns raw text into zero or more candidate facts. Pattern captures
// produce high-confidence candidates; keyword-triggered sentences produce
// lower-confidence ones. A batch-level dedup pass then drops near-duplicate
// values. Extraction never fails; text with no matches yields an empty list.
func (e *Engine) Extract(text, ownerID, sourceType string) []store.Candidate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if sourceType == "" {
		sourceType = store.SourceConversation
	}
	textLower := strings.ToLower(text)

	var raw []store.Candidate
	for _, category := range extractionOrder {
		rule := categoryRules[category]

		for _, pat := range rule.patterns {
			for _, m := range pat.FindAllStringSubmatch(textLower, -1) {
				groups := m[1:]
				var key, value string
				if len(groups) > 1 {
					key = category + "_" + strings.ReplaceAll(groups[0], " ", "_")
					value = strings.Join(groups, " ")
				} else {
					key = category + "_general"
					value = groups[0]
				}
				value = strings.TrimSpace(value)
				if value == "" {
					continue
				}
				raw = append(raw, store.Candidate{
					Category:   category,
					Key:        key,
					Value:      value,
					Confidence: e.pol.PatternConfidence,
					SourceType: sourceType,
				})
			}
		}

		for _, kw := range rule.keywords {
			if !strings.Contains(textLower, kw) {
				continue
			}
			for _, sentence := range sentenceSplitRe.Split(text, -1) {
				if !strings.Contains(strings.ToLower(sentence), kw) {
					continue
				}
				value := strings.TrimSpace(sentence)
				if value == "" {
					continue
				}
				raw = append(raw, store.Candidate{
					Category:   category,
					Key:        category + "_" + kw,
					Value:      value,
					Confidence: e.pol.KeywordConfidence,
					SourceType: sourceType,
				})
			}
		}
	}

	return e.dedupCandidates(raw)
}

// dedupCandidates removes candidates near-duplicate to an already-accepted
// one: exact (category, key) collisions, or values sharing more than the
// dedup overlap ratio of word tokens with any accepted candidate regardless
// of category. First-seen wins.
func (e *Engine) dedupCandidates(cands []store.Candidate) []store.Candidate {
	var accepted []store.Candidate
	for _, c := range cands {
		duplicate := false
		for _, a := range accepted {
			if a.Category == c.Category && a.Key == c.Key {
				duplicate = true
				break
			}
			if store.TokenOverlapRatio(a.Value, c.Value) > e.pol.ExtractDedupOverlap {
				duplicate = true
				break
			}
		}
		if !duplicate {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
