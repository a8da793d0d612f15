package engine

import (
	"strings"
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

// Localized rendering tables.
var (
	formatHeaders = map[string]string{
		"en": "Relevant user context (use sparingly, only when directly relevant):\n",
		"zh": "用户相关信息（请谨慎使用，仅在直接相关时引用）：\n",
	}
	categoryLabels = map[string]map[string]string{
		"en": {
			store.CategoryPersonalInfo:  "Personal Information",
			store.CategoryRelationships: "Relationships",
			store.CategoryInterests:     "Interests",
			store.CategoryChallenges:    "Challenges",
			store.CategoryGoals:         "Goals",
			store.CategoryPreferences:   "Preferences",
		},
		"zh": {
			store.CategoryPersonalInfo:  "个人信息",
			store.CategoryRelationships: "人际关系",
			store.CategoryInterests:     "兴趣爱好",
			store.CategoryChallenges:    "挑战困难",
			store.CategoryGoals:         "目标计划",
			store.CategoryPreferences:   "偏好习惯",
		},
	}

	casualGreetingPhrases = []string{
		"hello", "hi", "how are you", "good morning", "good evening",
		"你好", "早上好", "晚上好",
	}
	simpleActivityPhrases = []string{
		"today i", "went to", "had lunch", "at work", "in meeting",
		"今天我", "去了", "吃了午饭", "在工作",
	}
	moodOnlyPhrases = []string{
		"feeling", "feel", "mood", "tired", "happy", "sad",
		"感觉", "心情", "累了", "开心", "难过",
	}
	relationshipContextWords = []string{
		"friend", "family", "partner", "with", "朋友", "家人", "伙伴", "和",
	}
	identifyingPhrases = []string{
		"named", "called", "lives in", "works at", "studies", "born in",
	}
)

// FormatForPrompt renders records into a bounded, localized prompt fragment.
// A context-aware suppression pass runs first, independent of the scorer.
// Pure function of its inputs; empty or fully suppressed input yields "".
func (e *Engine) FormatForPrompt(records []store.Record, language, convContext string) string {
	return e.formatAt(records, language, convContext, time.Now())
}

// formatAt is FormatForPrompt with an injectable clock for the age-based
// suppression rule.
func (e *Engine) formatAt(records []store.Record, language, convContext string, now time.Time) string {
	if len(records) == 0 {
		return ""
	}

	filtered := e.suppressForContext(records, convContext, now)
	if len(filtered) == 0 {
		return ""
	}

	if language != "zh" {
		language = "en"
	}
	labels := categoryLabels[language]

	var b strings.Builder
	b.WriteString(formatHeaders[language])

	// Group by category, preserving record order within each.
	byCategory := make(map[string][]string)
	var order []string
	for _, r := range filtered {
		if len(byCategory[r.Category]) == 0 {
			order = append(order, r.Category)
		}
		if len(byCategory[r.Category]) < e.pol.FormatPerCategory {
			byCategory[r.Category] = append(byCategory[r.Category], r.Value)
		}
	}

	for _, category := range order {
		label := labels[category]
		if label == "" {
			label = strings.ReplaceAll(category, "_", " ")
		}
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(strings.Join(byCategory[category], "; "))
		b.WriteString("\n")
	}

	return b.String()
}

// suppressForContext drops records a given conversational context should not
// quote, then caps the total count: two memories for short contexts, three
// otherwise.
func (e *Engine) suppressForContext(records []store.Record, convContext string, now time.Time) []store.Record {
	contextLower := strings.ToLower(convContext)
	contextTokens := tokenize(convContext)
	contextLen := len(strings.Fields(convContext))

	isCasualGreeting := containsAny(contextLower, casualGreetingPhrases)
	isSimpleActivity := containsAny(contextLower, simpleActivityPhrases)
	isMoodOnly := containsAny(contextLower, moodOnlyPhrases) && contextLen < 8

	var kept []store.Record
	for _, r := range records {
		include := true
		valueLower := strings.ToLower(r.Value)
		recordTokens := tokenize(r.Value)
		overlap := countOverlap(contextTokens, recordTokens)

		if isCasualGreeting && r.Category == store.CategoryPersonalInfo {
			include = false
		}

		if isSimpleActivity && r.Category == store.CategoryRelationships &&
			!containsAny(contextLower, relationshipContextWords) {
			include = false
		}

		if isMoodOnly && r.Category != store.CategoryPersonalInfo && !r.LastUpdated.IsZero() {
			if now.Sub(r.LastUpdated) > time.Duration(e.pol.MoodMaxAgeDays)*24*time.Hour {
				include = false
			}
		}

		// Identifying details need some tie to the conversation.
		if containsAny(valueLower, identifyingPhrases) && overlap == 0 && len(contextTokens) > 3 {
			include = false
		}

		// Strong direct overlap always survives suppression.
		if len(contextTokens) > 0 &&
			float64(overlap)/float64(len(contextTokens)) > e.pol.DirectRelevance {
			include = true
		}

		if include {
			kept = append(kept, r)
		}
	}

	max := e.pol.FormatLongCap
	if contextLen < e.pol.FormatShortTokens {
		max = e.pol.FormatShortCap
	}
	if len(kept) > max {
		kept = kept[:max]
	}
	return kept
}
