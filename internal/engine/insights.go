package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/journalkit/mnemo/internal/store"
)

// Insight is derived from analyzing an owner's retrieved memories: a
// recurring pattern, an evolution over time, or a contradiction between
// records.
type Insight struct {
	RecordID   string  `json:"record_id"`
	Type       string  `json:"type"` // "pattern", "evolution", "contradiction"
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
	FollowUp   string  `json:"follow_up_question,omitempty"`
}

// MemoryGap names a category the owner's memory set covers thinly, with a
// question that could fill it.
type MemoryGap struct {
	Category          string `json:"category"`
	CurrentCount      int    `json:"current_count"`
	Importance        string `json:"importance"`
	SuggestedQuestion string `json:"suggested_question"`
}

var (
	improvementKeywords = []string{"better", "easier", "improving", "resolved", "overcome"}
	worseningKeywords   = []string{"worse", "harder", "struggling", "difficult"}
	progressKeywords    = []string{"achieved", "completed", "closer", "progress", "working towards"}

	contradictionPairs = [][2][]string{
		{{"love", "enjoy", "like"}, {"hate", "dislike", "can't stand"}},
		{{"easy", "simple", "no problem"}, {"difficult", "hard", "struggle"}},
		{{"always", "every day", "constantly"}, {"never", "rarely", "seldom"}},
	}
)

// AnalyzeMemories inspects a retrieved record set for evolution,
// contradiction, and frequency patterns. Pure computation; no storage access.
func (e *Engine) AnalyzeMemories(records []store.Record, convContext string) []Insight {
	byCategory := make(map[string][]store.Record)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	var insights []Insight
	for _, category := range extractionOrder {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}
		if in := evolutionInsight(group, category); in != nil {
			insights = append(insights, *in)
		}
		if in := contradictionInsight(group, category); in != nil {
			insights = append(insights, *in)
		}
		switch category {
		case store.CategoryChallenges, store.CategoryGoals, store.CategoryInterests:
			if in := frequencyInsight(group, category, convContext); in != nil {
				insights = append(insights, *in)
			}
		}
	}

	insights = append(insights, crossCategoryInsights(byCategory)...)
	return insights
}

// evolutionInsight looks for improvement or worsening language across a
// category's history.
func evolutionInsight(group []store.Record, category string) *Insight {
	if len(group) < 2 {
		return nil
	}

	sorted := make([]store.Record, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastUpdated.Before(sorted[j].LastUpdated)
	})
	recent := sorted[len(sorted)-1]
	recentLower := strings.ToLower(recent.Value)

	switch category {
	case store.CategoryChallenges:
		if containsAny(recentLower, improvementKeywords) {
			return &Insight{
				RecordID:   recent.ID,
				Type:       "evolution",
				Content:    fmt.Sprintf("User shows improvement in %s: %s", category, recent.Value),
				Confidence: 0.7,
				FollowUp:   "How do you feel about the progress you've made with this challenge?",
			}
		}
		if containsAny(recentLower, worseningKeywords) {
			return &Insight{
				RecordID:   recent.ID,
				Type:       "evolution",
				Content:    fmt.Sprintf("User may be struggling more with %s", category),
				Confidence: 0.6,
				FollowUp:   "Would you like to talk about what's making this more difficult lately?",
			}
		}
	case store.CategoryGoals:
		if containsAny(recentLower, progressKeywords) {
			return &Insight{
				RecordID:   recent.ID,
				Type:       "evolution",
				Content:    fmt.Sprintf("User shows goal progression: %s", recent.Value),
				Confidence: 0.8,
				FollowUp:   "What steps have been most helpful in working towards this goal?",
			}
		}
	}
	return nil
}

// contradictionInsight finds pairs of records in one category asserting
// opposite sentiment.
func contradictionInsight(group []store.Record, category string) *Insight {
	for i := 0; i < len(group); i++ {
		for j := i + 1; j < len(group); j++ {
			a := strings.ToLower(group[i].Value)
			b := strings.ToLower(group[j].Value)
			for _, pairSet := range contradictionPairs {
				posA, negA := containsAny(a, pairSet[0]), containsAny(a, pairSet[1])
				posB, negB := containsAny(b, pairSet[0]), containsAny(b, pairSet[1])
				if (posA && negB) || (negA && posB) {
					return &Insight{
						RecordID:   group[j].ID,
						Type:       "contradiction",
						Content:    fmt.Sprintf("Potential change in perspective about %s", category),
						Confidence: 0.6,
						FollowUp:   "I notice your feelings about this might have changed. How do you feel about it now?",
					}
				}
			}
		}
	}
	return nil
}

// frequencyInsight flags a recurring, confident theme the context touches.
func frequencyInsight(group []store.Record, category, convContext string) *Insight {
	var frequent *store.Record
	for i := range group {
		if group[i].MentionCount <= 2 || group[i].Confidence <= 0.7 {
			continue
		}
		if frequent == nil || group[i].MentionCount > frequent.MentionCount {
			frequent = &group[i]
		}
	}
	if frequent == nil {
		return nil
	}

	if countOverlap(tokenize(convContext), tokenize(frequent.Value)) == 0 {
		return nil
	}
	return &Insight{
		RecordID:   frequent.ID,
		Type:       "pattern",
		Content:    fmt.Sprintf("Recurring theme in %s: %s", category, frequent.Value),
		Confidence: 0.8,
		FollowUp:   "This seems to be something important to you. How has it been affecting you lately?",
	}
}

// crossCategoryInsights relates challenges to goals and interests.
func crossCategoryInsights(byCategory map[string][]store.Record) []Insight {
	var insights []Insight

	for _, challenge := range byCategory[store.CategoryChallenges] {
		for _, goal := range byCategory[store.CategoryGoals] {
			if countOverlap(tokenize(challenge.Value), tokenize(goal.Value)) >= 2 {
				insights = append(insights, Insight{
					RecordID:   goal.ID,
					Type:       "pattern",
					Content:    fmt.Sprintf("Goal may be related to overcoming challenge: %s", challenge.Value),
					Confidence: 0.7,
					FollowUp:   "How is working towards this goal helping you with that challenge?",
				})
			}
		}
	}

	if len(byCategory[store.CategoryChallenges]) > 0 {
		for _, interest := range byCategory[store.CategoryInterests] {
			lower := strings.ToLower(interest.Value)
			if strings.Contains(lower, "enjoy") || strings.Contains(lower, "love") {
				insights = append(insights, Insight{
					RecordID:   interest.ID,
					Type:       "pattern",
					Content:    fmt.Sprintf("Positive interest that could help with challenges: %s", interest.Value),
					Confidence: 0.6,
					FollowUp:   "Have you been able to spend time on this lately? How does it make you feel?",
				})
			}
		}
	}

	return insights
}

// FollowUpQuestions derives up to five contextual follow-up questions from
// retrieved memories and their insights.
func (e *Engine) FollowUpQuestions(records []store.Record, convContext string, insights []Insight) []string {
	var followUps []string
	contextLower := strings.ToLower(convContext)

	for _, in := range insights {
		if in.FollowUp != "" && in.Confidence > 0.6 {
			followUps = append(followUps, in.FollowUp)
		}
	}

	categories := make(map[string]bool)
	for _, r := range records {
		categories[r.Category] = true
	}

	if categories[store.CategoryRelationships] &&
		containsAny(contextLower, []string{"friend", "family", "partner", "work"}) {
		followUps = append(followUps, "How are things with them lately?")
	}
	if categories[store.CategoryChallenges] &&
		containsAny(contextLower, []string{"difficult", "hard", "problem"}) {
		followUps = append(followUps, "Is this similar to challenges you've faced before?")
	}
	if categories[store.CategoryGoals] &&
		containsAny(contextLower, []string{"want", "plan", "hope"}) {
		followUps = append(followUps, "How does this relate to what you're working towards?")
	}

	if containsAny(contextLower, []string{"tired", "stressed", "overwhelmed"}) {
		followUps = append(followUps, "What usually helps you feel better when you're feeling this way?")
	}
	if containsAny(contextLower, []string{"happy", "excited", "good"}) {
		followUps = append(followUps, "What do you think contributed to feeling this way?")
	}

	// Dedup preserving order, cap at five.
	seen := make(map[string]bool)
	var unique []string
	for _, q := range followUps {
		if seen[q] {
			continue
		}
		seen[q] = true
		unique = append(unique, q)
		if len(unique) == 5 {
			break
		}
	}
	return unique
}

// gapExpectations defines how many memories each category should minimally
// hold and how much a gap there matters.
var gapExpectations = []struct {
	category    string
	minExpected int
	importance  string
}{
	{store.CategoryPersonalInfo, 2, "medium"},
	{store.CategoryRelationships, 1, "high"},
	{store.CategoryInterests, 2, "high"},
	{store.CategoryGoals, 1, "high"},
	{store.CategoryChallenges, 1, "medium"},
	{store.CategoryPreferences, 1, "low"},
}

var gapQuestions = map[string]string{
	store.CategoryRelationships: "Who are the most important people in your life?",
	store.CategoryInterests:     "What do you enjoy doing in your free time?",
	store.CategoryGoals:         "What are you working towards right now?",
	store.CategoryChallenges:    "What's been challenging for you lately?",
	store.CategoryPreferences:   "What kind of environment do you prefer?",
	store.CategoryPersonalInfo:  "Tell me a bit about yourself.",
}

// MemoryGaps identifies sparse categories that could guide conversation,
// most important first, top three.
func (e *Engine) MemoryGaps(ownerID, convContext string) ([]MemoryGap, error) {
	records, err := e.db.ListActive(ownerID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Category]++
	}

	contextLower := strings.ToLower(convContext)
	var gaps []MemoryGap
	for _, exp := range gapExpectations {
		if counts[exp.category] >= exp.minExpected {
			continue
		}
		question := gapQuestions[exp.category]
		if exp.category == store.CategoryRelationships &&
			containsAny(contextLower, []string{"lonely", "alone"}) {
			question = "Do you have people you can talk to when you're feeling this way?"
		}
		if exp.category == store.CategoryInterests && strings.Contains(contextLower, "bored") {
			question = "What usually helps when you're feeling bored? What do you enjoy doing?"
		}
		gaps = append(gaps, MemoryGap{
			Category:          exp.category,
			CurrentCount:      counts[exp.category],
			Importance:        exp.importance,
			SuggestedQuestion: question,
		})
	}

	importanceRank := map[string]int{"high": 3, "medium": 2, "low": 1}
	sort.SliceStable(gaps, func(i, j int) bool {
		return importanceRank[gaps[i].Importance] > importanceRank[gaps[j].Importance]
	})
	if len(gaps) > 3 {
		gaps = gaps[:3]
	}
	return gaps, nil
}
