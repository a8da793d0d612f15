package engine

import (
	"context"
	"testing"
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

func TestAnalyzeMemoriesEvolution(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	older := rec(store.CategoryChallenges, "deadlines keep piling up")
	older.LastUpdated = now.Add(-72 * time.Hour)
	newer := rec(store.CategoryChallenges, "deadlines are getting easier to manage")
	newer.LastUpdated = now

	insights := e.AnalyzeMemories([]store.Record{older, newer}, "how is work going")

	var found *Insight
	for i := range insights {
		if insights[i].Type == "evolution" {
			found = &insights[i]
		}
	}
	if found == nil {
		t.Fatalf("no evolution insight in %+v", insights)
	}
	if found.FollowUp == "" {
		t.Error("evolution insight missing follow-up question")
	}
}

func TestAnalyzeMemoriesContradiction(t *testing.T) {
	e := testEngine(t)

	a := rec(store.CategoryInterests, "i love jazz music")
	b := rec(store.CategoryInterests, "i hate jazz music now")

	insights := e.AnalyzeMemories([]store.Record{a, b}, "music")

	found := false
	for _, in := range insights {
		if in.Type == "contradiction" {
			found = true
		}
	}
	if !found {
		t.Errorf("no contradiction insight in %+v", insights)
	}
}

func TestAnalyzeMemoriesFrequencyPattern(t *testing.T) {
	e := testEngine(t)

	frequent := rec(store.CategoryChallenges, "sleep problems most nights")
	frequent.MentionCount = 4
	frequent.Confidence = 0.9

	insights := e.AnalyzeMemories([]store.Record{frequent}, "my sleep has been bad again")

	found := false
	for _, in := range insights {
		if in.Type == "pattern" {
			found = true
		}
	}
	if !found {
		t.Errorf("no pattern insight for frequent theme in %+v", insights)
	}
}

func TestAnalyzeMemoriesEmpty(t *testing.T) {
	e := testEngine(t)
	if insights := e.AnalyzeMemories(nil, "anything"); len(insights) != 0 {
		t.Errorf("got %d insights from no records", len(insights))
	}
}

func TestFollowUpQuestionsCapAndDedup(t *testing.T) {
	e := testEngine(t)

	records := []store.Record{
		rec(store.CategoryRelationships, "Emma is my sister"),
		rec(store.CategoryChallenges, "deadlines at work"),
		rec(store.CategoryGoals, "run a marathon"),
	}
	insights := []Insight{
		{Type: "pattern", Confidence: 0.8, FollowUp: "How has this been affecting you?"},
		{Type: "pattern", Confidence: 0.8, FollowUp: "How has this been affecting you?"},
		{Type: "evolution", Confidence: 0.7, FollowUp: "What helped most?"},
	}

	questions := e.FollowUpQuestions(records,
		"work with family is difficult, i want to feel less tired and stressed but happy", insights)

	if len(questions) > 5 {
		t.Errorf("got %d questions, cap is 5", len(questions))
	}
	seen := make(map[string]bool)
	for _, q := range questions {
		if seen[q] {
			t.Errorf("duplicate question %q", q)
		}
		seen[q] = true
	}
}

func TestFollowUpQuestionsLowConfidenceInsightSkipped(t *testing.T) {
	e := testEngine(t)

	insights := []Insight{
		{Type: "contradiction", Confidence: 0.5, FollowUp: "Should not appear"},
	}
	questions := e.FollowUpQuestions(nil, "nothing special", insights)
	for _, q := range questions {
		if q == "Should not appear" {
			t.Error("low-confidence insight produced a follow-up")
		}
	}
}

func TestMemoryGaps(t *testing.T) {
	e := testEngine(t)

	gaps, err := e.MemoryGaps("u1", "just thinking")
	if err != nil {
		t.Fatalf("MemoryGaps: %v", err)
	}
	if len(gaps) == 0 {
		t.Fatal("empty store should report gaps")
	}
	if len(gaps) > 3 {
		t.Errorf("got %d gaps, cap is 3", len(gaps))
	}
	// High-importance gaps come first.
	if gaps[0].Importance != "high" {
		t.Errorf("first gap importance = %q, want high", gaps[0].Importance)
	}
	for _, g := range gaps {
		if g.SuggestedQuestion == "" {
			t.Errorf("gap %s missing suggested question", g.Category)
		}
	}
}

func TestMemoryGapsFilledCategory(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	cands := []store.Candidate{
		{Category: store.CategoryGoals, Key: "g1", Value: "run a marathon", Confidence: 0.8},
	}
	if _, err := e.Store(context.Background(), "u1", cands, now); err != nil {
		t.Fatalf("seed: %v", err)
	}

	gaps, err := e.MemoryGaps("u1", "just thinking")
	if err != nil {
		t.Fatalf("MemoryGaps: %v", err)
	}
	for _, g := range gaps {
		if g.Category == store.CategoryGoals {
			t.Error("goals gap reported although a goal is stored")
		}
	}
}

func TestMemoryGapsContextAwareQuestion(t *testing.T) {
	e := testEngine(t)

	gaps, err := e.MemoryGaps("u1", "i have been feeling so lonely")
	if err != nil {
		t.Fatalf("MemoryGaps: %v", err)
	}
	for _, g := range gaps {
		if g.Category == store.CategoryRelationships {
			if g.SuggestedQuestion != "Do you have people you can talk to when you're feeling this way?" {
				t.Errorf("lonely context question = %q", g.SuggestedQuestion)
			}
			return
		}
	}
	t.Error("no relationships gap reported for empty store")
}
