package engine

import (
	"testing"
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

func TestDecayFactualNeverDecays(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	r := store.Record{
		Category:    store.CategoryRelationships,
		Value:       "Emma is my sister",
		LastUpdated: now.Add(-90 * 24 * time.Hour),
	}
	if got := e.DecayMultiplier(r, now); got != 1.0 {
		t.Errorf("factual decay = %.2f, want 1.0", got)
	}
}

func TestDecayMissingTimestampIsNeutral(t *testing.T) {
	e := testEngine(t)

	r := store.Record{Category: store.CategoryInterests, Value: "painting"}
	if got := e.DecayMultiplier(r, time.Now()); got != e.pol.NeutralDecay {
		t.Errorf("decay = %.2f, want neutral %.2f", got, e.pol.NeutralDecay)
	}
}

func TestDecayGeneralCurve(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	tests := []struct {
		ageHours float64
		want     float64
	}{
		{1, 1.0},
		{23, 1.0},
		{48, 0.8},
		{100, 0.6},
		{300, 0.3},
		{1000, 0.1},
	}
	for _, tt := range tests {
		r := store.Record{
			Category:    store.CategoryInterests,
			Value:       "reading science fiction",
			LastUpdated: now.Add(-time.Duration(tt.ageHours * float64(time.Hour))),
		}
		if got := e.DecayMultiplier(r, now); got != tt.want {
			t.Errorf("general decay at %.0fh = %.2f, want %.2f", tt.ageHours, got, tt.want)
		}
	}
}

func TestDecayActivityCurveIsSteeper(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	tests := []struct {
		ageHours float64
		want     float64
	}{
		{1, 1.0},
		{48, 0.7},
		{100, 0.4},
		{300, 0.2},
		{1000, 0.05},
	}
	for _, tt := range tests {
		r := store.Record{
			Category:    store.CategoryInterests,
			Value:       "watching a new series",
			LastUpdated: now.Add(-time.Duration(tt.ageHours * float64(time.Hour))),
		}
		if got := e.DecayMultiplier(r, now); got != tt.want {
			t.Errorf("activity decay at %.0fh = %.2f, want %.2f", tt.ageHours, got, tt.want)
		}
	}
}

func TestDecayMonotonicNonIncreasing(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	prev := 2.0
	for _, ageHours := range []float64{0, 12, 25, 50, 80, 170, 400, 800, 2000} {
		r := store.Record{
			Category:    store.CategoryGoals,
			Value:       "learn pottery",
			LastUpdated: now.Add(-time.Duration(ageHours * float64(time.Hour))),
		}
		got := e.DecayMultiplier(r, now)
		if got > prev {
			t.Errorf("decay increased with age: %.2f at %.0fh after %.2f", got, ageHours, prev)
		}
		if got <= 0 || got > 1 {
			t.Errorf("decay %.2f at %.0fh out of (0, 1]", got, ageHours)
		}
		prev = got
	}
}

func TestDecayFutureTimestampClamped(t *testing.T) {
	e := testEngine(t)
	now := time.Now()

	r := store.Record{
		Category:    store.CategoryInterests,
		Value:       "painting",
		LastUpdated: now.Add(time.Hour),
	}
	if got := e.DecayMultiplier(r, now); got != 1.0 {
		t.Errorf("future-dated decay = %.2f, want 1.0", got)
	}
}

func TestIsActivityMemory(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"watching a documentary", true},
		{"working on my thesis", true},
		{"playing chess with dad", true},
		{"doing yoga every week", true},
		{"reading science fiction", false},
		{"Emma is my sister", false},
	}
	for _, tt := range tests {
		r := store.Record{Value: tt.value}
		if got := isActivityMemory(r); got != tt.want {
			t.Errorf("isActivityMemory(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
