package engine

import (
	"strings"
	"time"

	"github.com/journalkit/mnemo/internal/store"
)

// activityMarkers flag values that describe a concrete activity. Activity
// memories lose conversational relevance faster than general temporal ones.
var activityMarkers = []string{"watching", "doing", "playing", "working on"}

func isActivityMemory(r store.Record) bool {
	value := strings.ToLower(r.Value)
	for _, m := range activityMarkers {
		if strings.Contains(value, m) {
			return true
		}
	}
	return false
}

// DecayMultiplier maps a record's classification and age to a relevance
// multiplier in (0,1]. Factual records never decay. A missing last_updated
// yields the neutral multiplier. The stepped curve is front-loaded: most
// current-conversation relevance is gone within three days, but the floor
// keeps archival recall possible.
func (e *Engine) DecayMultiplier(r store.Record, now time.Time) float64 {
	if Classify(r) == Factual {
		return 1.0
	}
	if r.LastUpdated.IsZero() {
		return e.pol.NeutralDecay
	}

	ageHours := now.Sub(r.LastUpdated).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	curve := e.pol.GeneralCurve
	if isActivityMemory(r) {
		curve = e.pol.ActivityCurve
	}

	for i, edge := range e.pol.DecayBands {
		if ageHours < edge {
			return curve[i]
		}
	}
	return curve[len(curve)-1]
}
