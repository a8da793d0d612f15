package engine

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// Relationship words a correction may assert. Gates the correction patterns
// so "work is my passion" never rewrites the relationships table.
var relationWords = map[string]bool{
	"husband": true, "wife": true, "partner": true, "boyfriend": true,
	"girlfriend": true, "friend": true, "colleague": true,
	"son": true, "daughter": true, "mother": true, "father": true,
	"mom": true, "dad": true,
}

var (
	// "Pramod is my husband"
	personIsMyRe = regexp.MustCompile(`(\w+) is my (\w+)`)
	// "my husband is Pramod"; negated restatements collapse to this form
	myRelationIsRe = regexp.MustCompile(`my (\w+) is (?:actually |not \w+, )?(\w+)`)
)

// applyCorrections scans the context for explicit correction phrasing and
// rewrites the matching relationships records before scoring runs. This is
// the one write on the retrieval path; it is bounded and best-effort,
// failures are logged and retrieval continues.
func (e *Engine) applyCorrections(ctx context.Context, ownerID, convContext string, now time.Time) {
	lower := strings.ToLower(convContext)

	hasRelationWord := false
	for w := range relationWords {
		if strings.Contains(lower, w) {
			hasRelationWord = true
			break
		}
	}
	if !hasRelationWord {
		return
	}

	type pair struct{ person, relation string }
	var corrections []pair

	for _, m := range personIsMyRe.FindAllStringSubmatch(lower, -1) {
		if relationWords[m[2]] {
			corrections = append(corrections, pair{person: m[1], relation: m[2]})
		}
	}
	for _, m := range myRelationIsRe.FindAllStringSubmatch(lower, -1) {
		if relationWords[m[1]] {
			corrections = append(corrections, pair{person: m[2], relation: m[1]})
		}
	}

	for _, c := range corrections {
		r, err := e.db.UpdateRelationship(ctx, ownerID, c.person, c.relation, now, e.pol.CorrectionConfidence)
		if err != nil {
			e.log.Warn("correction not applied", "owner", ownerID, "person", c.person, "err", err)
			continue
		}
		e.log.Debug("corrected relationship", "owner", ownerID, "record", r.ID, "value", r.Value)
	}
}
