package engine

import "strings"

// ContextType is a coarse classification of the current conversational turn,
// used to bias category scoring.
type ContextType string

const (
	ContextMood         ContextType = "mood"
	ContextActivity     ContextType = "activity"
	ContextRelationship ContextType = "relationship"
	ContextChallenge    ContextType = "challenge"
	ContextGeneral      ContextType = "general"
)

// Intent keyword sets. Detection checks the types in a fixed order; the
// first set with a hit wins.
var (
	moodKeywords = wordSet("feel", "feeling", "mood", "emotional", "happy", "sad",
		"angry", "excited", "tired", "stressed", "calm", "anxious")
	activityKeywords = wordSet("did", "went", "work", "school", "meeting", "exercise",
		"run", "walk", "eat", "cook", "watch", "read", "play")
	relationshipKeywords = wordSet("friend", "family", "partner", "colleague", "mom",
		"dad", "wife", "husband", "boyfriend", "girlfriend", "cat", "dog", "pet")
	challengeKeywords = wordSet("difficult", "hard", "problem", "challenge", "struggle",
		"win", "success", "achievement", "accomplish")

	emotionIndicators = []string{"feel", "emotion", "mood", "happy", "sad", "stress",
		"calm", "love", "hate", "enjoy", "like", "dislike"}
	relationshipIndicators = []string{"friend", "family", "partner", "colleague", "mom",
		"dad", "wife", "husband", "boyfriend", "girlfriend", "cat", "dog", "pet"}
)

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// tokenize splits text into lowercase whitespace-delimited tokens.
func tokenize(s string) map[string]bool {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]bool, len(fields))
	for _, f := range fields {
		m[f] = true
	}
	return m
}

func countOverlap(a, b map[string]bool) int {
	if len(b) < len(a) {
		a, b = b, a
	}
	n := 0
	for t := range a {
		if b[t] {
			n++
		}
	}
	return n
}

func anyIn(tokens map[string]bool, set map[string]bool) bool {
	for t := range tokens {
		if set[t] {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// detectContextType classifies a tokenized context. Order matters: mood
// beats activity beats relationship beats challenge.
func detectContextType(tokens map[string]bool) ContextType {
	switch {
	case anyIn(tokens, moodKeywords):
		return ContextMood
	case anyIn(tokens, activityKeywords):
		return ContextActivity
	case anyIn(tokens, relationshipKeywords):
		return ContextRelationship
	case anyIn(tokens, challengeKeywords):
		return ContextChallenge
	default:
		return ContextGeneral
	}
}
