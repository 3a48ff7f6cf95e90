package store

import (
	"strconv"
	"strings"

	"github.com/coachwell-ai/coaching-engine/internal/model"
)

var goalMarkers = []string{"my goal", "i want to", "i'd like to", "i plan to", "i'm aiming", "working toward"}

var preferenceMarkers = []string{"i prefer", "works best for me", "i like", "rather than", "please don't"}

// Summarize folds a span of messages into a compact long-term summary,
// preserving stated goals, risk history, and preferences while discarding
// verbatim turns. Deterministic: the same span always folds the same way.
func Summarize(msgs []model.Message) string {
	var goals, preferences []string
	riskFlags := 0

	for _, msg := range msgs {
		if msg.Risk != nil && msg.Risk.Level != model.RiskNormal {
			// Elevated-risk content is counted, never quoted.
			riskFlags++
			continue
		}
		if msg.Sender != model.SenderUser {
			continue
		}
		lower := strings.ToLower(msg.Content)
		if line := firstMatch(lower, msg.Content, goalMarkers); line != "" {
			goals = appendUnique(goals, line)
		}
		if line := firstMatch(lower, msg.Content, preferenceMarkers); line != "" {
			preferences = appendUnique(preferences, line)
		}
	}

	var parts []string
	if len(goals) > 0 {
		parts = append(parts, "Goals: "+strings.Join(goals, " / "))
	}
	if riskFlags > 0 {
		parts = append(parts, "Risk history: "+strconv.Itoa(riskFlags)+" elevated-risk message(s) in earlier turns")
	}
	if len(preferences) > 0 {
		parts = append(parts, "Preferences: "+strings.Join(preferences, " / "))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ")
}

// firstMatch returns the sentence containing the first marker hit,
// trimmed and capped.
func firstMatch(lower, original string, markers []string) string {
	for _, marker := range markers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		sentence := original[idx:]
		if end := strings.IndexAny(sentence, ".!?\n"); end > 0 {
			sentence = sentence[:end]
		}
		sentence = strings.TrimSpace(sentence)
		if len(sentence) > 140 {
			sentence = sentence[:140]
		}
		return sentence
	}
	return ""
}

func appendUnique(list []string, item string) []string {
	for _, existing := range list {
		if existing == item {
			return list
		}
	}
	return append(list, item)
}
