// Package risk scores inbound messages for crisis signals. The assessor is
// pure: the same message, history, context, and clock always produce the
// same bundle, with no I/O anywhere on the path.
package risk

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/coachwell-ai/coaching-engine/internal/config"
	"github.com/coachwell-ai/coaching-engine/internal/model"
)

// Assessor computes RiskSignalBundles against a loaded policy.
type Assessor struct {
	policy *config.RiskPolicy
}

// NewAssessor creates an assessor bound to a policy document.
func NewAssessor(policy *config.RiskPolicy) *Assessor {
	return &Assessor{policy: policy}
}

// Policy returns the policy this assessor scores against.
func (a *Assessor) Policy() *config.RiskPolicy {
	return a.policy
}

// Assess scores a user message. history is the session's recent messages in
// insertion order; now anchors the late-night contextual signal.
func (a *Assessor) Assess(content string, history []model.Message, uc model.UserContext, now time.Time) model.RiskSignalBundle {
	p := a.policy
	norm := normalize(content)

	keyword, tiers, explicit := a.keywordScore(norm)
	sentiment := a.sentimentScore(norm)
	temporal := a.temporalScore(norm, history)
	contextual := a.contextualScore(uc, now)

	negation := 1.0
	if a.matchesNegation(norm) {
		negation = p.NegationMultiplier
	}

	prior := 0.0
	if uc.PriorEscalations {
		prior = p.PriorFlagBoost
	}

	weighted := keyword*p.Weights.Keyword +
		sentiment*p.Weights.Sentiment +
		temporal*p.Weights.Temporal +
		contextual*p.Weights.Contextual

	composite := clamp01(weighted*negation + prior)

	// An unnegated explicit-tier match must escalate regardless of how the
	// weighted signals dilute it.
	if explicit && negation == 1.0 && composite < p.ExplicitFloor {
		composite = p.ExplicitFloor
	}

	return model.RiskSignalBundle{
		KeywordScore:       keyword,
		SentimentScore:     sentiment,
		TemporalScore:      temporal,
		NegationMultiplier: negation,
		ContextualScore:    contextual,
		PriorFlagBoost:     prior,
		CompositeScore:     composite,
		Level:              a.level(composite),
		MatchedTiers:       tiers,
	}
}

func (a *Assessor) level(composite float64) model.RiskLevel {
	switch {
	case composite >= a.policy.Thresholds.High:
		return model.RiskHigh
	case composite >= a.policy.Thresholds.Medium:
		return model.RiskMedium
	default:
		return model.RiskNormal
	}
}

// keywordScore sums the weights of matched rules, clamped to 1. The explicit
// flag reports whether any matched rule is the explicit tier.
func (a *Assessor) keywordScore(norm string) (score float64, tiers []string, explicit bool) {
	type match struct {
		tier   string
		weight float64
	}
	var matched []match
	for _, rule := range a.policy.KeywordRules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(norm, phrase) {
				matched = append(matched, match{rule.Tier, rule.Weight})
				if rule.Tier == config.TierExplicit {
					explicit = true
				}
				break
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].weight > matched[j].weight })
	for _, m := range matched {
		score += m.weight
		tiers = append(tiers, m.tier)
	}
	return clamp01(score), tiers, explicit
}

// sentimentScore is lexicon polarity normalized by message length into [0,1],
// higher meaning more negative. Positive matches offset at half weight.
func (a *Assessor) sentimentScore(norm string) float64 {
	p := a.policy
	words := strings.Fields(norm)
	if len(words) == 0 {
		return 0
	}

	negative := lexiconSum(norm, words, p.NegativeLexicon)
	positive := lexiconSum(norm, words, p.PositiveLexicon)

	denom := float64(len(words)) / p.SentimentWordsPerUnit
	if denom < 1 {
		denom = 1
	}
	return clamp01((negative - 0.5*positive) / denom)
}

// temporalScore is the fraction of the user's recent messages, including the
// current one, that match any crisis rule.
func (a *Assessor) temporalScore(norm string, history []model.Message) float64 {
	window := a.policy.TemporalWindow

	var recent []string
	for _, msg := range history {
		if msg.Sender == model.SenderUser {
			recent = append(recent, normalize(msg.Content))
		}
	}
	if len(recent) > window-1 {
		recent = recent[len(recent)-(window-1):]
	}
	recent = append(recent, norm)

	matched := 0
	for _, text := range recent {
		if a.matchesAnyRule(text) {
			matched++
		}
	}
	return float64(matched) / float64(len(recent))
}

// contextualScore adds boosts for late-night activity and declining
// engagement, clamped to [0,1].
func (a *Assessor) contextualScore(uc model.UserContext, now time.Time) float64 {
	p := a.policy
	score := 0.0

	hour := now.Hour()
	lateNight := false
	if p.LateNightStartHour > p.LateNightEndHour {
		lateNight = hour >= p.LateNightStartHour || hour < p.LateNightEndHour
	} else {
		lateNight = hour >= p.LateNightStartHour && hour < p.LateNightEndHour
	}
	if lateNight {
		score += p.LateNightBoost
	}
	if uc.DecliningEngagement {
		score += p.DisengagementBoost
	}
	return clamp01(score)
}

func (a *Assessor) matchesAnyRule(norm string) bool {
	for _, rule := range a.policy.KeywordRules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(norm, phrase) {
				return true
			}
		}
	}
	return false
}

func (a *Assessor) matchesNegation(norm string) bool {
	for _, pattern := range a.policy.NegationPatterns {
		if strings.Contains(norm, pattern) {
			return true
		}
	}
	return false
}

// lexiconSum scores single-word lexicon entries against word boundaries and
// multi-word entries as substring matches.
func lexiconSum(norm string, words []string, lexicon map[string]float64) float64 {
	sum := 0.0
	for entry, weight := range lexicon {
		if strings.ContainsRune(entry, ' ') {
			if strings.Contains(norm, entry) {
				sum += weight
			}
			continue
		}
		for _, w := range words {
			if w == entry {
				sum += weight
				break
			}
		}
	}
	return sum
}

// normalize lowercases and strips punctuation, keeping apostrophes so
// negation contractions survive.
func normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
