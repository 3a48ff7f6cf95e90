package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Tier names used by the default rule table. The explicit tier is special:
// an unnegated match floors the composite score (see internal/risk).
const (
	TierExplicit = "explicit"
	TierSevere   = "severe"
	TierModerate = "moderate"
	TierMild     = "mild"
)

// KeywordRule is one weighted entry in the crisis rule table.
type KeywordRule struct {
	Tier    string   `mapstructure:"tier"`
	Weight  float64  `mapstructure:"weight"`
	Phrases []string `mapstructure:"phrases"`
}

// SignalWeights are the composite-score weights per signal.
type SignalWeights struct {
	Keyword    float64 `mapstructure:"keyword"`
	Sentiment  float64 `mapstructure:"sentiment"`
	Temporal   float64 `mapstructure:"temporal"`
	Contextual float64 `mapstructure:"contextual"`
}

// RiskThresholds map composite scores to risk levels and priorities.
type RiskThresholds struct {
	Medium float64 `mapstructure:"medium"`
	High   float64 `mapstructure:"high"`
	Urgent float64 `mapstructure:"urgent"`
}

// RiskPolicy is the versioned safety policy document. Everything the risk
// assessor tunes on lives here, not in code, so policy changes ship without
// a redeploy of logic.
type RiskPolicy struct {
	Version string `mapstructure:"version"`

	Weights    SignalWeights  `mapstructure:"weights"`
	Thresholds RiskThresholds `mapstructure:"thresholds"`

	KeywordRules []KeywordRule `mapstructure:"keyword_rules"`

	NegativeLexicon map[string]float64 `mapstructure:"negative_lexicon"`
	PositiveLexicon map[string]float64 `mapstructure:"positive_lexicon"`

	// NegationPatterns dampen the whole composite when present.
	NegationPatterns   []string `mapstructure:"negation_patterns"`
	NegationMultiplier float64  `mapstructure:"negation_multiplier"`

	// ExplicitFloor is the minimum composite for an unnegated explicit-tier
	// match. The weighted formula alone dilutes under long calm histories;
	// an explicit statement must still escalate.
	ExplicitFloor float64 `mapstructure:"explicit_floor"`

	PriorFlagBoost float64 `mapstructure:"prior_flag_boost"`

	// Contextual signal terms.
	LateNightBoost     float64 `mapstructure:"late_night_boost"`
	LateNightStartHour int     `mapstructure:"late_night_start_hour"`
	LateNightEndHour   int     `mapstructure:"late_night_end_hour"`
	DisengagementBoost float64 `mapstructure:"disengagement_boost"`

	// TemporalWindow is how many recent messages (including the current one)
	// the temporal-pattern signal inspects.
	TemporalWindow int `mapstructure:"temporal_window"`

	// SentimentWordsPerUnit normalizes lexicon polarity by message length.
	SentimentWordsPerUnit float64 `mapstructure:"sentiment_words_per_unit"`
}

// DefaultRiskPolicy returns the built-in policy. It is the baseline every
// loaded document starts from, and the policy the test suite pins.
func DefaultRiskPolicy() *RiskPolicy {
	return &RiskPolicy{
		Version: "2026-02-01",
		Weights: SignalWeights{
			Keyword:    0.4,
			Sentiment:  0.2,
			Temporal:   0.2,
			Contextual: 0.1,
		},
		Thresholds: RiskThresholds{
			Medium: 0.5,
			High:   0.8,
			Urgent: 0.9,
		},
		KeywordRules: []KeywordRule{
			{
				Tier:   TierExplicit,
				Weight: 1.0,
				Phrases: []string{
					"kill myself", "suicide", "end my life",
					"take my own life", "want to die", "better off dead",
				},
			},
			{
				Tier:   TierSevere,
				Weight: 0.85,
				Phrases: []string{
					"end it all", "hurt myself", "self harm",
					"no reason to live", "better off without me",
					"cutting myself",
				},
			},
			{
				Tier:   TierModerate,
				Weight: 0.65,
				Phrases: []string{
					"hopeless", "overwhelmed", "worthless",
					"can't cope", "can't go on", "give up",
					"falling apart",
				},
			},
			{
				Tier:   TierMild,
				Weight: 0.25,
				Phrases: []string{
					"stressed", "anxious", "exhausted",
					"struggling", "burned out", "down lately",
				},
			},
		},
		NegativeLexicon: map[string]float64{
			"kill":        0.8,
			"die":         0.8,
			"suicide":     1.0,
			"end it all":  1.0,
			"hopeless":    0.8,
			"overwhelmed": 1.0,
			"worthless":   0.8,
			"hurt":        0.5,
			"hate":        0.6,
			"alone":       0.4,
			"pain":        0.5,
			"scared":      0.5,
			"tired":       0.3,
			"crying":      0.5,
			"lost":        0.4,
		},
		PositiveLexicon: map[string]float64{
			"grateful": 0.5,
			"hopeful":  0.6,
			"proud":    0.5,
			"happy":    0.5,
			"excited":  0.5,
			"calm":     0.4,
		},
		NegationPatterns: []string{
			"don't", "do not", "not going to", "no longer",
			"would never", "never want", "used to", "feeling better",
		},
		NegationMultiplier:    0.3,
		ExplicitFloor:         0.9,
		PriorFlagBoost:        0.15,
		LateNightBoost:        0.5,
		LateNightStartHour:    23,
		LateNightEndHour:      5,
		DisengagementBoost:    0.5,
		TemporalWindow:        5,
		SentimentWordsPerUnit: 8,
	}
}

// LoadRiskPolicy reads a policy document from path, layered over the
// defaults. An empty path returns the defaults unchanged.
func LoadRiskPolicy(path string) (*RiskPolicy, error) {
	policy := DefaultRiskPolicy()
	if path == "" {
		return policy, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read risk policy %s: %w", path, err)
	}
	if err := v.Unmarshal(policy); err != nil {
		return nil, fmt.Errorf("failed to parse risk policy %s: %w", path, err)
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk policy %s: %w", path, err)
	}
	return policy, nil
}

// Validate rejects documents that would make the assessor unsound.
func (p *RiskPolicy) Validate() error {
	if p.Thresholds.Medium <= 0 || p.Thresholds.Medium >= p.Thresholds.High {
		return fmt.Errorf("thresholds must satisfy 0 < medium < high, got %v < %v", p.Thresholds.Medium, p.Thresholds.High)
	}
	if p.Thresholds.High > p.Thresholds.Urgent {
		return fmt.Errorf("urgent threshold %v below high threshold %v", p.Thresholds.Urgent, p.Thresholds.High)
	}
	if p.NegationMultiplier <= 0 || p.NegationMultiplier > 1 {
		return fmt.Errorf("negation multiplier must be in (0,1], got %v", p.NegationMultiplier)
	}
	if p.TemporalWindow < 1 {
		return fmt.Errorf("temporal window must be at least 1, got %d", p.TemporalWindow)
	}
	if len(p.KeywordRules) == 0 {
		return fmt.Errorf("keyword rule table is empty")
	}
	for _, rule := range p.KeywordRules {
		if rule.Weight < 0 || rule.Weight > 1 {
			return fmt.Errorf("rule tier %q weight %v outside [0,1]", rule.Tier, rule.Weight)
		}
	}
	return nil
}
