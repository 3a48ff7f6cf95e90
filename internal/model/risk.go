package model

// RiskLevel classifies a composite risk score against policy thresholds.
type RiskLevel string

const (
	RiskNormal RiskLevel = "normal"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskSignalBundle is the per-message snapshot of every crisis signal and
// the composite they produce. It is a deterministic function of the message,
// recent history, and user context — no hidden state, no network calls.
type RiskSignalBundle struct {
	KeywordScore       float64 `json:"keyword_score"`
	SentimentScore     float64 `json:"sentiment_score"`
	TemporalScore      float64 `json:"temporal_score"`
	NegationMultiplier float64 `json:"negation_multiplier"`
	ContextualScore    float64 `json:"contextual_score"`
	PriorFlagBoost     float64 `json:"prior_flag_boost"`

	// CompositeScore is always within [0, 1].
	CompositeScore float64 `json:"composite_score"`

	Level RiskLevel `json:"level"`

	// MatchedTiers lists the rule tiers the message matched, highest first.
	MatchedTiers []string `json:"matched_tiers,omitempty"`
}
