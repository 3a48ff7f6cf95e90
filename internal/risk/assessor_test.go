package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coachwell-ai/coaching-engine/internal/config"
	"github.com/coachwell-ai/coaching-engine/internal/model"
)

var noon = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func userMsg(content string) model.Message {
	return model.Message{Sender: model.SenderUser, Content: content}
}

func TestAssessExplicitSelfHarmScoresHigh(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	bundle := a.Assess("I want to kill myself", nil, model.UserContext{}, noon)

	assert.GreaterOrEqual(t, bundle.CompositeScore, 0.8)
	assert.Equal(t, model.RiskHigh, bundle.Level)
	assert.Contains(t, bundle.MatchedTiers, config.TierExplicit)
	assert.Equal(t, 1.0, bundle.NegationMultiplier)
}

func TestAssessExplicitFloorSurvivesCalmHistory(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	// A long calm history dilutes the temporal signal; the explicit floor
	// must keep the composite in the high band anyway.
	history := []model.Message{
		userMsg("I finished the lesson on budgeting"),
		userMsg("The breathing exercise was helpful"),
		userMsg("Looking forward to the next module"),
		userMsg("Thanks for the reminder"),
	}

	bundle := a.Assess("I want to end my life", history, model.UserContext{}, noon)

	assert.GreaterOrEqual(t, bundle.CompositeScore, 0.8)
	assert.Equal(t, model.RiskHigh, bundle.Level)
}

func TestAssessNegationMultipliesComposite(t *testing.T) {
	policy := config.DefaultRiskPolicy()
	a := NewAssessor(policy)

	affirmed := a.Assess("I want to end it all", nil, model.UserContext{}, noon)
	negated := a.Assess("I don't want to end it all", nil, model.UserContext{}, noon)

	require.Equal(t, 1.0, affirmed.NegationMultiplier)
	require.Equal(t, policy.NegationMultiplier, negated.NegationMultiplier)

	// Same keyword, sentiment, and temporal signals; only the multiplier
	// separates the two composites.
	assert.InDelta(t, affirmed.KeywordScore, negated.KeywordScore, 1e-9)
	assert.InDelta(t, affirmed.CompositeScore*policy.NegationMultiplier, negated.CompositeScore, 1e-9)
}

func TestAssessNegatedExplicitDoesNotFloor(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	bundle := a.Assess("I don't want to kill myself anymore", nil, model.UserContext{}, noon)

	assert.Less(t, bundle.CompositeScore, 0.5)
	assert.Equal(t, model.RiskNormal, bundle.Level)
}

func TestAssessModerateDistressLandsInMediumBand(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	history := []model.Message{
		userMsg("Good morning, ready for today's lesson"),
		{Sender: model.SenderAssistant, Content: "Great, let's pick up where we left off."},
		userMsg("I finished the module on time blocking"),
	}

	bundle := a.Assess("I feel overwhelmed but it's getting better", history, model.UserContext{}, noon)

	assert.Equal(t, model.RiskMedium, bundle.Level)
	assert.GreaterOrEqual(t, bundle.CompositeScore, 0.5)
	assert.Less(t, bundle.CompositeScore, 0.8)
	// "getting better" is not a recovery pattern; only "feeling better" is.
	assert.Equal(t, 1.0, bundle.NegationMultiplier)
}

func TestAssessFeelingBetterDampens(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	plain := a.Assess("I feel overwhelmed today", nil, model.UserContext{}, noon)
	recovering := a.Assess("I was overwhelmed but I am feeling better", nil, model.UserContext{}, noon)

	assert.Less(t, recovering.CompositeScore, plain.CompositeScore)
}

func TestAssessTemporalPatternRaisesScore(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())

	calm := []model.Message{
		userMsg("The lesson went fine"),
		userMsg("Nothing new to report"),
	}
	troubled := []model.Message{
		userMsg("I feel hopeless about this"),
		userMsg("Still feel worthless today"),
	}

	flat := a.Assess("I can't cope with work", calm, model.UserContext{}, noon)
	rising := a.Assess("I can't cope with work", troubled, model.UserContext{}, noon)

	assert.Greater(t, rising.TemporalScore, flat.TemporalScore)
	assert.Greater(t, rising.CompositeScore, flat.CompositeScore)
}

func TestAssessContextualBoosts(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())
	lateNight := time.Date(2026, 2, 10, 23, 30, 0, 0, time.UTC)

	day := a.Assess("I feel hopeless", nil, model.UserContext{}, noon)
	night := a.Assess("I feel hopeless", nil, model.UserContext{DecliningEngagement: true}, lateNight)

	assert.Zero(t, day.ContextualScore)
	assert.Equal(t, 1.0, night.ContextualScore)
	assert.Greater(t, night.CompositeScore, day.CompositeScore)
}

func TestAssessPriorEscalationBoost(t *testing.T) {
	policy := config.DefaultRiskPolicy()
	a := NewAssessor(policy)

	base := a.Assess("I feel anxious about tomorrow", nil, model.UserContext{}, noon)
	flagged := a.Assess("I feel anxious about tomorrow", nil, model.UserContext{PriorEscalations: true}, noon)

	assert.Zero(t, base.PriorFlagBoost)
	assert.Equal(t, policy.PriorFlagBoost, flagged.PriorFlagBoost)
	assert.InDelta(t, base.CompositeScore+policy.PriorFlagBoost, flagged.CompositeScore, 1e-9)
}

func TestAssessIsDeterministic(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())
	history := []model.Message{userMsg("I feel hopeless sometimes")}
	uc := model.UserContext{PriorEscalations: true, DecliningEngagement: true}

	first := a.Assess("everything hurts and I can't go on", history, uc, noon)
	second := a.Assess("everything hurts and I can't go on", history, uc, noon)

	assert.Equal(t, first, second)
}

func TestAssessCompositeAlwaysClamped(t *testing.T) {
	a := NewAssessor(config.DefaultRiskPolicy())
	lateNight := time.Date(2026, 2, 11, 1, 0, 0, 0, time.UTC)

	history := []model.Message{
		userMsg("I want to die"),
		userMsg("no reason to live"),
	}
	uc := model.UserContext{PriorEscalations: true, DecliningEngagement: true}

	bundle := a.Assess("I want to kill myself, it's hopeless, I'm worthless", history, uc, lateNight)

	assert.LessOrEqual(t, bundle.CompositeScore, 1.0)
	assert.Equal(t, model.RiskHigh, bundle.Level)
}

func TestPolicyValidation(t *testing.T) {
	bad := config.DefaultRiskPolicy()
	bad.Thresholds.High = 0.4
	assert.Error(t, bad.Validate())

	good := config.DefaultRiskPolicy()
	assert.NoError(t, good.Validate())
}
