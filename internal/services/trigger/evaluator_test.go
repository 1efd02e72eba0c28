package trigger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

const today = "2026-02-03"

func testThresholds(t *testing.T) domain.Thresholds {
	t.Helper()
	thresholds, err := domain.NewThresholds(
		decimal.RequireFromString("-4.7"),
		decimal.RequireFromString("-3.3"),
		15,
	)
	require.NoError(t, err)
	return thresholds
}

func stateWithReference(reference string) *domain.TriggerState {
	state := domain.NewTriggerState()
	state.AdoptReferenceClose(decimal.RequireFromString(reference), "2026-02-02")
	return state
}

func TestEvaluateIntradayFiresOnInclusiveBoundary(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	decision := e.EvaluateIntraday(state, decimal.RequireFromString("95.3"), today)
	require.True(t, decision.Fire, "drop of exactly -4.7%% must fire")
	require.Equal(t, domain.ClassificationIntradayDip, decision.Classification)
	require.True(t, decision.DropPercent.Equal(decimal.RequireFromString("-4.7")))
}

func TestEvaluateIntradayDoesNotFireAboveThreshold(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	decision := e.EvaluateIntraday(state, decimal.RequireFromString("95.31"), today)
	require.False(t, decision.Fire, "drop of -4.69%% must not fire intraday")
	require.Equal(t, domain.ReasonAboveThreshold, decision.Reason)
}

func TestEvaluateCloseUsesShallowerThreshold(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	// -3.4% is no intraday trigger but is a close-to-close trigger.
	price := decimal.RequireFromString("96.6")
	prior := decimal.RequireFromString("100")
	require.False(t, e.EvaluateIntraday(state, price, today).Fire)

	decision := e.EvaluateClose(state, price, prior, today)
	require.True(t, decision.Fire)
	require.Equal(t, domain.ClassificationCloseToClose, decision.Classification)
	require.True(t, decision.ReferenceClose.Equal(prior))
}

func TestEvaluateCloseWithoutPriorCloseNeverFires(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	decision := e.EvaluateClose(state, decimal.RequireFromString("50"), decimal.Zero, today)
	require.False(t, decision.Fire)
	require.Equal(t, domain.ReasonMissingReference, decision.Reason)
}

func TestEvaluateCompleteIsTerminal(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")
	state.TriggerCount = 15

	decision := e.EvaluateIntraday(state, decimal.NewFromInt(1), today)
	require.False(t, decision.Fire)
	require.Equal(t, domain.ReasonComplete, decision.Reason, "terminal state blocks any price input")

	decision = e.EvaluateManual(state, decimal.NewFromInt(1), today)
	require.Equal(t, domain.ReasonComplete, decision.Reason, "manual path honors the terminal guard")
}

func TestEvaluateSameDayDedup(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")
	state.LastTriggerDate = today
	state.TriggerCount = 1

	decision := e.EvaluateIntraday(state, decimal.NewFromInt(50), today)
	require.False(t, decision.Fire, "deep drop must not fire twice on one date")
	require.Equal(t, domain.ReasonAlreadyFiredToday, decision.Reason)

	decision = e.EvaluateClose(state, decimal.NewFromInt(50), decimal.NewFromInt(100), today)
	require.Equal(t, domain.ReasonAlreadyFiredToday, decision.Reason)

	decision = e.EvaluateManual(state, decimal.NewFromInt(50), today)
	require.Equal(t, domain.ReasonAlreadyFiredToday, decision.Reason)
}

func TestEvaluateMissingReference(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := domain.NewTriggerState()

	decision := e.EvaluateIntraday(state, decimal.NewFromInt(50000), today)
	require.False(t, decision.Fire)
	require.Equal(t, domain.ReasonMissingReference, decision.Reason, "never fire without a baseline")
}

func TestEvaluateRejectsMalformedPrice(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	decision := e.EvaluateIntraday(state, decimal.Zero, today)
	require.Equal(t, domain.ReasonInvalidInput, decision.Reason)

	decision = e.EvaluateIntraday(state, decimal.NewFromInt(-5), today)
	require.Equal(t, domain.ReasonInvalidInput, decision.Reason)
}

func TestEvaluateManualBypassesThreshold(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")

	// price above the reference: no automatic trigger would fire.
	decision := e.EvaluateManual(state, decimal.RequireFromString("101"), today)
	require.True(t, decision.Fire)
	require.Equal(t, domain.ClassificationManual, decision.Classification)
	require.True(t, decision.DropPercent.Equal(decimal.NewFromInt(1)))
}

func TestEvaluateIsPureAndRepeatable(t *testing.T) {
	e := NewEvaluator(testThresholds(t))
	state := stateWithReference("100")
	price := decimal.RequireFromString("90")

	first := e.EvaluateIntraday(state, price, today)
	second := e.EvaluateIntraday(state, price, today)
	require.Equal(t, first, second, "evaluation must not depend on hidden state")
	require.Equal(t, 0, state.TriggerCount, "evaluator never mutates state")
	require.Empty(t, state.TriggerHistory)
}
