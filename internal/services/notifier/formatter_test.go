package notifier

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

func sampleRecord(sequence int) domain.TriggerRecord {
	return domain.TriggerRecord{
		SequenceNumber: sequence,
		FiredAt:        time.Date(2026, 2, 3, 14, 30, 0, 0, time.UTC),
		FiredDate:      "2026-02-03",
		ObservedPrice:  decimal.RequireFromString("95000.50"),
		ReferenceClose: decimal.NewFromInt(100000),
		DropPercent:    decimal.RequireFromString("-4.9995"),
		Classification: domain.ClassificationIntradayDip,
	}
}

func TestRenderBrokerMessage(t *testing.T) {
	plan := domain.DefaultAllocationPlan()
	msg := renderBrokerMessage("broker@example.com", sampleRecord(1), 15, plan)

	require.Equal(t, "broker@example.com", msg.to)
	require.Equal(t, "BUY ORDER - Red Day DCA Trigger #1 of 15", msg.subject)
	require.Contains(t, msg.text, "Trigger Number: 1 of 15")
	require.Contains(t, msg.text, "Timestamp: 2026-02-03 14:30 UTC")
	require.Contains(t, msg.text, "LINK: £666.67")
	require.Contains(t, msg.text, "Total: £2599.99")
	require.NotContains(t, msg.text, "BANANA", "speculative assets only on every 3rd trigger")
	require.Contains(t, msg.html, "<td>TRAC</td>")
}

func TestRenderBrokerMessageThirdTriggerIncludesSpeculative(t *testing.T) {
	plan := domain.DefaultAllocationPlan()
	msg := renderBrokerMessage("broker@example.com", sampleRecord(3), 15, plan)

	require.Contains(t, msg.text, "BANANA: £100.00")
	require.Contains(t, msg.text, "BONK: £100.00")
	require.Contains(t, msg.text, "Total: £2799.99")
	require.Contains(t, msg.text, "speculative extras")
}

func TestRenderPersonalMessage(t *testing.T) {
	plan := domain.DefaultAllocationPlan()
	msg := renderPersonalMessage("me@example.com", sampleRecord(2), 2, 15, plan)

	require.Contains(t, msg.subject, "Trigger #2")
	require.Contains(t, msg.text, "COIN: £233.33")
	require.Contains(t, msg.text, "TOTAL: £600.00")
	require.Contains(t, msg.text, "Triggers completed: 2 of 15")
	require.Contains(t, msg.text, "Remaining: 13")
	require.Contains(t, msg.text, "Intraday dip")
}

func TestRenderCompletionMessage(t *testing.T) {
	plan := domain.DefaultAllocationPlan()

	history := make([]domain.TriggerRecord, 0, 15)
	for i := 1; i <= 15; i++ {
		history = append(history, sampleRecord(i))
	}

	msg := renderCompletionMessage("me@example.com", history, plan)
	require.Equal(t, "Red Day DCA Complete - All 15 Triggers Executed", msg.subject)
	require.Contains(t, msg.text, "#15")

	// 15 core rounds plus 5 speculative rounds:
	// 2599.99*15 + 200*5 = 38999.85 + 1000 = 39999.85
	require.Contains(t, msg.text, "£39999.85")
	// equities: 600*15
	require.Contains(t, msg.text, "£9000.00")
}

func TestBuildMIME(t *testing.T) {
	msg := message{
		to:      "broker@example.com",
		subject: "BUY ORDER",
		html:    "<p>hi</p>",
		text:    "hi",
	}

	payload := string(buildMIME("sender@example.com", msg))
	require.Contains(t, payload, "From: sender@example.com")
	require.Contains(t, payload, "To: broker@example.com")
	require.Contains(t, payload, "Subject: BUY ORDER")
	require.Contains(t, payload, "Content-Type: multipart/alternative")
	require.Contains(t, payload, "Content-Type: text/plain")
	require.Contains(t, payload, "Content-Type: text/html")
}
