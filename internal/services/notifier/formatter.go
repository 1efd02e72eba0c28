package notifier

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
)

const timestampLayout = "2006-01-02 15:04 UTC"

type message struct {
	to      string
	subject string
	html    string
	text    string
}

func classificationLabel(c domain.Classification) string {
	switch c {
	case domain.ClassificationIntradayDip:
		return "Intraday dip"
	case domain.ClassificationCloseToClose:
		return "Close-to-close"
	case domain.ClassificationManual:
		return "Manual"
	default:
		return string(c)
	}
}

func renderBrokerMessage(to string, record domain.TriggerRecord, max int, plan domain.AllocationPlan) message {
	allocations := plan.BrokerAllocations(record.SequenceNumber)
	total := domain.Total(allocations)
	thirdTrigger := plan.IncludesSpeculative(record.SequenceNumber)

	subject := fmt.Sprintf("BUY ORDER - Red Day DCA Trigger #%d of %d", record.SequenceNumber, max)

	var html strings.Builder
	html.WriteString("<html><body>")
	html.WriteString("<h2>Buy Order Request</h2>")
	html.WriteString("<p>This is an automated buy order from the Red Day DCA strategy.</p>")
	html.WriteString("<h3>Trigger Details</h3><ul>")
	fmt.Fprintf(&html, "<li><strong>Trigger Number:</strong> %d of %d</li>", record.SequenceNumber, max)
	fmt.Fprintf(&html, "<li><strong>Trigger Type:</strong> %s</li>", classificationLabel(record.Classification))
	fmt.Fprintf(&html, "<li><strong>Price:</strong> $%s</li>", record.ObservedPrice.StringFixed(2))
	fmt.Fprintf(&html, "<li><strong>Reference Close:</strong> $%s</li>", record.ReferenceClose.StringFixed(2))
	fmt.Fprintf(&html, "<li><strong>Drop:</strong> %s%%</li>", record.DropPercent.StringFixed(2))
	fmt.Fprintf(&html, "<li><strong>Timestamp:</strong> %s</li>", record.FiredAt.Format(timestampLayout))
	html.WriteString("</ul>")
	fmt.Fprintf(&html, "<h3>Buy Order (Total: £%s)</h3>", total.StringFixed(2))
	html.WriteString("<p><strong>Please process this order with immediate effect.</strong></p>")
	html.WriteString("<table border=\"1\"><tr><th>Asset</th><th>Amount (GBP)</th></tr>")
	for _, a := range allocations {
		fmt.Fprintf(&html, "<tr><td>%s</td><td>£%s</td></tr>", a.Symbol, a.Amount.StringFixed(2))
	}
	fmt.Fprintf(&html, "<tr><td><strong>TOTAL</strong></td><td><strong>£%s</strong></td></tr></table>", total.StringFixed(2))
	if thirdTrigger {
		fmt.Fprintf(&html, "<p><strong>Note:</strong> trigger #%d includes the speculative extras.</p>", record.SequenceNumber)
	}
	html.WriteString("<p>Please confirm execution once complete.</p>")
	html.WriteString("</body></html>")

	var text strings.Builder
	fmt.Fprintf(&text, "BUY ORDER - Red Day DCA Trigger #%d of %d\n\n", record.SequenceNumber, max)
	text.WriteString("This is an automated buy order from the Red Day DCA strategy.\n\n")
	text.WriteString("TRIGGER DETAILS:\n")
	fmt.Fprintf(&text, "- Trigger Number: %d of %d\n", record.SequenceNumber, max)
	fmt.Fprintf(&text, "- Trigger Type: %s\n", classificationLabel(record.Classification))
	fmt.Fprintf(&text, "- Price: $%s\n", record.ObservedPrice.StringFixed(2))
	fmt.Fprintf(&text, "- Reference Close: $%s\n", record.ReferenceClose.StringFixed(2))
	fmt.Fprintf(&text, "- Drop: %s%%\n", record.DropPercent.StringFixed(2))
	fmt.Fprintf(&text, "- Timestamp: %s\n\n", record.FiredAt.Format(timestampLayout))
	fmt.Fprintf(&text, "BUY ORDER (Total: £%s)\n", total.StringFixed(2))
	text.WriteString("Please process this order with immediate effect.\n\n")
	for _, a := range allocations {
		fmt.Fprintf(&text, "- %s: £%s\n", a.Symbol, a.Amount.StringFixed(2))
	}
	if thirdTrigger {
		fmt.Fprintf(&text, "\nNote: trigger #%d includes the speculative extras.\n", record.SequenceNumber)
	}
	text.WriteString("\nPlease confirm execution once complete.\n")

	return message{to: to, subject: subject, html: html.String(), text: text.String()}
}

func renderPersonalMessage(to string, record domain.TriggerRecord, completed, max int, plan domain.AllocationPlan) message {
	brokerAllocations := plan.BrokerAllocations(record.SequenceNumber)
	equitiesTotal := domain.Total(plan.Equities)

	subject := fmt.Sprintf("ACTION REQUIRED: Equity Purchase - Trigger #%d", record.SequenceNumber)

	var html strings.Builder
	html.WriteString("<html><body>")
	html.WriteString("<h2>Red Day DCA Alert - Action Required</h2>")
	fmt.Fprintf(&html, "<h3>Trigger #%d of %d Fired</h3>", record.SequenceNumber, max)
	fmt.Fprintf(&html, "<p><strong>Price dropped %s%%</strong> (%s)</p>", record.DropPercent.StringFixed(2), classificationLabel(record.Classification))
	fmt.Fprintf(&html, "<p>Current: $%s | Reference Close: $%s</p>", record.ObservedPrice.StringFixed(2), record.ReferenceClose.StringFixed(2))
	fmt.Fprintf(&html, "<p>Time: %s</p>", record.FiredAt.Format(timestampLayout))
	fmt.Fprintf(&html, "<h3>Manual Purchases (Total: £%s)</h3>", equitiesTotal.StringFixed(2))
	html.WriteString("<table border=\"1\"><tr><th>Stock</th><th>Amount (GBP)</th></tr>")
	for _, a := range plan.Equities {
		fmt.Fprintf(&html, "<tr><td>%s</td><td>£%s</td></tr>", a.Symbol, a.Amount.StringFixed(2))
	}
	html.WriteString("</table>")
	html.WriteString("<h3>Broker Order Sent</h3>")
	html.WriteString("<table border=\"1\"><tr><th>Crypto</th><th>Amount (GBP)</th></tr>")
	for _, a := range brokerAllocations {
		fmt.Fprintf(&html, "<tr><td>%s</td><td>£%s</td></tr>", a.Symbol, a.Amount.StringFixed(2))
	}
	html.WriteString("</table>")
	fmt.Fprintf(&html, "<h4>Progress</h4><p>Triggers completed: %d of %d | Remaining: %d</p>", completed, max, max-completed)
	html.WriteString("</body></html>")

	var text strings.Builder
	text.WriteString("RED DAY DCA ALERT - ACTION REQUIRED\n\n")
	fmt.Fprintf(&text, "Trigger #%d of %d Fired\n", record.SequenceNumber, max)
	fmt.Fprintf(&text, "Price dropped %s%% (%s)\n", record.DropPercent.StringFixed(2), classificationLabel(record.Classification))
	fmt.Fprintf(&text, "Current: $%s | Reference Close: $%s\n", record.ObservedPrice.StringFixed(2), record.ReferenceClose.StringFixed(2))
	fmt.Fprintf(&text, "Time: %s\n\n", record.FiredAt.Format(timestampLayout))
	text.WriteString("MANUAL PURCHASES:\n")
	for _, a := range plan.Equities {
		fmt.Fprintf(&text, "- %s: £%s\n", a.Symbol, a.Amount.StringFixed(2))
	}
	fmt.Fprintf(&text, "TOTAL: £%s\n\n", equitiesTotal.StringFixed(2))
	text.WriteString("BROKER ORDER SENT:\n")
	for _, a := range brokerAllocations {
		fmt.Fprintf(&text, "- %s: £%s\n", a.Symbol, a.Amount.StringFixed(2))
	}
	fmt.Fprintf(&text, "\nPROGRESS\nTriggers completed: %d of %d\nRemaining: %d\n", completed, max, max-completed)

	return message{to: to, subject: subject, html: html.String(), text: text.String()}
}

func renderCompletionMessage(to string, history []domain.TriggerRecord, plan domain.AllocationPlan) message {
	subject := fmt.Sprintf("Red Day DCA Complete - All %d Triggers Executed", len(history))

	speculativeCount := 0
	for _, record := range history {
		if plan.IncludesSpeculative(record.SequenceNumber) {
			speculativeCount++
		}
	}

	n := decimal.NewFromInt(int64(len(history)))
	cryptoTotal := domain.Total(plan.Core).Mul(n).
		Add(domain.Total(plan.Speculative).Mul(decimal.NewFromInt(int64(speculativeCount))))
	equitiesTotal := domain.Total(plan.Equities).Mul(n)

	var html strings.Builder
	html.WriteString("<html><body>")
	html.WriteString("<h2>Red Day DCA Strategy Complete</h2>")
	fmt.Fprintf(&html, "<p>All %d triggers have been executed.</p>", len(history))
	html.WriteString("<h3>Trigger History</h3>")
	html.WriteString("<table border=\"1\"><tr><th>#</th><th>Date</th><th>Price</th><th>Drop %</th><th>Type</th></tr>")
	for _, record := range history {
		fmt.Fprintf(&html, "<tr><td>%d</td><td>%s</td><td>$%s</td><td>%s%%</td><td>%s</td></tr>",
			record.SequenceNumber, record.FiredDate, record.ObservedPrice.StringFixed(2),
			record.DropPercent.StringFixed(2), classificationLabel(record.Classification))
	}
	html.WriteString("</table>")
	html.WriteString("<h3>Total Deployed</h3><ul>")
	fmt.Fprintf(&html, "<li>Crypto (via broker): £%s</li>", cryptoTotal.StringFixed(2))
	fmt.Fprintf(&html, "<li>Equities (manual): £%s</li>", equitiesTotal.StringFixed(2))
	html.WriteString("</ul>")
	html.WriteString("<p>The monitoring system will now stop checking for triggers.</p>")
	html.WriteString("</body></html>")

	var text strings.Builder
	fmt.Fprintf(&text, "RED DAY DCA STRATEGY COMPLETE\n\nAll %d triggers have been executed.\n\nTRIGGER HISTORY:\n", len(history))
	for _, record := range history {
		fmt.Fprintf(&text, "#%d  %s  $%s  %s%%  %s\n",
			record.SequenceNumber, record.FiredDate, record.ObservedPrice.StringFixed(2),
			record.DropPercent.StringFixed(2), classificationLabel(record.Classification))
	}
	fmt.Fprintf(&text, "\nTOTAL DEPLOYED\n- Crypto (via broker): £%s\n- Equities (manual): £%s\n", cryptoTotal.StringFixed(2), equitiesTotal.StringFixed(2))
	text.WriteString("\nThe monitoring system will now stop checking for triggers.\n")

	return message{to: to, subject: subject, html: html.String(), text: text.String()}
}

// buildMIME assembles a multipart/alternative payload with plain text and
// HTML parts.
func buildMIME(from string, msg message) []byte {
	boundary := strings.ReplaceAll(uuid.New().String(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "Message-ID: <%s@reddaydca>\r\n", uuid.New().String())
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n", boundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.text)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(msg.html)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String())
}
