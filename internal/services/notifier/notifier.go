// Package notifier renders and delivers the buy-order messages over SMTP.
package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/LewisWJackson/RedDayDCAAlerter/internal/domain"
	"github.com/LewisWJackson/RedDayDCAAlerter/pkg/retrier"
)

const (
	sendMaxRetries      = 2
	sendInitialInterval = 2 * time.Second
)

// Config holds SMTP transport settings and recipients.
type Config struct {
	SMTPHost      string
	SMTPPort      int
	Sender        string
	Password      string
	BrokerEmail   string
	PersonalEmail string
}

// EmailNotifier delivers trigger and completion messages by email. It runs
// only after the state write committed; its failures never roll anything back.
type EmailNotifier struct {
	cfg     Config
	plan    domain.AllocationPlan
	l       *zap.Logger
	retrier *retrier.Retrier

	// send is swappable in tests.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier returns a notifier for the given transport and allocation plan.
func NewEmailNotifier(l *zap.Logger, cfg Config, plan domain.AllocationPlan) *EmailNotifier {
	return &EmailNotifier{
		cfg:  cfg,
		plan: plan,
		l:    l,
		retrier: retrier.New(
			retrier.WithMaxRetries(sendMaxRetries),
			retrier.WithInitialInterval(sendInitialInterval),
		),
		send: smtp.SendMail,
	}
}

// Notify sends the broker buy-order and the personal action-required message
// for one fired trigger.
func (n *EmailNotifier) Notify(ctx context.Context, record domain.TriggerRecord, completed, max int) error {
	broker := renderBrokerMessage(n.cfg.BrokerEmail, record, max, n.plan)
	personal := renderPersonalMessage(n.cfg.PersonalEmail, record, completed, max, n.plan)

	var firstErr error
	for _, msg := range []message{broker, personal} {
		if err := n.deliver(ctx, msg); err != nil {
			n.l.Error("email delivery failed",
				zap.String("to", msg.to),
				zap.String("subject", msg.subject),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		n.l.Info("email sent", zap.String("to", msg.to), zap.String("subject", msg.subject))
	}

	return firstErr
}

// NotifyCompletion sends the one-time summary after the final trigger.
func (n *EmailNotifier) NotifyCompletion(ctx context.Context, history []domain.TriggerRecord) error {
	msg := renderCompletionMessage(n.cfg.PersonalEmail, history, n.plan)
	if err := n.deliver(ctx, msg); err != nil {
		n.l.Error("completion email delivery failed", zap.Error(err))
		return err
	}

	n.l.Info("completion email sent", zap.String("to", msg.to))
	return nil
}

func (n *EmailNotifier) deliver(ctx context.Context, msg message) error {
	if n.cfg.Password == "" {
		n.l.Warn("sender password not configured, logging message instead of sending",
			zap.String("to", msg.to),
			zap.String("subject", msg.subject),
			zap.String("body", msg.text))
		return errors.New("sender password not configured")
	}

	payload := buildMIME(n.cfg.Sender, msg)
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.Sender, n.cfg.Password, n.cfg.SMTPHost)

	return n.retrier.Do(ctx, func(_ context.Context) error {
		return n.send(addr, auth, n.cfg.Sender, []string{msg.to}, payload)
	})
}
