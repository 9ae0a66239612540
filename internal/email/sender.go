// Package email sends templated mail through whichever provider is
// configured, falling back to a log-only sender so non-production
// environments never fail on a missing API key.
package email

import (
	"context"

	"github.com/charmbracelet/log"
)

// DefaultFrom is the sender identity used when none is configured.
const DefaultFrom = "ASMR Audio Bible <noreply@asmraudiobible.com>"

// Message is one outbound email with both HTML and text bodies.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a message through one provider.
type Sender interface {
	// Name identifies the provider in logs.
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Cascade tries senders in priority order until one succeeds. The log
// sender at the end never fails, so a cascade send always reports
// success to the caller even with no provider configured.
type Cascade struct {
	senders []Sender
	log     *log.Logger
}

// NewCascade builds the cascade. Senders are tried in the order given;
// a trailing LogSender is appended as the safety net.
func NewCascade(logger *log.Logger, senders ...Sender) *Cascade {
	all := make([]Sender, 0, len(senders)+1)
	all = append(all, senders...)
	all = append(all, NewLogSender(logger))

	return &Cascade{senders: all, log: logger}
}

func (c *Cascade) Name() string { return "cascade" }

func (c *Cascade) Send(ctx context.Context, msg Message) error {
	var lastErr error
	for _, s := range c.senders {
		if err := s.Send(ctx, msg); err != nil {
			c.log.Warn(
				"Email provider failed, trying next",
				"provider", s.Name(),
				"to", msg.To,
				"error", err,
			)
			lastErr = err
			continue
		}
		return nil
	}
	// Unreachable with the log sender in place, kept for safety.
	return lastErr
}

// LogSender records the intended email instead of sending it.
type LogSender struct {
	log *log.Logger
}

func NewLogSender(logger *log.Logger) *LogSender {
	return &LogSender{log: logger}
}

func (s *LogSender) Name() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.log.Info(
		"No email provider configured, logging instead",
		"to", msg.To,
		"subject", msg.Subject,
	)
	return nil
}
