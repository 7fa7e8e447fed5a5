// Package mail provides the outbound mail transport for the notification
// pipeline. The production implementation is AWS SES v2 behind a circuit
// breaker; configuration flags can route sends to a log sink (mock mode) or
// turn them into silent successes (disabled mode). Both flags are honored
// before any network call is attempted.
package mail

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"mailcourier/internal/config"
	"mailcourier/internal/types"
)

// Sender is the mail transport contract used by the delivery executor.
// Implementations return nil on accepted transmission; any error is treated
// as a transport failure and feeds the FAILED path of the state machine.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Message is a single pre-rendered email for batch transmission.
type Message struct {
	To      string
	Subject string
	Body    string
}

// NewSender resolves the configured transport. Resolution order matters:
// the enabled flag wins over mock, and the real provider is only reached
// when both flags permit it.
func NewSender(cfg config.EmailConfig, provider Sender, logger types.Logger) Sender {
	if !cfg.Enabled {
		return &DisabledSender{logger: logger}
	}
	if cfg.Mock {
		return &MockSender{logger: logger}
	}
	return NewBreakerSender(provider, logger)
}

// DisabledSender reports success without doing anything. Used when the
// email feature flag is off so the rest of the pipeline still progresses
// records to SENT.
type DisabledSender struct {
	logger types.Logger
}

// Send logs and succeeds.
func (s *DisabledSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email sending disabled, skipping send", "to", to, "subject", subject)
	return nil
}

// MockSender logs the full message instead of transmitting it. Used in local
// development and integration tests.
type MockSender struct {
	logger types.Logger
}

// Send logs the message content and succeeds.
func (s *MockSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("mock email send",
		"to", to,
		"subject", subject,
		"body_bytes", len(body),
	)
	return nil
}

// BreakerSender wraps a Sender with a circuit breaker so a struggling mail
// provider fails fast instead of tying up delivery workers on a dead upstream.
// An open breaker surfaces as an upstream_unavailable transport error and
// follows the normal FAILED path.
type BreakerSender struct {
	inner   Sender
	breaker *gobreaker.CircuitBreaker[any]
	logger  types.Logger
}

// NewBreakerSender creates a BreakerSender around the given transport.
func NewBreakerSender(inner Sender, logger types.Logger) *BreakerSender {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "mail-provider",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("mail provider breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerSender{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Send executes the inner transport through the breaker.
func (s *BreakerSender) Send(ctx context.Context, to, subject, body string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.inner.Send(ctx, to, subject, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.NewAppError(types.ErrCodeUpstreamUnavailable,
				"mail provider circuit breaker open", err)
		}
		return err
	}
	return nil
}

// Compile-time assertions.
var (
	_ Sender = (*DisabledSender)(nil)
	_ Sender = (*MockSender)(nil)
	_ Sender = (*BreakerSender)(nil)
)
