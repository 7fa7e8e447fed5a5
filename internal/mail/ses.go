package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"mailcourier/internal/types"
)

// SESAPI defines the subset of the SES v2 client used by SESSender.
// Extracted for testability; tests can provide a mock implementation.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSenderConfig holds the configuration for creating an SESSender.
type SESSenderConfig struct {
	FromAddress string
	FromName    string
	Logger      types.Logger
}

// SESSender transmits plain-text emails using AWS SES v2. Authentication is
// handled via IAM roles; the AWS SDK provides its own low-level retries, so
// this client maps errors and leaves attempt bookkeeping to the delivery
// executor.
type SESSender struct {
	api      SESAPI
	fromAddr string
	logger   types.Logger
}

// NewSESSender creates a new SESSender from an AWS config.
func NewSESSender(awsCfg aws.Config, cfg SESSenderConfig) *SESSender {
	return newSESSender(sesv2.NewFromConfig(awsCfg), cfg)
}

// NewSESSenderWithAPI creates an SESSender with a pre-configured SESAPI.
// Useful for testing with a mock SES interface.
func NewSESSenderWithAPI(api SESAPI, cfg SESSenderConfig) *SESSender {
	return newSESSender(api, cfg)
}

func newSESSender(api SESAPI, cfg SESSenderConfig) *SESSender {
	fromAddr := cfg.FromAddress
	if cfg.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.FromAddress)
	}
	return &SESSender{
		api:      api,
		fromAddr: fromAddr,
		logger:   cfg.Logger,
	}
}

// Send transmits one email using SES v2 SendEmail with simple content
// (Subject, Body.Text). The content is pre-rendered; no server-side templates.
//
// Error mapping:
//   - TooManyRequestsException -> upstream_rate_limited
//   - SendingPausedException   -> upstream_unavailable
//   - Other                    -> upstream_mail_provider_unavailable
func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromAddr),
		Destination: &sestypes.Destination{
			ToAddresses: []string{to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	}

	out, err := s.api.SendEmail(ctx, input)
	if err != nil {
		return mapSESError(err)
	}

	s.logger.Info("email sent",
		"to", to,
		"provider_message_id", aws.ToString(out.MessageId),
	)
	return nil
}

// SendBatch transmits a set of pre-rendered messages sequentially. SES v2 has
// no simple-content bulk API, so the batch stops at the first error and
// reports how many messages were accepted before it.
func (s *SESSender) SendBatch(ctx context.Context, msgs []Message) (sent int, err error) {
	for i, msg := range msgs {
		if err := s.Send(ctx, msg.To, msg.Subject, msg.Body); err != nil {
			return i, err
		}
	}
	return len(msgs), nil
}

// mapSESError translates SES SDK errors into transport AppErrors.
func mapSESError(err error) error {
	var tooMany *sestypes.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return types.NewAppError(types.ErrCodeUpstreamRateLimited,
			"mail provider rate limited", err)
	}

	var paused *sestypes.SendingPausedException
	if errors.As(err, &paused) {
		return types.NewAppError(types.ErrCodeUpstreamUnavailable,
			"mail provider sending paused", err)
	}

	return types.NewAppError(types.ErrCodeUpstreamMailProvider,
		"mail provider send failed", err)
}

// Compile-time assertion that SESSender implements Sender.
var _ Sender = (*SESSender)(nil)
