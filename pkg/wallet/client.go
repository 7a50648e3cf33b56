package wallet

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/haadi101/lazorpay/pkg/signature"
)

// Config holds the resilience tunables for remote invocations. It is the
// single source of truth for these values; nothing else in the package
// carries its own retry or timeout constants.
type Config struct {
	// MaxRetries is the total number of attempts for rate-limited calls (>= 1).
	MaxRetries int `json:"max_retries"`

	// BaseDelay is the backoff before the second attempt; attempt n waits
	// BaseDelay * 2^(n-1).
	BaseDelay time.Duration `json:"base_delay"`

	// Timeout bounds each individual attempt.
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig provides the retry settings used by the demo CLI.
var DefaultConfig = Config{
	MaxRetries: 3,
	BaseDelay:  500 * time.Millisecond,
	Timeout:    60 * time.Second,
}

// Validate checks the config is usable.
func (c *Config) Validate() error {
	var allErrors field.ErrorList
	if c.MaxRetries < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("maxRetries"), c.MaxRetries, "must be at least 1"))
	}
	if c.BaseDelay <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("baseDelay"), c.BaseDelay.String(), "must be positive"))
	}
	if c.Timeout <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("timeout"), c.Timeout.String(), "must be positive"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// Client wraps a Remote with timeout enforcement, bounded retry on
// rate-limit rejections, response-shape normalization and signature
// canonicalization on the message-signing path.
type Client struct {
	remote Remote
	config Config
	logger *zap.Logger
}

// NewClient creates a wallet client around the given remote.
func NewClient(remote Remote, config Config, logger *zap.Logger) (*Client, error) {
	if remote == nil {
		return nil, fmt.Errorf("remote cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wallet config: %w", err)
	}

	return &Client{
		remote: remote,
		config: config,
		logger: logger,
	}, nil
}

// SignAndSend submits the payload for gasless execution and returns the
// resulting transaction signature along with the number of attempts made.
// Attempts run strictly sequentially. A rate-limited rejection is retried
// with exponential backoff up to MaxRetries attempts; a timeout or any other
// rejection is terminal; an unrecognizable success value is terminal too,
// since the shape problem is deterministic and retrying cannot fix it.
func (c *Client) SignAndSend(ctx context.Context, payload *GaslessPayload) (string, int, error) {
	if payload == nil {
		return "", 0, fmt.Errorf("payload cannot be nil")
	}

	var lastErr error
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		raw, err := c.submitOnce(ctx, payload)
		if err == nil {
			result := extractSignature(raw)
			if result.shape == shapeUnrecognized {
				c.logger.Sugar().Errorw("SignAndSend: unrecognized relayer response shape",
					"attempt", attempt,
					"body", truncateForLog(raw),
				)
				return "", attempt, errors.Wrapf(ErrUnrecognizedResponse, "response: %s", truncateForLog(raw))
			}

			c.logger.Sugar().Debugw("SignAndSend: extracted transaction signature",
				"attempt", attempt,
				"shape", result.shape.String(),
				"signature", result.signature,
			)
			return result.signature, attempt, nil
		}

		if !isRateLimited(err) {
			// Terminal: timeout or a non-transient relayer rejection.
			return "", attempt, err
		}

		lastErr = err
		if attempt == c.config.MaxRetries {
			break
		}

		delay := c.config.BaseDelay << (attempt - 1)
		c.logger.Sugar().Warnw("SignAndSend: relayer rate limited, backing off",
			"attempt", attempt,
			"max_retries", c.config.MaxRetries,
			"delay", delay.String(),
			"error", err,
		)
		if err := sleepCtx(ctx, delay); err != nil {
			return "", attempt, err
		}
	}

	return "", c.config.MaxRetries, &ThrottledError{Attempts: c.config.MaxRetries, Cause: lastErr}
}

// SignMessage performs a single (non-retried) remote signing call and
// canonicalizes the returned signature to low-S form before handing it back.
// A signature that cannot be base64-decoded is a hard error: silently
// returning a possibly high-S signature would just move the failure to the
// on-chain verifier where it is far harder to diagnose.
func (c *Client) SignMessage(ctx context.Context, message []byte) (*SignedMessage, error) {
	if len(message) == 0 {
		return nil, fmt.Errorf("message cannot be empty")
	}

	signed, err := c.signOnce(ctx, message)
	if err != nil {
		return nil, err
	}

	rawSig, err := base64.StdEncoding.DecodeString(signed.Signature)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode relayer signature for normalization")
	}

	if len(rawSig) != signature.Length {
		c.logger.Sugar().Warnw("SignMessage: unexpected signature length, normalization skipped",
			"length", len(rawSig),
			"expected", signature.Length,
		)
	} else if signature.IsHighS(rawSig) {
		c.logger.Sugar().Debugw("SignMessage: rewriting high-S signature to canonical form")
	}

	signed.Signature = base64.StdEncoding.EncodeToString(signature.Normalize(rawSig))
	return signed, nil
}

// submitOnce races one SubmitGasless call against the per-attempt timeout.
// If the timer wins the attempt is abandoned; the underlying call keeps its
// cancelled context and is left to settle unobserved.
func (c *Client) submitOnce(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type settled struct {
		raw json.RawMessage
		err error
	}
	done := make(chan settled, 1)
	go func() {
		raw, err := c.remote.SubmitGasless(attemptCtx, payload)
		done <- settled{raw: raw, err: err}
	}()

	select {
	case s := <-done:
		return s.raw, s.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// Caller cancellation, not our timer.
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrTimeout, "after %s", c.config.Timeout)
	}
}

// signOnce races one SignMessage call against the per-attempt timeout.
func (c *Client) signOnce(ctx context.Context, message []byte) (*SignedMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	type settled struct {
		msg *SignedMessage
		err error
	}
	done := make(chan settled, 1)
	go func() {
		msg, err := c.remote.SignMessage(attemptCtx, message)
		done <- settled{msg: msg, err: err}
	}()

	select {
	case s := <-done:
		if s.err != nil {
			return nil, s.err
		}
		if s.msg == nil {
			return nil, fmt.Errorf("relayer returned empty signing result")
		}
		return s.msg, nil
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrTimeout, "after %s", c.config.Timeout)
	}
}

// sleepCtx waits for d or until ctx is cancelled, releasing the timer either way.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// truncateForLog bounds response bodies included in logs and errors.
func truncateForLog(raw json.RawMessage) string {
	const max = 256
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
