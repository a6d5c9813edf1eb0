package provider

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2,
	}
}

// Retrying wraps a Provider and resends requests that failed with a
// retryable status or a transport error, backing off exponentially.
type Retrying struct {
	next   Provider
	cfg    RetryConfig
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetrying(next Provider, cfg RetryConfig, logger *zap.Logger) *Retrying {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{next: next, cfg: cfg, logger: logger, sleep: sleepCtx}
}

func (r *Retrying) ID() string { return r.next.ID() }

func (r *Retrying) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	backoff := r.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		resp, err := r.next.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) || attempt == r.cfg.MaxAttempts {
			break
		}

		r.logger.Warn("chat request failed, retrying",
			zap.String("provider", r.next.ID()),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		if err := r.sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff = time.Duration(float64(backoff) * r.cfg.Multiplier)
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
	return nil, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
