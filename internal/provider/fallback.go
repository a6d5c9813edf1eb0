package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// AllExhaustedError is returned when the requested model and every fallback
// failed with a retryable error.
type AllExhaustedError struct {
	Attempted []string
	Last      error
}

func (e *AllExhaustedError) Error() string {
	return fmt.Sprintf("all models exhausted, attempted: %v: %v", e.Attempted, e.Last)
}

func (e *AllExhaustedError) Unwrap() error { return e.Last }

// Fallback resends a request with the next configured model when the
// current one keeps failing with a retryable error (usually wrapped around a
// Retrying provider, so each model gets its own retry budget).
type Fallback struct {
	next   Provider
	models []string
	logger *zap.Logger
}

func NewFallback(next Provider, models []string, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{next: next, models: models, logger: logger}
}

func (f *Fallback) ID() string { return f.next.ID() }

func (f *Fallback) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	models := append([]string{req.Model}, f.models...)
	attempted := make([]string, 0, len(models))
	var lastErr error

	for _, m := range models {
		if containsModel(attempted, m) {
			continue
		}
		attempted = append(attempted, m)

		r := *req
		r.Model = m
		resp, err := f.next.Chat(ctx, &r)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil || !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
		f.logger.Warn("model failed, trying next",
			zap.String("provider", f.next.ID()),
			zap.String("model", m),
			zap.Error(err))
	}
	return nil, &AllExhaustedError{Attempted: attempted, Last: lastErr}
}

func containsModel(models []string, m string) bool {
	for _, x := range models {
		if x == m {
			return true
		}
	}
	return false
}
