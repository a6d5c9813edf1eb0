package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modelRecorder struct {
	fail   map[string]error
	models []string
}

func (m *modelRecorder) ID() string { return "recorder" }

func (m *modelRecorder) Chat(_ context.Context, req *ChatRequest) (*ChatResponse, error) {
	m.models = append(m.models, req.Model)
	if err := m.fail[req.Model]; err != nil {
		return nil, err
	}
	return &ChatResponse{Model: req.Model, Content: []ContentBlock{TextBlock("ok")}}, nil
}

func TestFallbackUsesNextModelOnRetryableError(t *testing.T) {
	next := &modelRecorder{fail: map[string]error{"primary": &APIError{StatusCode: 529}}}
	f := NewFallback(next, []string{"primary", "backup", "spare"}, nil)

	req := &ChatRequest{Model: "primary"}
	resp, err := f.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "backup", resp.Model)
	assert.Equal(t, []string{"primary", "backup"}, next.models)
	assert.Equal(t, "primary", req.Model, "caller's request is not modified")
}

func TestFallbackStopsOnPermanentError(t *testing.T) {
	next := &modelRecorder{fail: map[string]error{"primary": &APIError{StatusCode: 400}}}
	f := NewFallback(next, []string{"backup"}, nil)

	_, err := f.Chat(context.Background(), &ChatRequest{Model: "primary"})
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, []string{"primary"}, next.models)
}

func TestFallbackExhausted(t *testing.T) {
	overloaded := &APIError{StatusCode: 503}
	next := &modelRecorder{fail: map[string]error{
		"primary": overloaded,
		"backup":  &TransportError{Err: errors.New("connection refused")},
	}}
	f := NewFallback(next, []string{"backup"}, nil)

	_, err := f.Chat(context.Background(), &ChatRequest{Model: "primary"})
	var ex *AllExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, []string{"primary", "backup"}, ex.Attempted)
	assert.True(t, IsRetryable(err))
}
