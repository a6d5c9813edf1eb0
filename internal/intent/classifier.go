package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/archdesk/archdesk/internal/metrics"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/tools"
)

// Chatter is the part of provider.Provider the classifier needs.
type Chatter interface {
	Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error)
}

// Classifier maps user text to a Classification with one LLM call, caching
// successful answers by normalized text.
type Classifier struct {
	llm       Chatter
	cache     Cache
	model     string
	maxTokens int
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

type Option func(*Classifier)

func WithModel(model string) Option {
	return func(c *Classifier) { c.model = model }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Classifier) { c.metrics = m }
}

// NewClassifier builds a classifier. A nil cache means an in-memory LRU of
// 1024 entries with a one hour TTL.
func NewClassifier(llm Chatter, cache Cache, opts ...Option) *Classifier {
	if cache == nil {
		cache = NewLRUCache(1024, time.Hour)
	}
	c := &Classifier{
		llm:       llm,
		cache:     cache,
		maxTokens: 256,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails. Transport errors and unusable answers produce a
// Degraded classification, which is not cached.
func (c *Classifier) Classify(ctx context.Context, credential, text, appContext string) Classification {
	key := Normalize(text)
	if cl, ok := c.cache.Get(ctx, key); ok {
		c.metrics.Classification(string(cl.Intent), "cache")
		return cl
	}

	req := &provider.ChatRequest{
		Model:      c.model,
		System:     classifierSystemPrompt,
		Messages:   []provider.Message{provider.UserText(buildClassifyPrompt(text, appContext))},
		MaxTokens:  c.maxTokens,
		Credential: credential,
	}

	start := time.Now()
	resp, err := c.llm.Chat(ctx, req)
	c.metrics.LLMRequest("classify", time.Since(start), err)
	if err != nil {
		c.logger.Warn("intent classification request failed", zap.Error(err))
		c.metrics.Classification(string(Unknown), "degraded")
		return Degraded(fmt.Sprintf("classification failed: %v", err))
	}

	cl, err := Parse(resp.FirstText())
	if err != nil {
		c.logger.Warn("intent classification unparseable",
			zap.Error(err),
			zap.String("response", truncate(resp.FirstText(), 200)),
		)
		c.metrics.Classification(string(Unknown), "degraded")
		return Degraded(fmt.Sprintf("unparseable classification: %v", err))
	}

	c.cache.Set(ctx, key, cl)
	c.metrics.Classification(string(cl.Intent), "llm")
	c.logger.Debug("intent classified",
		zap.String("intent", string(cl.Intent)),
		zap.Float64("confidence", cl.Confidence),
	)
	return cl
}

func (c *Classifier) ClearCache(ctx context.Context) error {
	return c.cache.Clear(ctx)
}

const classifierSystemPrompt = "You classify user requests for an architecture records assistant. " +
	"Reply with a single JSON object and nothing else."

func buildClassifyPrompt(text, appContext string) string {
	var b strings.Builder
	b.WriteString("Classify the user's request into exactly one intent.\n\nIntents:\n")
	for _, t := range taxonomy {
		fmt.Fprintf(&b, "- %s (domain: %s), e.g. %s\n", t.Intent, t.Domain, quoteAll(t.Examples))
	}
	fmt.Fprintf(&b, "- %s (domain: %s), when nothing else fits\n", Unknown, DomainChat)

	if appContext != "" {
		b.WriteString("\nApplication context:\n")
		b.WriteString(appContext)
		b.WriteString("\n")
	}

	b.WriteString("\nRespond with JSON only:\n")
	b.WriteString(`{"intent": "<intent>", "confidence": <0.0-1.0>, "reasoning": "<short reason>", "domain": "<domain>"}`)
	b.WriteString("\n\nUser request:\n")
	b.WriteString(text)
	return b.String()
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(q, ", ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return tools.Clip(s, n) + "..."
}
