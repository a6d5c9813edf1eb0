package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/backend"
	"github.com/archdesk/archdesk/internal/handler"
	"github.com/archdesk/archdesk/internal/intent"
	"github.com/archdesk/archdesk/internal/metrics"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/session"
	"github.com/archdesk/archdesk/internal/tools"
)

const defaultMaxTokens = 4096

type Chatter interface {
	Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error)
}

// ContextProvider renders the application state shown to the model.
type ContextProvider interface {
	ContextForAI() string
}

// Saver stores raw user text without involving the model.
type Saver interface {
	Save(ctx context.Context, text string) backend.SaveResult
}

// Preparer runs before classification. A non-empty reply ends the call with
// that reply; otherwise text replaces the user's input.
type Preparer interface {
	Prepare(ctx context.Context, input string) (text, reply string, err error)
}

type Config struct {
	Credential      string
	Model           string
	MaxTokens       int
	MaxHistoryTurns int
	Rules           []string
}

type Deps struct {
	LLM        Chatter
	Classifier *intent.Classifier
	Selector   *handler.Selector
	Registry   *tools.Registry
	Engine     *action.Engine
	Context    ContextProvider
	Saver      Saver
}

type Orchestrator struct {
	cfg        Config
	llm        Chatter
	classifier *intent.Classifier
	selector   *handler.Selector
	registry   *tools.Registry
	builder    *action.Builder
	engine     *action.Engine
	appContext ContextProvider
	saver      Saver
	preparer   Preparer
	rules      *Rules
	guard      *Guard
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

type Option func(*Orchestrator)

func WithPreparer(p Preparer) Option {
	return func(o *Orchestrator) { o.preparer = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(cfg Config, deps Deps, opts ...Option) *Orchestrator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	o := &Orchestrator{
		cfg:        cfg,
		llm:        deps.LLM,
		classifier: deps.Classifier,
		selector:   deps.Selector,
		registry:   deps.Registry,
		builder:    action.NewBuilder(deps.Registry),
		engine:     deps.Engine,
		appContext: deps.Context,
		saver:      deps.Saver,
		rules:      NewRules(cfg.Rules),
		guard:      NewGuard(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProcessInput runs one user input through classification, the model and,
// when the model asks for tools, the approval gate. The returned session is
// sess with this exchange appended; sess itself is never modified. Failures
// never escape: they come back as a TypeError response with sess unchanged.
func (o *Orchestrator) ProcessInput(ctx context.Context, sess session.Session, text string) (resp Response, out session.Session) {
	defer o.recoverInto(&resp, &out, sess)

	if o.cfg.Credential == "" {
		return errorResponse(ErrNoCredential), sess
	}
	r, s, err := o.process(session.WithID(ctx, sess.ID), sess, text)
	if err != nil {
		o.logger.Warn("process input failed", zap.String("session", sess.ID), zap.Error(err))
		return errorResponse(err), sess
	}
	return r, s
}

// ResolveActions runs a batch returned by ProcessInput once the user has
// decided on it: approved plans run, and so do pending plans that never
// needed approval. Rejected plans are reported to the model as not executed.
// Plans still waiting on approval stay pending and no answer is produced
// until none are left.
func (o *Orchestrator) ResolveActions(ctx context.Context, sess session.Session, plans []action.Plan) (resp Response, out session.Session) {
	defer o.recoverInto(&resp, &out, sess)

	if o.cfg.Credential == "" {
		return errorResponse(ErrNoCredential), sess
	}
	ctx = session.WithID(ctx, sess.ID)

	plans = o.engine.ExecuteApproved(ctx, plans)
	if n := len(action.Pending(plans)); n > 0 {
		return o.done(Response{
			Type:    TypeActions,
			Message: fmt.Sprintf("%d action(s) still need your approval", n),
			Actions: plans,
		}), sess
	}

	appCtx := o.contextSnapshot()
	answer := o.synthesize(ctx, o.history(sess), toolUseBlocks(plans), plans, appCtx)
	out = sess.Append(session.AssistantTurn(provider.TextBlock(answer)))
	return o.done(textResponse(answer, plans, &Metadata{Context: appCtx})), out
}

func (o *Orchestrator) process(ctx context.Context, sess session.Session, raw string) (Response, session.Session, error) {
	text := raw
	if o.preparer != nil {
		prepared, reply, err := o.preparer.Prepare(ctx, raw)
		if err != nil {
			return Response{}, sess, fmt.Errorf("preparing input: %w", err)
		}
		if reply != "" {
			out := sess.Append(session.UserTurn(raw), session.AssistantTurn(provider.TextBlock(reply)))
			return o.done(textResponse(reply, nil, nil)), out, nil
		}
		if strings.TrimSpace(prepared) != "" {
			text = prepared
		}
	}

	appCtx := o.contextSnapshot()
	cl := o.classifier.Classify(ctx, o.cfg.Credential, text, appCtx)
	h := o.selector.Select(cl)
	meta := &Metadata{Intent: &cl, Context: appCtx}

	o.logger.Debug("input classified",
		zap.String("session", sess.ID),
		zap.String("intent", string(cl.Intent)),
		zap.Float64("confidence", cl.Confidence),
		zap.String("handler", h.Name),
	)

	var schemas []provider.ToolSchema
	if len(h.ToolNames) > 0 {
		schemas = o.registry.ForModel(h.ToolNames...)
	}

	user := session.UserTurn(text)
	msgs := append(o.history(sess), provider.Message{Role: user.Role, Content: user.Content})
	first, err := o.chat(ctx, "respond", &provider.ChatRequest{
		System:   o.rules.SystemPrompt(h.PromptFragment, appCtx, len(schemas) > 0),
		Messages: msgs,
		Tools:    schemas,
	})
	if err != nil {
		return Response{}, sess, err
	}

	outcome := classifyOutcome(first, h.Domain)
	o.logger.Debug("model responded", zap.String("session", sess.ID), zap.Stringer("outcome", outcome))

	switch outcome {
	case OutcomeToolUse:
		plans := o.builder.Build(first.ToolUses())
		if action.NeedsApproval(plans) {
			msg := fmt.Sprintf("%d action(s) need your approval (%d destructive)", len(plans), action.CountDestructive(plans))
			r := Response{Type: TypeActions, Message: msg, Actions: plans, Metadata: meta}
			return o.done(r), sess.Append(user), nil
		}

		plans = o.engine.Execute(ctx, plans)
		answer := o.synthesize(ctx, msgs, first.Content, plans, appCtx)
		out := sess.Append(user, session.AssistantTurn(provider.TextBlock(answer)))
		return o.done(textResponse(answer, plans, meta)), out, nil

	case OutcomeRefused:
		if o.saver == nil {
			break
		}
		o.metrics.RefusalFallback()
		res := o.saver.Save(ctx, raw)
		o.logger.Info("model refused a save, stored input directly",
			zap.String("session", sess.ID),
			zap.Bool("saved", res.Success),
		)
		out := sess.Append(user, session.AssistantTurn(provider.TextBlock(res.Message)))
		return o.done(textResponse(res.Message, nil, meta)), out, nil
	}

	answer := provider.JoinText(first.Content)
	out := sess.Append(user, session.AssistantTurn(provider.TextBlock(answer)))
	return o.done(textResponse(answer, nil, meta)), out, nil
}

// synthesize sends the tool results back for a tool-free answer. The plans
// already ran, so a failed call falls back to a plain summary rather than an
// error.
func (o *Orchestrator) synthesize(ctx context.Context, history []provider.Message, toolUse []provider.ContentBlock, plans []action.Plan, appCtx string) string {
	var results []provider.ContentBlock
	for _, p := range plans {
		if p.CallID != "" {
			results = append(results, o.guard.ToolResultBlock(p))
		}
	}

	msgs := append([]provider.Message(nil), history...)
	msgs = append(msgs,
		provider.Message{Role: provider.RoleAssistant, Content: toolUse},
		provider.Message{Role: provider.RoleUser, Content: results},
	)

	resp, err := o.chat(ctx, "synthesize", &provider.ChatRequest{
		System:   o.rules.synthesisPrompt(appCtx),
		Messages: msgs,
	})
	if err != nil {
		o.logger.Warn("synthesis failed, summarizing results", zap.Error(err))
		return summarize(plans)
	}
	if answer := strings.TrimSpace(provider.JoinText(resp.Content)); answer != "" {
		return answer
	}
	return summarize(plans)
}

func (o *Orchestrator) chat(ctx context.Context, purpose string, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	req.Model = o.cfg.Model
	req.MaxTokens = o.cfg.MaxTokens
	req.Credential = o.cfg.Credential

	start := time.Now()
	resp, err := o.llm.Chat(ctx, req)
	o.metrics.LLMRequest(purpose, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", purpose, err)
	}
	return resp, nil
}

func (o *Orchestrator) history(sess session.Session) []provider.Message {
	if o.cfg.MaxHistoryTurns > 0 {
		sess = sess.Trim(o.cfg.MaxHistoryTurns)
	}
	return sess.Messages()
}

func (o *Orchestrator) contextSnapshot() string {
	if o.appContext == nil {
		return ""
	}
	return o.appContext.ContextForAI()
}

func (o *Orchestrator) done(r Response) Response {
	o.metrics.Response(string(r.Type))
	return r
}

func (o *Orchestrator) recoverInto(resp *Response, out *session.Session, sess session.Session) {
	rec := recover()
	if rec == nil {
		if resp.Type == TypeError {
			o.metrics.Response(string(TypeError))
		}
		return
	}
	o.logger.Error("orchestrator panic", zap.Any("panic", rec), zap.Stack("stack"))
	*resp = errorResponse(fmt.Errorf("internal error: %v", rec))
	*out = sess
	o.metrics.Response(string(TypeError))
}

// toolUseBlocks rebuilds the assistant tool_use turn of a resolved batch.
func toolUseBlocks(plans []action.Plan) []provider.ContentBlock {
	var blocks []provider.ContentBlock
	for _, p := range plans {
		if p.CallID == "" {
			continue
		}
		blocks = append(blocks, provider.ContentBlock{
			Type:  provider.BlockToolUse,
			ID:    p.CallID,
			Name:  p.ToolName,
			Input: p.Input,
		})
	}
	return blocks
}

func summarize(plans []action.Plan) string {
	lines := make([]string, 0, len(plans))
	for _, p := range plans {
		line := fmt.Sprintf("%s: %s", p.ToolName, p.Status)
		if p.Result != nil {
			if msg := firstNonEmpty(p.Result.Message, p.Result.Error); msg != "" {
				line += " (" + msg + ")"
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
