package action

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/archdesk/archdesk/internal/metrics"
	"github.com/archdesk/archdesk/internal/tools"
)

// Executor runs a validated tool input against the application.
type Executor interface {
	ExecuteTool(ctx context.Context, def tools.Definition, input tools.Input) (tools.Result, error)
}

// Recorder receives every status change of a plan, e.g. for an audit log.
type Recorder interface {
	RecordTransition(ctx context.Context, p Plan) error
}

type ToolNotFoundError struct {
	Tool string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool %q not found", e.Tool)
}

type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// Engine drives plans through the executor, one at a time in batch order.
type Engine struct {
	registry *tools.Registry
	exec     Executor
	recorder Recorder
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type EngineOption func(*Engine)

func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(registry *tools.Registry, exec Executor, opts ...EngineOption) *Engine {
	e := &Engine{registry: registry, exec: exec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every pending or approved plan and returns the updated batch.
// Plans in any other state pass through unchanged.
func (e *Engine) Execute(ctx context.Context, plans []Plan) []Plan {
	return e.run(ctx, plans, func(p Plan) bool {
		return p.Status == StatusPending || p.Status == StatusApproved
	})
}

// ExecuteApproved runs a batch after the user decided on it: approved plans
// and pending plans that never needed approval. Pending plans that need
// approval are left for a later decision.
func (e *Engine) ExecuteApproved(ctx context.Context, plans []Plan) []Plan {
	return e.run(ctx, plans, func(p Plan) bool {
		return p.Status == StatusApproved || (p.Status == StatusPending && !p.RequiresApproval)
	})
}

func (e *Engine) run(ctx context.Context, plans []Plan, runnable func(Plan) bool) []Plan {
	out := clonePlans(plans)
	for i := range out {
		if !runnable(out[i]) {
			continue
		}
		out[i] = e.executeOne(ctx, out[i])
	}
	return out
}

func (e *Engine) executeOne(ctx context.Context, p Plan) Plan {
	p = e.transition(ctx, p, StatusExecuting, nil)

	def, ok := e.registry.Get(p.ToolName)
	if !ok {
		return e.fail(ctx, p, &ToolNotFoundError{Tool: p.ToolName})
	}

	input, err := tools.Decode(def, p.Input)
	if err != nil {
		return e.fail(ctx, p, err)
	}

	if err := ctx.Err(); err != nil {
		return e.fail(ctx, p, err)
	}

	res, err := e.exec.ExecuteTool(ctx, def, input)
	if err != nil {
		return e.fail(ctx, p, &ToolExecutionError{Tool: def.Name, Err: err})
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = res.Message
		}
		return e.transition(ctx, p, StatusFailed, &res)
	}
	return e.transition(ctx, p, StatusCompleted, &res)
}

func (e *Engine) fail(ctx context.Context, p Plan, err error) Plan {
	res := tools.Fail(err.Error(), err)
	return e.transition(ctx, p, StatusFailed, &res)
}

func (e *Engine) transition(ctx context.Context, p Plan, to Status, res *tools.Result) Plan {
	p.Status = to
	if res != nil {
		p.Result = res
	}
	e.metrics.ActionStatus(p.ToolName, string(to))

	fields := []zap.Field{
		zap.String("plan_id", p.ID),
		zap.String("tool", p.ToolName),
		zap.String("status", string(to)),
	}
	if to == StatusFailed && res != nil {
		e.logger.Warn("action failed", append(fields, zap.String("error", res.Error))...)
	} else {
		e.logger.Debug("action transition", fields...)
	}

	if e.recorder != nil {
		if err := e.recorder.RecordTransition(ctx, p); err != nil {
			e.logger.Warn("recording action transition failed", zap.String("plan_id", p.ID), zap.Error(err))
		}
	}
	return p
}
