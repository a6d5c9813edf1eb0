package action

import (
	"github.com/google/uuid"

	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/tools"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition is possible within a batch.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted || s == StatusFailed
}

// Plan is one proposed tool invocation and its approval and execution state.
type Plan struct {
	ID               string         `json:"id" yaml:"id"`
	CallID           string         `json:"call_id,omitempty" yaml:"call_id,omitempty"`
	ToolName         string         `json:"tool_name" yaml:"tool_name"`
	ToolDescription  string         `json:"tool_description" yaml:"tool_description"`
	Input            map[string]any `json:"input" yaml:"input"`
	RequiresApproval bool           `json:"requires_approval" yaml:"requires_approval"`
	Destructive      bool           `json:"destructive" yaml:"destructive"`
	Status           Status         `json:"status" yaml:"status"`
	Result           *tools.Result  `json:"result,omitempty" yaml:"result,omitempty"`
}

// Builder turns tool_use blocks into pending plans.
type Builder struct {
	registry *tools.Registry
	newID    func() string
}

func NewBuilder(registry *tools.Registry) *Builder {
	return &Builder{registry: registry, newID: uuid.NewString}
}

// Build creates one plan per tool_use block. A tool missing from the
// registry still gets a plan so the engine can fail it visibly.
func (b *Builder) Build(blocks []provider.ContentBlock) []Plan {
	var plans []Plan
	for _, blk := range blocks {
		if blk.Type != provider.BlockToolUse {
			continue
		}
		p := Plan{
			ID:       b.newID(),
			CallID:   blk.ID,
			ToolName: blk.Name,
			Input:    copyInput(blk.Input),
			Status:   StatusPending,
		}
		if def, ok := b.registry.Get(blk.Name); ok {
			p.ToolDescription = def.Description
			p.RequiresApproval = def.RequiresApproval
			p.Destructive = def.Destructive
		}
		plans = append(plans, p)
	}
	return plans
}

func copyInput(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clonePlans copies the slice so callers never share a backing array.
func clonePlans(plans []Plan) []Plan {
	if plans == nil {
		return nil
	}
	out := make([]Plan, len(plans))
	copy(out, plans)
	return out
}
