package provider

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type BlockType string

const (
	BlockText       BlockType = "text"
	BlockToolUse    BlockType = "tool_use"
	BlockToolResult BlockType = "tool_result"
)

type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
)

// ContentBlock is one element of a message body. Which fields are set
// depends on Type: Text for text, ID/Name/Input for tool_use and
// ToolUseID/Content/IsError for tool_result.
type ContentBlock struct {
	Type      BlockType      `json:"type" yaml:"type"`
	Text      string         `json:"text,omitempty" yaml:"text,omitempty"`
	ID        string         `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string         `json:"name,omitempty" yaml:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty" yaml:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty" yaml:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty" yaml:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

func TextBlock(s string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: s}
}

type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// UserText builds a single-block user message.
func UserText(s string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(s)}}
}

// ToolSchema is what the model sees of a tool: approval metadata is never
// part of it.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type ChatRequest struct {
	Model      string
	System     string
	Messages   []Message
	Tools      []ToolSchema
	MaxTokens  int
	Credential string
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type ChatResponse struct {
	ID         string
	Model      string
	StopReason StopReason
	Content    []ContentBlock
	Usage      Usage
}

// UsedTools reports whether the model stopped to call tools.
func (r *ChatResponse) UsedTools() bool {
	return r.StopReason == StopToolUse && len(r.ToolUses()) > 0
}

func (r *ChatResponse) ToolUses() []ContentBlock {
	var out []ContentBlock
	for _, b := range r.Content {
		if b.Type == BlockToolUse {
			out = append(out, b)
		}
	}
	return out
}

// FirstText returns the first text block, or "" when there is none.
func (r *ChatResponse) FirstText() string {
	for _, b := range r.Content {
		if b.Type == BlockText {
			return b.Text
		}
	}
	return ""
}

// JoinText concatenates every text block of a message body.
func JoinText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

type Provider interface {
	ID() string
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
