package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicMessagesPath   = "/v1/messages"
	anthropicAPIVersion     = "2023-06-01"
	defaultMaxTokens        = 4096
)

// AnthropicProvider speaks the Anthropic Messages API, including tool use.
type AnthropicProvider struct {
	id      string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(c *http.Client) AnthropicOption {
	return func(p *AnthropicProvider) { p.client = c }
}

// NewAnthropicProvider creates a provider for the Anthropic API. model is
// used when a request does not name one; apiKey when it carries no credential.
func NewAnthropicProvider(id, baseURL, apiKey, model string, opts ...AnthropicOption) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	p := &AnthropicProvider{
		id:      id,
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *AnthropicProvider) ID() string { return p.id }

// -- Anthropic wire types --

type anthRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []anthMessage `json:"messages"`
	Tools     []anthTool    `json:"tools,omitempty"`
	MaxTokens int           `json:"max_tokens"`
}

type anthMessage struct {
	Role    string             `json:"role"`
	Content []anthContentBlock `json:"content"`
}

type anthTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     *map[string]any `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type anthResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Content    []anthContentBlock `json:"content"`
	Usage      anthUsage          `json:"usage"`
	Error      *anthError         `json:"error,omitempty"`
}

type anthUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Chat sends a non-streaming Messages request.
func (p *AnthropicProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(p.toAnthRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+anthropicMessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	p.setHeaders(httpReq, req.Credential)

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var anthResp anthResponse
	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: p.id, StatusCode: httpResp.StatusCode, Message: string(respBody)}
		if json.Unmarshal(respBody, &anthResp) == nil && anthResp.Error != nil {
			apiErr.Type = anthResp.Error.Type
			apiErr.Message = anthResp.Error.Message
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(respBody, &anthResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if anthResp.Error != nil {
		return nil, &APIError{Provider: p.id, StatusCode: httpResp.StatusCode, Type: anthResp.Error.Type, Message: anthResp.Error.Message}
	}

	blocks := make([]ContentBlock, 0, len(anthResp.Content))
	for _, b := range anthResp.Content {
		switch b.Type {
		case "text":
			blocks = append(blocks, TextBlock(b.Text))
		case "tool_use":
			input := map[string]any{}
			if b.Input != nil && *b.Input != nil {
				input = *b.Input
			}
			blocks = append(blocks, ContentBlock{Type: BlockToolUse, ID: b.ID, Name: b.Name, Input: input})
		}
	}

	return &ChatResponse{
		ID:         anthResp.ID,
		Model:      anthResp.Model,
		StopReason: StopReason(anthResp.StopReason),
		Content:    blocks,
		Usage: Usage{
			InputTokens:  anthResp.Usage.InputTokens,
			OutputTokens: anthResp.Usage.OutputTokens,
		},
	}, nil
}

func (p *AnthropicProvider) toAnthRequest(req *ChatRequest) anthRequest {
	msgs := make([]anthMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		blocks := make([]anthContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			blk := anthContentBlock{
				Type:      string(b.Type),
				Text:      b.Text,
				ID:        b.ID,
				Name:      b.Name,
				ToolUseID: b.ToolUseID,
				Content:   b.Content,
				IsError:   b.IsError,
			}
			// The API rejects a tool_use block without input, even an empty one.
			if b.Type == BlockToolUse {
				input := b.Input
				if input == nil {
					input = map[string]any{}
				}
				blk.Input = &input
			}
			blocks = append(blocks, blk)
		}
		msgs = append(msgs, anthMessage{Role: string(m.Role), Content: blocks})
	}

	tools := make([]anthTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, anthTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	return anthRequest{
		Model:     model,
		System:    req.System,
		Messages:  msgs,
		Tools:     tools,
		MaxTokens: maxTokens,
	}
}

func (p *AnthropicProvider) setHeaders(req *http.Request, credential string) {
	key := credential
	if key == "" {
		key = p.apiKey
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", key)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
}
