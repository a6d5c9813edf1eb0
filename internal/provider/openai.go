package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	openAIDefaultBaseURL  = "https://api.openai.com/v1"
	openAICompletionsPath = "/chat/completions"
)

// OpenAIProvider implements Provider for any OpenAI-compatible chat
// completions endpoint (OpenAI, Azure, Ollama, vLLM, Groq, etc.) using
// function calling for tools.
type OpenAIProvider struct {
	id      string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) { p.client = c }
}

// NewOpenAIProvider creates a provider for any OpenAI-compatible endpoint.
func NewOpenAIProvider(id, baseURL, apiKey, model string, opts ...OpenAIOption) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	p := &OpenAIProvider{
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

func (p *OpenAIProvider) ID() string { return p.id }

// -- OpenAI wire types --

type oaiRequest struct {
	Model     string       `json:"model"`
	Messages  []oaiMessage `json:"messages"`
	Tools     []oaiTool    `json:"tools,omitempty"`
	MaxTokens int          `json:"max_tokens,omitempty"`
}

type oaiMessage struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	ToolCalls  []oaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type oaiTool struct {
	Type     string      `json:"type"`
	Function oaiFunction `json:"function"`
}

type oaiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type oaiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function oaiFunctionCall `json:"function"`
}

type oaiFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaiResponse struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []oaiChoice `json:"choices"`
	Usage   oaiUsage    `json:"usage"`
	Error   *oaiError   `json:"error,omitempty"`
}

type oaiChoice struct {
	Index        int        `json:"index"`
	Message      oaiMessage `json:"message"`
	FinishReason string     `json:"finish_reason"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type oaiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Chat sends a non-streaming completion request.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	oaiReq, err := p.toOAIRequest(req)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+openAICompletionsPath, bytes.NewReader(body))
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

	var oaiResp oaiResponse
	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: p.id, StatusCode: httpResp.StatusCode, Message: string(respBody)}
		if json.Unmarshal(respBody, &oaiResp) == nil && oaiResp.Error != nil {
			apiErr.Type = oaiResp.Error.Type
			apiErr.Message = oaiResp.Error.Message
		}
		return nil, apiErr
	}

	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if oaiResp.Error != nil {
		return nil, &APIError{Provider: p.id, StatusCode: httpResp.StatusCode, Type: oaiResp.Error.Type, Message: oaiResp.Error.Message}
	}

	out := &ChatResponse{
		ID:         oaiResp.ID,
		Model:      oaiResp.Model,
		StopReason: StopEndTurn,
		Usage: Usage{
			InputTokens:  oaiResp.Usage.PromptTokens,
			OutputTokens: oaiResp.Usage.CompletionTokens,
		},
	}
	if len(oaiResp.Choices) == 0 {
		return out, nil
	}

	choice := oaiResp.Choices[0]
	if choice.Message.Content != "" {
		out.Content = append(out.Content, TextBlock(choice.Message.Content))
	}
	for _, tc := range choice.Message.ToolCalls {
		input := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &input); err != nil {
				return nil, fmt.Errorf("tool call %s: decode arguments: %w", tc.Function.Name, err)
			}
		}
		out.Content = append(out.Content, ContentBlock{Type: BlockToolUse, ID: tc.ID, Name: tc.Function.Name, Input: input})
	}
	switch choice.FinishReason {
	case "tool_calls":
		out.StopReason = StopToolUse
	case "length":
		out.StopReason = StopMaxTokens
	}
	return out, nil
}

func (p *OpenAIProvider) toOAIRequest(req *ChatRequest) (oaiRequest, error) {
	msgs := make([]oaiMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, oaiMessage{Role: "system", Content: req.System})
	}

	for _, m := range req.Messages {
		var text []string
		var calls []oaiToolCall
		for _, b := range m.Content {
			switch b.Type {
			case BlockText:
				text = append(text, b.Text)
			case BlockToolUse:
				args, err := json.Marshal(b.Input)
				if err != nil {
					return oaiRequest{}, fmt.Errorf("marshal tool input %s: %w", b.Name, err)
				}
				calls = append(calls, oaiToolCall{
					ID:       b.ID,
					Type:     "function",
					Function: oaiFunctionCall{Name: b.Name, Arguments: string(args)},
				})
			case BlockToolResult:
				// Each tool result is its own "tool" message in this API.
				msgs = append(msgs, oaiMessage{Role: "tool", Content: b.Content, ToolCallID: b.ToolUseID})
			}
		}
		if len(text) > 0 || len(calls) > 0 {
			msgs = append(msgs, oaiMessage{
				Role:      string(m.Role),
				Content:   strings.Join(text, "\n\n"),
				ToolCalls: calls,
			})
		}
	}

	tools := make([]oaiTool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, oaiTool{
			Type:     "function",
			Function: oaiFunction{Name: t.Name, Description: t.Description, Parameters: t.InputSchema},
		})
	}

	model := req.Model
	if model == "" {
		model = p.model
	}
	return oaiRequest{
		Model:     model,
		Messages:  msgs,
		Tools:     tools,
		MaxTokens: req.MaxTokens,
	}, nil
}

func (p *OpenAIProvider) setHeaders(req *http.Request, credential string) {
	key := credential
	if key == "" {
		key = p.apiKey
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
}
