package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAIChatText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}

		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "gpt-4o" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}

		resp := oaiResponse{
			ID:    "chatcmpl-123",
			Model: "gpt-4o",
			Choices: []oaiChoice{
				{Index: 0, Message: oaiMessage{Role: "assistant", Content: "Hello! How can I help?"}, FinishReason: "stop"},
			},
			Usage: oaiUsage{PromptTokens: 10, CompletionTokens: 5},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOpenAIProvider("openai", server.URL, "test-key", "gpt-4o")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		System:   "You are helpful.",
		Messages: []Message{UserText("Hi")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.FirstText() != "Hello! How can I help?" {
		t.Errorf("text = %q", resp.FirstText())
	}
	if resp.StopReason != StopEndTurn {
		t.Errorf("stop = %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOpenAIChatToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req oaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if len(req.Tools) != 1 || req.Tools[0].Type != "function" || req.Tools[0].Function.Name != "delete_office" {
			t.Fatalf("tools = %+v", req.Tools)
		}
		resp := oaiResponse{
			Choices: []oaiChoice{{
				Message: oaiMessage{Role: "assistant", ToolCalls: []oaiToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: oaiFunctionCall{Name: "delete_office", Arguments: `{"name":"Test Architecture"}`},
				}}},
				FinishReason: "tool_calls",
			}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := NewOpenAIProvider("openai", server.URL, "k", "gpt-4o")
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Messages: []Message{UserText("delete office Test Architecture")},
		Tools:    []ToolSchema{{Name: "delete_office", InputSchema: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.UsedTools() {
		t.Fatal("expected tool use")
	}
	use := resp.ToolUses()[0]
	if use.ID != "call_1" || use.Name != "delete_office" || use.Input["name"] != "Test Architecture" {
		t.Errorf("tool use = %+v", use)
	}
}

func TestOpenAIToolResultsBecomeToolMessages(t *testing.T) {
	p := NewOpenAIProvider("openai", "", "", "gpt-4o")
	req, err := p.toOAIRequest(&ChatRequest{Messages: []Message{
		UserText("go"),
		{Role: RoleAssistant, Content: []ContentBlock{{Type: BlockToolUse, ID: "c1", Name: "navigate_to_page", Input: map[string]any{"page": "home"}}}},
		{Role: RoleUser, Content: []ContentBlock{{Type: BlockToolResult, ToolUseID: "c1", Content: "navigated"}}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if len(req.Messages[1].ToolCalls) != 1 || req.Messages[1].ToolCalls[0].Function.Arguments != `{"page":"home"}` {
		t.Errorf("assistant tool calls = %+v", req.Messages[1].ToolCalls)
	}
	if req.Messages[2].Role != "tool" || req.Messages[2].ToolCallID != "c1" || req.Messages[2].Content != "navigated" {
		t.Errorf("tool message = %+v", req.Messages[2])
	}
}

func TestOpenAIServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider("openai", server.URL, "k", "gpt-4o")
	_, err := p.Chat(context.Background(), &ChatRequest{Messages: []Message{UserText("hi")}})
	if !IsRetryable(err) {
		t.Errorf("503 should be retryable, got %v", err)
	}
}
