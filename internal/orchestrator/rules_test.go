package orchestrator

import (
	"strings"
	"testing"

	"github.com/archdesk/archdesk/internal/intent"
	"github.com/archdesk/archdesk/internal/provider"
)

func TestSystemPromptSections(t *testing.T) {
	r := NewRules(nil)
	prompt := r.SystemPrompt("You help with navigation.", "Current page: home", true)

	for _, want := range []string{
		"You help with navigation.",
		"## Current application state\nCurrent page: home",
		"## Content policy",
		"copyright",
		"## When to use tools",
		"regulations-list",
		"## Safety rules",
		"[tool_output]",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Index(prompt, "You help with navigation.") > strings.Index(prompt, "## Content policy") {
		t.Error("handler fragment should come before the policy sections")
	}
}

func TestSystemPromptWithoutTools(t *testing.T) {
	prompt := NewRules(nil).SystemPrompt("Chat.", "", false)
	if strings.Contains(prompt, "## When to use tools") {
		t.Error("rubric should be left out when no tools are offered")
	}
	if strings.Contains(prompt, "## Current application state") {
		t.Error("empty context should not add a section")
	}
}

func TestCustomRules(t *testing.T) {
	r := NewRules([]string{"Always answer in German.", "  ", ""})
	prompt := r.SystemPrompt("", "", false)
	if !strings.Contains(prompt, "- [custom] Always answer in German.") {
		t.Errorf("custom rule missing:\n%s", prompt)
	}
	if strings.Count(prompt, "[custom]") != 1 {
		t.Error("blank rules should be dropped")
	}
}

func TestClassifyOutcome(t *testing.T) {
	refusal := &provider.ChatResponse{StopReason: provider.StopEndTurn,
		Content: []provider.ContentBlock{provider.TextBlock("I am not able to save that text.")}}
	plain := &provider.ChatResponse{StopReason: provider.StopEndTurn,
		Content: []provider.ContentBlock{provider.TextBlock("Saved.")}}
	tool := &provider.ChatResponse{StopReason: provider.StopToolUse,
		Content: []provider.ContentBlock{{Type: provider.BlockToolUse, ID: "c1", Name: "save_meditation"}}}

	tests := []struct {
		name   string
		resp   *provider.ChatResponse
		domain intent.Domain
		want   Outcome
	}{
		{"refusal in meditation", refusal, intent.DomainMeditation, OutcomeRefused},
		{"refusal elsewhere", refusal, intent.DomainNoteSystem, OutcomeAnswered},
		{"plain meditation", plain, intent.DomainMeditation, OutcomeAnswered},
		{"tool use wins", tool, intent.DomainMeditation, OutcomeToolUse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyOutcome(tt.resp, tt.domain); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLooksLikeRefusal(t *testing.T) {
	for _, s := range []string{
		"I cannot store copyrighted material.",
		"Sorry, I CAN'T SAVE this.",
		"I'm unable to help with that.",
	} {
		if !looksLikeRefusal(s) {
			t.Errorf("%q should count as a refusal", s)
		}
	}
	if looksLikeRefusal("Your meditation is saved.") {
		t.Error("plain confirmation counted as a refusal")
	}
}
