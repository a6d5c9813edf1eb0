package orchestrator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/tools"
)

const DefaultMaxResultBytes = 64 * 1024

var defaultForbiddenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[tool_call\]`),
	regexp.MustCompile(`\[tool_use\]`),
	regexp.MustCompile(`<tool_call>`),
	regexp.MustCompile(`<function_call>`),
	regexp.MustCompile(`"type"\s*:\s*"tool_use"`),
	regexp.MustCompile(`"type"\s*:\s*"function"`),
	regexp.MustCompile(`"tool_calls"\s*:\s*\[`),
}

// Guard prepares tool results before the model sees them. Results are
// untrusted: they are size capped, scrubbed of anything that looks like a
// tool call, and wrapped as data.
type Guard struct {
	MaxResultBytes    int
	ForbiddenPatterns []*regexp.Regexp
}

func NewGuard() *Guard {
	return &Guard{
		MaxResultBytes:    DefaultMaxResultBytes,
		ForbiddenPatterns: defaultForbiddenPatterns,
	}
}

func (g *Guard) Sanitize(s string) string {
	if s == "" {
		return s
	}
	if g.MaxResultBytes > 0 && len(s) > g.MaxResultBytes {
		s = tools.Clip(s, g.MaxResultBytes) + "\n[truncated: result exceeded size limit]"
	}
	for _, pat := range g.ForbiddenPatterns {
		s = pat.ReplaceAllStringFunc(s, func(match string) string {
			return strings.Repeat("*", len(match))
		})
	}
	return s
}

// ToolResultBlock renders one executed plan as the tool_result the model
// receives for its tool_use.
func (g *Guard) ToolResultBlock(p action.Plan) provider.ContentBlock {
	blk := provider.ContentBlock{Type: provider.BlockToolResult, ToolUseID: p.CallID}

	switch {
	case p.Status == action.StatusRejected:
		blk.IsError = true
		blk.Content = g.wrap("The user rejected this action. It was not executed.")
	case p.Result == nil:
		blk.IsError = true
		blk.Content = g.wrap(fmt.Sprintf("The action was not executed (status %s).", p.Status))
	case !p.Result.Success:
		blk.IsError = true
		blk.Content = g.wrap("error: " + g.Sanitize(firstNonEmpty(p.Result.Error, p.Result.Message)))
	default:
		body := p.Result.Message
		if p.Result.Data != nil {
			if data, err := json.Marshal(p.Result.Data); err == nil {
				body += "\n" + string(data)
			}
		}
		blk.Content = g.wrap(g.Sanitize(body))
	}
	return blk
}

func (g *Guard) wrap(s string) string {
	return fmt.Sprintf("[tool_output]\n%s\n[/tool_output]", s)
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}
