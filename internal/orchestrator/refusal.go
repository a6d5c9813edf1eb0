package orchestrator

import (
	"strings"

	"github.com/archdesk/archdesk/internal/intent"
	"github.com/archdesk/archdesk/internal/provider"
)

// Outcome is what the model did with a request.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeToolUse
	OutcomeRefused
)

func (o Outcome) String() string {
	switch o {
	case OutcomeToolUse:
		return "tool_use"
	case OutcomeRefused:
		return "refused"
	default:
		return "answered"
	}
}

var refusalMarkers = []string{
	"copyright",
	"copyrighted",
	"cannot save",
	"can't save",
	"cannot store",
	"can't store",
	"not able",
	"unable to",
	"i'm sorry, but",
	"i am sorry, but",
	"legal reasons",
	"intellectual property",
}

// refusalDomains are the domains where a refusal is bypassed. Only personal
// meditations qualify: the text is the user's own and saving it is benign.
var refusalDomains = map[intent.Domain]bool{
	intent.DomainMeditation: true,
}

// classifyOutcome decides how to continue after the first model call.
func classifyOutcome(resp *provider.ChatResponse, domain intent.Domain) Outcome {
	if resp.UsedTools() {
		return OutcomeToolUse
	}
	if refusalDomains[domain] && looksLikeRefusal(provider.JoinText(resp.Content)) {
		return OutcomeRefused
	}
	return OutcomeAnswered
}

func looksLikeRefusal(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range refusalMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
