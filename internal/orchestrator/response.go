package orchestrator

import (
	"errors"

	"github.com/archdesk/archdesk/internal/action"
	"github.com/archdesk/archdesk/internal/intent"
)

// ErrNoCredential is returned before any model call when no API key is set.
var ErrNoCredential = errors.New("No API key")

type ResponseType string

const (
	TypeText    ResponseType = "text"
	TypeActions ResponseType = "actions"
	TypeError   ResponseType = "error"
)

// Response is the single result of one ProcessInput or ResolveActions call.
// Actions carries the whole batch; with TypeActions every entry is pending.
type Response struct {
	Type         ResponseType  `json:"type" yaml:"type"`
	Message      string        `json:"message" yaml:"message"`
	Actions      []action.Plan `json:"actions,omitempty" yaml:"actions,omitempty"`
	TextResponse string        `json:"textResponse,omitempty" yaml:"text_response,omitempty"`
	Error        string        `json:"error,omitempty" yaml:"error,omitempty"`
	Metadata     *Metadata     `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type Metadata struct {
	Intent  *intent.Classification `json:"intent,omitempty" yaml:"intent,omitempty"`
	Context string                 `json:"context,omitempty" yaml:"context,omitempty"`
}

// HasPending reports whether the caller must approve or reject before the
// batch can run.
func (r Response) HasPending() bool {
	return len(action.Pending(r.Actions)) > 0
}

func textResponse(text string, plans []action.Plan, meta *Metadata) Response {
	return Response{Type: TypeText, Message: text, TextResponse: text, Actions: plans, Metadata: meta}
}

func errorResponse(err error) Response {
	return Response{Type: TypeError, Message: err.Error(), Error: err.Error()}
}
