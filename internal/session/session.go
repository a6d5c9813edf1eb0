package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/archdesk/archdesk/internal/provider"
)

// Turn is one entry of the conversation history.
type Turn struct {
	Role    provider.Role           `yaml:"role" json:"role"`
	Content []provider.ContentBlock `yaml:"content" json:"content"`
}

func UserTurn(text string) Turn {
	return Turn{Role: provider.RoleUser, Content: []provider.ContentBlock{provider.TextBlock(text)}}
}

func AssistantTurn(blocks ...provider.ContentBlock) Turn {
	return Turn{Role: provider.RoleAssistant, Content: blocks}
}

// Session is a conversation owned by its caller. Methods never modify the
// receiver; they return an updated copy.
type Session struct {
	ID        string            `yaml:"id" json:"id"`
	Turns     []Turn            `yaml:"turns" json:"turns"`
	Metadata  map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time         `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time         `yaml:"updated_at" json:"updated_at"`
}

// New starts an empty session. An empty id gets a random one.
func New(id string) Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	return Session{ID: id, Turns: []Turn{}, CreatedAt: now, UpdatedAt: now}
}

// Append returns a copy of s with turns added. The result never shares its
// backing array with s.
func (s Session) Append(turns ...Turn) Session {
	out := s
	out.Turns = make([]Turn, 0, len(s.Turns)+len(turns))
	out.Turns = append(out.Turns, s.Turns...)
	out.Turns = append(out.Turns, turns...)
	out.UpdatedAt = time.Now().UTC()
	return out
}

func (s Session) clone() Session {
	out := s
	out.Turns = append([]Turn(nil), s.Turns...)
	if s.Metadata != nil {
		out.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Trim keeps the last max turns. The kept history never starts with an
// assistant turn, since providers reject that.
func (s Session) Trim(max int) Session {
	if max <= 0 || len(s.Turns) <= max {
		return s
	}
	start := len(s.Turns) - max
	for start < len(s.Turns) && s.Turns[start].Role != provider.RoleUser {
		start++
	}
	out := s
	out.Turns = append([]Turn(nil), s.Turns[start:]...)
	return out
}

// Messages renders the history for a chat request.
func (s Session) Messages() []provider.Message {
	msgs := make([]provider.Message, 0, len(s.Turns))
	for _, t := range s.Turns {
		msgs = append(msgs, provider.Message{Role: t.Role, Content: t.Content})
	}
	return msgs
}

// LastText returns the text of the most recent turn with the given role.
func (s Session) LastText(role provider.Role) string {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Role == role {
			return provider.JoinText(s.Turns[i].Content)
		}
	}
	return ""
}
