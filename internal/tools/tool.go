package tools

import (
	"encoding/json"
	"fmt"
)

type Category string

const (
	CategoryNavigation Category = "navigation"
	CategoryDatabase   Category = "database"
	CategoryWeb        Category = "web"
	CategoryNoteSystem Category = "note_system"
	CategoryMeditation Category = "meditation"
	CategorySystem     Category = "system"
)

// Input is the typed, validated input of one tool.
type Input interface {
	Validate() error
}

// Definition is a catalog entry. RequiresApproval and Destructive are read
// by the approval gate and never shown to the model.
type Definition struct {
	Name             string
	Description      string
	InputSchema      Schema
	Category         Category
	RequiresApproval bool
	Destructive      bool

	// NewInput returns a pointer to a zero value of the tool's input type.
	NewInput func() Input
}

// Result is what one tool execution produced.
type Result struct {
	Success bool   `json:"success" yaml:"success"`
	Data    any    `json:"result,omitempty" yaml:"result,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
	Message string `json:"message" yaml:"message"`
}

func OK(message string, data any) Result {
	return Result{Success: true, Data: data, Message: message}
}

func Fail(message string, err error) Result {
	r := Result{Success: false, Message: message}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Decode validates raw model input against def's schema and decodes it into
// the tool's typed input.
func Decode(def Definition, raw map[string]any) (Input, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	if problems := def.InputSchema.Check(raw); len(problems) > 0 {
		return nil, &ValidationError{Tool: def.Name, Problems: problems}
	}
	if def.NewInput == nil {
		return EmptyInput{}, nil
	}

	in := def.NewInput()
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode input for %s: %w", def.Name, err)
	}
	if err := json.Unmarshal(data, in); err != nil {
		return nil, &ValidationError{Tool: def.Name, Problems: []string{err.Error()}}
	}
	if err := in.Validate(); err != nil {
		return nil, &ValidationError{Tool: def.Name, Problems: []string{err.Error()}}
	}
	return in, nil
}
