package backend

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/tools"
)

type Notes struct {
	records *records.Store
	app     *appcontext.Store
}

func (n *Notes) Execute(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	switch in := in.(type) {
	case *tools.ExtractNotesInput:
		items := ExtractItems(in.Text)
		return tools.OK(fmt.Sprintf("Extracted %d note item(s).", len(items)), items), nil

	case *tools.SaveNoteInput:
		note, err := n.records.SaveNote(ctx, records.Note{Title: in.Title, Content: in.Content, Tags: in.Tags})
		if err != nil {
			return tools.Result{}, err
		}
		msg := fmt.Sprintf("Saved note %q.", note.Title)
		n.app.AddRecentAction(msg)
		return tools.OK(msg, note), nil
	}
	return tools.Result{}, unexpectedInput(def, in)
}

var itemMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)]|\[[ xX]\])\s+`)

// ExtractItems splits text into note items. Bulleted or numbered lines are
// items on their own; otherwise each paragraph is one item.
func ExtractItems(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var bulleted []string
	for _, l := range lines {
		if itemMarker.MatchString(l) {
			if item := strings.TrimSpace(itemMarker.ReplaceAllString(l, "")); item != "" {
				bulleted = append(bulleted, item)
			}
		}
	}
	if len(bulleted) > 0 {
		return bulleted
	}

	var items []string
	var para []string
	flush := func() {
		if len(para) > 0 {
			items = append(items, strings.Join(para, " "))
			para = nil
		}
	}
	for _, l := range lines {
		if t := strings.TrimSpace(l); t != "" {
			para = append(para, t)
		} else {
			flush()
		}
	}
	flush()
	return items
}
