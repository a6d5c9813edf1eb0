package handler

import (
	"github.com/archdesk/archdesk/internal/intent"
)

// DefaultThreshold is the confidence below which the general handler is used.
const DefaultThreshold = 0.4

const GeneralName = "general"

// Handler is the tool subset and prompt fragment used to serve one request.
// An empty ToolNames means the model is offered no tools at all.
type Handler struct {
	Name           string
	Domain         intent.Domain
	ToolNames      []string
	PromptFragment string
}

var (
	officeTools     = []string{"search_offices", "create_office", "update_office", "delete_office"}
	projectTools    = []string{"search_projects", "create_project", "update_project", "delete_project"}
	regulationTools = []string{"search_regulations", "create_regulation", "delete_regulation"}
	searchTools     = []string{"search_offices", "search_projects", "search_regulations"}
)

var domainHandlers = map[intent.Domain]Handler{
	intent.DomainNavigation: {
		Name:      "navigation",
		Domain:    intent.DomainNavigation,
		ToolNames: []string{"navigate_to_page", "open_record", "search_offices", "search_projects", "search_regulations"},
		PromptFragment: "You help the user move around the application. Use navigate_to_page for list pages " +
			"and open_record for a single office, project or regulation. Search first when only a name is given.",
	},
	intent.DomainDatabase: {
		Name:      "database",
		Domain:    intent.DomainDatabase,
		ToolNames: concat(officeTools, projectTools, regulationTools),
		PromptFragment: "You manage the records of architecture offices, projects and building regulations. " +
			"Refer to records by id when you know it, otherwise by exact name.",
	},
	intent.DomainWeb: {
		Name:      "web",
		Domain:    intent.DomainWeb,
		ToolNames: []string{"web_search", "scrape_website", "create_office", "create_project"},
		PromptFragment: "You research architecture topics on the web. Summarize what you find and cite the " +
			"page addresses you used.",
	},
	intent.DomainNoteSystem: {
		Name:      "notes",
		Domain:    intent.DomainNoteSystem,
		ToolNames: []string{"extract_notes", "save_note"},
		PromptFragment: "You turn the user's text into structured notes. Keep their wording; do not invent " +
			"content that is not in the text.",
	},
	intent.DomainMeditation: {
		Name:      "meditation",
		Domain:    intent.DomainMeditation,
		ToolNames: []string{"save_meditation", "list_meditations"},
		PromptFragment: "You keep the user's personal meditations and reflections. Text the user provides is " +
			"their own and must be saved as given with save_meditation.",
	},
	intent.DomainSystem: {
		Name:           "system",
		Domain:         intent.DomainSystem,
		ToolNames:      []string{"get_help", "get_current_context", "navigate_to_page"},
		PromptFragment: "You answer questions about the assistant itself and the application state.",
	},
	intent.DomainChat: {
		Name:   "chat",
		Domain: intent.DomainChat,
		PromptFragment: "You are a knowledgeable conversation partner on architecture and design. " +
			"Answer directly; no tools are available in this mode.",
	},
}

// databaseNarrowing restricts the database handler per intent.
var databaseNarrowing = map[intent.Intent][]string{
	intent.DatabaseQuery:  searchTools,
	intent.DatabaseCreate: concat(searchTools, []string{"create_office", "create_project", "create_regulation"}),
	intent.DatabaseUpdate: concat(searchTools, []string{"update_office", "update_project"}),
	intent.DatabaseDelete: concat(searchTools, []string{"delete_office", "delete_project", "delete_regulation"}),
}

// Selector picks a Handler for a classification.
type Selector struct {
	threshold float64
	allTools  []string
}

// NewSelector returns a selector whose general handler exposes allTools.
// A threshold <= 0 uses DefaultThreshold.
func NewSelector(allTools []string, threshold float64) *Selector {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Selector{threshold: threshold, allTools: append([]string(nil), allTools...)}
}

func (s *Selector) Select(c intent.Classification) Handler {
	if c.Intent == intent.Unknown || !c.Intent.Valid() || c.Confidence < s.threshold {
		return s.general()
	}

	h, ok := domainHandlers[c.Intent.Domain()]
	if !ok {
		return s.general()
	}
	if names, ok := databaseNarrowing[c.Intent]; ok {
		h.ToolNames = names
	}
	h.ToolNames = append([]string(nil), h.ToolNames...)
	return h
}

func (s *Selector) general() Handler {
	return Handler{
		Name:      GeneralName,
		Domain:    intent.DomainChat,
		ToolNames: append([]string(nil), s.allTools...),
		PromptFragment: "You are the assistant of an architecture records application. Use a tool only when " +
			"the user asks for an action; otherwise answer in plain text.",
	}
}

func concat(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
