package tools

func str(desc string) Property { return Property{Type: "string", Description: desc} }

func integer(desc string) Property { return Property{Type: "integer", Description: desc} }

var recordRefProps = map[string]Property{
	"id":   str("Record id, when known"),
	"name": str("Record name, used when the id is not known"),
}

func withRef(extra map[string]Property) map[string]Property {
	out := make(map[string]Property, len(recordRefProps)+len(extra))
	for k, v := range recordRefProps {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

var searchSchema = Schema{
	Properties: map[string]Property{
		"query": str("Free-text filter; empty lists everything"),
		"limit": integer("Maximum number of rows (default 20)"),
	},
}

// DefaultCatalog is the fixed set of tools the application exposes.
func DefaultCatalog() []Definition {
	return []Definition{
		// navigation
		{
			Name:        "navigate_to_page",
			Description: "Open a page of the application.",
			Category:    CategoryNavigation,
			InputSchema: Schema{
				Properties: map[string]Property{
					"page": {Type: "string", Description: "Page to open", Enum: Pages},
				},
				Required: []string{"page"},
			},
			NewInput: func() Input { return &NavigateInput{} },
		},
		{
			Name:        "open_record",
			Description: "Open the detail page of one record and select it.",
			Category:    CategoryNavigation,
			InputSchema: Schema{
				Properties: map[string]Property{
					"entity_type": {Type: "string", Description: "Kind of record", Enum: EntityTypes},
					"id":          str("Record id"),
				},
				Required: []string{"entity_type", "id"},
			},
			NewInput: func() Input { return &OpenRecordInput{} },
		},

		// database: offices
		{
			Name:        "search_offices",
			Description: "Search architecture offices by name, city or country.",
			Category:    CategoryDatabase,
			InputSchema: searchSchema,
			NewInput:    func() Input { return &SearchInput{} },
		},
		{
			Name:             "create_office",
			Description:      "Create a new architecture office record.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			InputSchema: Schema{
				Properties: map[string]Property{
					"name":        str("Office name"),
					"city":        str("City"),
					"country":     str("Country"),
					"website":     str("Website URL"),
					"description": str("Short description"),
				},
				Required: []string{"name"},
			},
			NewInput: func() Input { return &OfficeInput{} },
		},
		{
			Name:             "update_office",
			Description:      "Update fields of an existing office. Only the given fields change.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			InputSchema: Schema{Properties: withRef(map[string]Property{
				"new_name":    str("New office name"),
				"city":        str("City"),
				"country":     str("Country"),
				"website":     str("Website URL"),
				"description": str("Short description"),
			})},
			NewInput: func() Input { return &OfficeUpdateInput{} },
		},
		{
			Name:             "delete_office",
			Description:      "Permanently delete an office record.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			Destructive:      true,
			InputSchema:      Schema{Properties: withRef(nil)},
			NewInput:         func() Input { return &RecordRef{} },
		},

		// database: projects
		{
			Name:        "search_projects",
			Description: "Search architecture projects by name, office or location.",
			Category:    CategoryDatabase,
			InputSchema: searchSchema,
			NewInput:    func() Input { return &SearchInput{} },
		},
		{
			Name:             "create_project",
			Description:      "Create a new project record, optionally linked to an office by name.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			InputSchema: Schema{
				Properties: map[string]Property{
					"name":        str("Project name"),
					"office_name": str("Name of the office that designed it"),
					"location":    str("Location"),
					"year":        integer("Completion year"),
					"status":      {Type: "string", Description: "Project status", Enum: ProjectStatuses},
				},
				Required: []string{"name"},
			},
			NewInput: func() Input { return &ProjectInput{} },
		},
		{
			Name:             "update_project",
			Description:      "Update fields of an existing project. Only the given fields change.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			InputSchema: Schema{Properties: withRef(map[string]Property{
				"new_name": str("New project name"),
				"location": str("Location"),
				"year":     integer("Completion year"),
				"status":   {Type: "string", Description: "Project status", Enum: ProjectStatuses},
			})},
			NewInput: func() Input { return &ProjectUpdateInput{} },
		},
		{
			Name:             "delete_project",
			Description:      "Permanently delete a project record.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			Destructive:      true,
			InputSchema:      Schema{Properties: withRef(nil)},
			NewInput:         func() Input { return &RecordRef{} },
		},

		// database: regulations
		{
			Name:        "search_regulations",
			Description: "Search building regulations by code, title or jurisdiction.",
			Category:    CategoryDatabase,
			InputSchema: searchSchema,
			NewInput:    func() Input { return &SearchInput{} },
		},
		{
			Name:             "create_regulation",
			Description:      "Create a building regulation record.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			InputSchema: Schema{
				Properties: map[string]Property{
					"code":         str("Regulation code, e.g. IBC 1004"),
					"title":        str("Title"),
					"jurisdiction": str("Jurisdiction"),
					"summary":      str("Summary"),
				},
				Required: []string{"title"},
			},
			NewInput: func() Input { return &RegulationInput{} },
		},
		{
			Name:             "delete_regulation",
			Description:      "Permanently delete a regulation record.",
			Category:         CategoryDatabase,
			RequiresApproval: true,
			Destructive:      true,
			InputSchema:      Schema{Properties: withRef(nil)},
			NewInput:         func() Input { return &RecordRef{} },
		},

		// web
		{
			Name:        "web_search",
			Description: "Search the web and return result titles, links and snippets.",
			Category:    CategoryWeb,
			InputSchema: Schema{
				Properties: map[string]Property{
					"query":       str("Search query"),
					"max_results": integer("Maximum number of results (default 5)"),
				},
				Required: []string{"query"},
			},
			NewInput: func() Input { return &WebSearchInput{} },
		},
		{
			Name:        "scrape_website",
			Description: "Fetch a web page and return its title and readable text.",
			Category:    CategoryWeb,
			InputSchema: Schema{
				Properties: map[string]Property{"url": str("Absolute http(s) URL")},
				Required:   []string{"url"},
			},
			NewInput: func() Input { return &ScrapeInput{} },
		},

		// note system
		{
			Name:        "extract_notes",
			Description: "Split free text into individual note items without saving them.",
			Category:    CategoryNoteSystem,
			InputSchema: Schema{
				Properties: map[string]Property{"text": str("Text to split into notes")},
				Required:   []string{"text"},
			},
			NewInput: func() Input { return &ExtractNotesInput{} },
		},
		{
			Name:             "save_note",
			Description:      "Save a note to the knowledge base.",
			Category:         CategoryNoteSystem,
			RequiresApproval: true,
			InputSchema: Schema{
				Properties: map[string]Property{
					"title":   str("Note title"),
					"content": str("Note body"),
					"tags":    {Type: "array", Description: "Tags", Items: &Property{Type: "string"}},
				},
				Required: []string{"content"},
			},
			NewInput: func() Input { return &SaveNoteInput{} },
		},

		// meditation
		{
			Name:        "save_meditation",
			Description: "Save a personal meditation or reflection exactly as the user wrote it.",
			Category:    CategoryMeditation,
			InputSchema: Schema{
				Properties: map[string]Property{
					"content": str("The user's text, verbatim"),
					"title":   str("Optional title"),
				},
				Required: []string{"content"},
			},
			NewInput: func() Input { return &MeditationInput{} },
		},
		{
			Name:        "list_meditations",
			Description: "List the most recent saved meditations.",
			Category:    CategoryMeditation,
			InputSchema: Schema{Properties: map[string]Property{"limit": integer("Maximum entries (default 10)")}},
			NewInput:    func() Input { return &ListInput{} },
		},

		// system
		{
			Name:        "get_help",
			Description: "Describe what the assistant can do, optionally for one category.",
			Category:    CategorySystem,
			InputSchema: Schema{Properties: map[string]Property{
				"category": {Type: "string", Description: "Tool category", Enum: []string{
					string(CategoryNavigation), string(CategoryDatabase), string(CategoryWeb),
					string(CategoryNoteSystem), string(CategoryMeditation), string(CategorySystem),
				}},
			}},
			NewInput: func() Input { return &HelpInput{} },
		},
		{
			Name:        "get_current_context",
			Description: "Return the current page, selection and recent actions.",
			Category:    CategorySystem,
			InputSchema: Schema{},
		},
	}
}

// NewDefaultRegistry returns a registry holding DefaultCatalog.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range DefaultCatalog() {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}
