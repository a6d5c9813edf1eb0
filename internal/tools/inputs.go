package tools

import (
	"errors"
	"net/url"
	"strings"
)

// Pages the navigation tools may open.
var Pages = []string{
	"home",
	"dashboard",
	"offices-list",
	"office-detail",
	"projects-list",
	"project-detail",
	"regulations-list",
	"regulation-detail",
	"notes",
	"meditations",
	"settings",
}

var EntityTypes = []string{"office", "project", "regulation", "note", "meditation"}

type EmptyInput struct{}

func (EmptyInput) Validate() error { return nil }

type NavigateInput struct {
	Page string `json:"page"`
}

func (in *NavigateInput) Validate() error {
	if !contains(Pages, in.Page) {
		return errors.New("unknown page " + in.Page)
	}
	return nil
}

type OpenRecordInput struct {
	EntityType string `json:"entity_type"`
	ID         string `json:"id"`
}

func (in *OpenRecordInput) Validate() error {
	if in.ID == "" {
		return errors.New("id is required")
	}
	return nil
}

type SearchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (in *SearchInput) Validate() error {
	if in.Limit < 0 {
		return errors.New("limit must not be negative")
	}
	if in.Limit == 0 {
		in.Limit = 20
	}
	return nil
}

// RecordRef identifies an existing record by id or, failing that, by name.
type RecordRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (in *RecordRef) Validate() error {
	if strings.TrimSpace(in.ID) == "" && strings.TrimSpace(in.Name) == "" {
		return errors.New("either id or name is required")
	}
	return nil
}

type OfficeInput struct {
	Name        string `json:"name"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

func (in *OfficeInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	return validateWebsite(in.Website)
}

type OfficeUpdateInput struct {
	RecordRef
	NewName     string `json:"new_name"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Website     string `json:"website"`
	Description string `json:"description"`
}

func (in *OfficeUpdateInput) Validate() error {
	if err := in.RecordRef.Validate(); err != nil {
		return err
	}
	if in.NewName == "" && in.City == "" && in.Country == "" && in.Website == "" && in.Description == "" {
		return errors.New("nothing to update")
	}
	return validateWebsite(in.Website)
}

type ProjectInput struct {
	Name       string `json:"name"`
	OfficeName string `json:"office_name"`
	Location   string `json:"location"`
	Year       int    `json:"year"`
	Status     string `json:"status"`
}

var ProjectStatuses = []string{"concept", "design", "construction", "completed", "cancelled"}

func (in *ProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if in.Status != "" && !contains(ProjectStatuses, in.Status) {
		return errors.New("unknown project status " + in.Status)
	}
	return nil
}

type ProjectUpdateInput struct {
	RecordRef
	NewName  string `json:"new_name"`
	Location string `json:"location"`
	Year     int    `json:"year"`
	Status   string `json:"status"`
}

func (in *ProjectUpdateInput) Validate() error {
	if err := in.RecordRef.Validate(); err != nil {
		return err
	}
	if in.NewName == "" && in.Location == "" && in.Year == 0 && in.Status == "" {
		return errors.New("nothing to update")
	}
	if in.Status != "" && !contains(ProjectStatuses, in.Status) {
		return errors.New("unknown project status " + in.Status)
	}
	return nil
}

type RegulationInput struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	Jurisdiction string `json:"jurisdiction"`
	Summary      string `json:"summary"`
}

func (in *RegulationInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return errors.New("title is required")
	}
	return nil
}

type WebSearchInput struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

func (in *WebSearchInput) Validate() error {
	if in.MaxResults <= 0 || in.MaxResults > 20 {
		in.MaxResults = 5
	}
	return nil
}

type ScrapeInput struct {
	URL string `json:"url"`
}

func (in *ScrapeInput) Validate() error {
	u, err := url.Parse(in.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("url must be an absolute http(s) URL")
	}
	return nil
}

type ExtractNotesInput struct {
	Text string `json:"text"`
}

func (in *ExtractNotesInput) Validate() error { return nil }

type SaveNoteInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (in *SaveNoteInput) Validate() error {
	if in.Title == "" {
		in.Title = firstLine(in.Content, 60)
	}
	return nil
}

type MeditationInput struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

func (in *MeditationInput) Validate() error {
	in.DefaultTitle()
	return nil
}

// DefaultTitle derives a title from the first line of Content when none is set.
func (in *MeditationInput) DefaultTitle() {
	if in.Title == "" {
		in.Title = firstLine(in.Content, 60)
	}
}

type ListInput struct {
	Limit int `json:"limit"`
}

func (in *ListInput) Validate() error {
	if in.Limit <= 0 {
		in.Limit = 10
	}
	return nil
}

type HelpInput struct {
	Category string `json:"category"`
}

func (in *HelpInput) Validate() error { return nil }

func validateWebsite(s string) error {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return errors.New("website must be an absolute URL")
	}
	return nil
}

func firstLine(s string, max int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > max {
		s = strings.TrimSpace(Clip(s, max)) + "..."
	}
	return s
}
