package intent

import "strings"

type Intent string

const (
	Navigation     Intent = "navigation"
	DatabaseQuery  Intent = "database_query"
	DatabaseCreate Intent = "database_create"
	DatabaseUpdate Intent = "database_update"
	DatabaseDelete Intent = "database_delete"
	WebSearch      Intent = "web_search"
	WebScrape      Intent = "web_scrape"
	NoteProcessing Intent = "note_processing"
	Meditation     Intent = "meditation"
	System         Intent = "system"
	Chat           Intent = "chat"
	Unknown        Intent = "unknown"
)

type Domain string

const (
	DomainNavigation Domain = "navigation"
	DomainDatabase   Domain = "database"
	DomainWeb        Domain = "web"
	DomainNoteSystem Domain = "note_system"
	DomainMeditation Domain = "meditation"
	DomainSystem     Domain = "system"
	DomainChat       Domain = "chat"
)

// taxonomy lists every intent with the domain it belongs to and examples
// shown to the model.
var taxonomy = []struct {
	Intent   Intent
	Domain   Domain
	Examples []string
}{
	{Navigation, DomainNavigation, []string{"go to regulations", "open the projects page", "show office details"}},
	{DatabaseQuery, DomainDatabase, []string{"list offices in Berlin", "which projects are under construction?"}},
	{DatabaseCreate, DomainDatabase, []string{"add an office called Studio North in Oslo", "create project Harbor Baths"}},
	{DatabaseUpdate, DomainDatabase, []string{"change the website of Studio North", "mark Harbor Baths as completed"}},
	{DatabaseDelete, DomainDatabase, []string{"delete office Test Architecture", "remove the regulation IBC 1004"}},
	{WebSearch, DomainWeb, []string{"search the web for timber high-rise codes", "find news about Snøhetta"}},
	{WebScrape, DomainWeb, []string{"read https://example.com/about", "scrape this office's website"}},
	{NoteProcessing, DomainNoteSystem, []string{"turn these meeting notes into items", "save a note about the site visit"}},
	{Meditation, DomainMeditation, []string{"save this meditation: ...", "store my reflection on today's walk"}},
	{System, DomainSystem, []string{"what can you do?", "where am I in the app?"}},
	{Chat, DomainChat, []string{"hi", "what is brutalism?", "thanks!"}},
}

var domainOf = func() map[Intent]Domain {
	m := make(map[Intent]Domain, len(taxonomy)+1)
	for _, t := range taxonomy {
		m[t.Intent] = t.Domain
	}
	m[Unknown] = DomainChat
	return m
}()

// Valid reports whether i is part of the taxonomy.
func (i Intent) Valid() bool {
	_, ok := domainOf[i]
	return ok
}

// Domain returns the domain an intent belongs to.
func (i Intent) Domain() Domain {
	if d, ok := domainOf[i]; ok {
		return d
	}
	return DomainChat
}

func (d Domain) Valid() bool {
	switch d {
	case DomainNavigation, DomainDatabase, DomainWeb, DomainNoteSystem,
		DomainMeditation, DomainSystem, DomainChat:
		return true
	}
	return false
}

// Classification is the immutable result of classifying one input.
type Classification struct {
	Intent     Intent  `json:"intent" yaml:"intent"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Reasoning  string  `json:"reasoning" yaml:"reasoning"`
	Domain     Domain  `json:"domain" yaml:"domain"`
}

// Degraded is the classification used when the model's answer cannot be used.
func Degraded(reason string) Classification {
	return Classification{Intent: Unknown, Confidence: 0, Reasoning: reason, Domain: DomainChat}
}

// Normalize is the cache key of an input text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
