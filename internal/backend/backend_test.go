package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/store"
	"github.com/archdesk/archdesk/internal/tools"
)

type fixture struct {
	dispatcher *Dispatcher
	registry   *tools.Registry
	records    *records.Store
	app        *appcontext.Store
}

func newFixture(t *testing.T, searchURL string) *fixture {
	t.Helper()
	db, err := store.Open(store.Options{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		registry: tools.NewDefaultRegistry(),
		records:  records.New(db),
		app:      appcontext.New(),
	}
	f.dispatcher = NewDispatcher(Deps{
		Records:    f.records,
		AppContext: f.app,
		Registry:   f.registry,
		SearchURL:  searchURL,
	})
	return f
}

func (f *fixture) run(t *testing.T, tool string, raw map[string]any) (tools.Result, error) {
	t.Helper()
	def, ok := f.registry.Get(tool)
	require.True(t, ok, tool)
	in, err := tools.Decode(def, raw)
	require.NoError(t, err)
	return f.dispatcher.ExecuteTool(context.Background(), def, in)
}

func TestNavigationUpdatesAppContext(t *testing.T) {
	f := newFixture(t, "")
	res, err := f.run(t, "navigate_to_page", map[string]any{"page": "regulations-list"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "regulations-list", f.app.CurrentPage())

	_, err = f.run(t, "open_record", map[string]any{"entity_type": "office", "id": "o1"})
	require.NoError(t, err)
	snap := f.app.Snapshot()
	assert.Equal(t, "office-detail", snap.CurrentPage)
	require.NotNil(t, snap.SelectedEntity)
	assert.Equal(t, "o1", snap.SelectedEntity.ID)
}

func TestDatabaseCreateSearchDelete(t *testing.T) {
	f := newFixture(t, "")

	res, err := f.run(t, "create_office", map[string]any{"name": "Test Architecture", "city": "Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "Created office Test Architecture.", res.Message)

	res, err = f.run(t, "search_offices", map[string]any{"query": "test"})
	require.NoError(t, err)
	offices, ok := res.Data.([]records.Office)
	require.True(t, ok)
	require.Len(t, offices, 1)

	res, err = f.run(t, "update_office", map[string]any{"name": "Test Architecture", "country": "Germany"})
	require.NoError(t, err)
	assert.Equal(t, "Germany", res.Data.(records.Office).Country)

	res, err = f.run(t, "delete_office", map[string]any{"name": "Test Architecture"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, f.app.ContextForAI(), "Deleted office")

	_, err = f.run(t, "delete_office", map[string]any{"name": "Test Architecture"})
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestDatabaseProjectsAndRegulations(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.run(t, "create_project", map[string]any{"name": "Harbor Baths", "status": "design", "year": 2024})
	require.NoError(t, err)
	res, err := f.run(t, "update_project", map[string]any{"name": "Harbor Baths", "status": "completed"})
	require.NoError(t, err)
	assert.Equal(t, "completed", res.Data.(records.Project).Status)

	_, err = f.run(t, "create_regulation", map[string]any{"code": "IBC 1004", "title": "Occupant load"})
	require.NoError(t, err)
	res, err = f.run(t, "delete_regulation", map[string]any{"name": "IBC 1004"})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

const searchPage = `<html><body>
<div class="result results_links">
  <a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Ftimber&rut=x">Timber <b>towers</b></a>
  <a class="result__snippet">Mass timber high-rise codes explained.</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.org/clt">CLT guide</a>
</div>
<div class="result results_links">
  <a class="result__a" href="https://example.net/third">Third</a>
</div>
</body></html>`

func TestWebSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/html/")
	res, err := f.run(t, "web_search", map[string]any{"query": "timber codes", "max_results": 2})
	require.NoError(t, err)
	assert.Equal(t, "timber codes", gotQuery)

	results, ok := res.Data.([]SearchResult)
	require.True(t, ok)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{
		Title:   "Timber towers",
		URL:     "https://example.com/timber",
		Snippet: "Mass timber high-rise codes explained.",
	}, results[0])
	assert.Equal(t, "https://example.org/clt", results[1].URL)
}

func TestScrapeWebsite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>Studio North</title><style>p{}</style></head>
<body><nav>Home | About</nav><h1>About us</h1><p>We design  libraries.</p><script>track()</script>
<p>Founded in Oslo.</p></body></html>`))
	}))
	defer srv.Close()

	f := newFixture(t, "")
	res, err := f.run(t, "scrape_website", map[string]any{"url": srv.URL + "/about"})
	require.NoError(t, err)
	page := res.Data.(Page)
	assert.Equal(t, "Studio North", page.Title)
	assert.Equal(t, "About us\nWe design libraries.\nFounded in Oslo.", page.Text)

	_, err = f.run(t, "scrape_website", map[string]any{"url": srv.URL + "/missing"})
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestExtractItems(t *testing.T) {
	assert.Equal(t, []string{"check drainage", "order samples", "call client"},
		ExtractItems("Site visit:\n- check drainage\n* order samples\n1. call client\n"))
	assert.Equal(t, []string{"First paragraph continues here.", "Second one."},
		ExtractItems("First paragraph\ncontinues here.\n\nSecond one."))
	assert.Empty(t, ExtractItems("   "))
}

func TestNotesAndMeditations(t *testing.T) {
	f := newFixture(t, "")
	res, err := f.run(t, "save_note", map[string]any{"content": "Drainage is poor\nsee photos", "tags": []any{"site"}})
	require.NoError(t, err)
	assert.Equal(t, `Saved note "Drainage is poor".`, res.Message)

	_, err = f.run(t, "save_meditation", map[string]any{"content": "Light on concrete."})
	require.NoError(t, err)
	res, err = f.run(t, "list_meditations", map[string]any{})
	require.NoError(t, err)
	assert.Len(t, res.Data.([]records.Meditation), 1)
}

func TestMeditationSaver(t *testing.T) {
	f := newFixture(t, "")
	saver := NewMeditationSaver(f.records, f.app)

	got := saver.Save(context.Background(), "  The river does not hurry.\nYet it arrives.  ")
	assert.True(t, got.Success)
	assert.Contains(t, got.Message, "The river does not hurry.")

	meds, err := f.records.ListMeditations(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.Equal(t, "The river does not hurry.\nYet it arrives.", meds[0].Content)

	assert.False(t, saver.Save(context.Background(), " ").Success)
}

func TestMeditationSaverTitleFromAccentedText(t *testing.T) {
	f := newFixture(t, "")
	saver := NewMeditationSaver(f.records, f.app)

	text := "a" + strings.Repeat("é", 40)
	require.True(t, saver.Save(context.Background(), text).Success)

	meds, err := f.records.ListMeditations(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, meds, 1)
	assert.True(t, utf8.ValidString(meds[0].Title), "title %q", meds[0].Title)
	assert.Equal(t, "a"+strings.Repeat("é", 29)+"...", meds[0].Title)
	assert.Equal(t, text, meds[0].Content)
}

func TestSystemHelpAndContext(t *testing.T) {
	f := newFixture(t, "")
	res, err := f.run(t, "get_help", map[string]any{"category": "meditation"})
	require.NoError(t, err)
	help := res.Data
	assert.Nil(t, help)
	assert.Contains(t, res.Message, "save_meditation")
	assert.NotContains(t, res.Message, "delete_office")

	res, err = f.run(t, "get_help", map[string]any{})
	require.NoError(t, err)
	assert.True(t, strings.Contains(res.Message, "delete_office: Permanently"))
	assert.Contains(t, res.Message, "cannot be undone")

	f.app.SetCurrentPage("dashboard")
	res, err = f.run(t, "get_current_context", nil)
	require.NoError(t, err)
	assert.Contains(t, res.Message, "Current page: dashboard")
}

type stubBackend struct{ called bool }

func (s *stubBackend) Execute(context.Context, tools.Definition, tools.Input) (tools.Result, error) {
	s.called = true
	return tools.OK("stub", nil), nil
}

func TestDispatcherRouting(t *testing.T) {
	f := newFixture(t, "")
	stub := &stubBackend{}
	f.dispatcher.Handle(tools.CategoryWeb, stub)

	_, err := f.run(t, "web_search", map[string]any{"query": "x"})
	require.NoError(t, err)
	assert.True(t, stub.called)

	_, err = f.dispatcher.ExecuteTool(context.Background(), tools.Definition{Name: "x", Category: "kitchen"}, tools.EmptyInput{})
	assert.ErrorContains(t, err, "no backend")
}
