package backend

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/archdesk/archdesk/internal/appcontext"
	"github.com/archdesk/archdesk/internal/records"
	"github.com/archdesk/archdesk/internal/tools"
)

// Backend executes the tools of one category.
type Backend interface {
	Execute(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error)
}

// Deps are the collaborators the category backends share.
type Deps struct {
	Records    *records.Store
	AppContext *appcontext.Store
	Registry   *tools.Registry
	HTTPClient *http.Client
	// SearchURL is the HTML search endpoint; the query is appended as q=.
	SearchURL string
	Logger    *zap.Logger
}

// Dispatcher routes tool executions to the backend of the tool's category.
// It implements action.Executor.
type Dispatcher struct {
	backends map[tools.Category]Backend
	logger   *zap.Logger
}

func NewDispatcher(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if deps.SearchURL == "" {
		deps.SearchURL = DefaultSearchURL
	}
	return &Dispatcher{
		logger: deps.Logger,
		backends: map[tools.Category]Backend{
			tools.CategoryNavigation: &Navigation{app: deps.AppContext},
			tools.CategoryDatabase:   &Database{records: deps.Records, app: deps.AppContext},
			tools.CategoryWeb:        &Web{client: deps.HTTPClient, searchURL: deps.SearchURL},
			tools.CategoryNoteSystem: &Notes{records: deps.Records, app: deps.AppContext},
			tools.CategoryMeditation: &Meditations{records: deps.Records, app: deps.AppContext},
			tools.CategorySystem:     &System{registry: deps.Registry, app: deps.AppContext},
		},
	}
}

// Handle replaces the backend of a category.
func (d *Dispatcher) Handle(c tools.Category, b Backend) {
	d.backends[c] = b
}

func (d *Dispatcher) ExecuteTool(ctx context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	b, ok := d.backends[def.Category]
	if !ok {
		return tools.Result{}, fmt.Errorf("no backend for category %q", def.Category)
	}
	start := time.Now()
	res, err := b.Execute(ctx, def, in)
	d.logger.Debug("tool executed",
		zap.String("tool", def.Name),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("success", err == nil && res.Success),
	)
	return res, err
}

func unexpectedInput(def tools.Definition, in tools.Input) error {
	return fmt.Errorf("%s: unexpected input type %T", def.Name, in)
}
