package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archdesk/archdesk/internal/provider"
	"github.com/archdesk/archdesk/internal/tools"
)

type fakeExecutor struct {
	calls   []string
	inputs  []tools.Input
	results map[string]tools.Result
	errs    map[string]error
}

func (f *fakeExecutor) ExecuteTool(_ context.Context, def tools.Definition, in tools.Input) (tools.Result, error) {
	f.calls = append(f.calls, def.Name)
	f.inputs = append(f.inputs, in)
	if err := f.errs[def.Name]; err != nil {
		return tools.Result{}, err
	}
	if r, ok := f.results[def.Name]; ok {
		return r, nil
	}
	return tools.OK("done", nil), nil
}

type memRecorder struct {
	mu    sync.Mutex
	trail []string
	err   error
}

func (r *memRecorder) RecordTransition(_ context.Context, p Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trail = append(r.trail, p.ToolName+":"+string(p.Status))
	return r.err
}

func toolUse(id, name string, input map[string]any) provider.ContentBlock {
	return provider.ContentBlock{Type: provider.BlockToolUse, ID: id, Name: name, Input: input}
}

func newBuilder() *Builder {
	b := NewBuilder(tools.NewDefaultRegistry())
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("plan-%d", n)
	}
	return b
}

func TestBuildCopiesGateMetadata(t *testing.T) {
	blocks := []provider.ContentBlock{
		provider.TextBlock("Deleting it now."),
		toolUse("tu_1", "delete_office", map[string]any{"name": "Test Architecture"}),
		toolUse("tu_2", "navigate_to_page", map[string]any{"page": "offices-list"}),
		toolUse("tu_3", "launch_rockets", nil),
	}
	plans := newBuilder().Build(blocks)
	require.Len(t, plans, 3)

	del := plans[0]
	assert.Equal(t, "plan-1", del.ID)
	assert.Equal(t, "tu_1", del.CallID)
	assert.True(t, del.RequiresApproval)
	assert.True(t, del.Destructive)
	assert.NotEmpty(t, del.ToolDescription)
	assert.Equal(t, StatusPending, del.Status)

	assert.False(t, plans[1].RequiresApproval)

	unknown := plans[2]
	assert.Equal(t, "launch_rockets", unknown.ToolName)
	assert.False(t, unknown.RequiresApproval)
	assert.NotNil(t, unknown.Input)
}

func TestBuildUsesUniqueIDs(t *testing.T) {
	b := NewBuilder(tools.NewDefaultRegistry())
	plans := b.Build([]provider.ContentBlock{
		toolUse("a", "get_help", nil),
		toolUse("b", "get_help", nil),
	})
	require.Len(t, plans, 2)
	assert.NotEqual(t, plans[0].ID, plans[1].ID)
}

func TestGateHoldsWholeBatch(t *testing.T) {
	plans := []Plan{
		{ID: "1", ToolName: "navigate_to_page", Status: StatusPending},
		{ID: "2", ToolName: "delete_office", RequiresApproval: true, Destructive: true, Status: StatusPending},
	}
	auto, held := Partition(plans)
	assert.Len(t, auto, 1)
	assert.Len(t, held, 1)
	assert.True(t, NeedsApproval(plans))
	assert.False(t, NeedsApproval(plans[:1]))
	assert.Equal(t, 1, CountDestructive(plans))
}

func TestApproveRejectOnlyMovePending(t *testing.T) {
	plans := []Plan{
		{ID: "1", Status: StatusPending},
		{ID: "2", Status: StatusPending},
		{ID: "3", Status: StatusCompleted},
	}

	approved := Approve(plans, "1")
	assert.Equal(t, StatusApproved, approved[0].Status)
	assert.Equal(t, StatusPending, plans[0].Status, "input slice must not change")

	rejected := Reject(approved, "2")
	assert.Equal(t, StatusRejected, rejected[1].Status)

	again := Reject(rejected, "3")
	assert.Equal(t, StatusCompleted, again[2].Status)
	again = Approve(again, "2")
	assert.Equal(t, StatusRejected, again[1].Status)

	all := ApproveAll([]Plan{{ID: "a", Status: StatusPending}, {ID: "b", Status: StatusFailed}})
	assert.Equal(t, StatusApproved, all[0].Status)
	assert.Equal(t, StatusFailed, all[1].Status)
	assert.Empty(t, Pending(all))
}

func TestEngineExecutesSequentially(t *testing.T) {
	exec := &fakeExecutor{}
	rec := &memRecorder{}
	e := NewEngine(tools.NewDefaultRegistry(), exec, WithRecorder(rec))

	plans := []Plan{
		{ID: "1", ToolName: "navigate_to_page", Input: map[string]any{"page": "regulations-list"}, Status: StatusPending},
		{ID: "2", ToolName: "delete_office", Input: map[string]any{"name": "Test"}, RequiresApproval: true, Status: StatusApproved},
		{ID: "3", ToolName: "delete_project", Input: map[string]any{"name": "X"}, RequiresApproval: true, Status: StatusRejected},
	}
	out := e.Execute(context.Background(), plans)

	assert.Equal(t, []string{"navigate_to_page", "delete_office"}, exec.calls)
	assert.Equal(t, StatusCompleted, out[0].Status)
	assert.Equal(t, StatusCompleted, out[1].Status)
	assert.Equal(t, StatusRejected, out[2].Status)
	assert.Nil(t, out[2].Result)
	assert.Equal(t, StatusPending, plans[0].Status, "input slice must not change")

	nav, ok := exec.inputs[0].(*tools.NavigateInput)
	require.True(t, ok)
	assert.Equal(t, "regulations-list", nav.Page)

	assert.Equal(t, []string{
		"navigate_to_page:executing", "navigate_to_page:completed",
		"delete_office:executing", "delete_office:completed",
	}, rec.trail)
}

func TestEngineFailures(t *testing.T) {
	exec := &fakeExecutor{
		errs:    map[string]error{"scrape_website": errors.New("dial tcp: refused")},
		results: map[string]tools.Result{"search_offices": tools.Fail("search failed", errors.New("db closed"))},
	}
	e := NewEngine(tools.NewDefaultRegistry(), exec)

	out := e.Execute(context.Background(), []Plan{
		{ID: "1", ToolName: "launch_rockets", Status: StatusPending},
		{ID: "2", ToolName: "navigate_to_page", Input: map[string]any{"page": "moon"}, Status: StatusPending},
		{ID: "3", ToolName: "scrape_website", Input: map[string]any{"url": "https://example.com"}, Status: StatusPending},
		{ID: "4", ToolName: "search_offices", Input: map[string]any{"query": "x"}, Status: StatusPending},
	})

	for _, p := range out {
		assert.Equal(t, StatusFailed, p.Status, p.ToolName)
		require.NotNil(t, p.Result, p.ToolName)
		assert.False(t, p.Result.Success)
		assert.NotEmpty(t, p.Result.Error, p.ToolName)
	}
	assert.Contains(t, out[0].Result.Error, `tool "launch_rockets" not found`)
	assert.Contains(t, out[1].Result.Error, "page")
	assert.Contains(t, out[2].Result.Error, "refused")
	assert.Equal(t, "db closed", out[3].Result.Error)
	assert.Equal(t, []string{"scrape_website", "search_offices"}, exec.calls)
}

func TestExecuteApprovedLeavesPending(t *testing.T) {
	exec := &fakeExecutor{}
	e := NewEngine(tools.NewDefaultRegistry(), exec)

	out := e.ExecuteApproved(context.Background(), []Plan{
		{ID: "1", ToolName: "delete_office", Input: map[string]any{"name": "A"}, RequiresApproval: true, Destructive: true, Status: StatusPending},
		{ID: "2", ToolName: "get_current_context", Status: StatusApproved},
		{ID: "3", ToolName: "get_help", Status: StatusPending},
		{ID: "4", ToolName: "get_help", RequiresApproval: true, Status: StatusRejected},
	})
	assert.Equal(t, StatusPending, out[0].Status)
	assert.Equal(t, StatusCompleted, out[1].Status)
	assert.Equal(t, StatusCompleted, out[2].Status, "pending plan without approval requirement runs")
	assert.Equal(t, StatusRejected, out[3].Status)
	assert.Equal(t, []string{"get_current_context", "get_help"}, exec.calls)
}

func TestEngineRecorderErrorDoesNotFailPlan(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	e := NewEngine(tools.NewDefaultRegistry(), &fakeExecutor{}, WithRecorder(rec))
	out := e.Execute(context.Background(), []Plan{{ID: "1", ToolName: "get_help", Status: StatusPending}})
	assert.Equal(t, StatusCompleted, out[0].Status)
}

func TestEngineCanceledContext(t *testing.T) {
	exec := &fakeExecutor{}
	e := NewEngine(tools.NewDefaultRegistry(), exec)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := e.Execute(ctx, []Plan{{ID: "1", ToolName: "get_help", Status: StatusPending}})
	assert.Equal(t, StatusFailed, out[0].Status)
	assert.Empty(t, exec.calls)
}

func TestExecutionErrorUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := error(&ToolExecutionError{Tool: "x", Err: base})
	assert.ErrorIs(t, err, base)
}
