package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskmaster/internal/model"
)

// fakeService answers list requests from a per-search table. A gate
// registered for a search blocks that request until closed.
type fakeService struct {
	mu      sync.Mutex
	pages   map[string][]model.Task
	gates   map[string]chan struct{}
	listErr error
	calls   []string

	created   []model.TaskInput
	deleted   []int64
	deleteErr error
	toggled   *model.Task
	toggleErr error
}

func newFakeService() *fakeService {
	return &fakeService{
		pages: make(map[string][]model.Task),
		gates: make(map[string]chan struct{}),
	}
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeService) ListTasks(ctx context.Context, filters model.TaskFilters) (*model.TaskPage, error) {
	f.record("list:" + filters.Search)
	f.mu.Lock()
	gate := f.gates[filters.Search]
	tasks := f.pages[filters.Search]
	err := f.listErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	page := model.Pagination{Page: 1, Total: len(tasks), TotalPages: 1}
	if filters.Limit > 0 {
		page.Limit = filters.Limit
		page.TotalPages = (len(tasks) + filters.Limit - 1) / filters.Limit
		if len(tasks) > filters.Limit {
			tasks = tasks[:filters.Limit]
		}
	}
	return &model.TaskPage{
		Tasks:      append([]model.Task(nil), tasks...),
		Pagination: page,
	}, nil
}

func (f *fakeService) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	f.record("create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &model.Task{ID: 99, Title: *in.Title, Status: model.StatusPending}, nil
}

func (f *fakeService) UpdateTask(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error) {
	f.record("update")
	return &model.Task{ID: id}, nil
}

func (f *fakeService) DeleteTask(ctx context.Context, id int64) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeService) ToggleTaskStatus(ctx context.Context, id int64) (*model.Task, error) {
	f.record("toggle")
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	return f.toggled, nil
}

func sampleTasks() []model.Task {
	return []model.Task{
		{ID: 1, Title: "Buy milk", Status: model.StatusPending, UserID: 7},
		{ID: 2, Title: "Write report", Description: "Q3", Status: model.StatusInProgress, UserID: 7},
		{ID: 3, Title: "Call mom", Status: model.StatusCompleted, UserID: 7},
	}
}

func loadedController(t *testing.T, svc *fakeService) *Controller {
	t.Helper()
	svc.pages[""] = sampleTasks()
	c := NewController(svc, 0, nil)
	_, err := c.List(context.Background())
	require.NoError(t, err)
	return c
}

func TestList_ReplacesCollection(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)

	snap := c.Snapshot()
	assert.True(t, snap.Loaded)
	assert.False(t, snap.Loading)
	assert.Equal(t, sampleTasks(), snap.Tasks)
	assert.Equal(t, 3, snap.Pagination.Total)
}

func TestList_ErrorKeepsPreviousCollection(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	svc.listErr = errors.New("connection refused")

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSuperseded))

	snap := c.Snapshot()
	assert.Equal(t, sampleTasks(), snap.Tasks)
	assert.False(t, snap.Loading)
}

func TestList_StaleResponseNeverWins(t *testing.T) {
	svc := newFakeService()
	svc.pages["x"] = []model.Task{{ID: 10, Title: "x result"}}
	svc.pages["y"] = []model.Task{{ID: 20, Title: "y result"}}
	gateX := make(chan struct{})
	svc.gates["x"] = gateX

	c := NewController(svc, 0, nil)

	c.SetSearch("x")
	errA := make(chan error, 1)
	go func() {
		_, err := c.List(context.Background())
		errA <- err
	}()
	require.Eventually(t, func() bool { return svc.callCount() == 1 }, timeout, tick)

	c.SetSearch("y")
	snapB, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), snapB.Tasks[0].ID)
	assert.False(t, snapB.Loading)

	close(gateX)
	assert.ErrorIs(t, <-errA, ErrSuperseded)

	snap := c.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "y result", snap.Tasks[0].Title)
	assert.Equal(t, "y", snap.Filters.Search)
}

func TestList_LoadingUntilLatestSettles(t *testing.T) {
	svc := newFakeService()
	gate := make(chan struct{})
	svc.gates["slow"] = gate
	c := NewController(svc, 0, nil)
	c.SetSearch("slow")

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.List(context.Background())
	}()
	require.Eventually(t, c.Loading, timeout, tick)

	close(gate)
	<-done
	assert.False(t, c.Loading())
}

func TestReset_DropsInFlightResults(t *testing.T) {
	svc := newFakeService()
	svc.pages["late"] = []model.Task{{ID: 1}}
	gate := make(chan struct{})
	svc.gates["late"] = gate
	c := NewController(svc, 25, nil)
	c.SetSearch("late")

	errCh := make(chan error, 1)
	go func() {
		_, err := c.List(context.Background())
		errCh <- err
	}()
	require.Eventually(t, func() bool { return svc.callCount() == 1 }, timeout, tick)

	c.Reset()
	close(gate)

	assert.ErrorIs(t, <-errCh, ErrSuperseded)
	snap := c.Snapshot()
	assert.Empty(t, snap.Tasks)
	assert.False(t, snap.Loaded)
	assert.False(t, snap.Loading)
	assert.Equal(t, model.TaskFilters{Limit: 25}, snap.Filters)
}

func TestSetters_ResetPage(t *testing.T) {
	c := NewController(newFakeService(), 0, nil)

	assert.True(t, c.SetPage(3))
	assert.False(t, c.SetPage(3))
	assert.True(t, c.SetStatus(model.StatusCompleted))
	assert.Zero(t, c.Filters().Page)

	c.SetPage(2)
	assert.True(t, c.SetSearch("  milk "))
	assert.Equal(t, "milk", c.Filters().Search)
	assert.Zero(t, c.Filters().Page)
	assert.False(t, c.SetSearch("milk"))

	c.SetPage(2)
	assert.True(t, c.SetLimit(5))
	assert.Zero(t, c.Filters().Page)
}

func TestCreate_ValidatesBeforeRequest(t *testing.T) {
	svc := newFakeService()
	c := NewController(svc, 0, nil)

	_, err := c.Create(context.Background(), model.NewTaskInput("   ", "", model.StatusAll))
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))
	assert.Zero(t, svc.callCount())
}

func TestCreate_DoesNotPatchCollection(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	before := c.Snapshot().Tasks

	task, err := c.Create(context.Background(), model.NewTaskInput("New", "", model.StatusAll))
	require.NoError(t, err)
	assert.Equal(t, "New", task.Title)
	assert.Equal(t, before, c.Snapshot().Tasks)
}

func TestDelete_DeclineIsNoOp(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	before := c.Snapshot()
	calls := svc.callCount()

	var asked model.Task
	deleted, err := c.Delete(context.Background(), 2, func(task model.Task) bool {
		asked = task
		return false
	})
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, "Write report", asked.Title)
	assert.Equal(t, calls, svc.callCount())
	assert.Equal(t, before, c.Snapshot())
}

func TestDelete_RemovesAfterAck(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)

	deleted, err := c.Delete(context.Background(), 2, func(model.Task) bool { return true })
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []int64{2}, svc.deleted)

	snap := c.Snapshot()
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, int64(1), snap.Tasks[0].ID)
	assert.Equal(t, int64(3), snap.Tasks[1].ID)
	assert.Equal(t, 2, snap.Pagination.Total)
}

func TestDelete_RecomputesPageCount(t *testing.T) {
	svc := newFakeService()
	svc.pages[""] = sampleTasks()
	c := NewController(svc, 2, nil)
	snap, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Tasks, 2)
	require.Equal(t, 2, snap.Pagination.TotalPages)
	require.True(t, snap.Pagination.HasNext())

	_, err = c.Delete(context.Background(), snap.Tasks[0].ID, nil)
	require.NoError(t, err)

	p := c.Snapshot().Pagination
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext())
}

func TestDelete_FailureKeepsTask(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	svc.deleteErr = errors.New("500")

	deleted, err := c.Delete(context.Background(), 2, func(model.Task) bool { return true })
	require.Error(t, err)
	assert.False(t, deleted)
	assert.Equal(t, sampleTasks(), c.Snapshot().Tasks)
}

func TestToggleStatus_ReplacesOnlyCounterpart(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	returned := model.Task{ID: 2, Title: "Write report (server)", Status: model.StatusCompleted, UserID: 7}
	svc.toggled = &returned

	task, err := c.ToggleStatus(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, returned, *task)

	want := sampleTasks()
	want[1] = returned
	assert.Equal(t, want, c.Snapshot().Tasks)
}

func TestToggleStatus_FailureKeepsRecord(t *testing.T) {
	svc := newFakeService()
	c := loadedController(t, svc)
	svc.toggleErr = errors.New("timeout")

	_, err := c.ToggleStatus(context.Background(), 2)
	require.Error(t, err)
	assert.Equal(t, sampleTasks(), c.Snapshot().Tasks)
}

func TestFind(t *testing.T) {
	c := loadedController(t, newFakeService())

	task, err := c.Find(3)
	require.NoError(t, err)
	assert.Equal(t, "Call mom", task.Title)

	_, err = c.Find(42)
	assert.ErrorIs(t, err, ErrNotFound)
}
