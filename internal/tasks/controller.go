// Package tasks holds the in-memory task collection shown to the user and
// the operations that change it.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nhle/taskmaster/internal/model"
)

var (
	// ErrSuperseded is returned for results that arrived after a newer list
	// request was issued or after Reset. Callers drop it silently.
	ErrSuperseded = errors.New("tasks: result superseded")

	// ErrNotFound is returned when a task is not in the collection.
	ErrNotFound = errors.New("tasks: task not found")
)

// Service is the subset of the API client the controller needs.
type Service interface {
	ListTasks(ctx context.Context, filters model.TaskFilters) (*model.TaskPage, error)
	CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ToggleTaskStatus(ctx context.Context, id int64) (*model.Task, error)
}

// Snapshot is a copy of the controller state safe to hand to views.
type Snapshot struct {
	Tasks      []model.Task
	Pagination model.Pagination
	Filters    model.TaskFilters

	// Loaded is false until the first list response is applied.
	Loaded  bool
	Loading bool
}

// Controller owns the displayed collection and the committed filter.
// List responses are tagged with a sequence number and applied only while
// they belong to the most recently issued request, so a slow response for
// an older filter never replaces a newer one.
type Controller struct {
	mu     sync.Mutex
	svc    Service
	logger *slog.Logger

	defaults   model.TaskFilters
	filters    model.TaskFilters
	tasks      []model.Task
	pagination model.Pagination
	loaded     bool

	issued  uint64
	settled uint64
	epoch   uint64

	cancelList context.CancelFunc
}

// NewController returns an empty controller. pageSize 0 lets the server
// choose the page size.
func NewController(svc Service, pageSize int, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	defaults := model.TaskFilters{Limit: pageSize}
	return &Controller{
		svc:      svc,
		logger:   logger,
		defaults: defaults,
		filters:  defaults,
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

func (c *Controller) snapshot() Snapshot {
	tasks := make([]model.Task, len(c.tasks))
	copy(tasks, c.tasks)
	return Snapshot{
		Tasks:      tasks,
		Pagination: c.pagination,
		Filters:    c.filters,
		Loaded:     c.loaded,
		Loading:    c.settled != c.issued,
	}
}

// Filters returns the committed filter.
func (c *Controller) Filters() model.TaskFilters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Loading reports whether the most recently issued list is unsettled.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled != c.issued
}

// Find returns the task with id from the collection.
func (c *Controller) Find(id int64) (model.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.tasks[i], nil
	}
	return model.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
}

func (c *Controller) indexOf(id int64) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// SetSearch commits a search value and returns to the first page. It
// reports whether the filter changed; callers then List.
func (c *Controller) SetSearch(search string) bool {
	search = strings.TrimSpace(search)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Search == search {
		return false
	}
	c.filters.Search = search
	c.filters.Page = 0
	return true
}

// SetStatus commits a status filter; StatusAll means any status.
func (c *Controller) SetStatus(status model.TaskStatus) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Status == status {
		return false
	}
	c.filters.Status = status
	c.filters.Page = 0
	return true
}

// SetPage selects a page; values below 1 select the first page.
func (c *Controller) SetPage(page int) bool {
	if page < 1 {
		page = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Page == page {
		return false
	}
	c.filters.Page = page
	return true
}

// SetLimit sets the page size; 0 lets the server choose.
func (c *Controller) SetLimit(limit int) bool {
	if limit < 0 {
		limit = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.Limit == limit {
		return false
	}
	c.filters.Limit = limit
	c.filters.Page = 0
	return true
}

// List fetches the page selected by the committed filter and replaces the
// collection with it. Issuing a new List cancels the previous one. A
// response that is no longer the latest, or that arrives after Reset,
// returns ErrSuperseded and changes nothing. On failure the previous
// collection stays in place.
func (c *Controller) List(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.cancelList != nil {
		c.cancelList()
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancelList = cancel
	c.issued++
	seq, epoch, filters := c.issued, c.epoch, c.filters
	c.mu.Unlock()

	defer cancel()

	page, err := c.svc.ListTasks(ctx, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	if epoch != c.epoch || seq != c.issued {
		c.logger.Debug("dropping superseded list response", slog.Uint64("seq", seq))
		return c.snapshot(), ErrSuperseded
	}
	c.settled = seq
	c.cancelList = nil

	if err != nil {
		return c.snapshot(), err
	}

	c.tasks = page.Tasks
	c.pagination = page.Pagination
	c.loaded = true
	return c.snapshot(), nil
}

// Create validates in and sends it. The collection is not touched; callers
// re-issue List so ordering and paging stay server-defined.
func (c *Controller) Create(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	if err := model.ValidateTaskInput(in, true); err != nil {
		return nil, err
	}
	epoch := c.currentEpoch()
	task, err := c.svc.CreateTask(ctx, in)
	if c.currentEpoch() != epoch {
		return nil, ErrSuperseded
	}
	return task, err
}

// Update validates in and sends it for task id. Like Create, it leaves the
// collection to the following List.
func (c *Controller) Update(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error) {
	if err := model.ValidateTaskInput(in, false); err != nil {
		return nil, err
	}
	epoch := c.currentEpoch()
	task, err := c.svc.UpdateTask(ctx, id, in)
	if c.currentEpoch() != epoch {
		return nil, ErrSuperseded
	}
	return task, err
}

// Delete asks confirm first; a decline sends nothing, changes nothing and
// returns (false, nil). The task is removed locally only after the server
// acknowledges the delete. Tasks not in the collection are confirmed with
// only their ID set.
func (c *Controller) Delete(ctx context.Context, id int64, confirm func(model.Task) bool) (bool, error) {
	c.mu.Lock()
	task := model.Task{ID: id}
	if i := c.indexOf(id); i >= 0 {
		task = c.tasks[i]
	}
	epoch := c.epoch
	c.mu.Unlock()

	if confirm != nil && !confirm(task) {
		return false, nil
	}

	if err := c.svc.DeleteTask(ctx, id); err != nil {
		if c.currentEpoch() != epoch {
			return false, ErrSuperseded
		}
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return true, ErrSuperseded
	}
	if i := c.indexOf(id); i >= 0 {
		c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
		if p := &c.pagination; p.Total > 0 {
			p.Total--
			if p.Limit > 0 {
				p.TotalPages = (p.Total + p.Limit - 1) / p.Limit
			}
		}
	}
	return true, nil
}

// ToggleStatus asks the server to advance the status of task id and puts
// exactly the returned record in place of its counterpart. Other tasks are
// untouched; on failure the previous record is kept.
func (c *Controller) ToggleStatus(ctx context.Context, id int64) (*model.Task, error) {
	epoch := c.currentEpoch()
	task, err := c.svc.ToggleTaskStatus(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return nil, ErrSuperseded
	}
	if err != nil {
		return nil, err
	}
	if i := c.indexOf(task.ID); i >= 0 {
		tasks := make([]model.Task, len(c.tasks))
		copy(tasks, c.tasks)
		tasks[i] = *task
		c.tasks = tasks
	}
	return task, nil
}

// Reset drops the collection and the filter and cancels in-flight work.
// Results of requests issued before Reset return ErrSuperseded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelList != nil {
		c.cancelList()
		c.cancelList = nil
	}
	c.epoch++
	c.settled = c.issued
	c.filters = c.defaults
	c.tasks = nil
	c.pagination = model.Pagination{}
	c.loaded = false
}

func (c *Controller) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}
