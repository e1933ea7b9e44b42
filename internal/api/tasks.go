package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/taskmaster/internal/model"
)

type taskResponse struct {
	Task model.Task `json:"task"`
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}

// ListTasks fetches one filtered page of the user's tasks.
func (c *Client) ListTasks(ctx context.Context, filters model.TaskFilters) (*model.TaskPage, error) {
	var page model.TaskPage
	r := request{method: http.MethodGet, path: "/tasks", query: filters.Query(), auth: true}
	if err := c.do(ctx, r, &page); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	if page.Tasks == nil {
		page.Tasks = []model.Task{}
	}
	return &page, nil
}

// CreateTask creates a task. The server assigns PENDING when no status is sent.
func (c *Client) CreateTask(ctx context.Context, in model.TaskInput) (*model.Task, error) {
	var resp taskResponse
	r := request{method: http.MethodPost, path: "/tasks", body: in, auth: true}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	return &resp.Task, nil
}

// UpdateTask sends the set fields of in for task id.
func (c *Client) UpdateTask(ctx context.Context, id int64, in model.TaskInput) (*model.Task, error) {
	var resp taskResponse
	r := request{method: http.MethodPut, path: taskPath(id), body: in, auth: true}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("updating task %d: %w", id, err)
	}
	return &resp.Task, nil
}

// DeleteTask deletes task id.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	r := request{method: http.MethodDelete, path: taskPath(id), auth: true}
	if err := c.do(ctx, r, nil); err != nil {
		return fmt.Errorf("deleting task %d: %w", id, err)
	}
	return nil
}

// ToggleTaskStatus asks the server to advance the status of task id and
// returns the updated record. The advancement rule is server-owned.
func (c *Client) ToggleTaskStatus(ctx context.Context, id int64) (*model.Task, error) {
	var resp taskResponse
	r := request{method: http.MethodPost, path: taskPath(id) + "/toggle", auth: true}
	if err := c.do(ctx, r, &resp); err != nil {
		return nil, fmt.Errorf("toggling task %d: %w", id, err)
	}
	return &resp.Task, nil
}
