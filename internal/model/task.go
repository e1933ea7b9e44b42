package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// TaskStatus is the server-owned lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "PENDING"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusCompleted  TaskStatus = "COMPLETED"

	// StatusAll is the unset filter value meaning "any status".
	StatusAll TaskStatus = ""
)

// TaskStatuses lists the concrete statuses in display order.
var TaskStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

// ParseTaskStatus accepts the wire names case-insensitively. "all" and the
// empty string map to StatusAll.
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	switch norm {
	case "", "ALL":
		return StatusAll, nil
	case string(StatusPending):
		return StatusPending, nil
	case string(StatusInProgress):
		return StatusInProgress, nil
	case string(StatusCompleted):
		return StatusCompleted, nil
	}
	return StatusAll, fmt.Errorf("unknown task status %q", s)
}

// Valid reports whether s is one of the three concrete statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Label returns the human-readable form, e.g. "In Progress".
func (s TaskStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	case StatusAll:
		return "All Statuses"
	}
	return string(s)
}

// Task is a single work item owned by the current user.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	UserID      int64      `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ToggleLabel is the label of the status-advance action for this task.
func (t Task) ToggleLabel() string {
	if t.Status == StatusCompleted {
		return "Mark as Pending"
	}
	return "Advance Status"
}

// TaskInput is the body of create and update requests. Nil fields are
// omitted so updates only touch what the user changed.
type TaskInput struct {
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Status      *TaskStatus `json:"status,omitempty"`
}

// NewTaskInput builds an input from plain values. Empty description and
// StatusAll are left unset.
func NewTaskInput(title, description string, status TaskStatus) TaskInput {
	in := TaskInput{Title: &title}
	if description != "" {
		in.Description = &description
	}
	if status != StatusAll {
		in.Status = &status
	}
	return in
}

// TaskFilters selects a page of the user's tasks.
type TaskFilters struct {
	Search string
	Status TaskStatus
	Page   int
	Limit  int
}

// Query encodes the filters as URL parameters, skipping unset values.
func (f TaskFilters) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Status != StatusAll {
		q.Set("status", string(f.Status))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q
}

// Active reports whether any narrowing filter is set.
func (f TaskFilters) Active() bool {
	return f.Search != "" || f.Status != StatusAll
}

// Pagination describes the page returned by the list endpoint.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether a later page exists.
func (p Pagination) HasNext() bool {
	return p.TotalPages > 0 && p.Page < p.TotalPages
}

// TaskPage is the success body of GET /tasks.
type TaskPage struct {
	Tasks      []Task     `json:"tasks"`
	Pagination Pagination `json:"pagination"`
}
