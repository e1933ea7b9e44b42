package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskmaster/internal/api"
	"github.com/nhle/taskmaster/internal/model"
	"github.com/nhle/taskmaster/internal/session"
	"github.com/nhle/taskmaster/internal/tasks"
	"github.com/nhle/taskmaster/internal/ui/command"
	"github.com/nhle/taskmaster/internal/ui/tasklist"
)

type taskOp int

const (
	opCreate taskOp = iota
	opUpdate
	opDelete
	opToggle
)

var opMessages = map[taskOp]struct{ ok, fail string }{
	opCreate: {"Task created successfully", "Failed to create task"},
	opUpdate: {"Task updated successfully", "Failed to update task"},
	opDelete: {"Task deleted successfully", "Failed to delete task"},
	opToggle: {"", "Failed to update status"},
}

// mutationResultMsg carries the outcome of a create, update, delete or
// toggle request.
type mutationResultMsg struct {
	op   taskOp
	id   int64
	task *model.Task
	done bool
	err  error
}

func (m *Model) openCreateForm() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskForm
	return m.taskForm.StartCreate()
}

func (m *Model) openEditForm(task model.Task) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewTaskForm
	return m.taskForm.StartEdit(task)
}

func (m *Model) askDelete(task model.Task) tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewConfirm
	return m.confirmView.Ask(task)
}

func (m *Model) openHistory() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewHistory
	return m.historyView.Init()
}

func (m Model) createTask(in model.TaskInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		task, err := ctrl.Create(context.Background(), in)
		return mutationResultMsg{op: opCreate, task: task, err: err}
	}
}

func (m Model) updateTask(id int64, in model.TaskInput) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		task, err := ctrl.Update(context.Background(), id, in)
		return mutationResultMsg{op: opUpdate, id: id, task: task, err: err}
	}
}

// deleteTask runs after the confirm dialog was accepted.
func (m Model) deleteTask(id int64) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		done, err := ctrl.Delete(context.Background(), id, func(model.Task) bool { return true })
		return mutationResultMsg{op: opDelete, id: id, done: done, err: err}
	}
}

func (m Model) toggleTask(id int64) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		task, err := ctrl.ToggleStatus(context.Background(), id)
		return mutationResultMsg{op: opToggle, id: id, task: task, err: err}
	}
}

// failure turns err into a notification. Superseded results are dropped
// and authentication failures end the session.
func (m *Model) failure(err error, text string) tea.Cmd {
	switch {
	case errors.Is(err, tasks.ErrSuperseded):
		return nil
	case api.IsAuthError(err):
		if m.session.State() != session.StateAuthenticated {
			return nil
		}
		return m.expire()
	}
	m.logger.Warn(strings.ToLower(text), slog.String("error", err.Error()))
	return m.notify(model.LevelError, text)
}

func (m *Model) handleListResult(msg tasklist.ListResultMsg) tea.Cmd {
	if errors.Is(msg.Err, tasks.ErrSuperseded) {
		return nil
	}
	m.refresh.Done(msg.Err)
	if msg.Err == nil {
		return nil
	}
	return m.failure(msg.Err, "Failed to load tasks")
}

func (m *Model) handleMutation(msg mutationResultMsg) tea.Cmd {
	text := opMessages[msg.op]

	if msg.err != nil {
		if errors.Is(msg.err, tasks.ErrSuperseded) || api.IsAuthError(msg.err) {
			return m.failure(msg.err, text.fail)
		}
		if m.currentView == ViewTaskForm && (msg.op == opCreate || msg.op == opUpdate) {
			reason := text.fail
			if model.IsValidationError(msg.err) {
				reason = msg.err.Error()
			}
			return tea.Batch(m.taskForm.Fail(reason), m.failure(msg.err, text.fail))
		}
		return m.failure(msg.err, text.fail)
	}

	switch msg.op {
	case opCreate:
		m.currentView = ViewList
		return tea.Batch(m.notify(model.LevelSuccess, text.ok), m.taskList.Reload())

	case opUpdate:
		m.currentView = m.previousView
		if m.currentView == ViewDetail && msg.task != nil {
			m.detail.SetTask(*msg.task)
		}
		return tea.Batch(m.notify(model.LevelSuccess, text.ok), m.taskList.Reload())

	case opDelete:
		if !msg.done {
			return nil
		}
		if m.currentView == ViewDetail {
			m.currentView = ViewList
		}
		m.taskList.Sync()
		return m.notify(model.LevelSuccess, text.ok)

	case opToggle:
		m.taskList.Sync()
		if shown, ok := m.detail.Task(); ok && msg.task != nil && shown.ID == msg.task.ID {
			m.detail.SetTask(*msg.task)
		}
		return m.notify(model.LevelSuccess, toggleMessage(msg.task))
	}
	return nil
}

// toggleMessage reads e.g. "Task marked as in progress".
func toggleMessage(task *model.Task) string {
	if task == nil {
		return "Task status updated"
	}
	status := strings.ToLower(strings.ReplaceAll(string(task.Status), "_", " "))
	return "Task marked as " + status
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.Command) tea.Cmd {
	switch c.Name {
	case "new":
		return m.openCreateForm()
	case "search":
		m.currentView = ViewList
		return m.taskList.SetSearch(c.Arg)
	case "status":
		status, err := model.ParseTaskStatus(c.Arg)
		if err != nil {
			return m.notify(model.LevelError, err.Error())
		}
		m.currentView = ViewList
		return m.taskList.SetStatus(status)
	case "page":
		page, err := strconv.Atoi(c.Arg)
		if err != nil || page < 1 {
			return m.notify(model.LevelError, fmt.Sprintf("invalid page %q", c.Arg))
		}
		m.currentView = ViewList
		return m.taskList.SetPage(page)
	case "clear":
		m.currentView = ViewList
		return m.taskList.ClearFilters()
	case "refresh":
		return m.taskList.Reload()
	case "history":
		return m.openHistory()
	case "settings":
		return m.openSettings()
	case "help":
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return nil
	case "logout":
		return m.logout()
	case "quit":
		m.refresh.Stop()
		return tea.Quit
	}
	return nil
}
