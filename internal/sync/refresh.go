// Package sync keeps the task list in step with the server by re-listing
// on a fixed interval.
package sync

import (
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SyncState represents the current state of a refresh.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus is shown in the status bar.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// RefreshMsg is a tea.Msg sent when a refresh tick fires.
type RefreshMsg struct {
	Generation uint64
}

// AutoRefresh schedules periodic list refreshes with tea.Tick. Ticks carry
// the generation they were scheduled under; Stop bumps the generation so
// ticks already in flight are ignored.
type AutoRefresh struct {
	mu       gosync.Mutex
	interval time.Duration
	gen      uint64
	running  bool
	status   SyncStatus
	now      func() time.Time
}

// New creates an AutoRefresh. A non-positive interval disables it.
func New(interval time.Duration) *AutoRefresh {
	return &AutoRefresh{interval: interval, now: time.Now}
}

// Enabled reports whether a refresh interval is configured.
func (a *AutoRefresh) Enabled() bool {
	return a.Interval() > 0
}

// Interval returns the configured refresh interval.
func (a *AutoRefresh) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// SetInterval changes the refresh period. It takes effect at the next
// Start; callers restart a running cycle themselves.
func (a *AutoRefresh) SetInterval(interval time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = interval
}

// Start begins a new refresh cycle and returns the first tick. It returns
// nil when refreshing is disabled.
func (a *AutoRefresh) Start() tea.Cmd {
	if !a.Enabled() {
		return nil
	}
	a.mu.Lock()
	a.gen++
	a.running = true
	gen := a.gen
	a.mu.Unlock()
	return a.schedule(gen)
}

// Stop ends the current cycle.
func (a *AutoRefresh) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	a.running = false
	a.status = SyncStatus{}
}

// Accept reports whether msg belongs to the running cycle.
func (a *AutoRefresh) Accept(msg RefreshMsg) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running && msg.Generation == a.gen
}

// Next schedules the following tick of the running cycle.
func (a *AutoRefresh) Next() tea.Cmd {
	a.mu.Lock()
	running, gen := a.running, a.gen
	a.mu.Unlock()
	if !running || !a.Enabled() {
		return nil
	}
	return a.schedule(gen)
}

func (a *AutoRefresh) schedule(gen uint64) tea.Cmd {
	return tea.Tick(a.Interval(), func(time.Time) tea.Msg {
		return RefreshMsg{Generation: gen}
	})
}

// Begin marks a list request as running.
func (a *AutoRefresh) Begin() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status.State = SyncRunning
}

// Done records the outcome of a list request.
func (a *AutoRefresh) Done(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.status.State = SyncError
		a.status.Error = err
		return
	}
	a.status = SyncStatus{State: SyncIdle, LastSync: a.now()}
}

// Status returns the last recorded status.
func (a *AutoRefresh) Status() SyncStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}
