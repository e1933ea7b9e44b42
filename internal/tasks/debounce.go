package tasks

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the search quiescence window.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer coalesces raw search text into committed values. Every Touch
// returns a tag; the caller schedules Settle(tag) after Window. Only the
// most recent tag commits, and only when its text differs from the last
// committed value.
type Debouncer struct {
	mu        sync.Mutex
	window    time.Duration
	gen       uint64
	pending   string
	committed string
}

// NewDebouncer returns a debouncer with the given window. Negative windows
// are treated as zero.
func NewDebouncer(window time.Duration) *Debouncer {
	if window < 0 {
		window = 0
	}
	return &Debouncer{window: window}
}

// Window returns the quiescence window.
func (d *Debouncer) Window() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.window
}

// SetWindow changes the window for keystrokes that follow.
func (d *Debouncer) SetWindow(window time.Duration) {
	if window < 0 {
		window = 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.window = window
}

// Touch records a keystroke's text and returns its tag.
func (d *Debouncer) Touch(text string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.pending = strings.TrimSpace(text)
	return d.gen
}

// Settle commits the pending text if tag is still the latest. ok is false
// when a newer Touch happened or the value did not change.
func (d *Debouncer) Settle(tag uint64) (value string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if tag != d.gen || d.pending == d.committed {
		return "", false
	}
	d.committed = d.pending
	return d.committed, true
}

// Committed returns the last committed value.
func (d *Debouncer) Committed() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.committed
}

// Reset forgets pending text and sets the committed value, invalidating
// outstanding tags.
func (d *Debouncer) Reset(committed string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.pending = committed
	d.committed = committed
}
