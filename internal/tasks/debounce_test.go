package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)

func TestDebouncer_OnlyLatestTagCommits(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)

	var tags []uint64
	for _, text := range []string{"b", "bu", "buy", "buy m", "buy milk"} {
		tags = append(tags, d.Touch(text))
	}

	var committed []string
	for _, tag := range tags {
		if v, ok := d.Settle(tag); ok {
			committed = append(committed, v)
		}
	}

	assert.Equal(t, []string{"buy milk"}, committed)
	assert.Equal(t, "buy milk", d.Committed())
}

func TestDebouncer_UnchangedValueDoesNotCommit(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)

	v, ok := d.Settle(d.Touch("milk"))
	require.True(t, ok)
	assert.Equal(t, "milk", v)

	// Typing and erasing back to the committed value triggers nothing.
	d.Touch("milks")
	_, ok = d.Settle(d.Touch("milk"))
	assert.False(t, ok)
}

func TestDebouncer_Reset(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)
	tag := d.Touch("stale")
	d.Reset("")

	_, ok := d.Settle(tag)
	assert.False(t, ok)
	assert.Empty(t, d.Committed())
}

func TestDebouncer_NegativeWindow(t *testing.T) {
	assert.Zero(t, NewDebouncer(-time.Second).Window())
}

// Keystrokes faster than the window produce exactly one fetch, with the
// last text.
func TestDebounce_SingleFetchForBurst(t *testing.T) {
	svc := newFakeService()
	c := NewController(svc, 0, nil)
	d := NewDebouncer(20 * time.Millisecond)

	settle := make(chan uint64, 16)
	for _, text := range []string{"w", "wr", "wri", "writ", "write"} {
		tag := d.Touch(text)
		time.AfterFunc(d.Window(), func() { settle <- tag })
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.After(timeout)
	for received := 0; received < 5; received++ {
		select {
		case tag := <-settle:
			if v, ok := d.Settle(tag); ok && c.SetSearch(v) {
				_, err := c.List(context.Background())
				require.NoError(t, err)
			}
		case <-deadline:
			t.Fatal("timed out waiting for debounce ticks")
		}
	}

	assert.Equal(t, []string{"list:write"}, svc.calls)
}

func TestDebouncer_SetWindow(t *testing.T) {
	d := NewDebouncer(DefaultDebounce)
	d.SetWindow(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, d.Window())

	d.SetWindow(-time.Second)
	assert.Zero(t, d.Window())
}
