// Package reminder watches board state for timed reminders coming due and
// delivers them to the terminal UI as Bubble Tea messages.
package reminder

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/board"
)

// DefaultInterval is the check period when none is configured.
const DefaultInterval = 30 * time.Second

// Source yields the timed reminders due at a given time.
type Source interface {
	DueReminders(now time.Time) []board.Reminder
}

// DueMsg is a tea.Msg sent once per lead and reminder time.
type DueMsg struct {
	Reminder board.Reminder
}

// Text formats the popup line for the reminder.
func (m DueMsg) Text() string {
	l := m.Reminder.Lead
	return fmt.Sprintf("Reminder for %s (%s): %s", l.Title, m.Reminder.ColumnTitle, *l.ReminderText)
}

type firedKey struct {
	leadID string
	at     int64
}

// Watcher checks a Source on a ticker.
type Watcher struct {
	src      Source
	interval time.Duration
	now      func() time.Time

	dueCh  chan DueMsg
	stopCh chan struct{}

	mu      sync.Mutex
	fired   map[firedKey]struct{}
	running bool
}

// New creates a watcher over src. A non-positive interval uses
// DefaultInterval.
func New(src Source, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		src:      src,
		interval: interval,
		now:      time.Now,
		dueCh:    make(chan DueMsg, 16),
		stopCh:   make(chan struct{}),
		fired:    make(map[firedKey]struct{}),
	}
}

// Start launches the ticker goroutine and returns a tea.Cmd that waits for
// the first due reminder.
func (w *Watcher) Start() tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	go w.loop()
	return w.Wait()
}

// Stop halts the ticker goroutine.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

// Wait returns a tea.Cmd that blocks until the next due reminder. Call it
// again after handling each DueMsg.
func (w *Watcher) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.dueCh:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.send(w.Check(w.now()))
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.send(w.Check(w.now()))
		}
	}
}

// Check returns reminders due at now that have not fired before, and marks
// them fired. Changing a lead's reminder time makes it eligible again.
func (w *Watcher) Check(now time.Time) []DueMsg {
	due := w.src.DueReminders(now)

	w.mu.Lock()
	defer w.mu.Unlock()

	var out []DueMsg
	for _, r := range due {
		key := firedKey{leadID: r.Lead.ID, at: *r.Lead.ReminderAt}
		if _, ok := w.fired[key]; ok {
			continue
		}
		w.fired[key] = struct{}{}
		out = append(out, DueMsg{Reminder: r})
	}
	return out
}

// send delivers without blocking; a full channel drops the message.
func (w *Watcher) send(msgs []DueMsg) {
	for _, m := range msgs {
		select {
		case w.dueCh <- m:
		default:
		}
	}
}
