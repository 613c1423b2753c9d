// Package ide maintains the aggregated editor context: the open-file list
// with active file, cursor, and selection, plus change notification with
// trailing-debounce pacing so cursor traffic doesn't storm subscribers.
package ide

import (
	"sync"
	"time"

	"github.com/gemini-nvim/ide-companion/internal/companion"
)

// DefaultDebounce is the notification coalescing interval used when no
// override is configured.
const DefaultDebounce = 200 * time.Millisecond

// Aggregator ingests editor events and exposes a copy-on-read snapshot.
// All exported methods are safe for concurrent use.
type Aggregator struct {
	mu       sync.Mutex
	files    []companion.OpenFile
	debounce time.Duration
	timer    *time.Timer
	closed   bool

	// subMu guards the subscriber map separately from state so a
	// subscriber can dispose itself from within its own callback.
	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int

	// notifyMu serializes subscriber callbacks. Subscribers are never
	// invoked concurrently for the same aggregator.
	notifyMu sync.Mutex
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithDebounce overrides the coalescing interval.
func WithDebounce(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.debounce = d
		}
	}
}

// New creates an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		debounce: DefaultDebounce,
		subs:     make(map[int]func()),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns a deep copy of the current context. Safe to retain.
func (a *Aggregator) Snapshot() companion.IdeContext {
	a.mu.Lock()
	defer a.mu.Unlock()

	files := make([]companion.OpenFile, len(a.files))
	copy(files, a.files)
	for i := range files {
		if files[i].Cursor != nil {
			c := *files[i].Cursor
			files[i].Cursor = &c
		}
	}
	return companion.IdeContext{
		WorkspaceState: &companion.WorkspaceState{
			OpenFiles: files,
			IsTrusted: true,
		},
	}
}

// Subscribe registers a change callback and returns its dispose function.
// Callbacks take no arguments; they read Snapshot. Dispose is safe to call
// from inside the callback.
func (a *Aggregator) Subscribe(cb func()) (dispose func()) {
	a.subMu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = cb
	a.subMu.Unlock()

	return func() {
		a.subMu.Lock()
		delete(a.subs, id)
		a.subMu.Unlock()
	}
}

// Close stops the pending notification timer and drops future ones.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// BufferEntered records that the editor focused a file. Any previous entry
// for the path is removed, the previously active entry is demoted (cursor
// and selection cleared), and the file is inserted at the front.
func (a *Aggregator) BufferEntered(path string) {
	a.mu.Lock()
	a.removeLocked(path)
	for i := range a.files {
		if a.files[i].IsActive {
			a.files[i].IsActive = false
			a.files[i].Cursor = nil
			a.files[i].SelectedText = ""
		}
	}
	entry := companion.OpenFile{
		Path:      path,
		Timestamp: time.Now().UnixMilli(),
		IsActive:  true,
	}
	a.files = append([]companion.OpenFile{entry}, a.files...)
	if len(a.files) > companion.MaxFiles {
		a.files = a.files[:companion.MaxFiles]
	}
	a.scheduleNotifyLocked()
	a.mu.Unlock()
}

// CursorMoved updates the cursor on the active file, if any.
func (a *Aggregator) CursorMoved(line, col int) {
	a.mu.Lock()
	if f := a.activeLocked(); f != nil {
		f.Cursor = &companion.Cursor{Line: line, Character: col}
		a.scheduleNotifyLocked()
	}
	a.mu.Unlock()
}

// VisualChanged updates the selection on the active file, if any. The text
// is truncated on ingress; an empty selection clears the field.
func (a *Aggregator) VisualChanged(text string) {
	a.mu.Lock()
	if f := a.activeLocked(); f != nil {
		f.SelectedText = companion.TruncateSelection(text)
		a.scheduleNotifyLocked()
	}
	a.mu.Unlock()
}

// BufferClosed removes the entry for the path, if present.
func (a *Aggregator) BufferClosed(path string) {
	a.mu.Lock()
	if a.removeLocked(path) {
		a.scheduleNotifyLocked()
	}
	a.mu.Unlock()
}

// activeLocked returns the active entry; caller must hold a.mu.
func (a *Aggregator) activeLocked() *companion.OpenFile {
	for i := range a.files {
		if a.files[i].IsActive {
			return &a.files[i]
		}
	}
	return nil
}

// removeLocked removes any entry for path; caller must hold a.mu.
func (a *Aggregator) removeLocked(path string) bool {
	for i := range a.files {
		if a.files[i].Path == path {
			a.files = append(a.files[:i], a.files[i+1:]...)
			return true
		}
	}
	return false
}

// scheduleNotifyLocked (re)arms the trailing debounce timer; caller must
// hold a.mu. Each mutation pushes the fire point out, so a burst yields a
// single notification after the last event, and a quiet state never fires.
func (a *Aggregator) scheduleNotifyLocked() {
	if a.closed {
		return
	}
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.debounce, a.notify)
}

func (a *Aggregator) notify() {
	a.notifyMu.Lock()
	defer a.notifyMu.Unlock()

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}

	a.subMu.Lock()
	cbs := make([]func(), 0, len(a.subs))
	for _, cb := range a.subs {
		cbs = append(cbs, cb)
	}
	a.subMu.Unlock()

	for _, cb := range cbs {
		cb()
	}
}
