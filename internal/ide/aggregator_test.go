package ide

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gemini-nvim/ide-companion/internal/companion"
)

func TestBufferEnteredCursorSelection(t *testing.T) {
	a := New(WithDebounce(20 * time.Millisecond))
	defer a.Close()

	a.BufferEntered("/a")
	a.CursorMoved(3, 7)
	a.VisualChanged("hello")

	state := a.Snapshot()
	files := state.WorkspaceState.OpenFiles
	if len(files) != 1 {
		t.Fatalf("expected 1 open file, got %d", len(files))
	}
	f := files[0]
	if f.Path != "/a" || !f.IsActive {
		t.Fatalf("expected /a active, got %+v", f)
	}
	if f.Cursor == nil || f.Cursor.Line != 3 || f.Cursor.Character != 7 {
		t.Fatalf("unexpected cursor: %+v", f.Cursor)
	}
	if f.SelectedText != "hello" {
		t.Fatalf("unexpected selection: %q", f.SelectedText)
	}
	if !state.WorkspaceState.IsTrusted {
		t.Fatal("expected trusted workspace")
	}
}

func TestEvictionKeepsNewestTen(t *testing.T) {
	a := New()
	defer a.Close()

	for i := 1; i <= 11; i++ {
		a.BufferEntered(fmt.Sprintf("/f%d", i))
	}

	files := a.Snapshot().WorkspaceState.OpenFiles
	if len(files) != companion.MaxFiles {
		t.Fatalf("expected %d files, got %d", companion.MaxFiles, len(files))
	}
	if files[0].Path != "/f11" || !files[0].IsActive {
		t.Fatalf("expected /f11 active at front, got %+v", files[0])
	}
	for _, f := range files {
		if f.Path == "/f1" {
			t.Fatal("expected /f1 to be evicted")
		}
	}
}

func TestNoDuplicatesAndSingleActive(t *testing.T) {
	a := New()
	defer a.Close()

	a.BufferEntered("/a")
	a.CursorMoved(1, 1)
	a.BufferEntered("/b")
	a.BufferEntered("/a")

	files := a.Snapshot().WorkspaceState.OpenFiles
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	seen := map[string]bool{}
	active := 0
	for _, f := range files {
		if seen[f.Path] {
			t.Fatalf("duplicate path %s", f.Path)
		}
		seen[f.Path] = true
		if f.IsActive {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active file, got %d", active)
	}
	if files[0].Path != "/a" {
		t.Fatalf("expected re-entered /a at front, got %s", files[0].Path)
	}
}

func TestDemotionClearsCursorAndSelection(t *testing.T) {
	a := New()
	defer a.Close()

	a.BufferEntered("/a")
	a.CursorMoved(5, 2)
	a.VisualChanged("sel")
	a.BufferEntered("/b")

	files := a.Snapshot().WorkspaceState.OpenFiles
	for _, f := range files {
		if f.Path != "/a" {
			continue
		}
		if f.IsActive || f.Cursor != nil || f.SelectedText != "" {
			t.Fatalf("demoted entry still carries state: %+v", f)
		}
	}
}

func TestSelectionTruncatedToExactCap(t *testing.T) {
	a := New()
	defer a.Close()

	a.BufferEntered("/a")
	a.VisualChanged(strings.Repeat("x", companion.MaxSelectedTextBytes+5000))

	f := a.Snapshot().WorkspaceState.OpenFiles[0]
	if len(f.SelectedText) != companion.MaxSelectedTextBytes {
		t.Fatalf("expected selection of %d bytes, got %d",
			companion.MaxSelectedTextBytes, len(f.SelectedText))
	}
}

func TestCursorIgnoredWithoutActiveFile(t *testing.T) {
	a := New()
	defer a.Close()

	a.CursorMoved(1, 1)
	a.VisualChanged("text")

	if n := len(a.Snapshot().WorkspaceState.OpenFiles); n != 0 {
		t.Fatalf("expected empty list, got %d entries", n)
	}
}

func TestBufferClosedRemovesEntry(t *testing.T) {
	a := New()
	defer a.Close()

	a.BufferEntered("/a")
	a.BufferEntered("/b")
	a.BufferClosed("/a")

	files := a.Snapshot().WorkspaceState.OpenFiles
	if len(files) != 1 || files[0].Path != "/b" {
		t.Fatalf("unexpected files after close: %+v", files)
	}
}

func TestDebounceCoalescesBurst(t *testing.T) {
	a := New(WithDebounce(30 * time.Millisecond))
	defer a.Close()

	var calls atomic.Int32
	dispose := a.Subscribe(func() { calls.Add(1) })
	defer dispose()

	a.BufferEntered("/a")
	for i := 0; i < 50; i++ {
		a.CursorMoved(i+1, 1)
	}

	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 coalesced notification, got %d", got)
	}

	a.CursorMoved(99, 1)
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected second notification after new event, got %d", got)
	}
}

func TestNotificationObservesLatestState(t *testing.T) {
	a := New(WithDebounce(20 * time.Millisecond))
	defer a.Close()

	got := make(chan companion.IdeContext, 1)
	dispose := a.Subscribe(func() {
		select {
		case got <- a.Snapshot():
		default:
		}
	})
	defer dispose()

	a.BufferEntered("/a")
	a.CursorMoved(10, 4)

	select {
	case state := <-got:
		f := state.WorkspaceState.OpenFiles[0]
		if f.Cursor == nil || f.Cursor.Line != 10 || f.Cursor.Character != 4 {
			t.Fatalf("notification observed stale state: %+v", f.Cursor)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification within 1s")
	}
}

func TestDisposeFromCallback(t *testing.T) {
	a := New(WithDebounce(10 * time.Millisecond))
	defer a.Close()

	var calls atomic.Int32
	var dispose func()
	dispose = a.Subscribe(func() {
		calls.Add(1)
		dispose()
	})

	a.BufferEntered("/a")
	time.Sleep(50 * time.Millisecond)
	a.BufferEntered("/b")
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected disposed subscriber to run once, got %d", got)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	a := New()
	defer a.Close()

	a.BufferEntered("/a")
	a.CursorMoved(1, 1)

	snap := a.Snapshot()
	snap.WorkspaceState.OpenFiles[0].Cursor.Line = 42
	snap.WorkspaceState.OpenFiles[0].Path = "/mutated"

	f := a.Snapshot().WorkspaceState.OpenFiles[0]
	if f.Path != "/a" || f.Cursor.Line != 1 {
		t.Fatalf("snapshot mutation leaked into aggregator: %+v", f)
	}
}

func TestCloseStopsNotifications(t *testing.T) {
	a := New(WithDebounce(10 * time.Millisecond))

	var calls atomic.Int32
	a.Subscribe(func() { calls.Add(1) })

	a.BufferEntered("/a")
	a.Close()
	time.Sleep(50 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Fatalf("expected no notification after Close, got %d", got)
	}
}
