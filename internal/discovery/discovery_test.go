package discovery

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestPublishWritesDescriptorAndEnvScript(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(WithDir(dir), WithPID(1234))

	if err := p.Publish(45678, "/home/user/project", "tok-123"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	descPath := filepath.Join(dir, "gemini-ide-server-1234-45678.json")
	data, err := os.ReadFile(descPath)
	if err != nil {
		t.Fatalf("reading descriptor: %v", err)
	}
	var desc PortDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		t.Fatalf("descriptor is not valid JSON: %v", err)
	}
	if desc.Port != 45678 || desc.WorkspacePath != "/home/user/project" || desc.AuthToken != "tok-123" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}
	if desc.IdeInfo == nil || desc.IdeInfo.Name != "neovim" {
		t.Fatalf("unexpected ideInfo: %+v", desc.IdeInfo)
	}

	envPath := filepath.Join(dir, "nvim-env-1234.sh")
	script, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatalf("reading env script: %v", err)
	}
	for _, want := range []string{
		"export GEMINI_CLI_IDE_SERVER_PORT=45678",
		"export GEMINI_CLI_IDE_WORKSPACE_PATH='/home/user/project'",
		"export GEMINI_CLI_IDE_AUTH_TOKEN='tok-123'",
		"export GEMINI_CLI_IDE='nvim'",
	} {
		if !strings.Contains(string(script), want) {
			t.Fatalf("env script missing %q:\n%s", want, script)
		}
	}

	for _, path := range []string{descPath, envPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Mode().Perm() != 0600 {
			t.Fatalf("%s has mode %o, want 0600", path, info.Mode().Perm())
		}
	}
}

func TestStopRemovesBothFiles(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(WithDir(dir), WithPID(1234))

	if err := p.Publish(5000, "/w", "tok"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Stop()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gemini-ide-server-") || strings.HasPrefix(e.Name(), "nvim-env-") {
			t.Fatalf("file %s survived Stop", e.Name())
		}
	}

	// Stop again is a no-op.
	p.Stop()
}

func TestReapRemovesDeadOwnerFiles(t *testing.T) {
	dir := t.TempDir()

	// Spec-style dead pid: well above anything launched in this test.
	dead := filepath.Join(dir, "gemini-ide-server-999999-5000.json")
	if err := os.WriteFile(dead, []byte("{}"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := Reap(dir); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if _, err := os.Stat(dead); !os.IsNotExist(err) {
		t.Fatal("expected dead-owner descriptor to be reaped")
	}
}

func TestReapKeepsLiveOwnerFreshFiles(t *testing.T) {
	dir := t.TempDir()

	live := filepath.Join(dir, fmt.Sprintf("gemini-ide-server-%d-5000.json", os.Getpid()))
	if err := os.WriteFile(live, []byte("{}"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := Reap(dir); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("live-owner descriptor was reaped: %v", err)
	}
}

func TestReapRemovesExpiredFilesEvenWithLiveOwner(t *testing.T) {
	dir := t.TempDir()

	old := filepath.Join(dir, fmt.Sprintf("nvim-env-%d.sh", os.Getpid()))
	if err := os.WriteFile(old, []byte("export X=1\n"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	past := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if err := Reap(dir); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("expected expired env script to be reaped")
	}
}

func TestReapIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()

	foreign := filepath.Join(dir, "unrelated-999999.txt")
	if err := os.WriteFile(foreign, []byte("keep"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	if err := Reap(dir); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatalf("foreign file was touched: %v", err)
	}
}

func TestReapSkipsWhenAnotherReaperHoldsTheLock(t *testing.T) {
	dir := t.TempDir()

	dead := filepath.Join(dir, "gemini-ide-server-999999-5000.json")
	if err := os.WriteFile(dead, []byte("{}"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	held := flock.New(filepath.Join(dir, ".reap.lock"))
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("acquiring lock: locked=%v err=%v", locked, err)
	}

	if err := Reap(dir); err != nil {
		t.Fatalf("Reap under held lock: %v", err)
	}
	if _, err := os.Stat(dead); err != nil {
		t.Fatal("concurrent reap must not touch files while the lock is held")
	}

	if err := held.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := Reap(dir); err != nil {
		t.Fatalf("Reap: %v", err)
	}
	if _, err := os.Stat(dead); !os.IsNotExist(err) {
		t.Fatal("expected dead-owner descriptor to be reaped once the lock is free")
	}
}

func TestReapMissingDirIsNotAnError(t *testing.T) {
	if err := Reap(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Fatalf("Reap on missing dir: %v", err)
	}
}

func TestListReturnsPublishedBridges(t *testing.T) {
	dir := t.TempDir()
	p := NewPublisher(WithDir(dir), WithPID(os.Getpid()))
	if err := p.Publish(5000, "/w", "tok"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	// Malformed descriptors are skipped, not fatal.
	junk := filepath.Join(dir, "gemini-ide-server-999999-6000.json")
	if err := os.WriteFile(junk, []byte("not json"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	bridges, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bridges) != 1 {
		t.Fatalf("got %d bridges, want 1", len(bridges))
	}
	b := bridges[0]
	if b.PID != os.Getpid() || b.Port != 5000 || b.WorkspacePath != "/w" {
		t.Fatalf("unexpected bridge: %+v", b)
	}
	if !b.Alive {
		t.Error("own process reported dead")
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	bridges, err := List(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(bridges) != 0 {
		t.Fatalf("got %d bridges, want 0", len(bridges))
	}
}

func TestOwnerPID(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		ok   bool
	}{
		{"gemini-ide-server-1234-5000.json", 1234, true},
		{"nvim-env-42.sh", 42, true},
		{"gemini-ide-server-x-5000.json", 0, false},
		{"nvim-env-42.sh.bak", 0, false},
		{"random.txt", 0, false},
	}
	for _, tt := range tests {
		pid, ok := ownerPID(tt.name)
		if pid != tt.pid || ok != tt.ok {
			t.Fatalf("ownerPID(%q) = (%d, %v), want (%d, %v)",
				tt.name, pid, ok, tt.pid, tt.ok)
		}
	}
}
