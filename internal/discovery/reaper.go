package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/gofrs/flock"
)

// staleAge is the mtime threshold past which a descriptor is removed
// without probing its owner.
const staleAge = 24 * time.Hour

// Descriptor and env-script names embed the owning pid.
var (
	descriptorNameRe = regexp.MustCompile(`^gemini-ide-server-(\d+)-\d+\.json$`)
	envNameRe        = regexp.MustCompile(`^nvim-env-(\d+)\.sh$`)
)

// Reap scans the discovery directory and unlinks files whose owning
// process is gone or whose mtime is older than 24h. Files owned by live
// processes with fresh mtimes are never touched. Per-file errors are
// swallowed; a missing directory is not an error. The scan is serialized
// across bridge processes with a file lock; if another process holds it,
// the reap is skipped.
func Reap(dir string) error {
	fileLock := flock.New(filepath.Join(dir, ".reap.lock"))
	locked, err := fileLock.TryLock()
	if err != nil || !locked {
		// Another bridge is already reaping, or the directory is gone.
		return nil
	}
	defer func() { _ = fileLock.Unlock() }()

	// The scan runs under the lock so the snapshot and the unlinks are
	// covered by the same serialization.
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		pid, ok := ownerPID(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if now.Sub(info.ModTime()) > staleAge {
			_ = os.Remove(path)
			continue
		}
		if !processAlive(pid) {
			_ = os.Remove(path)
		}
	}
	return nil
}

// ownerPID extracts the embedded pid from a descriptor or env-script
// file name.
func ownerPID(name string) (int, bool) {
	for _, re := range []*regexp.Regexp{descriptorNameRe, envNameRe} {
		if m := re.FindStringSubmatch(name); m != nil {
			pid, err := strconv.Atoi(m[1])
			if err != nil {
				return 0, false
			}
			return pid, true
		}
	}
	return 0, false
}
