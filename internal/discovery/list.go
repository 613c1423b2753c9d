package discovery

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Bridge is a published descriptor plus file metadata, for listings.
type Bridge struct {
	PortDescriptor

	Path    string
	PID     int
	Alive   bool
	ModTime time.Time
}

// List returns the descriptors published under dir, newest first by
// owning pid order on disk. Unreadable or malformed descriptors are
// skipped. A missing directory yields an empty list.
func List(dir string) ([]Bridge, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var bridges []Bridge
	for _, entry := range entries {
		if entry.IsDir() || !descriptorNameRe.MatchString(entry.Name()) {
			continue
		}
		pid, ok := ownerPID(entry.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var desc PortDescriptor
		if err := json.Unmarshal(data, &desc); err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		bridges = append(bridges, Bridge{
			PortDescriptor: desc,
			Path:           path,
			PID:            pid,
			Alive:          processAlive(pid),
			ModTime:        info.ModTime(),
		})
	}
	return bridges, nil
}
