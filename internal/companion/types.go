// Package companion defines the shared data model for the IDE companion
// bridge: the open-file context snapshot exchanged with clients and the
// notification method names on the wire.
package companion

import "encoding/json"

const (
	// MaxFiles caps the open-file list. On overflow the oldest
	// non-active entry is evicted.
	MaxFiles = 10

	// MaxSelectedTextBytes caps the selected text carried on the active
	// file. Longer selections are truncated on ingress.
	MaxSelectedTextBytes = 16384
)

// Notification methods the bridge pushes to connected clients.
const (
	MethodContextUpdate = "ide/contextUpdate"
	MethodDiffAccepted  = "ide/diffAccepted"
	MethodDiffRejected  = "ide/diffRejected"
	MethodPing          = "ping"
)

// Cursor is a 1-based position in the active file.
type Cursor struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// OpenFile is one entry in the open-file list. Cursor and SelectedText are
// only meaningful on the active file; inactive entries carry neither.
type OpenFile struct {
	Path         string  `json:"path"`
	Timestamp    int64   `json:"timestamp"`
	IsActive     bool    `json:"isActive,omitempty"`
	Cursor       *Cursor `json:"cursor,omitempty"`
	SelectedText string  `json:"selectedText,omitempty"`
}

// WorkspaceState holds the open-file list, most-recently-active first.
type WorkspaceState struct {
	OpenFiles []OpenFile `json:"openFiles,omitempty"`
	IsTrusted bool       `json:"isTrusted"`
}

// IdeContext is the single externally observable snapshot of editor state.
type IdeContext struct {
	WorkspaceState *WorkspaceState `json:"workspaceState,omitempty"`
}

// TruncateSelection enforces MaxSelectedTextBytes on a selection. The cut
// is a plain byte cap so the stored length is exact.
func TruncateSelection(s string) string {
	if len(s) > MaxSelectedTextBytes {
		return s[:MaxSelectedTextBytes]
	}
	return s
}

// Params converts a value into the map shape the MCP notification API
// takes. Falls back to an empty map on marshal failure, which cannot
// happen for the types in this package.
func Params(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	out := make(map[string]any)
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}
