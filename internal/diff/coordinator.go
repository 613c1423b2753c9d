// Package diff coordinates inline diff review between clients and the
// editor: it drives the editor's open/close diff procedures and fans the
// user's accept/reject outcomes out to every connected client.
package diff

import (
	"context"

	"github.com/gemini-nvim/ide-companion/internal/companion"
)

// Editor is the subset of the editor client the coordinator drives.
type Editor interface {
	ShowDiff(ctx context.Context, filePath, newContent string) error
	CloseDiff(ctx context.Context, filePath string) (content string, open bool, err error)
}

// Broadcaster delivers a notification to every live client session.
type Broadcaster interface {
	Broadcast(method string, params map[string]any)
}

// Coordinator translates between the tool surface and the editor.
// It implements editor.DiffSink for the outcome events.
type Coordinator struct {
	editor Editor
	bc     Broadcaster
}

// New creates a coordinator bound to the editor and the session fan-out.
func New(editor Editor, bc Broadcaster) *Coordinator {
	return &Coordinator{editor: editor, bc: bc}
}

// Open asks the editor to show a diff. Failure is surfaced to the caller.
func (c *Coordinator) Open(ctx context.Context, filePath, newContent string) error {
	return c.editor.ShowDiff(ctx, filePath, newContent)
}

// Close asks the editor to close the diff for filePath, returning the
// edited content, or open=false when no such diff was showing.
func (c *Coordinator) Close(ctx context.Context, filePath string) (string, bool, error) {
	return c.editor.CloseDiff(ctx, filePath)
}

// DiffAccepted broadcasts the accepted outcome. Invoked once per editor
// event; ordering relative to context updates follows event arrival.
func (c *Coordinator) DiffAccepted(filePath, content string) {
	c.bc.Broadcast(companion.MethodDiffAccepted, map[string]any{
		"filePath": filePath,
		"content":  content,
	})
}

// DiffRejected broadcasts the rejected outcome.
func (c *Coordinator) DiffRejected(filePath string) {
	c.bc.Broadcast(companion.MethodDiffRejected, map[string]any{
		"filePath": filePath,
	})
}
