// Package editor attaches to the running Neovim instance over its
// msgpack-RPC socket. It subscribes to the plugin's event vocabulary,
// validates payloads at the boundary, and exposes the two diff procedures
// the plugin implements.
package editor

import (
	"context"
	"errors"
	"fmt"

	"github.com/neovim/go-client/nvim"
)

// Lua entry points implemented by the editor plugin.
const (
	openDiffLua  = "return require('gemini.diff').open(...)"
	closeDiffLua = "return require('gemini.diff').close(...)"
)

// ContextSink receives validated buffer, cursor, and selection events.
type ContextSink interface {
	BufferEntered(path string)
	CursorMoved(line, col int)
	VisualChanged(text string)
	BufferClosed(path string)
}

// DiffSink receives validated diff-outcome events.
type DiffSink interface {
	DiffAccepted(filePath, content string)
	DiffRejected(filePath string)
}

// Client is the bridge's connection to the editor.
type Client struct {
	v        *nvim.Nvim
	serveErr chan error
	debug    bool
}

// Attach dials the editor RPC socket. The socket path comes from the
// process environment ($NVIM); a failure here is fatal to the bridge.
func Attach(socket string) (*Client, error) {
	if socket == "" {
		return nil, errors.New("editor RPC socket path is empty")
	}
	v, err := nvim.Dial(socket)
	if err != nil {
		return nil, fmt.Errorf("attaching to editor at %s: %w", socket, err)
	}
	return &Client{v: v, serveErr: make(chan error, 1)}, nil
}

// SetDebug enables logging of dropped ingress events.
func (c *Client) SetDebug(enabled bool) { c.debug = enabled }

// Start registers the event handlers and begins serving the RPC
// connection. Events are forwarded to the sinks synchronously on the
// notification-dispatch path; pacing is the aggregator's concern.
func (c *Client) Start(ctxSink ContextSink, diffSink DiffSink) error {
	if err := c.registerHandlers(ctxSink, diffSink); err != nil {
		return err
	}
	go func() {
		c.serveErr <- c.v.Serve()
	}()
	return nil
}

// Done reports when the RPC connection terminates. A closed editor
// delivers a nil or non-nil error exactly once.
func (c *Client) Done() <-chan error { return c.serveErr }

// Close tears down the RPC connection.
func (c *Client) Close() error { return c.v.Close() }

// ShowDiff asks the editor to open a diff view of filePath against
// newContent. Resolves once the editor has opened the view.
func (c *Client) ShowDiff(ctx context.Context, filePath, newContent string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ignored any
	if err := c.v.ExecLua(openDiffLua, &ignored, filePath, newContent); err != nil {
		return fmt.Errorf("opening diff for %s: %w", filePath, err)
	}
	return nil
}

// CloseDiff asks the editor to close the diff view for filePath. Returns
// the edited content and true when a diff was open, or false when not.
func (c *Client) CloseDiff(ctx context.Context, filePath string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	var result any
	if err := c.v.ExecLua(closeDiffLua, &result, filePath); err != nil {
		return "", false, fmt.Errorf("closing diff for %s: %w", filePath, err)
	}
	if content, ok := result.(string); ok {
		return content, true, nil
	}
	return "", false, nil
}
