package editor

import (
	"fmt"
	"log"

	"github.com/gemini-nvim/ide-companion/internal/util"
)

// Event vocabulary emitted by the editor plugin. The payloads are
// schemaless maps on the wire; each event is validated with a narrow
// parser here and dropped when malformed. Unknown methods are never
// registered, so the RPC layer rejects them without touching the core.
const (
	evBufferEnter   = "buffer_enter"
	evCursorMoved   = "cursor_moved"
	evVisualChanged = "visual_changed"
	evBufferClosed  = "buffer_closed"
	evDiffAccepted  = "diff_accepted"
	evDiffRejected  = "diff_rejected"
)

func (c *Client) registerHandlers(ctxSink ContextSink, diffSink DiffSink) error {
	handlers := map[string]any{
		evBufferEnter: func(ev map[string]any) {
			path, ok := pathField(ev, "path")
			if !ok {
				c.dropf(evBufferEnter, ev)
				return
			}
			ctxSink.BufferEntered(path)
		},
		evCursorMoved: func(ev map[string]any) {
			line, lineOK := intField(ev, "line")
			col, colOK := intField(ev, "col")
			if !lineOK || !colOK || line < 1 || col < 1 {
				c.dropf(evCursorMoved, ev)
				return
			}
			ctxSink.CursorMoved(line, col)
		},
		evVisualChanged: func(ev map[string]any) {
			text, ok := stringField(ev, "selectedText")
			if !ok {
				c.dropf(evVisualChanged, ev)
				return
			}
			ctxSink.VisualChanged(text)
		},
		evBufferClosed: func(ev map[string]any) {
			path, ok := pathField(ev, "path")
			if !ok {
				c.dropf(evBufferClosed, ev)
				return
			}
			ctxSink.BufferClosed(path)
		},
		evDiffAccepted: func(ev map[string]any) {
			path, pathOK := pathField(ev, "filePath")
			content, contentOK := stringField(ev, "content")
			if !pathOK || !contentOK {
				c.dropf(evDiffAccepted, ev)
				return
			}
			diffSink.DiffAccepted(path, content)
		},
		evDiffRejected: func(ev map[string]any) {
			path, ok := pathField(ev, "filePath")
			if !ok {
				c.dropf(evDiffRejected, ev)
				return
			}
			diffSink.DiffRejected(path)
		},
	}

	for name, fn := range handlers {
		if err := c.v.RegisterHandler(name, fn); err != nil {
			return fmt.Errorf("registering %s handler: %w", name, err)
		}
	}
	return nil
}

func (c *Client) dropf(event string, payload map[string]any) {
	if c.debug {
		log.Printf("editor: dropping malformed %s event: %v", event, payload)
	}
}

// stringField extracts a string value from a schemaless payload.
func stringField(ev map[string]any, key string) (string, bool) {
	v, ok := ev[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// pathField extracts a string value and requires it to normalize to an
// absolute path.
func pathField(ev map[string]any, key string) (string, bool) {
	s, ok := stringField(ev, key)
	if !ok {
		return "", false
	}
	return util.NormalizeAbsPath(s)
}

// intField extracts an integer value. msgpack decodes numbers as int64,
// uint64, or float64 depending on the encoder.
func intField(ev map[string]any, key string) (int, bool) {
	switch v := ev[key].(type) {
	case int64:
		return int(v), true
	case uint64:
		return int(v), true
	case int:
		return v, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int(v), true
	default:
		return 0, false
	}
}
