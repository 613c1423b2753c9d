package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerTools() {
	openDiff := mcp.NewTool("openDiff",
		mcp.WithDescription("Open a diff view in the editor comparing a file with proposed new content."),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Absolute path of the file under review."),
		),
		mcp.WithString("newContent",
			mcp.Required(),
			mcp.Description("Proposed file content to diff against."),
		),
	)
	s.mcp.AddTool(openDiff, s.handleOpenDiff)

	closeDiff := mcp.NewTool("closeDiff",
		mcp.WithDescription("Close the diff view for a file and return its edited content, if a diff was open."),
		mcp.WithString("filePath",
			mcp.Required(),
			mcp.Description("Absolute path of the file whose diff to close."),
		),
	)
	s.mcp.AddTool(closeDiff, s.handleCloseDiff)
}

func (s *Server) handleOpenDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("filePath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newContent, err := req.RequireString("newContent")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.diffs.Open(ctx, filePath, newContent); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening diff: %v", err)), nil
	}
	return mcp.NewToolResultText(""), nil
}

func (s *Server) handleCloseDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filePath, err := req.RequireString("filePath")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, open, err := s.diffs.Close(ctx, filePath)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("closing diff: %v", err)), nil
	}

	// The content key is omitted entirely when no diff was open.
	payload := struct {
		Content *string `json:"content,omitempty"`
	}{}
	if open {
		payload.Content = &content
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
