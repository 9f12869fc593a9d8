// Package mcpserver exposes the question answering pipeline as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pdf-qa-service/models"
	"pdf-qa-service/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "pdf-qa"
	serverVersion = "0.1.0"
)

// Handlers holds the tool implementations so they can be called directly.
type Handlers struct {
	qa *services.QAService
}

func NewHandlers(qa *services.QAService) *Handlers {
	return &Handlers{qa: qa}
}

// NewServer registers list_documents, upload_pdf and ask_question.
func NewServer(qa *services.QAService) *server.MCPServer {
	h := NewHandlers(qa)
	srv := server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List uploaded PDF documents with the number of questions asked about each"),
	), h.ListDocuments)

	srv.AddTool(mcp.NewTool("upload_pdf",
		mcp.WithDescription("Extract the text of a local PDF file and store it as a new document"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the PDF file on the server's filesystem"),
		),
		mcp.WithString("title",
			mcp.Description("Optional document title, defaults to the file name"),
		),
	), h.UploadPDF)

	srv.AddTool(mcp.NewTool("ask_question",
		mcp.WithDescription("Answer a question from the text of an uploaded document"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("Natural-language question"),
		),
		mcp.WithNumber("document_id",
			mcp.Description("Document to ask about, defaults to the most recent upload"),
		),
	), h.AskQuestion)

	return srv
}

type documentInfo struct {
	ID        int64  `json:"id"`
	Title     string `json:"title,omitempty"`
	Questions int    `json:"questions"`
}

func (h *Handlers) ListDocuments(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := h.qa.ListDocuments(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	infos := make([]documentInfo, 0, len(docs))
	for _, d := range docs {
		infos = append(infos, documentInfo{ID: d.ID, Title: d.Title, Questions: len(d.History)})
	}
	return jsonResult(infos)
}

func (h *Handlers) UploadPDF(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := request.GetString("title", filepath.Base(path))

	content, err := os.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read %s: %v", path, err)), nil
	}

	doc, err := h.qa.UploadPDF(ctx, title, content)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.UploadResponse{DocumentID: doc.ID})
}

func (h *Handlers) AskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var documentID *int64
	if id := int64(request.GetInt("document_id", 0)); id != 0 {
		documentID = &id
	}

	result, err := h.qa.Ask(ctx, documentID, question)
	var modelErr *services.ModelError
	switch {
	case errors.As(err, &modelErr):
		return mcp.NewToolResultError("An error occurred while processing the question."), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(struct {
		DocumentID int64  `json:"document_id"`
		Answer     string `json:"answer"`
		Strategy   string `json:"strategy"`
	}{
		DocumentID: result.DocumentID,
		Answer:     result.Answer,
		Strategy:   result.Strategy,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(raw)), nil
}
