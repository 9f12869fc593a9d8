package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/mcpserver"
	"pdf-qa-service/internal/store"
	"pdf-qa-service/services"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pdfqa",
	Short: "Ask questions about PDF documents",
	Long: `pdfqa answers natural-language questions from the text of PDF documents
using the same pipeline as the HTTP service. Configuration is read from the
environment and an optional .env file.`,
	SilenceUsage: true,
}

var (
	askFile     string
	askQuestion string
	askJSON     bool

	mcpStdio bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question about a local PDF",
	Long: `Extracts the text of a PDF into a throwaway in-memory store and answers
a single question about it.

Example:
  pdfqa ask --file report.pdf --question "Who wrote the report?"`,
	RunE: runAsk,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Serves the list_documents, upload_pdf and ask_question tools over
server-sent events on MCP_ADDR, or over stdio with --stdio. Documents are kept
in the store selected by STORE_DRIVER.`,
	RunE: runMCP,
}

func init() {
	askCmd.Flags().StringVarP(&askFile, "file", "f", "", "PDF file to read")
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	_ = askCmd.MarkFlagRequired("file")
	_ = askCmd.MarkFlagRequired("question")

	mcpCmd.Flags().BoolVar(&mcpStdio, "stdio", false, "communicate over stdio instead of SSE")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	closer, err := logger.InitLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, func() { closer.Close() }, nil
}

func runAsk(cmd *cobra.Command, _ []string) error {
	cfg, done, err := loadConfig()
	if err != nil {
		return err
	}
	defer done()

	content, err := os.ReadFile(askFile)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", askFile, err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pipeline, err := services.NewPipeline(ctx, cfg, store.NewMemoryStore(), nil, nil)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	doc, err := pipeline.QA.UploadPDF(ctx, filepath.Base(askFile), content)
	if err != nil {
		return err
	}
	result, err := pipeline.QA.Ask(ctx, &doc.ID, askQuestion)
	if err != nil {
		return err
	}

	if askJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Answer)
	return nil
}

func runMCP(cmd *cobra.Command, _ []string) error {
	cfg, done, err := loadConfig()
	if err != nil {
		return err
	}
	defer done()
	if mcpStdio {
		// stdout carries the protocol
		logger.SetOutput(os.Stderr, slog.LevelInfo)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer docs.Close()

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without embedding cache", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pipeline, err := services.NewPipeline(ctx, cfg, docs, rdb, nil)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	if err := pipeline.QA.RestoreLastDocument(ctx); err != nil {
		logger.Warn("Failed to restore last document", "error", err)
	}

	srv := mcpserver.NewServer(pipeline.QA)
	if mcpStdio {
		return server.ServeStdio(srv)
	}

	sse := server.NewSSEServer(srv, server.WithBaseURL(fmt.Sprintf("http://%s", cfg.MCPAddr)))
	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://%s\n", cfg.MCPAddr)
	return sse.Start(cfg.MCPAddr)
}
