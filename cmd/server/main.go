// Package main provides the course materials RAG server entry point.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bull/course-rag-server/internal/api"
	"github.com/bull/course-rag-server/internal/config"
	"github.com/bull/course-rag-server/internal/docproc"
	"github.com/bull/course-rag-server/internal/embedding"
	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/llm"
	mcpserver "github.com/bull/course-rag-server/internal/mcp"
	"github.com/bull/course-rag-server/internal/rag"
	"github.com/bull/course-rag-server/internal/search"
	"github.com/bull/course-rag-server/internal/session"
	"github.com/bull/course-rag-server/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()

	// Initialize storage
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollections(ctx); err != nil {
		log.Fatalf("failed to ensure collections: %v", err)
	}

	// Initialize embedding client
	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	// Retrieval tools shared by the query loop
	searcher := search.NewSearcher(store, embedder, cfg.MaxResults)
	tools := search.NewToolManager(
		search.NewCourseSearchTool(searcher),
		search.NewCourseOutlineTool(searcher),
	)

	// Query system
	processor := docproc.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := ingest.NewPipeline(store, embedder, processor, slog.Default())
	generator := llm.NewGenerator(embeddingClient.Client(), cfg.Model, cfg.MaxRounds)
	sessions := session.NewManager(cfg.MaxHistory)
	system := rag.NewSystem(generator, tools, sessions, pipeline, store)

	// Index any course documents in the docs folder on startup
	if _, err := os.Stat(cfg.DocsPath); err == nil {
		if _, err := system.AddCourseFolder(ctx, cfg.DocsPath, false); err != nil {
			log.Printf("startup ingest failed: %v", err)
		}
	}

	// MCP server exposing retrieval to external clients
	server := mcpserver.NewServer(&mcpserver.Config{
		Searcher: searcher,
		Catalog:  store,
	})

	// HTTP server with multiple endpoints
	mux := http.NewServeMux()

	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
	api.NewHandler(system, sessions, slog.Default()).Register(mux)

	if cfg.ServerMode {
		// HTTP mode: serve the API and MCP over HTTP for remote clients
		addr := "0.0.0.0:" + cfg.Port
		log.Printf("Starting HTTP server on %s (API at /api, MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start the HTTP endpoints in background for local testing
		go func() {
			addr := "0.0.0.0:" + cfg.Port
			log.Printf("Starting HTTP server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()

		log.Println("Starting Course Materials MCP Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}
