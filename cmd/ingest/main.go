// Package main provides the ingest CLI for loading course documents
// into the vector store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/course-rag-server/internal/config"
	"github.com/bull/course-rag-server/internal/docproc"
	"github.com/bull/course-rag-server/internal/embedding"
	ghclient "github.com/bull/course-rag-server/internal/github"
	"github.com/bull/course-rag-server/internal/ingest"
	"github.com/bull/course-rag-server/internal/storage"
)

var (
	flagDocs      string
	flagClear     bool
	flagGitHub    string
	flagGitHubDir string
)

var rootCmd = &cobra.Command{
	Use:   "course-ingest",
	Short: "Course materials indexing tool",
	Long:  "CLI tool for loading course documents into the Qdrant vector store",
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Index course documents from a folder or GitHub repository",
	Long: `Parses course documents, chunks them, and indexes them into Qdrant.

Courses already in the catalog are skipped unless --clear is given.

This command:
1. Connects to Qdrant and verifies health
2. Ensures the catalog and content collections exist
3. Parses each course document into metadata and chunks
4. Generates embeddings for titles and chunks
5. Upserts catalog entries and content chunks

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)`,
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&flagDocs, "docs", "", "local folder of course .txt files (default: DOCS_PATH)")
	loadCmd.Flags().StringVar(&flagGitHub, "github", "", "GitHub repository to load from, as owner/repo")
	loadCmd.Flags().StringVar(&flagGitHubDir, "github-dir", "docs", "directory within the GitHub repository")
	loadCmd.Flags().BoolVar(&flagClear, "clear", false, "drop existing data and rebuild from scratch")
	rootCmd.AddCommand(loadCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()
	cfg := config.Load()

	fmt.Println("Starting ingest...")
	fmt.Println()

	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	source, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}

	processor := docproc.NewProcessor(cfg.ChunkSize, cfg.ChunkOverlap)
	pipeline := ingest.NewPipeline(store, embedder, processor, slog.Default())

	fmt.Println()
	fmt.Println("Indexing course documents...")
	result, err := pipeline.IndexAll(ctx, source, ingest.Options{Clear: flagClear})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d indexed, %d skipped, %d failed\n",
		result.SuccessfulDocs, result.TotalDocs, result.SkippedDocs, result.FailedDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

// buildSource picks the document source: a GitHub repository directory
// when --github is given, otherwise a local folder.
func buildSource(ctx context.Context, cfg *config.Config) (ingest.Source, error) {
	if flagGitHub != "" {
		owner, repo, ok := splitRepo(flagGitHub)
		if !ok {
			return nil, fmt.Errorf("invalid --github value %q, expected owner/repo", flagGitHub)
		}
		client, err := ghclient.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		fmt.Printf("Loading from github.com/%s/%s/%s\n", owner, repo, flagGitHubDir)
		return ghclient.NewFetcher(client, owner, repo, flagGitHubDir), nil
	}

	dir := flagDocs
	if dir == "" {
		dir = cfg.DocsPath
	}
	fmt.Printf("Loading from %s\n", dir)
	return ingest.NewDirSource(dir), nil
}

func splitRepo(s string) (owner, repo string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			owner, repo = s[:i], s[i+1:]
			return owner, repo, owner != "" && repo != ""
		}
	}
	return "", "", false
}
