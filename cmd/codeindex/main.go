package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/codeindex-dev/codeindex/internal/config"
	"github.com/codeindex-dev/codeindex/internal/embedder"
	"github.com/codeindex-dev/codeindex/internal/indexer"
	appmcp "github.com/codeindex-dev/codeindex/internal/mcp"
	"github.com/codeindex-dev/codeindex/internal/model"
	"github.com/codeindex-dev/codeindex/internal/query"
	"github.com/codeindex-dev/codeindex/internal/store"
	storesqlite "github.com/codeindex-dev/codeindex/internal/store/sqlite"
	"github.com/codeindex-dev/codeindex/internal/summarizer"
	"github.com/codeindex-dev/codeindex/internal/watch"
)

func main() {
	var (
		rootDir    string
		dbPath     string
		embedURL   string
		embedModel string
		configPath string
	)

	rootCmd := &cobra.Command{
		Use: "codeindex",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return nil
			}
			cfg, err := config.LoadYAML(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("db") && cfg.DBPath != "" {
				dbPath = cfg.DBPath
			}
			if !cmd.Flags().Changed("embed-url") && cfg.EmbedURL != "" {
				embedURL = cfg.EmbedURL
			}
			if !cmd.Flags().Changed("embed-model") && cfg.EmbedModel != "" {
				embedModel = cfg.EmbedModel
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().
		StringVar(&dbPath, "db", filepath.Join(os.TempDir(), "codeindex.db"), "store file path")
	rootCmd.PersistentFlags().
		StringVar(&embedURL, "embed-url", "http://localhost:8000/embed", "embedding service URL")
	rootCmd.PersistentFlags().StringVar(&embedModel, "embed-model", "default", "embedding model name")

	openStore := func() (store.Store, error) { return storesqlite.New(dbPath) }

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Index a project root into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootDir == "" {
				return fmt.Errorf("--root is required")
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			idx := indexer.New(indexer.Options{RootDir: rootDir}, st, nil, slog.Default())
			return idx.IndexAll(cmd.Context(), printProgress)
		},
	}
	indexCmd.Flags().StringVar(&rootDir, "root", "", "project root")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Clear the store and reindex a project root from scratch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootDir == "" {
				return fmt.Errorf("--root is required")
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			idx := indexer.New(indexer.Options{RootDir: rootDir}, st, nil, slog.Default())
			return idx.Rebuild(cmd.Context(), printProgress)
		},
	}
	rebuildCmd.Flags().StringVar(&rootDir, "root", "", "project root")

	var batchMinutes, minChangeLines int
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a project root and incrementally reindex on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			if rootDir == "" {
				return fmt.Errorf("--root is required")
			}
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			idx := indexer.New(indexer.Options{RootDir: rootDir}, st, nil, slog.Default())
			w, err := watch.New(watch.Options{
				RootDir:        rootDir,
				BatchWindow:    time.Duration(batchMinutes) * time.Minute,
				MinChangeLines: minChangeLines,
			}, idx, st, slog.Default())
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			fmt.Println("watching", rootDir, "- press Ctrl+C to stop")
			<-cmd.Context().Done()
			return w.Stop()
		},
	}
	watchCmd.Flags().StringVar(&rootDir, "root", "", "project root")
	watchCmd.Flags().IntVar(&batchMinutes, "batch-minutes", 10, "reindex batch window in minutes")
	watchCmd.Flags().IntVar(&minChangeLines, "min-change-lines", 5, "minimum change in a file's line count to trigger reindex")

	queryCmd := &cobra.Command{Use: "query", Short: "Query an indexed project"}
	queryCmd.AddCommand(
		newFindSymbolsCmd(openStore),
		newDefinitionCmd(openStore),
		newReferencesCmd(openStore),
		newCallChainCmd(openStore),
		newObjectPropertiesCmd(openStore),
		newSemanticSearchCmd(openStore, &embedURL, &embedModel),
	)

	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize symbols missing a chunk summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			var summarizeURL string
			summarizeURL, _ = cmd.Flags().GetString("summarize-url")
			sz := summarizer.New(summarizer.Options{URL: summarizeURL})
			results, err := summarizer.RunBatch(cmd.Context(), sz, st, 100, 5)
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Err != nil {
					fmt.Printf("symbol %d: %v\n", r.SymbolID, r.Err)
				}
			}
			return nil
		},
	}
	summarizeCmd.Flags().String("summarize-url", "http://localhost:8000/summarize", "summarization service URL")

	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for symbols missing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			emb := embedder.New(embedder.Options{URL: embedURL}, embedModel)
			symbols, err := st.SymbolsMissingEmbedding(cmd.Context(), embedModel, 100)
			if err != nil {
				return err
			}
			jobs := make([]embedder.Job, len(symbols))
			for i, s := range symbols {
				text := s.QualifiedName + "\n" + s.Signature
				jobs[i] = embedder.Job{SymbolID: s.ID, ChunkHash: chunkHash(text), Text: text}
			}
			for _, r := range embedder.RunBatch(cmd.Context(), emb, st, jobs, 5) {
				if r.Err != nil {
					fmt.Printf("symbol %d: %v\n", r.Job.SymbolID, r.Err)
				}
			}
			return nil
		},
	}

	var transport, address, project string
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			engine := query.New(st, 256)
			idx := indexer.New(indexer.Options{RootDir: project}, st, nil, slog.Default())
			var queryEmbedder embedder.Embedder
			if embedURL != "" {
				queryEmbedder = embedder.New(embedder.Options{URL: embedURL}, embedModel)
			}
			srv := appmcp.New(appmcp.Options{EmbedModel: embedModel}, engine, idx, queryEmbedder, slog.Default())

			if project != "" {
				if err := idx.IndexAll(cmd.Context(), nil); err != nil {
					return fmt.Errorf("pre-index project: %w", err)
				}
			}
			return runMCPServer(srv, transport, address)
		},
	}
	mcpCmd.Flags().StringVar(&transport, "transport", "stdio", "stdio, http, or sse")
	mcpCmd.Flags().StringVar(&address, "address", "", "listen address for http/sse transports")
	mcpCmd.Flags().StringVar(&project, "project", "", "optional project root to pre-index on startup")

	rootCmd.AddCommand(indexCmd, rebuildCmd, watchCmd, queryCmd, summarizeCmd, embedCmd, mcpCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runMCPServer(srv *server.MCPServer, transport, address string) error {
	switch transport {
	case "stdio":
		return server.ServeStdio(srv)
	case "http":
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		return server.NewStreamableHTTPServer(srv).Start(addr)
	case "sse":
		addr := address
		if addr == "" {
			addr = ":8080"
		}
		return server.NewSSEServer(srv, server.WithStaticBasePath("/mcp")).Start(addr)
	default:
		return fmt.Errorf("unsupported transport: %s (supported: stdio, http, sse)", transport)
	}
}

func printProgress(p model.IndexProgress) {
	fmt.Printf("\r[%3.0f%%] stage=%s files:%d/%d %-40s", p.Percent*100, p.Stage, p.DoneFiles, p.TotalFiles, p.CurrentFile)
	if p.Stage == model.StageDone {
		fmt.Println()
	}
}

func chunkHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
