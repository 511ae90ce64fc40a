// Package main is the biorag CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/geronlab/biorag/internal/config"
	"github.com/geronlab/biorag/internal/embedding"
	"github.com/geronlab/biorag/internal/generator"
	"github.com/geronlab/biorag/internal/ingest"
	"github.com/geronlab/biorag/internal/models"
	"github.com/geronlab/biorag/internal/rag"
	"github.com/geronlab/biorag/internal/server"
	"github.com/geronlab/biorag/internal/storage"
	"github.com/geronlab/biorag/internal/vector"
	"github.com/geronlab/biorag/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/biorag/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config. Returns the config and the path actually
// loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("biorag version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// components bundles everything the server and local query paths share.
type components struct {
	Embedder  embedding.Embedder
	Generator generator.Generator
	Storage   *storage.SQLite
	Index     *vector.Handle
	Pipeline  *rag.Pipeline
	Builder   *ingest.Builder
}

func (c *components) Close() {
	if c.Generator != nil {
		_ = c.Generator.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedder, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	gen, err := generator.New(cfg.Generator, logger)
	if err != nil {
		embedder.Close()
		return nil, fmt.Errorf("generator: %w", err)
	}
	store, err := storage.NewSQLite(cfg.Storage.DatabasePath)
	if err != nil {
		gen.Close()
		embedder.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}

	handle := vector.NewHandle(logger)
	return &components{
		Embedder:  embedder,
		Generator: gen,
		Storage:   store,
		Index:     handle,
		Pipeline:  rag.NewPipeline(cfg, embedder, handle, gen, logger),
		Builder:   ingest.NewBuilder(cfg, embedder, store, logger),
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	// Serve whatever artifact exists; queries before the first ingestion get
	// INDEX_NOT_BUILT rather than blocking startup.
	if err := comps.Index.LoadFrom(cfg.Storage.IndexPath); err != nil {
		logger.Warn("no vector index loaded at startup", zap.Error(err))
	}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := comps.Index.Watch(watchCtx, cfg.Storage.IndexPath); err != nil {
		logger.Warn("index artifact watch unavailable", zap.Error(err))
	}

	srv := server.NewServer(comps.Pipeline, comps.Builder, comps.Index, comps.Storage, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpusDir := fs.String("corpus", "", "corpus directory (overrides config)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusDir != "" {
		cfg.Storage.CorpusDir = *corpusDir
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	stats, err := comps.Builder.Run(context.Background())
	if err != nil {
		logger.Fatal("Ingestion failed", zap.Error(err))
	}
	fmt.Printf("Indexed %d documents (%d chunks, %d dimensions) in %s\n",
		stats.Documents, stats.Chunks, stats.Dimensions, stats.Elapsed.Round(time.Millisecond))
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = answer locally without a server)")
	maxResults := fs.Int("max-results", 0, "number of chunks to retrieve (0 = config default)")
	outputJSON := fs.Bool("json", false, "print the raw JSON response")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: biorag query [flags] <question>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))

	req := models.QueryRequest{Question: question, MaxResults: *maxResults}
	var result *models.QueryResult
	var err error
	if *serverURL != "" {
		result, err = queryViaHTTP(*serverURL, req)
	} else {
		result, err = queryLocally(*configPath, req)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
		return
	}
	fmt.Println(result.Text)
	fmt.Println()
	if len(result.Citations) > 0 {
		fmt.Printf("Citations: %s\n", strings.Join(result.Citations, ", "))
	}
	fmt.Printf("Confidence: %.2f (%d papers, %d ms)\n",
		result.Confidence, result.PapersFound, result.Diagnostics.TotalMillis)
}

func queryViaHTTP(serverURL string, req models.QueryRequest) (*models.QueryResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimSuffix(serverURL, "/")+"/api/v1/query",
		"application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, fmt.Errorf("%s: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var result models.QueryResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func queryLocally(configPath string, req models.QueryRequest) (*models.QueryResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer comps.Close()

	if err := comps.Index.LoadFrom(cfg.Storage.IndexPath); err != nil {
		return nil, err
	}
	return comps.Pipeline.Query(context.Background(), req)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(strings.TrimSuffix(*serverURL, "/") + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed: %v\n", err)
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(body))
	}
}

func printUsage() {
	fmt.Println(`biorag - retrieval-augmented question answering over biomedical abstracts

Usage:
  biorag server [-config path] [-debug]        start the HTTP API server
  biorag ingest [-config path] [-corpus dir]   build the vector index from a corpus
  biorag query [flags] <question>              ask a question
  biorag status [-server url]                  show server status
  biorag version                               print version
  biorag help                                  show this help

Query flags:
  -server url        server URL (default http://localhost:8080; empty = local)
  -max-results n     number of chunks to retrieve
  -json              print the raw JSON response

Examples:
  biorag ingest -corpus ./corpus
  biorag server
  biorag query does rapamycin extend lifespan in mice?
  biorag query -json -max-results 5 "metformin and aging"`)
}
