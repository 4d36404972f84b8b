// Package main is the w2vapi CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/neill-k/w2vapi/internal/cli"
	"github.com/neill-k/w2vapi/internal/config"
	"github.com/neill-k/w2vapi/internal/download"
	"github.com/neill-k/w2vapi/internal/models"
	"github.com/neill-k/w2vapi/internal/server"
	"github.com/neill-k/w2vapi/internal/similarity"
	"github.com/neill-k/w2vapi/internal/vocab"
	"github.com/neill-k/w2vapi/internal/watcher"
	"github.com/neill-k/w2vapi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/w2vapi/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	case "lookup":
		runLookup()
	case "similar":
		runSimilar()
	case "status":
		runStatus()
	case "download":
		runDownload()
	case "version", "--version", "-v":
		fmt.Printf("w2vapi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// modelSource builds the configured vocabulary source.
func modelSource(cfg *config.Config) vocab.Source {
	if cfg.Model.Source == "sqlite" {
		return vocab.SQLiteSource{Path: cfg.Model.SQLitePath}
	}
	return vocab.FileSource{VocabPath: cfg.Model.VocabPath, VectorsPath: cfg.Model.VectorsPath}
}

// ensureModelFiles downloads the two model files when download is enabled
// and the files are missing. Only meaningful for the "files" source.
func ensureModelFiles(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if !cfg.Download.Enabled || cfg.Model.Source != "files" {
		return nil
	}
	d := download.NewDownloader(logger, cfg.Download.MaxRetries,
		time.Duration(cfg.Download.RetryBackoffSeconds)*time.Second)
	if _, err := d.EnsureFile(ctx, cfg.Download.VocabURL, cfg.Model.VocabPath); err != nil {
		return err
	}
	if _, err := d.EnsureFile(ctx, cfg.Download.VectorsURL, cfg.Model.VectorsPath); err != nil {
		return err
	}
	return nil
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

	provider := vocab.NewProvider(logger)
	ranker := similarity.NewRanker().WithCache(cfg.Similar.CacheSize)
	source := modelSource(cfg)

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()

	var modelWatch *watcher.ModelWatcher
	switch {
	case cfg.Model.WatchDir && cfg.Model.Source == "files":
		// The files may not exist yet (an external job or the downloader
		// below is still fetching them); load as soon as they all land.
		dir := filepath.Dir(cfg.Model.VectorsPath)
		files := []string{filepath.Base(cfg.Model.VocabPath), filepath.Base(cfg.Model.VectorsPath)}
		modelWatch = watcher.NewModelWatcher(dir, files, func() {
			provider.LoadBackground(source)
		}, watcher.WithLogger(logger))
		if err := modelWatch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start model watcher", zap.Error(err))
		}
		defer modelWatch.Stop()
		go func() {
			if err := ensureModelFiles(watchCtx, cfg, logger); err != nil {
				logger.Error("model download failed", zap.Error(err))
			}
		}()
	case cfg.Model.BackgroundLoad:
		go func() {
			if err := ensureModelFiles(context.Background(), cfg, logger); err != nil {
				logger.Error("model download failed", zap.Error(err))
				return
			}
			_ = provider.Load(source)
		}()
	default:
		if err := ensureModelFiles(context.Background(), cfg, logger); err != nil {
			logger.Fatal("Model download failed", zap.Error(err))
		}
		if err := provider.Load(source); err != nil {
			logger.Fatal("Failed to load model", zap.Error(err))
		}
	}

	srv := server.NewServer(provider, ranker, cfg, logger)
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

// argsReorder moves any flags (and their values) that appear after the word
// argument to the front of the slice so that flag.Parse() sees them. Go's
// flag package stops at the first non-flag argument, so "w2vapi similar cat
// -n 5" would otherwise leave -n unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// directStore loads the model synchronously for CLI commands that run
// without a server.
func directStore(configPath string) (*vocab.Store, *config.Config, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	defer logger.Sync()
	provider := vocab.NewProvider(logger)
	if err := provider.Load(modelSource(cfg)); err != nil {
		return nil, nil, err
	}
	store, err := provider.Store()
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func runLookup() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the model directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: w2vapi lookup [flags] <word>")
		os.Exit(1)
	}
	word := fs.Arg(0)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var embedding []float32
	if *serverURL != "" {
		embedding, err = lookupViaHTTP(*serverURL, word)
	} else {
		var store *vocab.Store
		store, _, err = directStore(*configPath)
		if err == nil {
			embedding, err = store.Lookup(word)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteEmbedding(os.Stdout, word, embedding, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func lookupViaHTTP(serverURL, word string) ([]float32, error) {
	body, err := json.Marshal(models.WordRequest{Word: word})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/embedding", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Embedding, nil
}

func runSimilar() {
	args := argsReorder(os.Args[2:])
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the model directly)")
	n := fs.Int("n", 10, "number of neighbors")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: w2vapi similar [flags] <word>")
		os.Exit(1)
	}
	word := fs.Arg(0)
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var neighbors []models.SimilarWord
	if *serverURL != "" {
		neighbors, err = similarViaHTTP(*serverURL, word, *n)
	} else {
		var store *vocab.Store
		var cfg *config.Config
		store, cfg, err = directStore(*configPath)
		if err == nil {
			ranker := similarity.NewRanker().WithCache(cfg.Similar.CacheSize)
			var ranked []similarity.Result
			ranked, err = ranker.MostSimilar(store, word, *n)
			if err == nil {
				neighbors = make([]models.SimilarWord, len(ranked))
				for i, r := range ranked {
					neighbors[i] = models.SimilarWord{Word: r.Word, Similarity: r.Similarity}
				}
			}
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Similar failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSimilarWords(os.Stdout, word, neighbors, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func similarViaHTTP(serverURL, word string, n int) ([]models.SimilarWord, error) {
	resp, err := http.Get(fmt.Sprintf("%s/similar/%s?n=%d", serverURL, url.PathEscape(word), n))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.SimilarWordsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.SimilarWords, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the model directly)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		var status map[string]interface{}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}

	store, cfg, err := directStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("model:            %s\n", cfg.Model.Name)
	fmt.Printf("vocabulary_size:  %d\n", store.Size())
	fmt.Printf("dimensions:       %d\n", store.Dimension())
}

func runDownload() {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// The download subcommand forces a fetch check even when the config
	// leaves downloads disabled for the server.
	cfg.Download.Enabled = true
	if cfg.Model.Source != "files" {
		fmt.Println("Download only applies to the files model source")
		os.Exit(1)
	}
	if cfg.Download.VocabURL == "" || cfg.Download.VectorsURL == "" {
		fmt.Println("download.vocab_url and download.vectors_url must be set")
		os.Exit(1)
	}
	if err := ensureModelFiles(context.Background(), cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Download failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Model files ready:\n  %s\n  %s\n", cfg.Model.VocabPath, cfg.Model.VectorsPath)
}

func printUsage() {
	fmt.Println(`w2vapi - Word embedding vector server

Usage:
  w2vapi server [flags]            Start the HTTP server
  w2vapi lookup [flags] <word>     Print a word's embedding vector
  w2vapi similar [flags] <word>    Print the most similar words
  w2vapi status [flags]            Show model/server status
  w2vapi download [flags]          Download the model files
  w2vapi version                   Show version
  w2vapi help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/w2vapi/config.yaml)
  --debug            Enable debug logging

Lookup/Similar Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the model directly.
  --n int            Number of neighbors (similar only, default: 10)
  --output string    Output format: text or json (default: text)

Examples:
  w2vapi server
  w2vapi lookup hello
  w2vapi similar hello -n 5
  w2vapi similar --output json hello
  w2vapi status`)
}
