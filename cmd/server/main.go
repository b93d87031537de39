// Trie Search MCP Server
//
// Main entry point for the trie search MCP server. It maintains an in-memory
// full-text search index over a weighted character trie and exposes it to
// MCP clients for indexing, searching and autocomplete.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/obinexus/trie-search-mcp-server/internal/config"
	"github.com/obinexus/trie-search-mcp-server/internal/logger"
	"github.com/obinexus/trie-search-mcp-server/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile    string
	logLevel      string
	showVersion   bool
	transportType string
	hostFlag      string
	portFlag      int
	storageDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "trie-search-mcp-server",
		Short: "Trie Search MCP Server",
		Long: `Trie Search MCP Server maintains an in-memory full-text search index
built on a weighted character trie and exposes it through the Model
Context Protocol (MCP).

The server provides tools for indexing documents, exact/prefix/fuzzy
search with TF-IDF relevance ranking, autocomplete suggestions, and
snapshotting the index to a storage backend.

CONFIGURATION:
The server works without any configuration file - it uses sensible
defaults and loads configuration from environment variables. Set
TRIE_SEARCH_* variables to customize behavior:

  TRIE_SEARCH_LOG_LEVEL        Log level (debug, info, warn, error)
  TRIE_SEARCH_MAX_WORD_LENGTH  Upper bound on indexed term length
  TRIE_SEARCH_MAX_RESULTS      Default search result bound
  TRIE_SEARCH_MIN_SCORE        Default score cutoff
  TRIE_SEARCH_MAX_DISTANCE     Default fuzzy edit-distance bound
  TRIE_SEARCH_STORAGE_BACKEND  Snapshot backend (memory, file)
  TRIE_SEARCH_STORAGE_DIR      Snapshot directory for the file backend
  TRIE_SEARCH_TRANSPORT_TYPE   Transport (stdio, sse, streamablehttp)
  TRIE_SEARCH_HOST             Host for network transports
  TRIE_SEARCH_PORT             Port for network transports

Command-line flags override environment variables.
Optionally provide a config file with --config for convenience.`,
		RunE: runServer,
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional)")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.Flags().StringVarP(&transportType, "transport", "t", "", "Transport type (stdio, sse, streamablehttp)")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Host for network transports (SSE, StreamableHTTP)")
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port for network transports (SSE, StreamableHTTP)")
	rootCmd.Flags().StringVar(&storageDir, "storage-dir", "", "Directory for file-backed snapshots")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if showVersion {
		fmt.Printf("Trie Search MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Commit:  %s\n", commit)
		fmt.Printf("Built:   %s\n", date)
		return nil
	}

	// Precedence: flags > config file > environment > defaults.
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration from file: %w", err)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if transportType != "" {
		cfg.TransportType = transportType
	}
	if hostFlag != "" {
		cfg.Host = hostFlag
	}
	if portFlag != 0 {
		cfg.Port = portFlag
	}
	if storageDir != "" {
		cfg.StorageDir = storageDir
	}

	if err := cfg.ValidateTransport(); err != nil {
		return fmt.Errorf("invalid transport configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	log.Info("Starting Trie Search MCP Server",
		"version", version,
		"commit", commit,
		"date", date,
		"transport", cfg.GetTransportType())

	srv, err := server.NewServer(cfg, log)
	if err != nil {
		log.Error("Failed to create server", "error", err)
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Initialize(ctx); err != nil {
			errChan <- fmt.Errorf("server initialization failed: %w", err)
			return
		}
		if err := srv.RegisterTools(); err != nil {
			errChan <- fmt.Errorf("tool registration failed: %w", err)
			return
		}
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
			return
		}
		errChan <- nil
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Error("Server error", "error", err)
			return err
		}
		log.Info("Server stopped normally")
		return nil

	case sig := <-sigChan:
		log.Info("Received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Shutdown error", "error", err)
			return err
		}
		return nil
	}
}
