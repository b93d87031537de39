// Package server exposes the trie search index over the Model Context
// Protocol: tool registration, request routing and index lifecycle.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/obinexus/trie-search-mcp-server/internal/config"
	"github.com/obinexus/trie-search-mcp-server/internal/ingest"
	"github.com/obinexus/trie-search-mcp-server/internal/persist"
	"github.com/obinexus/trie-search-mcp-server/internal/storage"
	"github.com/obinexus/trie-search-mcp-server/internal/trie"
)

// Server wires the index manager, storage backend, fetcher and MCP protocol
// handling together. Index mutations are serialized through the manager; the
// lock-free core is never touched concurrently.
type Server struct {
	config      *config.Config
	manager     *trie.Manager
	store       storage.Store
	fetcher     *ingest.Fetcher
	logger      *slog.Logger
	mcpServer   *server.MCPServer
	transport   TransportStarter
	initialized bool
}

// NewServer creates a server from configuration. The server is not started
// until Start() is called.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if err := cfg.ValidateTransport(); err != nil {
		return nil, fmt.Errorf("invalid transport configuration: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"trie-search-mcp-server",
		"1.0.0",
	)

	manager := trie.NewManager(cfg.MaxWordLength, cfg.MaxAgeDays, logger)

	var store storage.Store
	switch cfg.StorageBackend {
	case "memory":
		store = storage.NewMemoryStore()
	default:
		fileStore, err := storage.NewFileStore(cfg.GetStorageDir())
		if err != nil {
			return nil, fmt.Errorf("failed to create file store: %w", err)
		}
		store = fileStore
	}

	zerologLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	fetcher := ingest.NewFetcher(
		time.Duration(cfg.FetchTimeout)*time.Second,
		cfg.MaxRetries,
		cfg.MaxConcurrent,
		zerologLogger,
	)

	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Server{
		config:    cfg,
		manager:   manager,
		store:     store,
		fetcher:   fetcher,
		logger:    logger,
		mcpServer: mcpServer,
		transport: transport,
	}, nil
}

// Initialize prepares the storage backend and restores the default
// collection from its snapshot when one exists.
func (s *Server) Initialize(ctx context.Context) error {
	if s.initialized {
		return fmt.Errorf("server already initialized")
	}

	s.logger.Info("Starting server initialization")

	if err := s.store.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := s.restoreCollection(ctx, trie.DefaultCollection); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Info("No snapshot found, starting with an empty index")
		} else {
			s.logger.Warn("Failed to restore snapshot, starting with an empty index", "error", err)
		}
	}

	stats := s.manager.Stats()
	s.logger.Info("Index ready", "collections", len(stats.Collections), "total_docs", stats.Total)

	s.initialized = true
	return nil
}

// RegisterTools registers all MCP tools. Call after Initialize() and before
// Start().
func (s *Server) RegisterTools() error {
	if !s.initialized {
		return fmt.Errorf("server not initialized, call Initialize() first")
	}

	s.logger.Info("Registering MCP tools")

	searchTool := mcp.NewTool(
		"search_documents",
		mcp.WithDescription("Search indexed documents by keywords. Supports exact, prefix and fuzzy matching and returns ranked results."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (one or more terms)"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection to search; 'all' searches every collection (default: default)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (default: 10)"),
		),
		mcp.WithBoolean("fuzzy",
			mcp.Description("Tolerate bounded edit distance per term (default: false)"),
		),
		mcp.WithBoolean("prefix",
			mcp.Description("Treat each term as a prefix (default: false)"),
		),
		mcp.WithNumber("max_distance",
			mcp.Description("Edit distance bound for fuzzy matching (default: 2)"),
		),
		mcp.WithNumber("min_score",
			mcp.Description("Discard results scoring below this value (default: 0.1)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearchTool)

	suggestTool := mcp.NewTool(
		"suggest_terms",
		mcp.WithDescription("Suggest indexed terms completing a prefix, ordered by relevance."),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Term prefix to complete"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection to suggest from (default: default)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of suggestions (default: 5)"),
		),
	)
	s.mcpServer.AddTool(suggestTool, s.handleSuggestTool)

	getTool := mcp.NewTool(
		"get_document",
		mcp.WithDescription("Retrieve a stored document by its identifier."),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document identifier"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection holding the document (default: default)"),
		),
	)
	s.mcpServer.AddTool(getTool, s.handleGetDocumentTool)

	indexTool := mcp.NewTool(
		"index_document",
		mcp.WithDescription("Index a document given as JSON with id and fields (title, content, author, tags, version)."),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description(`Document JSON, e.g. {"id":"doc1","fields":{"title":"...","content":{"text":"..."}}}`),
		),
		mcp.WithString("collection",
			mcp.Description("Collection to index into (default: default)"),
		),
	)
	s.mcpServer.AddTool(indexTool, s.handleIndexDocumentTool)

	fetchTool := mcp.NewTool(
		"fetch_document",
		mcp.WithDescription("Fetch a page over HTTP, convert it to a document and index it."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("URL of the page to fetch (HTML, markdown or plain text)"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection to index into (default: default)"),
		),
	)
	s.mcpServer.AddTool(fetchTool, s.handleFetchDocumentTool)

	removeTool := mcp.NewTool(
		"remove_document",
		mcp.WithDescription("Remove a document from the index by its identifier."),
		mcp.WithString("doc_id",
			mcp.Required(),
			mcp.Description("Document identifier"),
		),
		mcp.WithString("collection",
			mcp.Description("Collection holding the document (default: default)"),
		),
	)
	s.mcpServer.AddTool(removeTool, s.handleRemoveDocumentTool)

	snapshotTool := mcp.NewTool(
		"snapshot_index",
		mcp.WithDescription("Persist the current index state to the configured storage backend."),
		mcp.WithString("collection",
			mcp.Description("Collection to snapshot (default: default)"),
		),
	)
	s.mcpServer.AddTool(snapshotTool, s.handleSnapshotTool)

	restoreTool := mcp.NewTool(
		"restore_index",
		mcp.WithDescription("Restore the index state from the configured storage backend."),
		mcp.WithString("collection",
			mcp.Description("Collection to restore (default: default)"),
		),
	)
	s.mcpServer.AddTool(restoreTool, s.handleRestoreTool)

	s.logger.Info("MCP tools registered successfully")
	return nil
}

// Start begins serving MCP requests. Blocks until the transport stops.
func (s *Server) Start(ctx context.Context) error {
	if !s.initialized {
		return fmt.Errorf("server not initialized, call Initialize() first")
	}

	s.logger.Info("Starting MCP server", "transport", s.transport.Type())
	if addr := s.config.GetTransportAddress(); addr != "" {
		s.logger.Info("Transport address", "address", addr)
	}

	if err := s.transport.Start(ctx, s.mcpServer); err != nil {
		s.logger.Error("MCP server error", "error", err, "transport", s.transport.Type())
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the transport and closes the storage backend.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server", "transport", s.transport.Type())

	if err := s.transport.Shutdown(ctx); err != nil {
		s.logger.Error("Error during transport shutdown", "error", err)
		return fmt.Errorf("transport shutdown error: %w", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("Error closing storage backend", "error", err)
	}

	s.logger.Info("Server shutdown complete")
	return nil
}

// snapshotKey maps a collection to its storage key.
func (s *Server) snapshotKey(collection string) string {
	if collection == "" || collection == trie.DefaultCollection {
		return s.config.SnapshotKey
	}
	return s.config.SnapshotKey + "-" + collection
}

func (s *Server) snapshotCollection(ctx context.Context, collection string) error {
	snap, err := persist.NewSnapshotter(s.store, s.snapshotKey(collection), s.logger)
	if err != nil {
		return err
	}
	return s.manager.WithIndex(collection, func(idx *trie.Index) error {
		return snap.Save(ctx, idx)
	})
}

func (s *Server) restoreCollection(ctx context.Context, collection string) error {
	snap, err := persist.NewSnapshotter(s.store, s.snapshotKey(collection), s.logger)
	if err != nil {
		return err
	}
	return s.manager.WithIndex(collection, func(idx *trie.Index) error {
		return snap.Load(ctx, idx)
	})
}

// handleSearchTool runs a search with the options carried by the request.
func (s *Server) handleSearchTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required and must be a non-empty string"), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	opts := trie.Options{
		Fuzzy:       request.GetBool("fuzzy", false),
		PrefixMatch: request.GetBool("prefix", false),
		MaxDistance: request.GetInt("max_distance", s.config.MaxDistance),
		MaxResults:  request.GetInt("limit", s.config.MaxResults),
		MinScore:    request.GetFloat("min_score", s.config.MinScore),
	}

	var results []trie.CollectionResult
	if collection == "all" {
		results = s.manager.SearchAll(query, opts)
	} else {
		results = s.manager.Search(collection, query, opts)
	}

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Found %d results for query: %s\n\n", len(results), query))
	for i, result := range results {
		content.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, result.DocID, result.Collection))
		content.WriteString(fmt.Sprintf("   Term: %s\n", result.Term))
		content.WriteString(fmt.Sprintf("   Score: %.4f\n", result.Score))
		if result.Document != nil {
			if title, ok := result.Document.Fields["title"]; ok && title.Kind == trie.FieldString {
				content.WriteString(fmt.Sprintf("   Title: %s\n", title.Str))
			}
		}
		if opts.Fuzzy {
			content.WriteString(fmt.Sprintf("   Distance: %d\n", result.Distance))
		}
		content.WriteString("\n")
	}

	s.logger.Info("Search completed", "query", query, "collection", collection, "results", len(results))
	return mcp.NewToolResultText(content.String()), nil
}

// handleSuggestTool completes a term prefix.
func (s *Server) handleSuggestTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix, err := request.RequireString("prefix")
	if err != nil {
		return mcp.NewToolResultError("prefix parameter is required and must be a non-empty string"), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	limit := request.GetInt("limit", trie.DefaultMaxSuggestions)

	suggestions := s.manager.Suggestions(collection, prefix, limit)

	var content strings.Builder
	content.WriteString(fmt.Sprintf("Found %d suggestions for prefix: %s\n\n", len(suggestions), prefix))
	for i, word := range suggestions {
		content.WriteString(fmt.Sprintf("%d. %s\n", i+1, word))
	}

	return mcp.NewToolResultText(content.String()), nil
}

// handleGetDocumentTool retrieves a stored document as JSON.
func (s *Server) handleGetDocumentTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError("doc_id parameter is required and must be a non-empty string"), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	doc, ok := s.manager.Document(collection, docID)
	if !ok {
		s.logger.Warn("Document not found", "doc_id", docID, "collection", collection)
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", docID)), nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to render document: %v", err)), nil
	}

	s.logger.Info("Document retrieved", "doc_id", docID, "collection", collection)
	return mcp.NewToolResultText(string(data)), nil
}

// handleIndexDocumentTool parses and indexes a JSON document.
func (s *Server) handleIndexDocumentTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("document")
	if err != nil {
		return mcp.NewToolResultError("document parameter is required and must be a JSON string"), nil
	}

	var doc trie.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document JSON: %v", err)), nil
	}
	if err := doc.Valid(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid document: %v", err)), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	if err := s.manager.AddDocuments(collection, []*trie.Document{&doc}); err != nil {
		s.logger.Error("Indexing failed", "doc_id", doc.ID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	s.logger.Info("Document indexed", "doc_id", doc.ID, "collection", collection)
	return mcp.NewToolResultText(fmt.Sprintf("Indexed document %s into collection %s\n", doc.ID, collection)), nil
}

// handleFetchDocumentTool fetches a remote page and indexes it.
func (s *Server) handleFetchDocumentTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required and must be a non-empty string"), nil
	}

	doc, err := s.fetcher.FetchDocument(ctx, rawURL)
	if err != nil {
		s.logger.Error("Fetch failed", "url", rawURL, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("fetch failed: %v", err)), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	if err := s.manager.AddDocuments(collection, []*trie.Document{doc}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("indexing failed: %v", err)), nil
	}

	s.logger.Info("Fetched document indexed", "url", rawURL, "doc_id", doc.ID, "collection", collection)
	return mcp.NewToolResultText(fmt.Sprintf("Fetched and indexed %s as document %s\n", rawURL, doc.ID)), nil
}

// handleRemoveDocumentTool removes a document from the index.
func (s *Server) handleRemoveDocumentTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("doc_id")
	if err != nil {
		return mcp.NewToolResultError("doc_id parameter is required and must be a non-empty string"), nil
	}

	collection := request.GetString("collection", trie.DefaultCollection)
	if !s.manager.RemoveDocument(collection, docID) {
		return mcp.NewToolResultError(fmt.Sprintf("document not found: %s", docID)), nil
	}

	s.logger.Info("Document removed", "doc_id", docID, "collection", collection)
	return mcp.NewToolResultText(fmt.Sprintf("Removed document %s from collection %s\n", docID, collection)), nil
}

// handleSnapshotTool persists the index state.
func (s *Server) handleSnapshotTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := request.GetString("collection", trie.DefaultCollection)

	if err := s.snapshotCollection(ctx, collection); err != nil {
		s.logger.Error("Snapshot failed", "collection", collection, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("snapshot failed: %v", err)), nil
	}

	s.logger.Info("Snapshot saved", "collection", collection)
	return mcp.NewToolResultText(fmt.Sprintf("Snapshot of collection %s saved\n", collection)), nil
}

// handleRestoreTool restores the index state from storage.
func (s *Server) handleRestoreTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := request.GetString("collection", trie.DefaultCollection)

	if err := s.restoreCollection(ctx, collection); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no snapshot found for collection %s", collection)), nil
		}
		s.logger.Error("Restore failed", "collection", collection, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("restore failed: %v", err)), nil
	}

	s.logger.Info("Snapshot restored", "collection", collection)
	return mcp.NewToolResultText(fmt.Sprintf("Collection %s restored from snapshot\n", collection)), nil
}
