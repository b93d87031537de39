package trie

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// DefaultCollection is the collection used when callers do not name one.
const DefaultCollection = "default"

// Manager coordinates several named index collections and provides the
// external write serialization the lock-free core requires: mutations take
// the write lock, queries the read lock.
type Manager struct {
	mu            sync.RWMutex
	collections   map[string]*Index
	maxWordLength int
	maxAgeDays    float64
	logger        *slog.Logger
}

// NewManager creates a manager whose collections share the given term-length
// bound and freshness horizon.
func NewManager(maxWordLength int, maxAgeDays float64, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		collections:   make(map[string]*Index),
		maxWordLength: maxWordLength,
		maxAgeDays:    maxAgeDays,
		logger:        logger,
	}
}

// collection returns the named index, creating it on first use. Empty names
// map to DefaultCollection. Callers must hold the lock.
func (m *Manager) collection(name string) *Index {
	if name == "" {
		name = DefaultCollection
	}
	idx, ok := m.collections[name]
	if !ok {
		idx = NewWithLogger(m.maxWordLength, m.logger)
		if m.maxAgeDays > 0 {
			idx.SetMaxAgeDays(m.maxAgeDays)
		}
		m.collections[name] = idx
	}
	return idx
}

// AddDocuments ingests docs into the named collection.
func (m *Manager) AddDocuments(name string, docs []*Document) error {
	if len(docs) == 0 {
		return fmt.Errorf("cannot index empty document list")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.collection(name)
	for _, doc := range docs {
		idx.AddDocument(doc)
	}
	return nil
}

// RemoveDocument removes id from the named collection, reporting whether it
// existed.
func (m *Manager) RemoveDocument(name, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collection(name).RemoveDocument(id)
}

// Document returns the stored document for id in the named collection.
func (m *Manager) Document(name, id string) (*Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.collections[canonical(name)]
	if !ok {
		return nil, false
	}
	return idx.Document(id)
}

// CollectionResult is a search hit annotated with the collection it came
// from.
type CollectionResult struct {
	Result
	Collection string `json:"collection"`
}

// Search queries the named collection.
func (m *Manager) Search(name, query string, opts Options) []CollectionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = canonical(name)
	idx, ok := m.collections[name]
	if !ok {
		return nil
	}
	return annotate(idx.Search(query, opts), name)
}

// SearchAll queries every collection and merges the hits by descending score,
// truncated to the option's result bound.
func (m *Manager) SearchAll(query string, opts Options) []CollectionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	var merged []CollectionResult
	for name, idx := range m.collections {
		merged = append(merged, annotate(idx.Search(query, opts), name)...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if merged[i].Collection != merged[j].Collection {
			return merged[i].Collection < merged[j].Collection
		}
		return merged[i].DocID < merged[j].DocID
	})
	if len(merged) > maxResults {
		merged = merged[:maxResults]
	}
	return merged
}

// Suggestions returns prefix completions from the named collection.
func (m *Manager) Suggestions(name, prefix string, maxResults int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.collections[canonical(name)]
	if !ok {
		return nil
	}
	return idx.Suggestions(prefix, maxResults)
}

// FuzzySearch runs a bounded-edit search against the named collection.
func (m *Manager) FuzzySearch(name, word string, maxDistance int) []CollectionResult {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = canonical(name)
	idx, ok := m.collections[name]
	if !ok {
		return nil
	}
	return annotate(idx.FuzzySearch(word, maxDistance), name)
}

// WithIndex runs fn with exclusive access to the named collection. Used for
// snapshot and restore, which need a stable view of the whole index.
func (m *Manager) WithIndex(name string, fn func(idx *Index) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.collection(name))
}

// Stats reports per-collection and total document counts.
type Stats struct {
	Collections map[string]int
	Total       int
}

// Stats returns document counts across all collections.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Stats{Collections: make(map[string]int, len(m.collections))}
	for name, idx := range m.collections {
		s.Collections[name] = idx.Count()
		s.Total += idx.Count()
	}
	return s
}

// Reset drops every collection.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections = make(map[string]*Index)
}

func canonical(name string) string {
	if name == "" {
		return DefaultCollection
	}
	return name
}

func annotate(results []Result, collection string) []CollectionResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CollectionResult, len(results))
	for i, r := range results {
		out[i] = CollectionResult{Result: r, Collection: collection}
	}
	return out
}
