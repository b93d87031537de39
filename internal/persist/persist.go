// Package persist snapshots an index to a storage backend and restores it.
// Snapshots travel as a versioned JSON envelope around the serialized state;
// the envelope is validated before any state reaches the index, so a failed
// or aborted load leaves the in-memory trie unchanged.
package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/obinexus/trie-search-mcp-server/internal/storage"
	"github.com/obinexus/trie-search-mcp-server/internal/trie"
)

// snapshotVersion is the current snapshot format version.
const snapshotVersion = "1.0"

// Envelope wraps a serialized index state with snapshot metadata.
type Envelope struct {
	Version       string      `json:"version"`
	SavedAt       time.Time   `json:"saved_at"`
	DocumentCount int         `json:"document_count"`
	State         *trie.State `json:"state"`
}

// Snapshotter saves and restores index state through a storage.Store.
type Snapshotter struct {
	store  storage.Store
	key    string
	logger *slog.Logger
}

// NewSnapshotter creates a snapshotter writing under the given key.
func NewSnapshotter(store storage.Store, key string, logger *slog.Logger) (*Snapshotter, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if key == "" {
		return nil, fmt.Errorf("snapshot key cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{store: store, key: key, logger: logger}, nil
}

// Save serializes idx and writes it to the store.
func (s *Snapshotter) Save(ctx context.Context, idx *trie.Index) error {
	state := idx.SerializeState()
	env := Envelope{
		Version:       snapshotVersion,
		SavedAt:       time.Now(),
		DocumentCount: idx.Count(),
		State:         state,
	}

	data, err := json.Marshal(&env)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.store.Store(ctx, s.key, data); err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	s.logger.Debug("Snapshot saved", "key", s.key, "documents", env.DocumentCount, "bytes", len(data))
	return nil
}

// Load reads the snapshot and restores it into idx. A missing snapshot fails
// with storage.ErrNotFound; malformed snapshots fail with trie.ErrValidation.
func (s *Snapshotter) Load(ctx context.Context, idx *trie.Index) error {
	data, err := s.store.Retrieve(ctx, s.key)
	if err != nil {
		return err
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: malformed snapshot: %v", trie.ErrValidation, err)
	}
	if err := validateEnvelope(&env); err != nil {
		return err
	}

	if err := idx.DeserializeState(env.State); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	s.logger.Debug("Snapshot loaded", "key", s.key, "documents", env.DocumentCount, "saved_at", env.SavedAt)
	return nil
}

// Clear removes every snapshot from the backing store.
func (s *Snapshotter) Clear(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	s.logger.Debug("Snapshots cleared", "key", s.key)
	return nil
}

func validateEnvelope(env *Envelope) error {
	if env.Version != snapshotVersion {
		return fmt.Errorf("%w: snapshot version mismatch: got %s, expected %s",
			trie.ErrValidation, env.Version, snapshotVersion)
	}
	if env.State == nil {
		return fmt.Errorf("%w: snapshot has no state", trie.ErrValidation)
	}
	if env.DocumentCount != len(env.State.Documents) {
		return fmt.Errorf("%w: document count mismatch: metadata says %d, state has %d",
			trie.ErrValidation, env.DocumentCount, len(env.State.Documents))
	}
	if env.SavedAt.After(time.Now()) {
		return fmt.Errorf("%w: snapshot timestamp is in the future", trie.ErrValidation)
	}
	return nil
}
