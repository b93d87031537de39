package trie

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// NodeState is the portable form of a trie node. Children are keyed by their
// single-character edge label; depth is implicit in nesting and recomputed on
// restore.
type NodeState struct {
	PrefixCount  int                   `json:"prefixCount"`
	IsEndOfWord  bool                  `json:"isEndOfWord"`
	DocumentRefs []string              `json:"documentRefs"`
	Weight       float64               `json:"weight"`
	Children     map[string]*NodeState `json:"children"`
}

// DocumentEntry is a [id, document] pair in the persisted state.
type DocumentEntry struct {
	ID       string
	Document *Document
}

func (e DocumentEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Document})
}

func (e *DocumentEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("document entry must be a [id, document] pair, got %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.ID); err != nil {
		return err
	}
	e.Document = &Document{}
	return json.Unmarshal(parts[1], e.Document)
}

// LinkEntry is a [id, relations] pair in the persisted state.
type LinkEntry struct {
	ID        string
	Relations []Relation
}

func (e LinkEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Relations})
}

func (e *LinkEntry) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 2 {
		return fmt.Errorf("link entry must be a [id, relations] pair, got %d elements", len(parts))
	}
	if err := json.Unmarshal(parts[0], &e.ID); err != nil {
		return err
	}
	return json.Unmarshal(parts[1], &e.Relations)
}

// State is the portable value tree the index round-trips through for
// persistence.
type State struct {
	Trie           *NodeState      `json:"trie"`
	Documents      []DocumentEntry `json:"documents"`
	DocumentLinks  []LinkEntry     `json:"documentLinks"`
	TotalDocuments int             `json:"totalDocuments"`
	MaxWordLength  int             `json:"maxWordLength"`
}

// SerializeState converts the trie and the document tables to a portable
// value tree. Sequences are emitted in sorted order so repeated serialization
// of the same index is stable.
func (idx *Index) SerializeState() *State {
	docs := make([]DocumentEntry, 0, len(idx.documents))
	for id, doc := range idx.documents {
		docs = append(docs, DocumentEntry{ID: id, Document: doc})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	links := make([]LinkEntry, 0, len(idx.documentLinks))
	for id, rels := range idx.documentLinks {
		links = append(links, LinkEntry{ID: id, Relations: rels})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })

	return &State{
		Trie:           serializeNode(idx.root),
		Documents:      docs,
		DocumentLinks:  links,
		TotalDocuments: idx.totalDocuments,
		MaxWordLength:  idx.maxWordLength,
	}
}

func serializeNode(n *Node) *NodeState {
	refs := make([]string, 0, len(n.documentRefs))
	for id := range n.documentRefs {
		refs = append(refs, id)
	}
	sort.Strings(refs)

	children := make(map[string]*NodeState, len(n.children))
	for r, child := range n.children {
		children[string(r)] = serializeNode(child)
	}

	return &NodeState{
		PrefixCount:  n.prefixCount,
		IsEndOfWord:  n.isEndOfWord,
		DocumentRefs: refs,
		Weight:       n.weight,
		Children:     children,
	}
}

// DeserializeState rebuilds the index from a previously serialized state.
// Malformed input fails with ErrValidation and leaves the index unchanged.
// The restored trie satisfies every structural invariant: depths are
// recomputed from nesting, termination frequency is restored from the stored
// weight to within one increment unit, and per-document term counts are
// rebuilt by re-tokenizing the stored documents.
func (idx *Index) DeserializeState(s *State) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrValidation)
	}
	if s.Trie == nil {
		return fmt.Errorf("%w: state has no trie", ErrValidation)
	}
	if s.MaxWordLength <= 0 {
		return fmt.Errorf("%w: maxWordLength must be positive, got %d", ErrValidation, s.MaxWordLength)
	}
	if s.TotalDocuments != len(s.Documents) {
		return fmt.Errorf("%w: totalDocuments %d does not match %d stored documents",
			ErrValidation, s.TotalDocuments, len(s.Documents))
	}

	root, err := deserializeNode(s.Trie, 0, time.Now())
	if err != nil {
		return err
	}

	documents := make(map[string]*Document, len(s.Documents))
	termCounts := make(map[string]map[string]int, len(s.Documents))
	for _, entry := range s.Documents {
		if entry.ID == "" {
			return fmt.Errorf("%w: document entry with empty id", ErrValidation)
		}
		if err := entry.Document.Valid(); err != nil {
			return err
		}
		if entry.ID != entry.Document.ID {
			return fmt.Errorf("%w: entry id %q does not match document id %q",
				ErrValidation, entry.ID, entry.Document.ID)
		}
		documents[entry.ID] = entry.Document
		termCounts[entry.ID] = entry.Document.termCounts()
	}

	links := make(map[string][]Relation, len(s.DocumentLinks))
	for _, entry := range s.DocumentLinks {
		if entry.ID == "" {
			return fmt.Errorf("%w: link entry with empty id", ErrValidation)
		}
		links[entry.ID] = entry.Relations
	}

	idx.root = root
	idx.documents = documents
	idx.documentLinks = links
	idx.termCounts = termCounts
	idx.totalDocuments = s.TotalDocuments
	idx.maxWordLength = s.MaxWordLength
	return nil
}

func deserializeNode(s *NodeState, depth int, now time.Time) (*Node, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil node", ErrValidation)
	}
	if s.Weight < 0 {
		return nil, fmt.Errorf("%w: negative weight %v", ErrValidation, s.Weight)
	}
	if s.PrefixCount < 0 {
		return nil, fmt.Errorf("%w: negative prefixCount %d", ErrValidation, s.PrefixCount)
	}
	if len(s.DocumentRefs) > 0 && !s.IsEndOfWord {
		return nil, fmt.Errorf("%w: node has document refs but no end-of-word flag", ErrValidation)
	}

	n := &Node{
		children:     make(map[rune]*Node, len(s.Children)),
		isEndOfWord:  s.IsEndOfWord,
		documentRefs: make(map[string]struct{}, len(s.DocumentRefs)),
		weight:       s.Weight,
		frequency:    int(math.Round(s.Weight)),
		prefixCount:  s.PrefixCount,
		depth:        depth,
		lastAccessed: now,
	}
	for _, id := range s.DocumentRefs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty document ref", ErrValidation)
		}
		n.documentRefs[id] = struct{}{}
	}
	for key, childState := range s.Children {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, fmt.Errorf("%w: child key %q is not a single character", ErrValidation, key)
		}
		child, err := deserializeNode(childState, depth+1, now)
		if err != nil {
			return nil, err
		}
		n.children[runes[0]] = child
	}
	return n, nil
}
