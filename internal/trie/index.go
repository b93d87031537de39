// Package trie implements an in-memory full-text search index built on a
// weighted character trie. Documents with typed fields are tokenized into the
// trie; queries run as exact-term lookup, prefix completion or bounded-edit
// fuzzy search, and return document identifiers ranked by term frequency,
// inverse document frequency, node depth, term length and recency.
//
// The index performs no internal locking: it is designed for single-writer,
// many-reader use with external coordination. All mutating operations must be
// serialized by the caller against any concurrent query.
package trie

import (
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Defaults for index construction and search options.
const (
	DefaultMaxWordLength  = 50
	DefaultMaxDistance    = 2
	DefaultMaxResults     = 10
	DefaultMinScore       = 0.1
	DefaultMaxSuggestions = 5
	DefaultMaxAgeDays     = 365
)

// Index is the public façade over the trie, the document table and the link
// table. All three are co-owned by the Index; no reference into the trie is
// ever exposed.
type Index struct {
	root           *Node
	documents      map[string]*Document
	documentLinks  map[string][]Relation
	totalDocuments int
	maxWordLength  int

	// termCounts holds per-document token occurrence counts, feeding term
	// frequency in scoring. Rebuilt from the document table on restore.
	termCounts map[string]map[string]int

	maxAgeDays float64
	logger     *slog.Logger
}

// New creates an empty index with the given term-length capacity bound.
// Non-positive values select the default of 50.
func New(maxWordLength int) *Index {
	return NewWithLogger(maxWordLength, slog.Default())
}

// NewWithLogger creates an empty index logging rejected input through logger.
func NewWithLogger(maxWordLength int, logger *slog.Logger) *Index {
	if maxWordLength <= 0 {
		maxWordLength = DefaultMaxWordLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		root:          newNode(0),
		documents:     make(map[string]*Document),
		documentLinks: make(map[string][]Relation),
		maxWordLength: maxWordLength,
		termCounts:    make(map[string]map[string]int),
		maxAgeDays:    DefaultMaxAgeDays,
		logger:        logger,
	}
}

// SetMaxAgeDays adjusts the horizon of the document freshness adjustment.
func (idx *Index) SetMaxAgeDays(days float64) {
	if days > 0 {
		idx.maxAgeDays = days
	}
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int { return idx.totalDocuments }

// MaxWordLength returns the configured term-length bound.
func (idx *Index) MaxWordLength() int { return idx.maxWordLength }

// Document returns the stored document for id, if any.
func (idx *Index) Document(id string) (*Document, bool) {
	doc, ok := idx.documents[id]
	return doc, ok
}

// Relations returns the stored relation records for id.
func (idx *Index) Relations(id string) []Relation {
	return idx.documentLinks[id]
}

// Insert adds a single term for docID. The term is normalized to lowercase;
// terms longer than the configured bound are silently dropped (a capacity
// bound, not an error).
func (idx *Index) Insert(term, docID string) {
	idx.insertWord(strings.ToLower(term), docID)
}

func (idx *Index) insertWord(term, docID string) {
	if term == "" || utf8.RuneCountInString(term) > idx.maxWordLength {
		return
	}
	n := idx.root
	n.prefixCount++
	for _, r := range term {
		n = n.child(r)
		n.prefixCount++
	}
	n.isEndOfWord = true
	n.addRef(docID)
	n.incrementWeight(1.0)
}

// AddDocument ingests a document: it is stored in the document table
// (replacing any prior entry with the same id) and every unique token of each
// field is inserted into the trie. Invalid documents are logged and ignored.
func (idx *Index) AddDocument(doc *Document) {
	if err := doc.Valid(); err != nil {
		idx.logger.Warn("rejecting document", "error", err)
		return
	}

	now := time.Now()
	if doc.Metadata.Indexed.IsZero() {
		doc.Metadata.Indexed = now
	}
	if doc.Metadata.LastModified.IsZero() {
		doc.Metadata.LastModified = now
	}

	_, existed := idx.documents[doc.ID]
	idx.documents[doc.ID] = doc
	if !existed {
		idx.totalDocuments++
	}

	if len(doc.Relations) > 0 {
		idx.documentLinks[doc.ID] = append([]Relation(nil), doc.Relations...)
	} else {
		delete(idx.documentLinks, doc.ID)
	}

	idx.termCounts[doc.ID] = doc.termCounts()

	for _, fv := range doc.Fields {
		seen := make(map[string]struct{})
		for _, text := range fv.texts() {
			for _, tok := range Tokenize(text, false) {
				if _, dup := seen[tok]; dup {
					continue
				}
				seen[tok] = struct{}{}
				idx.insertWord(tok, doc.ID)
			}
		}
	}
}

// RemoveDocument strips every trie reference to id, decrementing weight and
// prefix counts along affected paths and pruning subtrees that no longer
// contribute to any stored term. The document table entry is dropped and
// totalDocuments decremented only when the document actually existed; terms
// inserted directly for an id are unindexed either way. Reports whether the
// document existed in the table.
func (idx *Index) RemoveDocument(id string) bool {
	_, existed := idx.documents[id]
	if existed {
		delete(idx.documents, id)
		delete(idx.documentLinks, id)
		delete(idx.termCounts, id)
		idx.totalDocuments--
	}

	idx.removeRefs(idx.root, id)
	return existed
}

// removeRefs strips id from the subtree rooted at n and returns the number of
// terminating references removed below and at n. Each removal decrements the
// prefix count of every node on its path; prunable children are deleted
// post-order.
func (idx *Index) removeRefs(n *Node, id string) int {
	removed := 0
	if _, ok := n.documentRefs[id]; ok {
		delete(n.documentRefs, id)
		n.decrementWeight()
		if len(n.documentRefs) == 0 {
			n.isEndOfWord = false
		}
		removed++
	}
	for r, child := range n.children {
		removed += idx.removeRefs(child, id)
		if child.prunable() {
			delete(n.children, r)
		}
	}
	n.prefixCount -= removed
	if n.prefixCount < 0 {
		n.prefixCount = 0
	}
	return removed
}

// Clear resets the index to its freshly constructed state.
func (idx *Index) Clear() {
	idx.root = newNode(0)
	idx.documents = make(map[string]*Document)
	idx.documentLinks = make(map[string][]Relation)
	idx.termCounts = make(map[string]map[string]int)
	idx.totalDocuments = 0
}

// Options selects the retrieval mode and bounds of a Search call.
// The zero value selects exact matching with the documented defaults; a
// negative MinScore disables the score filter entirely.
type Options struct {
	Fuzzy         bool
	MaxDistance   int
	PrefixMatch   bool
	MaxResults    int
	MinScore      float64
	CaseSensitive bool
}

func (o Options) withDefaults() Options {
	if o.MaxDistance <= 0 {
		o.MaxDistance = DefaultMaxDistance
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MinScore == 0 {
		o.MinScore = DefaultMinScore
	} else if o.MinScore < 0 {
		o.MinScore = 0
	}
	return o
}

// Result is one ranked hit. Document is the stored document as of the query,
// nil when the id was inserted directly without a document. Distance is set
// for fuzzy matches only.
type Result struct {
	DocID    string    `json:"docId"`
	Score    float64   `json:"score"`
	Term     string    `json:"term"`
	ID       string    `json:"id"`
	Document *Document `json:"document,omitempty"`
	Item     string    `json:"item"`
	Matches  []string  `json:"matches"`
	Distance int       `json:"distance,omitempty"`
}

type match struct {
	docID    string
	term     string
	score    float64
	distance int
	fuzzy    bool
}

// Search tokenizes the query and runs exact, prefix or fuzzy retrieval per
// token as selected by opts. Results merge per document keeping the highest
// score, are filtered by MinScore, sorted by descending score (ascending
// docID on ties) and truncated to MaxResults. An empty token list yields an
// empty result. Search never fails on unknown terms; it returns no results.
func (idx *Index) Search(query string, opts Options) []Result {
	opts = opts.withDefaults()

	tokens := Tokenize(query, opts.CaseSensitive)
	if len(tokens) == 0 {
		return nil
	}

	now := time.Now()
	best := make(map[string]match)
	for _, tok := range tokens {
		var matches []match
		switch {
		case opts.Fuzzy:
			matches = idx.fuzzyMatches(tok, opts.MaxDistance, now)
		case opts.PrefixMatch:
			matches = idx.prefixMatches(tok, now)
		default:
			matches = idx.exactMatches(tok, now)
		}
		for _, m := range matches {
			if cur, ok := best[m.docID]; !ok || m.score > cur.score {
				best[m.docID] = m
			}
		}
	}

	results := make([]Result, 0, len(best))
	for docID, m := range best {
		doc := idx.documents[docID]
		score := m.score * idx.freshness(doc, now)
		if score < opts.MinScore {
			continue
		}
		res := Result{
			DocID:    docID,
			Score:    score,
			Term:     m.term,
			ID:       docID,
			Document: doc,
			Item:     docID,
			Matches:  []string{m.term},
		}
		if m.fuzzy {
			res.Distance = m.distance
		}
		results = append(results, res)
	}

	sortResults(results)
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results
}

// FuzzySearch finds every stored term within maxDistance edits of word and
// returns all hits ranked by score. The word is normalized to lowercase, as
// terms are at index time. A negative maxDistance selects the default of 2;
// zero restricts matching to exact terms.
func (idx *Index) FuzzySearch(word string, maxDistance int) []Result {
	if maxDistance < 0 {
		maxDistance = DefaultMaxDistance
	}
	word = strings.ToLower(word)

	now := time.Now()
	best := make(map[string]match)
	for _, m := range idx.fuzzyMatches(word, maxDistance, now) {
		if cur, ok := best[m.docID]; !ok || m.score > cur.score {
			best[m.docID] = m
		}
	}

	results := make([]Result, 0, len(best))
	for docID, m := range best {
		doc := idx.documents[docID]
		results = append(results, Result{
			DocID:    docID,
			Score:    m.score * idx.freshness(doc, now),
			Term:     m.term,
			ID:       docID,
			Document: doc,
			Item:     docID,
			Matches:  []string{m.term},
			Distance: m.distance,
		})
	}

	sortResults(results)
	return results
}

// Suggestions returns up to maxResults completions of prefix, ordered by
// descending node base score. A missing prefix yields no suggestions.
func (idx *Index) Suggestions(prefix string, maxResults int) []string {
	if maxResults <= 0 {
		maxResults = DefaultMaxSuggestions
	}
	prefix = strings.ToLower(prefix)
	start := idx.root.walk(prefix)
	if start == nil {
		return nil
	}

	now := time.Now()
	type candidate struct {
		word  string
		score float64
	}
	var candidates []candidate
	var collect func(n *Node, word string)
	collect = func(n *Node, word string) {
		if n.isEndOfWord {
			candidates = append(candidates, candidate{word: word, score: nodeBaseScore(n, now)})
		}
		for r, child := range n.children {
			collect(child, word+string(r))
		}
	}
	collect(start, prefix)

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].word < candidates[j].word
	})
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	words := make([]string, len(candidates))
	for i, c := range candidates {
		words[i] = c.word
	}
	return words
}

// exactMatches walks the trie along term and emits one match per document
// referencing the terminal node.
func (idx *Index) exactMatches(term string, now time.Time) []match {
	n := idx.root.walk(term)
	if n == nil || !n.isEndOfWord {
		return nil
	}
	matches := make([]match, 0, len(n.documentRefs))
	for id := range n.documentRefs {
		matches = append(matches, match{
			docID: id,
			term:  term,
			score: idx.scoreExact(n, term, id, now),
		})
	}
	return matches
}

// prefixMatches walks to the prefix node and collects every end-of-word
// descendant; the matched term is the fully collected word.
func (idx *Index) prefixMatches(prefix string, now time.Time) []match {
	start := idx.root.walk(prefix)
	if start == nil {
		return nil
	}
	var matches []match
	var collect func(n *Node, word string)
	collect = func(n *Node, word string) {
		if n.isEndOfWord {
			for id := range n.documentRefs {
				matches = append(matches, match{
					docID: id,
					term:  word,
					score: idx.scoreExact(n, word, id, now),
				})
			}
		}
		for r, child := range n.children {
			collect(child, word+string(r))
		}
	}
	collect(start, prefix)
	return matches
}

// fuzzyMatches finds stored terms within maxDist edits of word by carrying a
// Levenshtein DP row through the trie. A subtree is abandoned as soon as its
// row minimum exceeds the bound, so the cost stays proportional to the
// reachable frontier rather than the whole trie.
func (idx *Index) fuzzyMatches(word string, maxDist int, now time.Time) []match {
	target := []rune(word)
	first := make([]int, len(target)+1)
	for i := range first {
		first[i] = i
	}

	var matches []match
	var walk func(n *Node, term string, row []int)
	walk = func(n *Node, term string, row []int) {
		if n.isEndOfWord && row[len(target)] <= maxDist {
			dist := row[len(target)]
			for id := range n.documentRefs {
				matches = append(matches, match{
					docID:    id,
					term:     term,
					distance: dist,
					fuzzy:    true,
					score:    idx.scoreFuzzy(n, term, id, dist, now),
				})
			}
		}
		for r, child := range n.children {
			next := nextRow(row, target, r)
			if minRow(next) <= maxDist {
				walk(child, term+string(r), next)
			}
		}
	}
	walk(idx.root, "", first)
	return matches
}

// nextRow advances one row of the Levenshtein computation for candidate rune
// r: substitution, insertion and deletion each cost one edit.
func nextRow(prev []int, target []rune, r rune) []int {
	row := make([]int, len(prev))
	row[0] = prev[0] + 1
	for i := 1; i < len(prev); i++ {
		cost := 0
		if target[i-1] != r {
			cost = 1
		}
		row[i] = min(prev[i-1]+cost, min(row[i-1]+1, prev[i]+1))
	}
	return row
}

func minRow(row []int) int {
	m := row[0]
	for _, v := range row[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// sortResults orders by descending score, breaking ties by ascending docID
// for deterministic output.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
}
