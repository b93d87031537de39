//go:build property
// +build property

package trie

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genTerm() gopter.Gen {
	return gen.RegexMatch(`[a-z]{1,12}`)
}

func genDocID() gopter.Gen {
	return gen.RegexMatch(`doc-[a-z0-9]{1,8}`)
}

// Inserted terms are always findable: insert(w, d) then search(w) contains d
// whenever the term fits the length bound.
func TestPropertyInsertedTermsAreSearchable(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("insert then search finds the document", prop.ForAll(
		func(term string, docID string) bool {
			idx := New(DefaultMaxWordLength)
			idx.Insert(term, docID)

			results := idx.Search(term, Options{MinScore: -1})
			for _, r := range results {
				if r.DocID == docID {
					return true
				}
			}
			t.Logf("Term %q for %q not found after insert", term, docID)
			return false
		},
		genTerm(),
		genDocID(),
	))

	properties.TestingRun(t)
}

// Removal is complete: after removeDocument(id) no search can surface id.
func TestPropertyRemovalIsComplete(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("removed documents never appear in results", prop.ForAll(
		func(terms []string, docID string) bool {
			idx := New(DefaultMaxWordLength)
			for _, term := range terms {
				idx.Insert(term, docID)
				idx.Insert(term, "survivor")
			}

			idx.RemoveDocument(docID)

			for _, term := range terms {
				for _, r := range idx.Search(term, Options{MinScore: -1}) {
					if r.DocID == docID {
						t.Logf("Removed %q still surfaced for term %q", docID, term)
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(5, genTerm()),
		genDocID(),
	))

	properties.Property("no node retains a reference after removal", prop.ForAll(
		func(terms []string, docID string) bool {
			idx := New(DefaultMaxWordLength)
			for _, term := range terms {
				idx.Insert(term, docID)
			}

			idx.RemoveDocument(docID)

			clean := true
			var check func(n *Node)
			check = func(n *Node) {
				if _, ok := n.documentRefs[docID]; ok {
					clean = false
				}
				for _, child := range n.children {
					check(child)
				}
			}
			check(idx.root)
			return clean
		},
		gen.SliceOfN(5, genTerm()),
		genDocID(),
	))

	properties.TestingRun(t)
}

// Fuzzy search at distance zero degenerates to exact search.
func TestPropertyFuzzyZeroEqualsExact(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("fuzzy distance 0 returns the exact result set", prop.ForAll(
		func(terms []string, query string) bool {
			idx := New(DefaultMaxWordLength)
			for i, term := range terms {
				idx.Insert(term, "doc"+string(rune('a'+i)))
			}

			exact := idx.Search(query, Options{MinScore: -1})
			fuzzy := idx.FuzzySearch(query, 0)

			if len(exact) != len(fuzzy) {
				t.Logf("Query %q: exact %d results, fuzzy-0 %d results", query, len(exact), len(fuzzy))
				return false
			}
			exactIDs := make(map[string]bool, len(exact))
			for _, r := range exact {
				exactIDs[r.DocID] = true
			}
			for _, r := range fuzzy {
				if !exactIDs[r.DocID] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, genTerm()),
		genTerm(),
	))

	properties.TestingRun(t)
}

// prefixCount dominates the number of end-of-word descendants.
func TestPropertyPrefixCountBoundsTerminations(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("prefixCount >= end-of-word descendants", prop.ForAll(
		func(terms []string) bool {
			idx := New(DefaultMaxWordLength)
			for i, term := range terms {
				idx.Insert(term, "doc"+string(rune('a'+i)))
			}

			ok := true
			var count func(n *Node) int
			count = func(n *Node) int {
				terminations := 0
				if n.isEndOfWord {
					terminations++
				}
				for _, child := range n.children {
					terminations += count(child)
				}
				if n.prefixCount < terminations {
					ok = false
				}
				return terminations
			}
			count(idx.root)
			return ok
		},
		gen.SliceOfN(8, genTerm()),
	))

	properties.TestingRun(t)
}

// Serialization round-trips observable query behavior.
func TestPropertySerializeRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("restore preserves search result sets", prop.ForAll(
		func(terms []string, query string) bool {
			idx := New(DefaultMaxWordLength)
			for i, term := range terms {
				idx.Insert(term, "doc"+string(rune('a'+i)))
			}

			restored := New(DefaultMaxWordLength)
			if err := restored.DeserializeState(idx.SerializeState()); err != nil {
				t.Logf("Deserialize failed: %v", err)
				return false
			}

			before := idx.Search(query, Options{MinScore: -1})
			after := restored.Search(query, Options{MinScore: -1})
			if len(before) != len(after) {
				return false
			}
			for i := range before {
				if before[i].DocID != after[i].DocID || before[i].Term != after[i].Term {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(6, genTerm()),
		genTerm(),
	))

	properties.TestingRun(t)
}
