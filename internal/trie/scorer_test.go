package trie

import (
	"math"
	"testing"
	"time"
)

func TestNodeBaseScoreMonotoneInWeight(t *testing.T) {
	now := time.Now()
	light := newNode(3)
	heavy := newNode(3)
	light.incrementWeight(1.0)
	heavy.incrementWeight(1.0)
	heavy.incrementWeight(1.0)

	if nodeBaseScore(heavy, now) <= nodeBaseScore(light, now) {
		t.Errorf("Expected heavier node to score higher: %v vs %v",
			nodeBaseScore(heavy, now), nodeBaseScore(light, now))
	}
}

func TestNodeBaseScoreDecreasesWithDepth(t *testing.T) {
	now := time.Now()
	shallow := newNode(2)
	deep := newNode(8)
	shallow.incrementWeight(1.0)
	deep.incrementWeight(1.0)

	if nodeBaseScore(shallow, now) <= nodeBaseScore(deep, now) {
		t.Errorf("Expected shallower node to score higher: %v vs %v",
			nodeBaseScore(shallow, now), nodeBaseScore(deep, now))
	}
}

func TestNodeBaseScoreDecaysWithAge(t *testing.T) {
	fresh := newNode(1)
	fresh.incrementWeight(1.0)
	stale := newNode(1)
	stale.incrementWeight(1.0)
	stale.lastAccessed = time.Now().Add(-48 * time.Hour)

	now := time.Now()
	if nodeBaseScore(stale, now) >= nodeBaseScore(fresh, now) {
		t.Errorf("Expected stale node to score lower: %v vs %v",
			nodeBaseScore(stale, now), nodeBaseScore(fresh, now))
	}
}

func TestScoreExactFallsBackToWeight(t *testing.T) {
	idx := New(DefaultMaxWordLength)
	idx.Insert("javascript", "doc1")
	idx.Insert("javascript", "doc2")

	// No documents in the table means N = 0: the score is the raw weight.
	n := idx.root.walk("javascript")
	score := idx.scoreExact(n, "javascript", "doc1", time.Now())
	if score != n.weight {
		t.Errorf("Expected fallback to raw weight %v, got %v", n.weight, score)
	}
}

func TestScoreExactSearchScoresAreFinite(t *testing.T) {
	idx := New(DefaultMaxWordLength)
	idx.AddDocument(testDoc("doc1", "Alpha", "alpha beta gamma"))
	idx.AddDocument(testDoc("doc2", "Beta", "beta gamma delta"))

	for _, query := range []string{"alpha", "beta", "gamma", "delta"} {
		for _, r := range idx.Search(query, Options{MinScore: -1}) {
			if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
				t.Errorf("Query %q produced non-finite score %v for %s", query, r.Score, r.DocID)
			}
			if r.Score < 0 {
				t.Errorf("Query %q produced negative score %v for %s", query, r.Score, r.DocID)
			}
		}
	}
}

func TestScoreFuzzyPenalizesDistance(t *testing.T) {
	idx := New(DefaultMaxWordLength)
	idx.AddDocument(testDoc("doc1", "JavaScript", "javascript text"))

	now := time.Now()
	n := idx.root.walk("javascript")
	exact := idx.scoreExact(n, "javascript", "doc1", now)
	near := idx.scoreFuzzy(n, "javascript", "doc1", 1, now)
	far := idx.scoreFuzzy(n, "javascript", "doc1", 2, now)

	if near >= exact {
		t.Errorf("Expected distance 1 to score below exact: %v vs %v", near, exact)
	}
	if far >= near {
		t.Errorf("Expected distance 2 to score below distance 1: %v vs %v", far, near)
	}
}

func TestFreshnessAdjustment(t *testing.T) {
	idx := New(DefaultMaxWordLength)
	now := time.Now()

	fresh := &Document{Metadata: Metadata{LastModified: now}}
	if f := idx.freshness(fresh, now); math.Abs(f-1.0) > 1e-9 {
		t.Errorf("Expected freshness 1.0 for a new document, got %v", f)
	}

	ancient := &Document{Metadata: Metadata{LastModified: now.Add(-2 * 365 * 24 * time.Hour)}}
	if f := idx.freshness(ancient, now); math.Abs(f-0.7) > 1e-9 {
		t.Errorf("Expected freshness floor 0.7 for an ancient document, got %v", f)
	}

	if f := idx.freshness(nil, now); f != 1.0 {
		t.Errorf("Expected neutral freshness without a document, got %v", f)
	}
}
