package trie

import (
	"reflect"
	"testing"
)

func TestTokenizeSplitsOnWhitespaceAndPunctuation(t *testing.T) {
	got := Tokenize(`Hello, world! (foo) [bar] {baz} a/b\c "quoted" it's`, false)
	want := []string{"hello", "world", "foo", "bar", "baz", "a", "b", "c", "quoted", "it", "s"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected tokens %v, got %v", want, got)
	}
}

func TestTokenizeCaseFolding(t *testing.T) {
	got := Tokenize("JavaScript Programming", false)
	want := []string{"javascript", "programming"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected lowercased tokens %v, got %v", want, got)
	}
}

func TestTokenizeCaseSensitive(t *testing.T) {
	got := Tokenize("JavaScript Programming", true)
	want := []string{"JavaScript", "Programming"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected case-preserving tokens %v, got %v", want, got)
	}
}

func TestTokenizeEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n", ",.!?;:", `()[]{}/\`} {
		if got := Tokenize(input, false); len(got) != 0 {
			t.Errorf("Expected no tokens for %q, got %v", input, got)
		}
	}
}

func TestTokenizeIsPure(t *testing.T) {
	input := "repeat me, twice!"
	first := Tokenize(input, false)
	second := Tokenize(input, false)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical output on repeated calls, got %v then %v", first, second)
	}
}
