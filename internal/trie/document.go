package trie

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FieldKind tags the variant held by a FieldValue.
type FieldKind int

const (
	// FieldIgnored marks a value the indexer skips (numbers, booleans, null).
	FieldIgnored FieldKind = iota
	// FieldString is a plain string field such as title or author.
	FieldString
	// FieldList is an ordered sequence of strings such as tags.
	FieldList
	// FieldContent is an object carrying a text body, {"text": "..."}.
	FieldContent
)

// FieldValue is the tagged variant a document field can hold. Exactly one of
// the payloads is meaningful, selected by Kind.
type FieldValue struct {
	Kind FieldKind
	Str  string
	List []string
	Text string
}

// String builds a plain string field.
func String(s string) FieldValue { return FieldValue{Kind: FieldString, Str: s} }

// List builds an ordered sequence-of-strings field.
func List(items ...string) FieldValue { return FieldValue{Kind: FieldList, List: items} }

// Content builds a content field carrying a text body.
func Content(text string) FieldValue { return FieldValue{Kind: FieldContent, Text: text} }

// texts returns the text units the indexer tokenizes for this field.
func (f FieldValue) texts() []string {
	switch f.Kind {
	case FieldString:
		return []string{f.Str}
	case FieldList:
		return f.List
	case FieldContent:
		return []string{f.Text}
	default:
		return nil
	}
}

// MarshalJSON renders the variant in its wire shape: a string, a string
// array, or {"text": "..."}. Ignored values render as null.
func (f FieldValue) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FieldString:
		return json.Marshal(f.Str)
	case FieldList:
		if f.List == nil {
			return json.Marshal([]string{})
		}
		return json.Marshal(f.List)
	case FieldContent:
		return json.Marshal(map[string]string{"text": f.Text})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string, a string array, or an object with a "text"
// string. Any other shape decodes to an ignored value, matching the indexer's
// treatment of non-string fields.
func (f *FieldValue) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*f = FieldValue{Kind: FieldIgnored}
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = String(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FieldValue{Kind: FieldList, List: list}
		return nil
	}

	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Text != nil {
		*f = Content(*obj.Text)
		return nil
	}

	*f = FieldValue{Kind: FieldIgnored}
	return nil
}

// Relation is an opaque link between two documents. The index stores
// relations verbatim and never traverses them.
type Relation struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	Weight float64 `json:"weight,omitempty"`
}

// Metadata carries the index-maintained timestamps of a document.
type Metadata struct {
	Indexed      time.Time `json:"indexed"`
	LastModified time.Time `json:"lastModified"`
}

// Document is the unit of ingestion. A document without an ID or without
// fields is rejected by the index.
type Document struct {
	ID        string                `json:"id"`
	Fields    map[string]FieldValue `json:"fields"`
	Metadata  Metadata              `json:"metadata"`
	Versions  []string              `json:"versions,omitempty"`
	Relations []Relation            `json:"relations,omitempty"`
}

// Valid reports whether the document satisfies the ingestion contract.
func (d *Document) Valid() error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrValidation)
	}
	if d.ID == "" {
		return fmt.Errorf("%w: document has no id", ErrValidation)
	}
	if d.Fields == nil {
		return fmt.Errorf("%w: document %q has no fields", ErrValidation, d.ID)
	}
	return nil
}

// termCounts tallies every token occurrence across the document's indexable
// fields. Used for per-document term frequency in scoring.
func (d *Document) termCounts() map[string]int {
	counts := make(map[string]int)
	for _, fv := range d.Fields {
		for _, text := range fv.texts() {
			for _, tok := range Tokenize(text, false) {
				counts[tok]++
			}
		}
	}
	return counts
}
