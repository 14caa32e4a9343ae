package domain

import "strings"

// WordRecord is a lexical card for a single French word as returned by the
// generative backend. Records are immutable once fetched; a re-fetch replaces
// the record wholesale.
type WordRecord struct {
	Word           string            `json:"word"`
	Definitions    map[string]string `json:"definitions"`
	PartOfSpeech   string            `json:"partOfSpeech"`
	Collection     string            `json:"collection"`
	RelatedWords   []string          `json:"relatedWords"`
	RelatedPhrases []Phrase          `json:"relatedPhrases"`
	ExamplePhrase  ExamplePhrase     `json:"examplePhrase"`
}

// Phrase pairs a French phrase with its gloss.
type Phrase struct {
	French string `json:"fr"`
	Gloss  string `json:"zh"`
}

// ExamplePhrase is a sample sentence with two glosses and an optional
// grammar note.
type ExamplePhrase struct {
	French      string `json:"fr"`
	English     string `json:"en"`
	Chinese     string `json:"zh"`
	Explanation string `json:"explanation,omitempty"`
}

// CanonicalKey returns the lookup-cache key for the resolved word.
func (w *WordRecord) CanonicalKey() string {
	return strings.ToLower(w.Word)
}

// Valid reports whether the record carries the minimum fields the UI
// contract depends on.
func (w *WordRecord) Valid() bool {
	return w != nil && strings.TrimSpace(w.Word) != "" && len(w.Definitions) > 0
}
