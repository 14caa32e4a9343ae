package prompt

import "fmt"

// BuildWordAnalysis builds the prompt for a single-word lookup. The backend
// detects the input language, translates to French when needed and returns
// the fixed card shape the client parses.
func BuildWordAnalysis(input string) string {
	return fmt.Sprintf(`User input: "%s".
Task:
1. Detect language. If NOT French, translate to common French word.
2. Analyze the French word.

CRITICAL: Keep definitions EXTREMELY SHORT (1-3 words max). Just the direct translation. NO explanations.

Return strictly valid JSON (no markdown):
{
  "word": "The French word",
  "definitions": {
    "en": "Direct translation (1-3 words)",
    "zh": "直接的中文对应词(仅词义，不解释)"
  },
  "partOfSpeech": "abbrev. (n.m./adj.)",
  "collection": "Category (e.g. Fruits)",
  "relatedWords": ["synonym1", "antonym1", "related1"],
  "relatedPhrases": [
    {"fr": "Phrase 1", "zh": "Meaning 1"},
    {"fr": "Phrase 2", "zh": "Meaning 2"}
  ],
  "examplePhrase": {
    "fr": "Simple French sentence",
    "en": "English translation",
    "zh": "Chinese translation",
    "explanation": "Brief grammar note"
  }
}`, input)
}
