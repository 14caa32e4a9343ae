package prompt

import "fmt"

// BuildAlbumListing builds the prompt for a themed vocabulary album.
// itemCount is a request, not a guarantee; callers tolerate fewer or more.
func BuildAlbumListing(category string, itemCount int) string {
	return fmt.Sprintf(`List %d common French vocabulary items for category: "%s".
Return valid JSON:
{
  "category": "%s",
  "items": [
    { "word": "FrenchWord", "article": "le/la/un", "zh": "Chinese", "isVisual": true/false }
  ]
}`, itemCount, category, category)
}
