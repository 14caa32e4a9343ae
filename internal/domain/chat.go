package domain

// ChatRole identifies the author of a transcript turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatTurn is one entry of the tutor transcript. Turns are append-only; the
// single exception is in-place replacement of the most recent pending turn
// once its reply arrives.
type ChatTurn struct {
	Role               ChatRole `json:"role"`
	Text               string   `json:"text"`
	Translation        string   `json:"translation,omitempty"`
	TranslationVisible bool     `json:"translationVisible"`
	Pending            bool     `json:"pending,omitempty"`
}

// HistoryTurn is the role/text pair handed to the gateway when requesting a
// chat reply. Pending turns are never included.
type HistoryTurn struct {
	Role ChatRole `json:"role"`
	Text string   `json:"content"`
}
