package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/kapu/french-memo-go/internal/domain"
)

// ChatDelimiter separates the French reply from its English gloss in the
// tutor's response text.
const ChatDelimiter = "|||"

// BuildChatTurn builds the tutor prompt for one conversational turn. The
// history is serialized as role/content pairs; pending turns must already be
// excluded by the caller.
func BuildChatTurn(history []domain.HistoryTurn, message string) string {
	historyJSON, err := json.Marshal(history)
	if err != nil {
		// history is plain strings, marshal cannot realistically fail
		historyJSON = []byte("[]")
	}

	return fmt.Sprintf(`You are a friendly French language tutor.
User message: "%s".
Conversation history: %s.

Task: Reply in French.
CRITICAL FORMATTING: After your French reply, add the separator "%s" and then provide the English translation.
Example output: Bonjour, comment ça va? %s Hello, how are you?`, message, historyJSON, ChatDelimiter, ChatDelimiter)
}
