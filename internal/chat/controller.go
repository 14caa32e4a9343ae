// Package chat runs the tutor conversation: a transcript of turns, one
// in-flight reply at a time, and replies split into a French sentence plus
// an English translation on the ||| delimiter.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/internal/prompt"
	"github.com/kapu/french-memo-go/pkg/errors"
)

const (
	greetingFrench      = "Bonjour! Je suis ton prof de français."
	greetingTranslation = "Hello! I am your French teacher."
)

// ErrReplyPending is returned by Send while a previous turn is still
// waiting on the tutor.
var ErrReplyPending = errors.NewCapabilityError("a reply is already pending", "chat")

// Conversing is the gateway surface the controller needs.
type Conversing interface {
	Converse(ctx context.Context, history []domain.HistoryTurn, message string) (string, error)
}

// Speaker voices the French half of a reply. Implementations must be safe
// to call from a goroutine.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Controller owns the transcript. The transcript always starts with the
// tutor's greeting, and at most one assistant turn is pending at a time.
type Controller struct {
	gateway Conversing
	speaker Speaker
	logger  *zap.Logger

	mu         sync.Mutex
	transcript []domain.ChatTurn
	pending    bool
}

// NewController seeds the transcript with the greeting. speaker may be nil
// when speech output is disabled.
func NewController(gateway Conversing, speaker Speaker, logger *zap.Logger) *Controller {
	return &Controller{
		gateway: gateway,
		speaker: speaker,
		logger:  logger,
		transcript: []domain.ChatTurn{{
			Role:        domain.RoleAssistant,
			Text:        greetingFrench,
			Translation: greetingTranslation,
		}},
	}
}

// Send submits one user message and blocks until the tutor replies. While
// the reply is outstanding the transcript shows the user turn plus a
// pending assistant turn, and further Send calls fail with
// ErrReplyPending. A gateway error removes only the pending turn; the
// user's message stays in the transcript.
func (c *Controller) Send(ctx context.Context, message string) (*domain.ChatTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.NewAppError("empty message", errors.CodeAppError, 400, nil)
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, ErrReplyPending
	}
	history := c.historyLocked()
	c.pending = true
	c.transcript = append(c.transcript,
		domain.ChatTurn{Role: domain.RoleUser, Text: message},
		domain.ChatTurn{Role: domain.RoleAssistant, Pending: true},
	)
	c.mu.Unlock()

	raw, err := c.gateway.Converse(ctx, history, message)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if err != nil {
		c.removePendingLocked()
		c.logger.Warn("Tutor reply failed, dropping pending turn", zap.Error(err))
		return nil, err
	}

	turn := splitReply(raw)
	c.transcript[len(c.transcript)-1] = turn

	if c.speaker != nil && turn.Text != "" {
		go c.speak(turn.Text)
	}

	return &turn, nil
}

// ToggleTranslation flips translation visibility for one turn. An index
// outside the transcript is ignored.
func (c *Controller) ToggleTranslation(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.transcript) {
		return
	}
	c.transcript[index].TranslationVisible = !c.transcript[index].TranslationVisible
}

// Transcript returns a copy of the conversation so far.
func (c *Controller) Transcript() []domain.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ChatTurn, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// historyLocked converts completed turns into the wire history format.
func (c *Controller) historyLocked() []domain.HistoryTurn {
	history := make([]domain.HistoryTurn, 0, len(c.transcript))
	for _, turn := range c.transcript {
		if turn.Pending {
			continue
		}
		history = append(history, domain.HistoryTurn{
			Role: turn.Role,
			Text: turn.Text,
		})
	}
	return history
}

func (c *Controller) removePendingLocked() {
	for i := len(c.transcript) - 1; i >= 0; i-- {
		if c.transcript[i].Pending {
			c.transcript = append(c.transcript[:i], c.transcript[i+1:]...)
			return
		}
	}
}

// splitReply carves a raw reply on the delimiter. Without a delimiter the
// whole reply is treated as French and the translation is left empty.
func splitReply(raw string) domain.ChatTurn {
	french, translation, found := strings.Cut(raw, prompt.ChatDelimiter)
	turn := domain.ChatTurn{
		Role: domain.RoleAssistant,
		Text: strings.TrimSpace(french),
	}
	if found {
		turn.Translation = strings.TrimSpace(translation)
	}
	return turn
}

func (c *Controller) speak(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.speaker.Speak(ctx, text); err != nil {
		c.logger.Debug("Reply playback failed", zap.Error(err))
	}
}
