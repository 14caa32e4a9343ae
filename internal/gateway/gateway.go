// Package gateway owns the typed request/response contracts against the
// generative-language backend: word analysis, album listing and tutor chat.
// Lookups are single round trips with no retry; chat is the one operation
// with a built-in degraded response.
package gateway

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/internal/prompt"
	"github.com/kapu/french-memo-go/internal/service/ai"
	"github.com/kapu/french-memo-go/pkg/errors"
)

// FallbackChatReply stands in for a tutor reply when the backend fails.
// It carries the same delimiter format as a real reply.
const FallbackChatReply = "Désolé, je ne comprends pas. ||| Sorry, I don't understand."

// Control characters pattern (compiled once at package init)
var controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// Whitespace pattern (compiled once)
var whitespacePattern = regexp.MustCompile(`\s+`)

// TextGenerator is the slice of the model manager the gateway consumes.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, preset ai.ModelPreset, dest any, opts *ai.GenerateOptions) (*ai.GenerateMetadata, error)
	GenerateText(ctx context.Context, prompt string, preset ai.ModelPreset, opts *ai.GenerateOptions) (string, *ai.GenerateMetadata, error)
}

type Gateway struct {
	models TextGenerator
	logger *zap.Logger
}

func NewGateway(models TextGenerator, logger *zap.Logger) *Gateway {
	return &Gateway{
		models: models,
		logger: logger,
	}
}

// LookupWord analyzes a query (any language) into a French word card.
// Fails fast on transport errors and on payloads that do not match the
// expected shape; partial results are not tolerated.
func (g *Gateway) LookupWord(ctx context.Context, query string) (*domain.WordRecord, error) {
	sanitized := g.sanitizeInput(query, constants.AIInputLimits.MaxQueryLength)
	if sanitized == "" {
		return nil, errors.NewMalformedResponseError("empty query", "lookupWord", nil)
	}

	promptText := prompt.BuildWordAnalysis(sanitized)

	var record domain.WordRecord
	metadata, err := g.models.GenerateJSON(ctx, promptText, ai.PresetPrecise, &record, nil)
	if err != nil {
		g.logger.Error("Word lookup failed",
			zap.String("query", sanitized),
			zap.Error(err),
		)
		return nil, errors.NewGatewayError("word lookup failed", "lookupWord", err)
	}

	if !record.Valid() {
		g.logger.Error("Word lookup returned incomplete card",
			zap.String("query", sanitized),
			zap.String("provider", metadata.Provider),
		)
		return nil, errors.NewMalformedResponseError("incomplete word card", "lookupWord", nil)
	}

	g.logger.Info("Word lookup resolved",
		zap.String("query", sanitized),
		zap.String("word", record.Word),
		zap.String("provider", metadata.Provider),
		zap.Bool("used_fallback", metadata.UsedFallback),
	)

	return &record, nil
}

// ListAlbum generates a themed vocabulary album for a category. The item
// count is requested but not enforced on the response.
func (g *Gateway) ListAlbum(ctx context.Context, category string) (*domain.AlbumRecord, error) {
	sanitized := g.sanitizeInput(category, constants.AIInputLimits.MaxQueryLength)
	if sanitized == "" {
		return nil, errors.NewMalformedResponseError("empty category", "listAlbum", nil)
	}

	promptText := prompt.BuildAlbumListing(sanitized, constants.AlbumConfig.RequestedItems)

	var record domain.AlbumRecord
	metadata, err := g.models.GenerateJSON(ctx, promptText, ai.PresetBalanced, &record, nil)
	if err != nil {
		g.logger.Error("Album listing failed",
			zap.String("category", sanitized),
			zap.Error(err),
		)
		return nil, errors.NewGatewayError("album listing failed", "listAlbum", err)
	}

	if !record.Valid() {
		g.logger.Error("Album listing returned no items",
			zap.String("category", sanitized),
			zap.String("provider", metadata.Provider),
		)
		return nil, errors.NewMalformedResponseError("empty album", "listAlbum", nil)
	}

	g.logger.Info("Album listing generated",
		zap.String("category", sanitized),
		zap.Int("items", len(record.Items)),
		zap.String("provider", metadata.Provider),
	)

	return &record, nil
}

// Converse requests one tutor reply. The raw text is expected to contain
// the ||| delimiter; splitting is the conversation controller's concern.
// Backend failures degrade to FallbackChatReply instead of erroring;
// a done context still propagates as an error.
func (g *Gateway) Converse(ctx context.Context, history []domain.HistoryTurn, message string) (string, error) {
	sanitized := g.sanitizeInput(message, constants.AIInputLimits.MaxMessageLength)
	if sanitized == "" {
		return "", errors.NewMalformedResponseError("empty message", "converse", nil)
	}

	if len(history) > constants.AIInputLimits.MaxHistoryTurns {
		history = history[len(history)-constants.AIInputLimits.MaxHistoryTurns:]
	}

	promptText := prompt.BuildChatTurn(history, sanitized)

	text, metadata, err := g.models.GenerateText(ctx, promptText, ai.PresetCreative, nil)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewGatewayError("chat turn aborted", "converse", ctx.Err())
		}
		g.logger.Warn("Chat turn failed, degrading to fallback reply",
			zap.Error(err),
		)
		return FallbackChatReply, nil
	}

	g.logger.Debug("Chat reply received",
		zap.Int("length", len(text)),
		zap.String("provider", metadata.Provider),
	)

	return text, nil
}

// sanitizeInput strips control characters, collapses whitespace and caps
// length before the text reaches a prompt.
func (g *Gateway) sanitizeInput(input string, maxLength int) string {
	withoutControl := controlCharsPattern.ReplaceAllString(input, " ")
	normalized := whitespacePattern.ReplaceAllString(withoutControl, " ")
	trimmed := strings.TrimSpace(normalized)

	if trimmed == "" {
		return ""
	}

	if len(trimmed) > maxLength {
		return trimmed[:maxLength]
	}

	return trimmed
}
