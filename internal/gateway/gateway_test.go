package gateway

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/internal/service/ai"
	"github.com/kapu/french-memo-go/pkg/errors"
)

type fakeGenerator struct {
	jsonPayload string
	textReply   string
	err         error
	lastPrompt  string
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, prompt string, preset ai.ModelPreset, dest any, opts *ai.GenerateOptions) (*ai.GenerateMetadata, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return nil, f.err
	}
	if err := json.Unmarshal([]byte(f.jsonPayload), dest); err != nil {
		return nil, err
	}
	return &ai.GenerateMetadata{Provider: "gemini", Model: "test"}, nil
}

func (f *fakeGenerator) GenerateText(ctx context.Context, prompt string, preset ai.ModelPreset, opts *ai.GenerateOptions) (string, *ai.GenerateMetadata, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", nil, f.err
	}
	return f.textReply, &ai.GenerateMetadata{Provider: "gemini", Model: "test"}, nil
}

const wordPayload = `{
	"word": "Bonjour",
	"definitions": {"en": "Hello", "zh": "你好"},
	"partOfSpeech": "interjection",
	"collection": "Greetings",
	"relatedWords": ["Salut"],
	"relatedPhrases": [{"fr": "Bonjour à tous", "zh": "大家好"}],
	"examplePhrase": {"fr": "Bonjour, comment ça va?", "en": "Hello, how are you?", "zh": "你好，最近怎么样？"}
}`

func TestLookupWordParsesCard(t *testing.T) {
	gen := &fakeGenerator{jsonPayload: wordPayload}
	gw := NewGateway(gen, zap.NewNop())

	record, err := gw.LookupWord(context.Background(), "  bonjour  ")
	if err != nil {
		t.Fatalf("LookupWord: %v", err)
	}
	if record.Word != "Bonjour" {
		t.Errorf("word = %q, want Bonjour", record.Word)
	}
	if record.Definitions["en"] != "Hello" {
		t.Errorf("definition en = %q", record.Definitions["en"])
	}
	if !strings.Contains(gen.lastPrompt, "bonjour") {
		t.Errorf("prompt missing sanitized query: %q", gen.lastPrompt)
	}
}

func TestLookupWordWrapsTransportError(t *testing.T) {
	gen := &fakeGenerator{err: stderrors.New("dial tcp: connection refused")}
	gw := NewGateway(gen, zap.NewNop())

	_, err := gw.LookupWord(context.Background(), "bonjour")
	if err == nil {
		t.Fatal("expected error")
	}
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != errors.CodeGateway {
		t.Errorf("expected gateway error, got %v", err)
	}
}

func TestLookupWordRejectsIncompleteCard(t *testing.T) {
	gen := &fakeGenerator{jsonPayload: `{"word": "", "definitions": {}}`}
	gw := NewGateway(gen, zap.NewNop())

	_, err := gw.LookupWord(context.Background(), "bonjour")
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != errors.CodeMalformed {
		t.Errorf("expected malformed response error, got %v", err)
	}
}

func TestLookupWordRejectsEmptyQuery(t *testing.T) {
	gw := NewGateway(&fakeGenerator{}, zap.NewNop())

	if _, err := gw.LookupWord(context.Background(), "  \t\n "); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestListAlbumParsesItems(t *testing.T) {
	gen := &fakeGenerator{jsonPayload: `{
		"category": "Animaux",
		"items": [
			{"word": "chat", "article": "le", "zh": "猫", "isVisual": true},
			{"word": "chien", "article": "le", "zh": "狗", "isVisual": true}
		]
	}`}
	gw := NewGateway(gen, zap.NewNop())

	record, err := gw.ListAlbum(context.Background(), "Animaux")
	if err != nil {
		t.Fatalf("ListAlbum: %v", err)
	}
	if len(record.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(record.Items))
	}
	if record.Items[0].Gloss != "猫" {
		t.Errorf("gloss = %q", record.Items[0].Gloss)
	}
}

func TestListAlbumRejectsEmptyAlbum(t *testing.T) {
	gen := &fakeGenerator{jsonPayload: `{"category": "Animaux", "items": []}`}
	gw := NewGateway(gen, zap.NewNop())

	_, err := gw.ListAlbum(context.Background(), "Animaux")
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) || appErr.Code != errors.CodeMalformed {
		t.Errorf("expected malformed response error, got %v", err)
	}
}

func TestConverseReturnsReply(t *testing.T) {
	gen := &fakeGenerator{textReply: "Ça va bien! ||| I am fine!"}
	gw := NewGateway(gen, zap.NewNop())

	reply, err := gw.Converse(context.Background(), nil, "ça va?")
	if err != nil {
		t.Fatalf("Converse: %v", err)
	}
	if reply != "Ça va bien! ||| I am fine!" {
		t.Errorf("reply = %q", reply)
	}
}

func TestConverseDegradesToFallback(t *testing.T) {
	gen := &fakeGenerator{err: stderrors.New("gemini: 503 overloaded")}
	gw := NewGateway(gen, zap.NewNop())

	reply, err := gw.Converse(context.Background(), nil, "ça va?")
	if err != nil {
		t.Fatalf("Converse should not surface backend errors: %v", err)
	}
	if reply != FallbackChatReply {
		t.Errorf("reply = %q, want fallback", reply)
	}
}

func TestConversePropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{err: context.Canceled}
	gw := NewGateway(gen, zap.NewNop())

	if _, err := gw.Converse(ctx, nil, "ça va?"); err == nil {
		t.Fatal("expected error when context is cancelled")
	}
}

func TestConverseTrimsHistory(t *testing.T) {
	history := make([]domain.HistoryTurn, 40)
	for i := range history {
		history[i] = domain.HistoryTurn{Role: "user", Text: "salut"}
	}
	gen := &fakeGenerator{textReply: "Salut! ||| Hi!"}
	gw := NewGateway(gen, zap.NewNop())

	if _, err := gw.Converse(context.Background(), history, "encore"); err != nil {
		t.Fatalf("Converse: %v", err)
	}
	// 20 retained turns serialize as 20 role fields in the prompt.
	if got := strings.Count(gen.lastPrompt, `"role"`); got != 20 {
		t.Errorf("history turns in prompt = %d, want 20", got)
	}
}
