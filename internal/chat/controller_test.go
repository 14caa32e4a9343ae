package chat

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/domain"
)

type fakeTutor struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   chan struct{}
	history []domain.HistoryTurn
}

func (f *fakeTutor) Converse(ctx context.Context, history []domain.HistoryTurn, message string) (string, error) {
	f.mu.Lock()
	f.history = history
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	return nil
}

func TestTranscriptStartsWithGreeting(t *testing.T) {
	c := NewController(&fakeTutor{}, nil, zap.NewNop())

	transcript := c.Transcript()
	if len(transcript) != 1 {
		t.Fatalf("transcript length = %d, want 1", len(transcript))
	}
	greeting := transcript[0]
	if greeting.Role != domain.RoleAssistant {
		t.Errorf("greeting role = %q", greeting.Role)
	}
	if greeting.Text != "Bonjour! Je suis ton prof de français." {
		t.Errorf("greeting text = %q", greeting.Text)
	}
	if greeting.TranslationVisible {
		t.Error("greeting translation should start hidden")
	}
}

func TestSendSplitsReplyOnDelimiter(t *testing.T) {
	tutor := &fakeTutor{reply: "Ça va bien! ||| I am fine!"}
	c := NewController(tutor, nil, zap.NewNop())

	turn, err := c.Send(context.Background(), "ça va?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if turn.Text != "Ça va bien!" {
		t.Errorf("french = %q", turn.Text)
	}
	if turn.Translation != "I am fine!" {
		t.Errorf("translation = %q", turn.Translation)
	}

	transcript := c.Transcript()
	if len(transcript) != 3 {
		t.Fatalf("transcript length = %d, want 3", len(transcript))
	}
	if transcript[1].Role != domain.RoleUser || transcript[1].Text != "ça va?" {
		t.Errorf("user turn = %+v", transcript[1])
	}
	if transcript[2].Pending {
		t.Error("assistant turn still pending after reply")
	}
}

func TestSendWithoutDelimiterLeavesTranslationEmpty(t *testing.T) {
	tutor := &fakeTutor{reply: "Ça va bien!"}
	c := NewController(tutor, nil, zap.NewNop())

	turn, err := c.Send(context.Background(), "ça va?")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if turn.Text != "Ça va bien!" || turn.Translation != "" {
		t.Errorf("turn = %+v", turn)
	}
}

func TestSendRejectsConcurrentTurns(t *testing.T) {
	block := make(chan struct{})
	tutor := &fakeTutor{reply: "Oui. ||| Yes.", block: block}
	c := NewController(tutor, nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Send(context.Background(), "première")
	}()

	// Wait for the pending turn to appear, then try a second send.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.Transcript()) == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := c.Send(context.Background(), "deuxième"); !stderrors.Is(err, ErrReplyPending) {
		t.Errorf("second send error = %v, want ErrReplyPending", err)
	}

	close(block)
	<-done
}

func TestSendErrorRemovesOnlyPendingTurn(t *testing.T) {
	tutor := &fakeTutor{err: stderrors.New("context canceled")}
	c := NewController(tutor, nil, zap.NewNop())

	if _, err := c.Send(context.Background(), "ça va?"); err == nil {
		t.Fatal("expected error")
	}

	transcript := c.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("transcript length = %d, want greeting + user turn", len(transcript))
	}
	if transcript[1].Role != domain.RoleUser || transcript[1].Text != "ça va?" {
		t.Errorf("user turn lost: %+v", transcript[1])
	}
	for _, turn := range transcript {
		if turn.Pending {
			t.Error("pending turn survived a failed send")
		}
	}

	// The conversation is usable again.
	tutor.err = nil
	tutor.reply = "Oui. ||| Yes."
	if _, err := c.Send(context.Background(), "encore?"); err != nil {
		t.Fatalf("send after failure: %v", err)
	}
}

func TestSendHistoryExcludesNewMessage(t *testing.T) {
	tutor := &fakeTutor{reply: "Oui. ||| Yes."}
	c := NewController(tutor, nil, zap.NewNop())

	if _, err := c.Send(context.Background(), "ça va?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// History for the first turn is just the greeting.
	if len(tutor.history) != 1 {
		t.Fatalf("history length = %d, want 1", len(tutor.history))
	}
	if tutor.history[0].Role != "assistant" {
		t.Errorf("history role = %q", tutor.history[0].Role)
	}
}

func TestSendSpeaksFrenchSegment(t *testing.T) {
	tutor := &fakeTutor{reply: "Ça va bien! ||| I am fine!"}
	speaker := &fakeSpeaker{}
	c := NewController(tutor, speaker, zap.NewNop())

	if _, err := c.Send(context.Background(), "ça va?"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		speaker.mu.Lock()
		n := len(speaker.spoken)
		speaker.mu.Unlock()
		if n == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if len(speaker.spoken) != 1 || speaker.spoken[0] != "Ça va bien!" {
		t.Errorf("spoken = %v, want the French segment only", speaker.spoken)
	}
}

func TestToggleTranslation(t *testing.T) {
	c := NewController(&fakeTutor{}, nil, zap.NewNop())

	c.ToggleTranslation(0)
	if !c.Transcript()[0].TranslationVisible {
		t.Error("translation not visible after toggle")
	}
	c.ToggleTranslation(0)
	if c.Transcript()[0].TranslationVisible {
		t.Error("translation still visible after second toggle")
	}

	// Out-of-range indexes are ignored.
	c.ToggleTranslation(-1)
	c.ToggleTranslation(5)
}

func TestSendRejectsBlankMessage(t *testing.T) {
	c := NewController(&fakeTutor{}, nil, zap.NewNop())
	if _, err := c.Send(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank message")
	}
	if len(c.Transcript()) != 1 {
		t.Error("blank message touched the transcript")
	}
}
