package identity

import (
	"sync"
	"testing"

	"go.uber.org/zap"
)

func TestUserIDIsStableForProcess(t *testing.T) {
	p := NewProvider("french-memo-app", zap.NewNop())

	first := p.UserID()
	if first == "" {
		t.Fatal("empty user id")
	}
	if p.UserID() != first {
		t.Error("user id changed between calls")
	}
}

func TestUserIDIsStableUnderConcurrency(t *testing.T) {
	p := NewProvider("french-memo-app", zap.NewNop())

	ids := make([]string, 16)
	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids[i] = p.UserID()
		}()
	}
	wg.Wait()

	for i := 1; i < len(ids); i++ {
		if ids[i] != ids[0] {
			t.Fatalf("ids diverged: %q vs %q", ids[i], ids[0])
		}
	}
}

func TestProvidersAreIndependent(t *testing.T) {
	a := NewProvider("app-a", zap.NewNop())
	b := NewProvider("app-b", zap.NewNop())

	if a.UserID() == b.UserID() {
		t.Error("two providers minted the same id")
	}
}
