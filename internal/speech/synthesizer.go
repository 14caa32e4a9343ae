// Package speech fronts the external text-to-speech and speech-to-text
// services. Both are optional capabilities: when an endpoint is not
// configured the operations fail with a capability error instead of a
// transport error, so callers can tell "unavailable" from "broken".
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/pkg/errors"
)

// SynthesizerConfig mirrors the speech section of the app config.
type SynthesizerConfig struct {
	Endpoint string
	Language string
	Rate     float64
}

// Synthesizer voices French text through the TTS service. At most one
// utterance is in flight; starting a new one cancels the current.
type Synthesizer struct {
	config SynthesizerConfig
	client *http.Client
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

func NewSynthesizer(config SynthesizerConfig, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		config: config,
		client: &http.Client{Timeout: constants.SpeechConfig.RequestTimeout},
		logger: logger,
	}
}

// Available reports whether a TTS endpoint is configured.
func (s *Synthesizer) Available() bool {
	return s.config.Endpoint != ""
}

// Speak sends one utterance to the TTS service. Any utterance still in
// flight is cancelled first.
func (s *Synthesizer) Speak(ctx context.Context, text string) error {
	if !s.Available() {
		return errors.NewCapabilityError("speech synthesis is not configured", "tts")
	}
	if text == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	// Release only our own slot; a newer utterance may have taken over.
	defer func() {
		cancel()
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"language": s.config.Language,
		"rate":     s.config.Rate,
	})
	if err != nil {
		return errors.NewGatewayError("failed to encode utterance", "tts", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.NewGatewayError("failed to build tts request", "tts", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			s.logger.Debug("Utterance cancelled", zap.String("text", text))
			return nil
		}
		return errors.NewGatewayError("tts request failed", "tts", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return errors.NewGatewayError(
			fmt.Sprintf("tts service returned status %d", resp.StatusCode), "tts", nil)
	}

	s.logger.Debug("Utterance spoken",
		zap.String("language", s.config.Language),
		zap.Int("length", len(text)),
	)
	return nil
}

// Stop cancels the in-flight utterance, if any.
func (s *Synthesizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
