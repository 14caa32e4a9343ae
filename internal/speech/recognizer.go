package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
	"github.com/kapu/french-memo-go/pkg/errors"
)

// RecognizerConfig mirrors the speech section of the app config.
type RecognizerConfig struct {
	Endpoint string
	Language string
}

// Recognizer performs one-shot speech recognition. Sessions are mutually
// exclusive; a second Listen while one runs fails instead of queueing.
type Recognizer struct {
	config RecognizerConfig
	client *http.Client
	logger *zap.Logger
	active atomic.Bool
}

func NewRecognizer(config RecognizerConfig, logger *zap.Logger) *Recognizer {
	return &Recognizer{
		config: config,
		client: &http.Client{Timeout: constants.SpeechConfig.RecognitionTimeout},
		logger: logger,
	}
}

// Available reports whether an STT endpoint is configured.
func (r *Recognizer) Available() bool {
	return r.config.Endpoint != ""
}

// Listen runs one recognition session and returns the transcript. The
// session ends on the service's first result; there is no continuous mode.
func (r *Recognizer) Listen(ctx context.Context) (string, error) {
	if !r.Available() {
		return "", errors.NewCapabilityError("speech recognition is not configured", "stt")
	}
	if !r.active.CompareAndSwap(false, true) {
		return "", errors.NewCapabilityError("a recognition session is already running", "stt")
	}
	defer r.active.Store(false)

	body, err := json.Marshal(map[string]any{
		"language": r.config.Language,
	})
	if err != nil {
		return "", errors.NewGatewayError("failed to encode recognition request", "stt", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.NewGatewayError("failed to build stt request", "stt", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.NewGatewayError("stt request failed", "stt", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.NewGatewayError(
			fmt.Sprintf("stt service returned status %d", resp.StatusCode), "stt", nil)
	}

	var result struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.NewMalformedResponseError("unreadable stt response", "stt", err)
	}

	transcript := strings.TrimSpace(result.Transcript)
	r.logger.Debug("Recognition finished",
		zap.String("language", r.config.Language),
		zap.Int("length", len(transcript)),
	)
	return transcript, nil
}
