package server

import (
	stderrors "errors"
	"math/rand/v2"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/chat"
	"github.com/kapu/french-memo-go/internal/domain"
	"github.com/kapu/french-memo-go/pkg/errors"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"speech": gin.H{
			"tts": s.synthesizer.Available(),
			"stt": s.recognizer.Available(),
		},
	})
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	record, err := s.lookup.LookupWord(c.Request.Context(), req.Query)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"word":       record,
		"isFavorite": s.favorites.IsFavoriteWord(record.CanonicalKey()),
	})
}

// handleDiscovery serves a random word from the discovery pool, the same
// pool the warm-up pass resolves at startup.
func (s *Server) handleDiscovery(c *gin.Context) {
	if len(s.config.DiscoveryWords) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no discovery words configured"})
		return
	}

	word := s.config.DiscoveryWords[rand.IntN(len(s.config.DiscoveryWords))]
	record, err := s.lookup.LookupWord(c.Request.Context(), word)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"word":       record,
		"isFavorite": s.favorites.IsFavoriteWord(record.CanonicalKey()),
	})
}

func (s *Server) handleAlbum(c *gin.Context) {
	category := c.Param("category")

	record, err := s.lookup.ListAlbum(c.Request.Context(), category)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"album":      record,
		"isFavorite": s.favorites.IsFavoriteAlbum(record.Category),
	})
}

func (s *Server) handleChatTranscript(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transcript": s.chat.Transcript()})
}

type chatSendRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChatSend(c *gin.Context) {
	var req chatSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	turn, err := s.chat.Send(c.Request.Context(), req.Message)
	if err != nil {
		if stderrors.Is(err, chat.ErrReplyPending) {
			c.JSON(http.StatusConflict, gin.H{"error": "a reply is already pending"})
			return
		}
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reply":      turn,
		"transcript": s.chat.Transcript(),
	})
}

func (s *Server) handleChatToggleTranslation(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}

	s.chat.ToggleTranslation(index)
	c.JSON(http.StatusOK, gin.H{"transcript": s.chat.Transcript()})
}

func (s *Server) handleFavoriteWords(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"words": s.favorites.Words()})
}

func (s *Server) handleFavoriteAlbums(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"albums": s.favorites.Albums()})
}

// Toggle endpoints answer 202: the write is fire-and-forget and the
// result arrives through the projection feed, never the response body.
func (s *Server) handleToggleFavoriteWord(c *gin.Context) {
	var record domain.WordRecord
	if err := c.ShouldBindJSON(&record); err != nil || !record.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a complete word card is required"})
		return
	}

	s.favorites.ToggleWord(c.Request.Context(), &record)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (s *Server) handleToggleFavoriteAlbum(c *gin.Context) {
	var record domain.AlbumRecord
	if err := c.ShouldBindJSON(&record); err != nil || !record.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a complete album is required"})
		return
	}

	s.favorites.ToggleAlbum(c.Request.Context(), &record)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type speakRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) handleSpeak(c *gin.Context) {
	var req speakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	if err := s.synthesizer.Speak(c.Request.Context(), req.Text); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "speaking"})
}

func (s *Server) handleStopSpeaking(c *gin.Context) {
	s.synthesizer.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleListen(c *gin.Context) {
	transcript, err := s.recognizer.Listen(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transcript": transcript})
}

// respondError maps the error taxonomy onto HTTP statuses via the status
// carried on AppError; anything untyped is a 500.
func (s *Server) respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		s.logger.Warn("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", appErr.Code),
			zap.Error(err),
		)
		c.JSON(appErr.StatusCode, gin.H{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}

	s.logger.Error("Request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
