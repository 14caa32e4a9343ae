package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

const (
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// favoritesSnapshot is one push frame: the whole projection, words and
// albums together. Clients replace their state wholesale on every frame.
type favoritesSnapshot struct {
	Words  any `json:"words"`
	Albums any `json:"albums"`
}

// handleFavoritesFeed streams projection snapshots. A frame goes out on
// connect and after every change; intermediate states may coalesce when
// the client is slow, which is fine because frames are absolute.
func (s *Server) handleFavoritesFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Buffered to one pending signal: consecutive changes collapse into
	// a single resend of the latest snapshot.
	changed := make(chan struct{}, 1)
	signal := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	unsubscribe := s.favorites.Subscribe(signal)
	defer unsubscribe()

	// Drain reads so close frames and pongs are processed.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(favoritesSnapshot{
			Words:  s.favorites.Words(),
			Albums: s.favorites.Albums(),
		})
	}

	if err := send(); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-readerDone:
			return
		case <-c.Request.Context().Done():
			return
		case <-changed:
			if err := send(); err != nil {
				s.logger.Debug("Favorites feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
