package store

import (
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/french-memo-go/internal/constants"
)

// ChangeEvent is one LISTEN/NOTIFY delivery. Payload carries the user id
// whose favorites changed.
type ChangeEvent struct {
	Channel string
	Payload string
}

// PGNotifier adapts pq.Listener to a plain event channel. Reconnects are
// pq's problem; the only thing surfaced here is the stream of events.
type PGNotifier struct {
	listener *pq.Listener
	events   chan ChangeEvent
	done     chan struct{}
	logger   *zap.Logger
}

func NewPGNotifier(connStr string, logger *zap.Logger) (*PGNotifier, error) {
	n := &PGNotifier{
		events: make(chan ChangeEvent, 16),
		done:   make(chan struct{}),
		logger: logger,
	}

	n.listener = pq.NewListener(
		connStr,
		constants.StoreConfig.ListenMinInterval,
		constants.StoreConfig.ListenMaxInterval,
		n.onListenerEvent,
	)

	for _, channel := range []string{
		constants.StoreConfig.WordsChannel,
		constants.StoreConfig.AlbumsChannel,
	} {
		if err := n.listener.Listen(channel); err != nil {
			n.listener.Close()
			return nil, err
		}
	}

	go n.pump()

	return n, nil
}

// Events is the stream the projection layer consumes.
func (n *PGNotifier) Events() <-chan ChangeEvent {
	return n.events
}

func (n *PGNotifier) Close() error {
	close(n.done)
	return n.listener.Close()
}

func (n *PGNotifier) pump() {
	defer close(n.events)
	for {
		select {
		case <-n.done:
			return
		case notification, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// A nil notification means the connection was re-established;
			// emit a synthetic event so the projection resyncs.
			if notification == nil {
				n.logger.Info("Listener reconnected, requesting resync")
				n.events <- ChangeEvent{Channel: constants.StoreConfig.WordsChannel}
				n.events <- ChangeEvent{Channel: constants.StoreConfig.AlbumsChannel}
				continue
			}
			n.events <- ChangeEvent{
				Channel: notification.Channel,
				Payload: notification.Extra,
			}
		}
	}
}

func (n *PGNotifier) onListenerEvent(event pq.ListenerEventType, err error) {
	switch event {
	case pq.ListenerEventConnected:
		n.logger.Info("Favorites listener connected")
	case pq.ListenerEventDisconnected:
		n.logger.Warn("Favorites listener disconnected", zap.Error(err))
	case pq.ListenerEventReconnected:
		n.logger.Info("Favorites listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		n.logger.Warn("Favorites listener connection attempt failed", zap.Error(err))
	}
}
