package adapter

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	natsMaxReconnects = 10
	natsReconnectWait = 2 * time.Second
)

// ConnectNATS dials NATS with the reconnect handlers used across the
// project.
func ConnectNATS(natsURL string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(natsMaxReconnects),
		nats.ReconnectWait(natsReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSNotifier fans room and pick change notifications out over NATS
// subjects, so every engine instance watching a room re-syncs when any
// instance writes.
type NATSNotifier struct {
	nc *nats.Conn
}

// NewNATSNotifier wraps an existing connection.
func NewNATSNotifier(nc *nats.Conn) *NATSNotifier {
	return &NATSNotifier{nc: nc}
}

func roomSubject(roomID uuid.UUID) string  { return "draft.room." + roomID.String() }
func picksSubject(roomID uuid.UUID) string { return "draft.picks." + roomID.String() }

// PublishRoomChanged implements Notifier.
func (n *NATSNotifier) PublishRoomChanged(roomID uuid.UUID) error {
	if err := n.nc.Publish(roomSubject(roomID), nil); err != nil {
		return fmt.Errorf("failed to publish room change: %w", err)
	}
	return nil
}

// PublishPicksChanged implements Notifier.
func (n *NATSNotifier) PublishPicksChanged(roomID uuid.UUID) error {
	if err := n.nc.Publish(picksSubject(roomID), nil); err != nil {
		return fmt.Errorf("failed to publish pick change: %w", err)
	}
	return nil
}

// SubscribeRoomChanged implements Notifier.
func (n *NATSNotifier) SubscribeRoomChanged(roomID uuid.UUID, fn func()) (Unsubscribe, error) {
	return n.subscribe(roomSubject(roomID), fn)
}

// SubscribePicksChanged implements Notifier.
func (n *NATSNotifier) SubscribePicksChanged(roomID uuid.UUID, fn func()) (Unsubscribe, error) {
	return n.subscribe(picksSubject(roomID), fn)
}

func (n *NATSNotifier) subscribe(subject string, fn func()) (Unsubscribe, error) {
	sub, err := n.nc.Subscribe(subject, func(*nats.Msg) { fn() })
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := sub.Unsubscribe(); err != nil {
				log.Warn().Err(err).Str("subject", subject).Msg("failed to unsubscribe")
			}
		})
	}, nil
}

var _ Notifier = (*NATSNotifier)(nil)
