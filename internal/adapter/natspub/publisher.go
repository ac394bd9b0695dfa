// Package natspub fans animation ticks out to a NATS subject so other
// processes can follow the hour cursor.
package natspub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/couchcryptid/fire-hotspot-service/internal/animator"
	"github.com/couchcryptid/fire-hotspot-service/internal/domain"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
	IsConnected() bool
}

// TickSource is satisfied by *animator.Animator.
type TickSource interface {
	Subscribe(fn animator.Observer) (unsubscribe func())
}

// HourMessage is the payload published on every tick.
type HourMessage struct {
	Hour int       `json:"hour"`
	At   time.Time `json:"at"`
}

// Publisher writes each tick to a subject.
type Publisher struct {
	conn    Conn
	subject string
	logger  *slog.Logger
	now     func() time.Time
}

// Connect dials NATS with reconnect handling that logs through logger.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("fire-map"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// NewPublisher creates a publisher for subject.
func NewPublisher(conn Conn, subject string, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, subject: subject, logger: logger, now: time.Now}
}

// Attach publishes every tick of src until the returned func is called.
func (p *Publisher) Attach(src TickSource) (detach func()) {
	return src.Subscribe(func(hour int) {
		if err := p.PublishHour(hour); err != nil {
			p.logger.Warn("publish animation tick failed", "subject", p.subject, "hour", hour, "error", err)
		}
	})
}

// PublishHour sends one tick. Publishing is buffered by the NATS client, so
// this does not wait on the network.
func (p *Publisher) PublishHour(hour int) error {
	if err := domain.ValidateHour(hour); err != nil {
		return err
	}
	data, err := json.Marshal(HourMessage{Hour: hour, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	return p.conn.Publish(p.subject, data)
}

// CheckReadiness fails while the connection is down.
func (p *Publisher) CheckReadiness(_ context.Context) error {
	if !p.conn.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}
