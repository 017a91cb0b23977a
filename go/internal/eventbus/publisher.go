// Package eventbus publishes connection state changes to NATS for
// companion tools. Publishing is best effort and never affects the session.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/MaxIvlevich/labyrinth-game/go/internal/realtime"
)

// StateChange is one connection state transition.
type StateChange struct {
	EventID   uuid.UUID `json:"eventId"`
	SubjectID string    `json:"subjectId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	At        time.Time `json:"at"`
}

// Publisher delivers state changes.
type Publisher interface {
	PublishStateChange(ctx context.Context, change StateChange) error
	Close() error
}

// Config holds configuration for the NATS publisher.
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConfig returns default NATS publisher configuration.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "labyrinth.client",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

type msgConn interface {
	PublishMsg(m *nats.Msg) error
	Close()
}

// NATSPublisher publishes state changes as core NATS messages on
// <prefix>.<subject id>.state.
type NATSPublisher struct {
	nc     msgConn
	config Config
}

// NewNATSPublisher connects to NATS.
func NewNATSPublisher(cfg Config) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("labyrinth-client"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
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

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATSPublisher(nc, cfg), nil
}

func newNATSPublisher(nc msgConn, cfg Config) *NATSPublisher {
	return &NATSPublisher{nc: nc, config: cfg}
}

// Subject returns the subject state changes for subjectID are published on.
func (p *NATSPublisher) Subject(subjectID string) string {
	return fmt.Sprintf("%s.%s.state", p.config.SubjectPrefix, subjectToken(subjectID))
}

func (p *NATSPublisher) PublishStateChange(ctx context.Context, change StateChange) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal state change: %w", err)
	}

	subject := p.Subject(change.SubjectID)
	err = p.nc.PublishMsg(&nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-ID":   []string{change.EventID.String()},
			"Subject-ID": []string{change.SubjectID},
			"State":      []string{change.To},
		},
	})
	if err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", change.EventID.String()).
		Msg("published state change")
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}

// subjectToken makes id usable as a single NATS subject token.
func subjectToken(id string) string {
	if id == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, id)
}

// NoopPublisher drops every change. It is used when no NATS URL is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishStateChange(context.Context, StateChange) error { return nil }
func (NoopPublisher) Close() error                                        { return nil }

// Reporter turns connection manager transitions into published state changes.
type Reporter struct {
	pub     Publisher
	subject func() string
	clock   clockwork.Clock
	timeout time.Duration
}

// NewReporter creates a Reporter. subject returns the player id to tag
// changes with at the time of the transition.
func NewReporter(pub Publisher, subject func() string, clock clockwork.Clock) *Reporter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Reporter{pub: pub, subject: subject, clock: clock, timeout: 2 * time.Second}
}

// Observe has the signature of a realtime transition observer.
func (r *Reporter) Observe(from, to realtime.State) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	change := StateChange{
		EventID:   uuid.New(),
		SubjectID: r.subject(),
		From:      from.String(),
		To:        to.String(),
		At:        r.clock.Now().UTC(),
	}
	if err := r.pub.PublishStateChange(ctx, change); err != nil {
		log.Warn().Err(err).Str("to", change.To).Msg("failed to publish state change")
	}
}
