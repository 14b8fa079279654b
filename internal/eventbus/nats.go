// Package eventbus publishes mission events to NATS so other services can
// follow missions without holding the originating stream.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/salekh/genseo-workshop/internal/mission"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "genseo.mission"

// Publisher is the part of *nats.Conn the sink needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Connect dials the NATS server at url.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("genseo"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

// Sink publishes every mission event as JSON on
// {prefix}.{mission_id}.{event_type}.
type Sink struct {
	pub    Publisher
	prefix string
}

// NewSink returns a Sink publishing through pub.
func NewSink(pub Publisher, prefix string) *Sink {
	prefix = strings.Trim(prefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Sink{pub: pub, prefix: prefix}
}

// Subject returns the subject an event of missionID is published on.
func (s *Sink) Subject(missionID string, typ mission.EventType) string {
	return s.prefix + "." + token(missionID) + "." + token(string(typ))
}

// Publish implements mission.Sink.
func (s *Sink) Publish(_ context.Context, missionID string, ev mission.Event) error {
	if ev.MissionID == "" {
		ev.MissionID = missionID
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	subject := s.Subject(missionID, ev.Type)
	if err := s.pub.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// token makes s safe to use as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
