// Package family forwards missed-eyedrop escalations to the user and the family
// members they registered, and receives messages addressed to the user.
package family

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/eyedrop-checker/internal/logger"
)

// KindEscalation marks a message sent because no eyedrop motion was seen in time.
const KindEscalation = "eyedrop-escalation"

// GetLogger returns the family module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("family")
}

// Envelope is one message as it travels between members.
type Envelope struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEnvelope stamps a message from sender to recipient.
func NewEnvelope(from, to, kind, message string) Envelope {
	return Envelope{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Handler receives envelopes addressed to a subscribed address.
type Handler func(Envelope)

// Messenger sends a message to a set of addresses.
type Messenger interface {
	Send(ctx context.Context, recipients []string, message, kind string) error
}

// Subscriber delivers messages addressed to one address.
type Subscriber interface {
	Subscribe(ctx context.Context, address string, handler Handler) error
}

// LogMessenger is the in-process messenger used when no broker is configured.
// It logs and records each envelope and hands it to any local subscriber of the
// recipient address.
type LogMessenger struct {
	from string

	mu       sync.Mutex
	sent     []Envelope
	handlers map[string][]Handler
}

// NewLogMessenger creates a messenger that signs envelopes with from.
func NewLogMessenger(from string) *LogMessenger {
	return &LogMessenger{from: from, handlers: make(map[string][]Handler)}
}

func (m *LogMessenger) Send(ctx context.Context, recipients []string, message, kind string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := GetLogger()
	for _, to := range recipients {
		env := NewEnvelope(m.from, to, kind, message)
		log.Info("family message",
			logger.String("id", env.ID),
			logger.String("to", to),
			logger.String("kind", kind),
			logger.String("message", message))

		m.mu.Lock()
		m.sent = append(m.sent, env)
		handlers := slices.Clone(m.handlers[to])
		m.mu.Unlock()

		for _, h := range handlers {
			h(env)
		}
	}
	return nil
}

// Subscribe registers handler for address until ctx is done.
func (m *LogMessenger) Subscribe(ctx context.Context, address string, handler Handler) error {
	m.mu.Lock()
	m.handlers[address] = append(m.handlers[address], handler)
	idx := len(m.handlers[address]) - 1
	m.mu.Unlock()

	context.AfterFunc(ctx, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		hs := m.handlers[address]
		if idx < len(hs) {
			hs[idx] = func(Envelope) {}
		}
	})
	return nil
}

// Sent returns the envelopes sent so far.
func (m *LogMessenger) Sent() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sent)
}
