package ws

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts relay activity. A nil *Metrics is valid and counts
// nothing, which keeps tests free of meter setup.
type Metrics struct {
	sessionsStarted    metric.Int64Counter
	sessionsTerminated metric.Int64Counter
	messagesRelayed    metric.Int64Counter
	broadcastsDropped  metric.Int64Counter
}

// NewMetrics registers the relay counters on the global meter provider
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("chat-relay")

	sessionsStarted, err := meter.Int64Counter("chat_sessions_started_total",
		metric.WithDescription("Chat sessions opened by a user's first message"))
	if err != nil {
		return nil, err
	}

	sessionsTerminated, err := meter.Int64Counter("chat_sessions_terminated_total",
		metric.WithDescription("Chat sessions marked terminated"))
	if err != nil {
		return nil, err
	}

	messagesRelayed, err := meter.Int64Counter("chat_messages_relayed_total",
		metric.WithDescription("Messages persisted and fanned out to a session room"))
	if err != nil {
		return nil, err
	}

	broadcastsDropped, err := meter.Int64Counter("chat_broadcasts_dropped_total",
		metric.WithDescription("Broadcasts skipped because a client's send buffer was full"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		sessionsStarted:    sessionsStarted,
		sessionsTerminated: sessionsTerminated,
		messagesRelayed:    messagesRelayed,
		broadcastsDropped:  broadcastsDropped,
	}, nil
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Add(context.Background(), 1)
}

func (m *Metrics) SessionTerminated() {
	if m == nil {
		return
	}
	m.sessionsTerminated.Add(context.Background(), 1)
}

func (m *Metrics) MessageRelayed() {
	if m == nil {
		return
	}
	m.messagesRelayed.Add(context.Background(), 1)
}

func (m *Metrics) BroadcastDropped() {
	if m == nil {
		return
	}
	m.broadcastsDropped.Add(context.Background(), 1)
}
