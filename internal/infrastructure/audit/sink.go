// Package audit emits security-relevant events. Emission is fire-and-forget:
// audit trouble is logged, never surfaced to the operation that caused the
// event.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
	"github.com/nats-io/nats.go"
)

// NATSSink publishes audit events as JSON onto a dedicated subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewNATSSink(url, subject string, logger *slog.Logger) (*NATSSink, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("taxdoc-vault-audit"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		return nil, err
	}
	return &NATSSink{conn: conn, subject: subject, logger: logger}, nil
}

func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *NATSSink) Emit(ctx context.Context, event ports.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.ErrorContext(ctx, "audit event marshal failed", "action", event.Action, "error", err)
		return
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		s.logger.ErrorContext(ctx, "audit event publish failed", "action", event.Action, "error", err)
	}
}

// LogSink writes audit events to the structured log. Used when no message
// broker is configured, keeping the trail visible in log aggregation.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(ctx context.Context, event ports.AuditEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	s.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"owner_id", event.OwnerID,
		"document_id", event.DocumentID,
		"severity", event.Severity,
		"details", event.Details,
		"occurred_at", event.OccurredAt.Format(time.RFC3339Nano),
	)
}
