// Package observability provides structured logging and the audit trail for
// studentauth.
//
// Every registration, login, logout and form validation emits exactly one
// EventLogEntry: request_id, action, subject, outcome, and the rejected field
// and message when the request was turned down.
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Actions recorded in the audit trail.
const (
	ActionRegister = "register"
	ActionLogin    = "login"
	ActionLogout   = "logout"
	ActionValidate = "validate"
	ActionSeed     = "seed"
)

// Outcomes recorded in the audit trail.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// NewLogger builds the process logger. Format "console" selects a
// human-readable development encoder; anything else logs JSON.
func NewLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("observability: invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if strings.EqualFold(format, "console") {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// EventLogEntry contains all required fields for an audit event.
type EventLogEntry struct {
	// RequestID is the unique identifier for this request.
	RequestID string

	// Action is one of the Action* constants.
	Action string

	// Subject identifies who the event is about, usually an email.
	// May be empty for anonymous form validation.
	Subject string

	// Outcome is one of the Outcome* constants.
	Outcome string

	// Field is the rejected form field, if any.
	Field string

	// Error is the user-facing rejection or failure message.
	Error string

	// Duration is how long the request took. Must be non-negative.
	Duration time.Duration
}

// Validate checks that all required fields are present.
func (e *EventLogEntry) Validate() error {
	if e.RequestID == "" {
		return fmt.Errorf("observability: request_id is required")
	}
	if e.Action == "" {
		return fmt.Errorf("observability: action is required")
	}
	switch e.Outcome {
	case OutcomeAccepted, OutcomeRejected, OutcomeError:
	default:
		return fmt.Errorf("observability: unknown outcome %q", e.Outcome)
	}
	if e.Duration < 0 {
		return fmt.Errorf("observability: duration cannot be negative")
	}
	return nil
}

// EventLogger records audit events.
type EventLogger interface {
	// LogEvent records an audit event.
	// Returns an error if logging fails or the entry is invalid.
	LogEvent(ctx context.Context, entry EventLogEntry) error

	// GetAuditSummary returns aggregated audit statistics.
	GetAuditSummary(ctx context.Context) (*AuditSummary, error)
}

// AuditSummary represents aggregated audit statistics. It carries counts
// and messages only, never personal data.
type AuditSummary struct {
	AcceptedCount       int                   `json:"accepted_count"`
	RejectedCount       int                   `json:"rejected_count"`
	ErrorCount          int                   `json:"error_count"`
	TopRejectionReasons []RejectionReasonStat `json:"top_rejection_reasons"`
}

// RejectionReasonStat represents rejection reason statistics.
type RejectionReasonStat struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// String returns a human-readable summary without personal data.
func (s *AuditSummary) String() string {
	var sb strings.Builder
	sb.WriteString("Audit Summary:\n")
	sb.WriteString(fmt.Sprintf("  Accepted: %d\n", s.AcceptedCount))
	sb.WriteString(fmt.Sprintf("  Rejected: %d\n", s.RejectedCount))
	sb.WriteString(fmt.Sprintf("  Errors:   %d\n", s.ErrorCount))

	if len(s.TopRejectionReasons) > 0 {
		sb.WriteString("Top Rejection Reasons:\n")
		for _, r := range s.TopRejectionReasons {
			sb.WriteString(fmt.Sprintf("  - %s: %d\n", r.Reason, r.Count))
		}
	}
	return sb.String()
}

// topReasons is how many rejection reasons a summary reports.
const topReasons = 5

func emptySummary() *AuditSummary {
	return &AuditSummary{TopRejectionReasons: []RejectionReasonStat{}}
}

// ZapEventLogger implements EventLogger on top of a zap logger and keeps
// entries in memory for the audit summary.
type ZapEventLogger struct {
	log     *zap.Logger
	mu      sync.RWMutex
	entries []EventLogEntry
}

// NewZapEventLogger creates a new audit logger writing through log.
func NewZapEventLogger(log *zap.Logger) *ZapEventLogger {
	return &ZapEventLogger{
		log:     log.Named("audit"),
		entries: make([]EventLogEntry, 0),
	}
}

// LogEvent writes the event as a structured log line.
func (l *ZapEventLogger) LogEvent(ctx context.Context, entry EventLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("request_id", entry.RequestID),
		zap.String("action", entry.Action),
		zap.String("outcome", entry.Outcome),
		zap.Int64("duration_ms", entry.Duration.Milliseconds()),
	}
	if entry.Subject != "" {
		fields = append(fields, zap.String("subject", entry.Subject))
	}
	if entry.Field != "" {
		fields = append(fields, zap.String("field", entry.Field))
	}
	if entry.Error != "" {
		fields = append(fields, zap.String("error", entry.Error))
	}

	switch entry.Outcome {
	case OutcomeError:
		l.log.Error("audit event", fields...)
	case OutcomeRejected:
		l.log.Warn("audit event", fields...)
	default:
		l.log.Info("audit event", fields...)
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// GetAuditSummary aggregates the events recorded so far.
func (l *ZapEventLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := emptySummary()
	reasons := make(map[string]int)
	for _, entry := range l.entries {
		switch entry.Outcome {
		case OutcomeAccepted:
			summary.AcceptedCount++
		case OutcomeRejected:
			summary.RejectedCount++
			reasons[entry.Error]++
		case OutcomeError:
			summary.ErrorCount++
		}
	}

	for reason, count := range reasons {
		summary.TopRejectionReasons = append(summary.TopRejectionReasons, RejectionReasonStat{
			Reason: reason,
			Count:  count,
		})
	}
	sort.Slice(summary.TopRejectionReasons, func(i, j int) bool {
		a, b := summary.TopRejectionReasons[i], summary.TopRejectionReasons[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Reason < b.Reason
	})
	if len(summary.TopRejectionReasons) > topReasons {
		summary.TopRejectionReasons = summary.TopRejectionReasons[:topReasons]
	}
	return summary, nil
}

// NoopEventLogger discards all events.
type NoopEventLogger struct{}

// NewNoopEventLogger creates a new no-op logger.
func NewNoopEventLogger() *NoopEventLogger {
	return &NoopEventLogger{}
}

// LogEvent does nothing and always succeeds.
func (l *NoopEventLogger) LogEvent(ctx context.Context, entry EventLogEntry) error {
	return nil
}

// GetAuditSummary returns an empty summary.
func (l *NoopEventLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	return emptySummary(), nil
}

// PersistentEventLogger implements EventLogger with the audit_logs table.
type PersistentEventLogger struct {
	db     *sql.DB
	rebind func(string) string
	log    *zap.Logger
}

// NewPersistentEventLogger creates a logger that persists audit entries.
// rebind converts '?' placeholders to the driver's syntax; log may be nil.
func NewPersistentEventLogger(db *sql.DB, rebind func(string) string, log *zap.Logger) (*PersistentEventLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	if rebind == nil {
		rebind = func(q string) string { return q }
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &PersistentEventLogger{db: db, rebind: rebind, log: log.Named("audit")}, nil
}

// LogEvent persists the event.
func (l *PersistentEventLogger) LogEvent(ctx context.Context, entry EventLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}

	_, err := l.db.ExecContext(ctx, l.rebind(`
		INSERT INTO audit_logs (
			request_id, action, subject, outcome, field, error_message, duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		entry.RequestID,
		entry.Action,
		nullableString(entry.Subject),
		entry.Outcome,
		nullableString(entry.Field),
		nullableString(entry.Error),
		entry.Duration.Milliseconds(),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("observability: failed to persist audit log: %w", err)
	}

	l.log.Debug("audit event persisted",
		zap.String("request_id", entry.RequestID),
		zap.String("action", entry.Action),
		zap.String("outcome", entry.Outcome),
	)
	return nil
}

// GetAuditSummary aggregates persisted events.
func (l *PersistentEventLogger) GetAuditSummary(ctx context.Context) (*AuditSummary, error) {
	summary := emptySummary()

	rows, err := l.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM audit_logs GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to count outcomes: %w", err)
	}
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("observability: failed to scan outcome: %w", err)
		}
		switch outcome {
		case OutcomeAccepted:
			summary.AcceptedCount = count
		case OutcomeRejected:
			summary.RejectedCount = count
		case OutcomeError:
			summary.ErrorCount = count
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("observability: error iterating outcomes: %w", err)
	}

	rows, err = l.db.QueryContext(ctx, l.rebind(`
		SELECT error_message, COUNT(*) AS cnt
		FROM audit_logs
		WHERE outcome = ? AND error_message IS NOT NULL
		GROUP BY error_message
		ORDER BY cnt DESC, error_message ASC
		LIMIT ?`), OutcomeRejected, topReasons)
	if err != nil {
		return nil, fmt.Errorf("observability: failed to rank rejection reasons: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stat RejectionReasonStat
		if err := rows.Scan(&stat.Reason, &stat.Count); err != nil {
			return nil, fmt.Errorf("observability: failed to scan rejection reason: %w", err)
		}
		summary.TopRejectionReasons = append(summary.TopRejectionReasons, stat)
	}
	return summary, rows.Err()
}

// nullableString converts empty strings to nil for SQL NULL.
func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
