package security

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// AuditLevel selects which statements are audited.
type AuditLevel int

const (
	// AuditNone disables auditing.
	AuditNone AuditLevel = iota
	// AuditWrites audits UPDATE, DELETE and batches.
	AuditWrites
	// AuditAll audits reads as well.
	AuditAll
)

// AuditEvent is one audited statement.
type AuditEvent struct {
	Operation    string
	Table        string
	SQL          string
	ParamsHash   string
	RowsAffected int64
	Duration     time.Duration
	Err          error
}

// Auditor writes an audit trail of executed statements to a dedicated
// slog logger. Bound values are hashed, never logged.
type Auditor struct {
	logger *slog.Logger
	level  AuditLevel
}

// NewAuditor creates an auditor. A nil logger disables it.
func NewAuditor(logger *slog.Logger, level AuditLevel) *Auditor {
	return &Auditor{logger: logger, level: level}
}

// Record audits ev when the level covers its operation. The user and
// request id are taken from ctx.
func (a *Auditor) Record(ctx context.Context, ev AuditEvent) {
	if !a.covers(ev.Operation) {
		return
	}
	args := []any{
		"operation", ev.Operation,
		"table", ev.Table,
		"sql", ev.SQL,
		"params_hash", ev.ParamsHash,
		"rows", ev.RowsAffected,
		"duration_ms", ev.Duration.Milliseconds(),
		"user", UserFrom(ctx),
		"request_id", RequestIDFrom(ctx),
	}
	if ev.Err != nil {
		a.logger.Warn("audit_event", append(args, "success", false, "error", ev.Err.Error())...)
		return
	}
	a.logger.Info("audit_event", append(args, "success", true)...)
}

// Blocked audits raw SQL rejected by a Validator. It is logged at every
// level except AuditNone.
func (a *Auditor) Blocked(ctx context.Context, query string, err error) {
	if a.logger == nil || a.level == AuditNone {
		return
	}
	a.logger.Warn("security_event",
		"event_type", "query_blocked",
		"sql", query,
		"error", err.Error(),
		"user", UserFrom(ctx),
		"request_id", RequestIDFrom(ctx),
	)
}

func (a *Auditor) covers(operation string) bool {
	if a.logger == nil {
		return false
	}
	switch a.level {
	case AuditWrites:
		switch operation {
		case "INSERT", "UPDATE", "DELETE", "BATCH":
			return true
		}
		return false
	case AuditAll:
		return true
	}
	return false
}

// HashArgs returns the hex SHA-256 of the bound values in order, or ""
// when there are none.
func HashArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	h := sha256.New()
	for _, arg := range args {
		_, _ = fmt.Fprintf(h, "%v\x00", arg)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contextKey string

const (
	userKey      contextKey = "querykit:user"
	requestIDKey contextKey = "querykit:request_id"
)

// WithUser attaches the acting user to ctx for auditing.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithRequestID attaches a request id to ctx for auditing.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// UserFrom returns the user set by WithUser.
func UserFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey).(string)
	return user
}

// RequestIDFrom returns the request id set by WithRequestID.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
