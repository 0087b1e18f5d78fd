package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Session audit actions.
const (
	AuditSignIn            = "session.signin"
	AuditSignOut           = "session.signout"
	AuditProbe             = "session.probe"
	AuditReconcileComplete = "reconcile.complete"
	AuditReconcilePartial  = "reconcile.partial"
)

// AuditEntry records a session transition or reconciliation outcome in
// session_audit_logs.
type AuditEntry struct {
	SessionID string
	ActorID   int64
	Action    string
	Meta      map[string]any
	At        time.Time
}

// AuditLogger writes entries into session_audit_logs. A nil logger discards
// entries so callers never need to branch.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the entry.
func (l *AuditLogger) Record(ctx context.Context, entry AuditEntry) error {
	if l == nil || l.pool == nil {
		return nil
	}
	if entry.Action == "" || entry.SessionID == "" {
		return errors.New("audit entry requires action and session id")
	}
	metaJSON, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	var at any
	if !entry.At.IsZero() {
		at = entry.At
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO session_audit_logs (session_id, actor_id, action, meta, occurred_at) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`, entry.SessionID, entry.ActorID, entry.Action, metaJSON, at)
	return err
}
