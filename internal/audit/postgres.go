package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS admin_audit_log (
    id          UUID PRIMARY KEY,
    action      TEXT NOT NULL,
    severity    TEXT NOT NULL,
    username    TEXT,
    session_id  TEXT,
    ip_address  INET,
    user_agent  TEXT,
    student_id  TEXT,
    details     JSONB,
    failed      BOOLEAN NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS admin_audit_log_created_at_idx ON admin_audit_log (created_at);
CREATE INDEX IF NOT EXISTS admin_audit_log_student_idx ON admin_audit_log (student_id);
`

const selectColumns = `id, action, severity, username, session_id, ip_address, user_agent, student_id, details, failed, created_at`

// PostgresRecorder stores entries in the admin_audit_log table.
type PostgresRecorder struct {
	db DBTX
}

// NewPostgresRecorder wraps a pool or transaction.
func NewPostgresRecorder(db DBTX) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

// Migrate creates the audit table and indexes if missing.
func (p *PostgresRecorder) Migrate(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit schema: %w", err)
	}
	return nil
}

func (p *PostgresRecorder) Record(ctx context.Context, params Params) (*Entry, error) {
	e := newEntry(uuid.NewString(), params, time.Now().UTC())

	var details []byte
	if e.Details != nil {
		var err error
		details, err = json.Marshal(e.Details)
		if err != nil {
			details = nil
		}
	}

	_, err := p.db.Exec(ctx,
		`INSERT INTO admin_audit_log (`+selectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		toPgUUID(e.ID), string(e.Action), string(e.Severity),
		toPgText(e.Username), toPgText(e.SessionID), toInet(e.IPAddress),
		toPgText(e.UserAgent), toPgText(e.StudentID), details, e.Failed,
		pgtype.Timestamptz{Time: e.CreatedAt, Valid: true},
	)
	if err != nil {
		return nil, fmt.Errorf("insert audit entry: %w", err)
	}
	return &e, nil
}

// buildListQuery renders the filtered SELECT and its arguments.
func buildListQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.Action != "" {
		args = append(args, string(f.Action))
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}
	if f.StudentID != "" {
		args = append(args, f.StudentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, pgtype.Timestamptz{Time: f.Since, Valid: true})
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)

	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM admin_audit_log")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY created_at DESC LIMIT $%d", len(args))
	return sb.String(), args
}

func (p *PostgresRecorder) List(ctx context.Context, f Filter) ([]Entry, error) {
	query, args := buildListQuery(f)
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (p *PostgresRecorder) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM admin_audit_log WHERE created_at < $1`,
		pgtype.Timestamptz{Time: olderThan, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("purge audit log: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanEntry(rows pgx.Rows) (*Entry, error) {
	var (
		id        pgtype.UUID
		action    string
		severity  string
		username  pgtype.Text
		sessionID pgtype.Text
		ipAddress *netip.Addr
		userAgent pgtype.Text
		studentID pgtype.Text
		details   []byte
		failed    bool
		createdAt pgtype.Timestamptz
	)
	err := rows.Scan(&id, &action, &severity, &username, &sessionID, &ipAddress,
		&userAgent, &studentID, &details, &failed, &createdAt)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:        uuidToString(id),
		Action:    Action(action),
		Severity:  Severity(severity),
		Username:  username.String,
		SessionID: sessionID.String,
		UserAgent: userAgent.String,
		StudentID: studentID.String,
		Failed:    failed,
		CreatedAt: createdAt.Time,
	}
	if ipAddress != nil {
		e.IPAddress = ipAddress.String()
	}
	if details != nil {
		_ = json.Unmarshal(details, &e.Details)
	}
	return e, nil
}

func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgUUID(s string) pgtype.UUID {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

func uuidToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

// toInet returns nil for empty or unparsable addresses so the column is NULL.
func toInet(s string) *netip.Addr {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return nil
	}
	return &addr
}
