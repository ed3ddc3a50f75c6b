// Package audit records admin actions against student records: sign-ins,
// edits, approvals, deletions and exports.
package audit

import (
	"context"
	"time"
)

// Action represents the type of action being audited.
type Action string

const (
	ActionLogin          Action = "login"
	ActionLoginFailed    Action = "login_failed"
	ActionSignupAdmin    Action = "signup_admin"
	ActionLogout         Action = "logout"
	ActionStudentCreate  Action = "student_create"
	ActionStudentUpdate  Action = "student_update"
	ActionStudentApprove Action = "student_approve"
	ActionStudentDelete  Action = "student_delete"
	ActionRosterExport   Action = "roster_export"
)

// Actions lists every action in display order.
var Actions = []Action{
	ActionLogin,
	ActionLoginFailed,
	ActionSignupAdmin,
	ActionLogout,
	ActionStudentCreate,
	ActionStudentUpdate,
	ActionStudentApprove,
	ActionStudentDelete,
	ActionRosterExport,
}

// ParseAction returns the named action, or "" when it is unknown.
func ParseAction(s string) Action {
	for _, a := range Actions {
		if string(a) == s {
			return a
		}
	}
	return ""
}

// Severity represents the severity level of an audit entry.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action Action) Severity {
	switch action {
	case ActionStudentDelete, ActionRosterExport:
		return SeverityHigh
	case ActionSignupAdmin:
		return SeverityCritical
	case ActionLogin, ActionLogout:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Entry is a stored audit record.
type Entry struct {
	ID        string         `json:"id"`
	Action    Action         `json:"action"`
	Severity  Severity       `json:"severity"`
	Username  string         `json:"username,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	IPAddress string         `json:"ipAddress,omitempty"`
	UserAgent string         `json:"userAgent,omitempty"`
	StudentID string         `json:"studentId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Failed    bool           `json:"failed,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Params are the caller-supplied fields of a new entry.
type Params struct {
	Action    Action
	Username  string
	SessionID string
	IPAddress string
	UserAgent string
	StudentID string
	Details   map[string]any
	Err       error
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Action    Action
	StudentID string
	Since     time.Time
	Limit     int
}

// DefaultListLimit caps List when Filter.Limit is zero.
const DefaultListLimit = 100

// Recorder persists and queries audit entries.
type Recorder interface {
	Record(ctx context.Context, p Params) (*Entry, error)
	List(ctx context.Context, f Filter) ([]Entry, error)
	Purge(ctx context.Context, olderThan time.Time) (int64, error)
}

func newEntry(id string, p Params, now time.Time) Entry {
	e := Entry{
		ID:        id,
		Action:    p.Action,
		Severity:  determineSeverity(p.Action),
		Username:  p.Username,
		SessionID: p.SessionID,
		IPAddress: p.IPAddress,
		UserAgent: p.UserAgent,
		StudentID: p.StudentID,
		Details:   p.Details,
		CreatedAt: now,
	}
	if p.Err != nil {
		e.Failed = true
		if e.Details == nil {
			e.Details = map[string]any{}
		}
		e.Details["error"] = p.Err.Error()
	}
	return e
}
