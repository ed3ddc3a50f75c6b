package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineSeverity(t *testing.T) {
	tests := []struct {
		action Action
		want   Severity
	}{
		{ActionStudentDelete, SeverityHigh},
		{ActionRosterExport, SeverityHigh},
		{ActionSignupAdmin, SeverityCritical},
		{ActionLogin, SeverityLow},
		{ActionStudentApprove, SeverityMedium},
		{ActionStudentUpdate, SeverityMedium},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, determineSeverity(tt.action), string(tt.action))
	}
}

func TestMemoryRecorder(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryRecorder(3)
	m.now = func() time.Time { return clock }

	_, err := m.Record(ctx, Params{Action: ActionLogin, Username: "admin"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	_, err = m.Record(ctx, Params{Action: ActionStudentDelete, StudentID: "st-1"})
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	e, err := m.Record(ctx, Params{Action: ActionStudentApprove, StudentID: "st-2", Err: errors.New("boom")})
	require.NoError(t, err)
	assert.True(t, e.Failed)
	assert.Equal(t, "boom", e.Details["error"])
	assert.NotEmpty(t, e.ID)

	all, err := m.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ActionStudentApprove, all[0].Action, "newest first")

	byStudent, err := m.List(ctx, Filter{StudentID: "st-1"})
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	assert.Equal(t, SeverityHigh, byStudent[0].Severity)

	limited, err := m.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = m.Record(ctx, Params{Action: ActionLogout})
	require.NoError(t, err)
	all, _ = m.List(ctx, Filter{})
	assert.Len(t, all, 3, "oldest entry evicted past max")

	purged, err := m.Purge(ctx, time.Date(2025, 1, 1, 1, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestBuildListQuery(t *testing.T) {
	q, args := buildListQuery(Filter{})
	assert.Equal(t, "SELECT "+selectColumns+" FROM admin_audit_log ORDER BY created_at DESC LIMIT $1", q)
	assert.Equal(t, []any{DefaultListLimit}, args)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args = buildListQuery(Filter{Action: ActionStudentDelete, StudentID: "st-1", Since: since, Limit: 5})
	assert.Contains(t, q, "WHERE action = $1 AND student_id = $2 AND created_at >= $3")
	assert.Contains(t, q, "LIMIT $4")
	require.Len(t, args, 4)
	assert.Equal(t, "student_delete", args[0])
	assert.Equal(t, pgtype.Timestamptz{Time: since, Valid: true}, args[2])
	assert.Equal(t, 5, args[3])
}

func TestConversions(t *testing.T) {
	assert.False(t, toPgText("").Valid)
	assert.Equal(t, "x", toPgText("x").String)

	id := "4f8e7f8a-9b1c-4d2e-8f3a-1b2c3d4e5f60"
	assert.Equal(t, id, uuidToString(toPgUUID(id)))
	assert.False(t, toPgUUID("nope").Valid)

	assert.Nil(t, toInet(""))
	assert.Equal(t, "10.0.0.1", toInet("10.0.0.1").String())
}

type countingRecorder struct {
	*MemoryRecorder
	cutoffs chan time.Time
}

func (c *countingRecorder) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	select {
	case c.cutoffs <- olderThan:
	default:
	}
	return c.MemoryRecorder.Purge(ctx, olderThan)
}

func TestStartRetentionScheduler(t *testing.T) {
	r := &countingRecorder{MemoryRecorder: NewMemoryRecorder(0), cutoffs: make(chan time.Time, 10)}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		StartRetentionScheduler(ctx, r, RetentionConfig{RetentionDays: 30, CheckInterval: 10 * time.Millisecond})
		close(done)
	}()

	first := <-r.cutoffs
	assert.WithinDuration(t, time.Now().AddDate(0, 0, -30), first, time.Minute)
	<-r.cutoffs // at least one tick

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestParseAction(t *testing.T) {
	assert.Equal(t, ActionStudentDelete, ParseAction("student_delete"))
	assert.Equal(t, Action(""), ParseAction("drop_table"))
	assert.Equal(t, Action(""), ParseAction(""))
}
