package submission

import (
	"context"
	"errors"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/notify"
)

// ErrInvalid is returned when the form fails validation. Field messages are
// on the form; no request was made.
var ErrInvalid = errors.New("form has validation errors")

// StudentAPI is the subset of the API client a submission uses.
type StudentAPI interface {
	CreateStudent(ctx context.Context, p api.Payload) (*enrollment.Student, error)
	UpdateStudent(ctx context.Context, id string, p api.Payload) (*enrollment.Student, error)
	ApproveStudent(ctx context.Context, id string) (*enrollment.Student, error)
}

// Notifier shows the outcome to the user.
type Notifier interface {
	Show(kind notify.Kind, message, title string)
}

// Result describes a finished submission.
type Result struct {
	Completed bool
	Operation Operation
	Student   *enrollment.Student // as returned by the API
	Message   UserMessage
}

// Observer is called once per submission that reached the API.
type Observer func(ctx context.Context, op Operation, student *enrollment.Student, err error)

// Pipeline submits forms for one browser session.
type Pipeline struct {
	api         StudentAPI
	notifier    Notifier
	guard       *InFlight
	observer    Observer
	createTitle string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver installs a hook for metrics and auditing.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithCreateTitle overrides the success title for creations.
func WithCreateTitle(title string) Option {
	return func(p *Pipeline) { p.createTitle = title }
}

// New builds a pipeline. guard is shared across sessions so keys must be
// unique per form instance.
func New(client StudentAPI, notifier Notifier, guard *InFlight, opts ...Option) *Pipeline {
	p := &Pipeline{api: client, notifier: notifier, guard: guard}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit validates form and performs exactly one API call:
//
//   - create mode: CreateStudent; the form is reset on success
//   - edit mode flipping approval from false to true: ApproveStudent only
//   - other edits: UpdateStudent
//
// A pending document selects a multipart body. Failures leave the form
// untouched and are never retried.
func (p *Pipeline) Submit(ctx context.Context, key string, form *enrollment.Form) (Result, error) {
	if !p.guard.TryAcquire(key) {
		return Result{}, ErrSubmitInFlight
	}
	defer p.guard.Release(key)

	if !form.ValidateAll() {
		return Result{}, ErrInvalid
	}

	logger := logging.WithFields(ctx, "mode", form.Mode().String())
	op, student, err := p.call(ctx, form)
	if p.observer != nil {
		p.observer(ctx, op, student, err)
	}

	if err != nil {
		msg := MapError(err, op)
		logger.Warn("submission failed", "operation", op, "code", msg.Code, "error", err)
		p.notifier.Show(notify.Error, msg.Message, msg.Title)
		return Result{Operation: op, Message: msg}, err
	}

	msg := SuccessMessage(op)
	if op == OpCreate && p.createTitle != "" {
		msg.Title = p.createTitle
	}
	p.notifier.Show(notify.Success, msg.Message, msg.Title)
	if form.Mode() == enrollment.ModeCreate {
		form.Reset()
	}
	logger.Info("submission completed", "operation", op, "student_id", studentID(student))

	return Result{Completed: true, Operation: op, Student: student, Message: msg}, nil
}

func (p *Pipeline) call(ctx context.Context, form *enrollment.Form) (Operation, *enrollment.Student, error) {
	record := form.Record()

	if form.Mode() == enrollment.ModeCreate {
		st, err := p.api.CreateStudent(ctx, api.StudentPayload(record, false))
		return OpCreate, st, err
	}

	id := form.Original().ID
	if form.ApprovalGranted() {
		st, err := p.api.ApproveStudent(ctx, id)
		return OpApprove, st, err
	}
	st, err := p.api.UpdateStudent(ctx, id, api.StudentPayload(record, true))
	return OpUpdate, st, err
}

func studentID(s *enrollment.Student) string {
	if s == nil {
		return ""
	}
	return s.ID
}

// String names the operation for logs and metric labels.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpApprove:
		return "approve"
	case OpDelete:
		return "delete"
	case OpLoad:
		return "load"
	default:
		return "unknown"
	}
}
