package enrollment

import (
	"errors"
	"fmt"
	"maps"
	"time"
)

// Mode tells whether a form creates a new record or edits a persisted one.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

var (
	ErrUnknownField = errors.New("unknown field")
	ErrValueKind    = errors.New("value kind does not match field")
)

// Form is the state store for one record being authored. It is not safe for
// concurrent use; each request or session owns its own Form.
type Form struct {
	mode     Mode
	original *Student
	record   Record
	errors   map[FieldName]string
	policy   DocumentPolicy
	now      func() time.Time
}

// FormOption configures a Form.
type FormOption func(*Form)

// WithClock overrides the wall clock used by the birth date rule.
func WithClock(now func() time.Time) FormOption {
	return func(f *Form) { f.now = now }
}

// WithDocumentPolicy overrides the identity document limits.
func WithDocumentPolicy(p DocumentPolicy) FormOption {
	return func(f *Form) { f.policy = p }
}

func newForm(mode Mode, opts []FormOption) *Form {
	f := &Form{
		mode:   mode,
		errors: make(map[FieldName]string),
		policy: DefaultDocumentPolicy(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewCreateForm returns an empty form in creation mode.
func NewCreateForm(opts ...FormOption) *Form {
	return newForm(ModeCreate, opts)
}

// NewEditForm returns a form hydrated from a persisted student.
func NewEditForm(s Student, opts ...FormOption) *Form {
	f := newForm(ModeEdit, opts)
	orig := s
	f.original = &orig
	f.record = RecordFromStudent(s)
	return f
}

// Clone returns an independent copy of the form. Document content is shared
// since it is never modified in place.
func (f *Form) Clone() *Form {
	c := *f
	c.errors = maps.Clone(f.errors)
	if f.original != nil {
		orig := *f.original
		c.original = &orig
	}
	return &c
}

// Mode reports whether the form creates or edits.
func (f *Form) Mode() Mode { return f.mode }

// Original returns the student being edited, or nil in creation mode.
func (f *Form) Original() *Student { return f.original }

// Policy returns the document policy the form validates against.
func (f *Form) Policy() DocumentPolicy { return f.policy }

// Record returns a copy of the current values.
func (f *Form) Record() Record { return f.record }

// Errors returns a copy of the current error map.
func (f *Form) Errors() map[FieldName]string {
	return maps.Clone(f.errors)
}

// Error returns the current error message for a field, if any.
func (f *Form) Error(name FieldName) string {
	return f.errors[name]
}

// SetField stores a value and clears the field's error without re-validating.
// Phone input is masked before it is stored.
func (f *Form) SetField(name FieldName, v Value) error {
	want, ok := kindOf(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if v.Kind() != want {
		return fmt.Errorf("%w: %s expects %s, got %s", ErrValueKind, name, want, v.Kind())
	}

	switch v.Kind() {
	case KindText:
		text := v.text
		if name == FieldTelefone {
			text = MaskPhone(text)
		}
		*f.record.textField(name) = text
	case KindFile:
		f.record.Documento = v.doc
	case KindBool:
		f.record.Approved = v.flag
	}

	delete(f.errors, name)
	return nil
}

// Reset restores the initial record (empty, or the hydrated student when
// editing) and clears every error.
func (f *Form) Reset() {
	if f.original != nil {
		f.record = RecordFromStudent(*f.original)
	} else {
		f.record = Record{}
	}
	f.errors = make(map[FieldName]string)
}

// ValidateAll runs every field validator and replaces the error map with the
// fields that failed. It reports whether the record is fully valid.
func (f *Form) ValidateAll() bool {
	r := f.record
	checks := []error{
		ValidateNome(r.Nome),
		ValidateEmail(r.Email),
		ValidateTelefone(r.Telefone),
		ValidateDataNascimento(r.DataNascimento, f.now()),
		ValidateTurma(r.Turma),
		ValidateSerie(r.Serie),
		ValidateTurno(r.Turno),
		ValidateResponsavel(r.Responsavel),
		ValidatePizzaPreferida(r.PizzaPreferida),
		ValidateDocumento(r.Documento, f.mode, f.policy),
	}

	errs := make(map[FieldName]string)
	for _, err := range checks {
		var fe *FieldError
		if errors.As(err, &fe) {
			errs[fe.Field] = fe.Message
		}
	}
	f.errors = errs
	return len(errs) == 0
}

// ApprovalGranted reports whether an edit flips the approval flag from false
// to true.
func (f *Form) ApprovalGranted() bool {
	return f.original != nil && !f.original.Approved && f.record.Approved
}
