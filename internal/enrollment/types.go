// Package enrollment holds the enrollment record, its field validators and the
// form state store used while a record is being authored.
//
// The package has no transport or UI dependencies. The web layer feeds it raw
// form values through [Form.SetField] and asks [Form.ValidateAll] before a
// record is handed to the submission pipeline.
package enrollment

import (
	"fmt"
	"time"
)

// FieldName identifies a field of the enrollment record. The string value is
// the key used by the student API and by the HTML form.
type FieldName string

const (
	FieldNome           FieldName = "nome"
	FieldEmail          FieldName = "email"
	FieldTelefone       FieldName = "telefone"
	FieldDataNascimento FieldName = "dataNascimento"
	FieldTurma          FieldName = "turma"
	FieldSerie          FieldName = "serie"
	FieldTurno          FieldName = "turno"
	FieldResponsavel    FieldName = "responsavel"
	FieldPizzaPreferida FieldName = "pizzaPreferida"
	FieldEndereco       FieldName = "endereco"
	FieldObservacoes    FieldName = "observacoes"
	FieldDocumento      FieldName = "documentoIdentidade"
	FieldApproved       FieldName = "approved"
)

// TextFields lists the scalar text fields in form order. Payload builders
// iterate this slice so multipart parts and JSON keys keep a stable order.
var TextFields = []FieldName{
	FieldNome,
	FieldEmail,
	FieldTelefone,
	FieldDataNascimento,
	FieldTurma,
	FieldSerie,
	FieldTurno,
	FieldResponsavel,
	FieldPizzaPreferida,
	FieldEndereco,
	FieldObservacoes,
}

// Shift values accepted for the turno field.
const (
	ShiftMorning   = "manha"
	ShiftAfternoon = "tarde"
	ShiftEvening   = "noite"
	ShiftFullTime  = "integral"
)

// Shifts lists the four shift values in display order.
var Shifts = []string{ShiftMorning, ShiftAfternoon, ShiftEvening, ShiftFullTime}

// Option is a value/label pair offered by a select field.
type Option struct {
	Value string
	Label string
}

// SerieOptions are the grades offered by the enrollment form.
var SerieOptions = []Option{
	{"1ano", "1º Ano"},
	{"2ano", "2º Ano"},
	{"3ano", "3º Ano"},
	{"4ano", "4º Ano"},
	{"5ano", "5º Ano"},
	{"6ano", "6º Ano"},
	{"7ano", "7º Ano"},
	{"8ano", "8º Ano"},
	{"9ano", "9º Ano"},
	{"1medio", "1º Ano do Ensino Médio"},
	{"2medio", "2º Ano do Ensino Médio"},
	{"3medio", "3º Ano do Ensino Médio"},
}

// TurmaOptions are the class sections offered by the enrollment form.
var TurmaOptions = []Option{
	{"a", "Turma A"},
	{"b", "Turma B"},
	{"c", "Turma C"},
	{"d", "Turma D"},
	{"e", "Turma E"},
}

// TurnoOptions are the shifts offered by the enrollment form.
var TurnoOptions = []Option{
	{ShiftMorning, "Manhã (7h às 12h)"},
	{ShiftAfternoon, "Tarde (13h às 18h)"},
	{ShiftEvening, "Noite (19h às 22h)"},
	{ShiftFullTime, "Integral (7h às 18h)"},
}

// Record is the enrollment data being authored in a form.
type Record struct {
	Nome           string
	Email          string
	Telefone       string
	DataNascimento string
	Turma          string
	Serie          string
	Turno          string
	Responsavel    string
	PizzaPreferida string
	Endereco       string
	Observacoes    string
	Documento      Document
	Approved       bool
}

// Text returns the value of a scalar text field.
func (r *Record) Text(name FieldName) (string, bool) {
	p := r.textField(name)
	if p == nil {
		return "", false
	}
	return *p, true
}

func (r *Record) textField(name FieldName) *string {
	switch name {
	case FieldNome:
		return &r.Nome
	case FieldEmail:
		return &r.Email
	case FieldTelefone:
		return &r.Telefone
	case FieldDataNascimento:
		return &r.DataNascimento
	case FieldTurma:
		return &r.Turma
	case FieldSerie:
		return &r.Serie
	case FieldTurno:
		return &r.Turno
	case FieldResponsavel:
		return &r.Responsavel
	case FieldPizzaPreferida:
		return &r.PizzaPreferida
	case FieldEndereco:
		return &r.Endereco
	case FieldObservacoes:
		return &r.Observacoes
	}
	return nil
}

// Student is the server-owned read model of a persisted enrollment.
type Student struct {
	ID             string    `json:"id"`
	Nome           string    `json:"nome"`
	Email          string    `json:"email"`
	Telefone       string    `json:"telefone"`
	DataNascimento string    `json:"dataNascimento"`
	Turma          string    `json:"turma"`
	Serie          string    `json:"serie"`
	Turno          string    `json:"turno"`
	Responsavel    string    `json:"responsavel"`
	PizzaPreferida string    `json:"pizzaPreferida"`
	Endereco       string    `json:"endereco,omitempty"`
	Observacoes    string    `json:"observacoes,omitempty"`
	DocumentosURL  string    `json:"documentosUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Approved       bool      `json:"approved"`
}

// RecordFromStudent hydrates an editable record from a persisted student.
// The stored document is kept as a reference, never as a pending upload.
func RecordFromStudent(s Student) Record {
	rec := Record{
		Nome:           s.Nome,
		Email:          s.Email,
		Telefone:       s.Telefone,
		DataNascimento: NormalizeDate(s.DataNascimento),
		Turma:          s.Turma,
		Serie:          s.Serie,
		Turno:          s.Turno,
		Responsavel:    s.Responsavel,
		PizzaPreferida: s.PizzaPreferida,
		Endereco:       s.Endereco,
		Observacoes:    s.Observacoes,
		Approved:       s.Approved,
	}
	if s.DocumentosURL != "" {
		rec.Documento = StoredDocument(s.DocumentosURL)
	}
	return rec
}

// WithRecord returns s with the record's text fields and approval flag
// applied. Server-owned fields and the document reference are kept.
func (s Student) WithRecord(r Record) Student {
	s.Nome = r.Nome
	s.Email = r.Email
	s.Telefone = r.Telefone
	s.DataNascimento = r.DataNascimento
	s.Turma = r.Turma
	s.Serie = r.Serie
	s.Turno = r.Turno
	s.Responsavel = r.Responsavel
	s.PizzaPreferida = r.PizzaPreferida
	s.Endereco = r.Endereco
	s.Observacoes = r.Observacoes
	s.Approved = r.Approved
	return s
}

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindText ValueKind = iota
	KindFile
	KindBool
)

func (k ValueKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFile:
		return "file"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a form field value: text, a document, or a flag.
type Value struct {
	kind ValueKind
	text string
	doc  Document
	flag bool
}

// Text wraps a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// File wraps a document value. Pass the zero Document to remove a selection.
func File(d Document) Value { return Value{kind: KindFile, doc: d} }

// Bool wraps a flag value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// Kind reports which variant v holds.
func (v Value) Kind() ValueKind { return v.kind }

// kindOf returns the value kind a field accepts.
func kindOf(name FieldName) (ValueKind, bool) {
	switch name {
	case FieldDocumento:
		return KindFile, true
	case FieldApproved:
		return KindBool, true
	}
	var r Record
	if r.textField(name) != nil {
		return KindText, true
	}
	return 0, false
}
