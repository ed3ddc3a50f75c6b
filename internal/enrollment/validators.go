package enrollment

// validators.go holds one pure validator per record field.
//
// Each validator returns nil for a valid value or a *FieldError whose message
// is shown next to the field. Validators never look at sibling fields; the
// only extra input is the current time for the birth date rule and the
// document policy for the identity document.

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// MinimumAge is the youngest age, in whole years, accepted for enrollment.
const MinimumAge = 3

// DateLayout is the wire and form format of the birth date.
const DateLayout = "2006-01-02"

// NormalizeDate reduces an RFC 3339 timestamp to its YYYY-MM-DD date part.
// The API may return birth dates either way. Other values are only trimmed.
func NormalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return v[:len(DateLayout)]
	}
	return v
}

// FieldError is a validation failure scoped to a single field.
type FieldError struct {
	Field   FieldName
	Message string
}

func (e *FieldError) Error() string {
	return string(e.Field) + ": " + e.Message
}

func fieldErr(field FieldName, msg string) *FieldError {
	return &FieldError{Field: field, Message: msg}
}

var (
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

	validate = validator.New()

	serieRule = oneOfRule(SerieOptions)
	turmaRule = oneOfRule(TurmaOptions)
	turnoRule = oneOfRule(TurnoOptions)
)

func oneOfRule(opts []Option) string {
	values := make([]string, len(opts))
	for i, o := range opts {
		values[i] = o.Value
	}
	return "oneof=" + strings.Join(values, " ")
}

func minLength(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

// ValidateNome checks the student's full name.
func ValidateNome(v string) error {
	if strings.TrimSpace(v) == "" {
		return fieldErr(FieldNome, "Nome é obrigatório")
	}
	if !minLength(v, 3) {
		return fieldErr(FieldNome, "Nome deve ter pelo menos 3 letras")
	}
	return nil
}

// ValidateEmail checks the contact email has a local@domain.tld shape.
func ValidateEmail(v string) error {
	if strings.TrimSpace(v) == "" {
		return fieldErr(FieldEmail, "Email é obrigatório")
	}
	if !emailPattern.MatchString(v) {
		return fieldErr(FieldEmail, "Email inválido")
	}
	return nil
}

// ValidateTelefone checks the masked phone resolves to a landline or mobile number.
func ValidateTelefone(v string) error {
	digits := PhoneDigits(v)
	if digits == "" {
		return fieldErr(FieldTelefone, "Telefone é obrigatório")
	}
	if !validPhoneDigits(digits) {
		return fieldErr(FieldTelefone, "Telefone inválido. Use o formato (11) 99999-9999")
	}
	return nil
}

// ValidateDataNascimento checks the birth date is a past date at least
// MinimumAge whole years before now.
func ValidateDataNascimento(v string, now time.Time) error {
	if strings.TrimSpace(v) == "" {
		return fieldErr(FieldDataNascimento, "Data de nascimento é obrigatória")
	}
	birth, err := time.Parse(DateLayout, NormalizeDate(v))
	if err != nil {
		return fieldErr(FieldDataNascimento, "Data de nascimento inválida")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if birth.After(today) {
		return fieldErr(FieldDataNascimento, "Data de nascimento não pode ser futura")
	}
	if AgeOn(birth, today) < MinimumAge {
		return fieldErr(FieldDataNascimento, "Idade mínima: 3 anos")
	}
	return nil
}

// AgeOn returns the number of whole years between birth and day.
func AgeOn(birth, day time.Time) int {
	age := day.Year() - birth.Year()
	if day.Month() < birth.Month() || (day.Month() == birth.Month() && day.Day() < birth.Day()) {
		age--
	}
	return age
}

// ValidateTurma checks the class section is one of the offered sections.
func ValidateTurma(v string) error {
	if v == "" {
		return fieldErr(FieldTurma, "Turma é obrigatória")
	}
	if validate.Var(v, turmaRule) != nil {
		return fieldErr(FieldTurma, "Turma inválida")
	}
	return nil
}

// ValidateSerie checks the grade is one of the offered grades.
func ValidateSerie(v string) error {
	if v == "" {
		return fieldErr(FieldSerie, "Série é obrigatória")
	}
	if validate.Var(v, serieRule) != nil {
		return fieldErr(FieldSerie, "Série inválida")
	}
	return nil
}

// ValidateTurno checks the shift is one of the four shifts.
func ValidateTurno(v string) error {
	if v == "" {
		return fieldErr(FieldTurno, "Turno é obrigatório")
	}
	if validate.Var(v, turnoRule) != nil {
		return fieldErr(FieldTurno, "Turno inválido")
	}
	return nil
}

// ValidateResponsavel checks the guardian's name.
func ValidateResponsavel(v string) error {
	if strings.TrimSpace(v) == "" {
		return fieldErr(FieldResponsavel, "Nome do responsável é obrigatório")
	}
	if !minLength(v, 3) {
		return fieldErr(FieldResponsavel, "Nome do responsável deve ter pelo menos 3 letras")
	}
	return nil
}

// ValidatePizzaPreferida checks the favourite flavour free-text answer.
func ValidatePizzaPreferida(v string) error {
	if strings.TrimSpace(v) == "" {
		return fieldErr(FieldPizzaPreferida, "Pizza preferida é obrigatória")
	}
	if !minLength(v, 3) {
		return fieldErr(FieldPizzaPreferida, "Informe uma pizza válida")
	}
	return nil
}

// ValidateDocumento checks the identity document. It is required when a
// record is created; when editing, only a newly selected file is checked.
func ValidateDocumento(d Document, mode Mode, p DocumentPolicy) error {
	switch d.State() {
	case DocumentPending:
		if _, err := CheckDocument(d, p); err != nil {
			return fieldErr(FieldDocumento, err.Error())
		}
		return nil
	case DocumentStored:
		return nil
	default:
		if mode == ModeCreate {
			return fieldErr(FieldDocumento, "Documento de identidade é obrigatório")
		}
		return nil
	}
}
