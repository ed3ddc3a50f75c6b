package roster

import (
	"strings"
	"time"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

var serieLabels = func() map[string]string {
	m := make(map[string]string, len(enrollment.SerieOptions))
	for _, o := range enrollment.SerieOptions {
		m[o.Value] = o.Label
	}
	return m
}()

// SerieLabel returns the display name of a grade, or the raw value when unknown.
func SerieLabel(serie string) string {
	if l, ok := serieLabels[serie]; ok {
		return l
	}
	return serie
}

// TurmaLabel upper-cases the class section.
func TurmaLabel(turma string) string {
	return strings.ToUpper(turma)
}

// TurnoLabel returns the short shift name used in the table.
func TurnoLabel(turno string) string {
	switch turno {
	case enrollment.ShiftMorning:
		return "Manhã"
	case enrollment.ShiftAfternoon:
		return "Tarde"
	case enrollment.ShiftEvening:
		return "Noite"
	default:
		return "Integral"
	}
}

// ClassLabel is the "grade - Turma X" line shown for each student.
func ClassLabel(s enrollment.Student) string {
	return SerieLabel(s.Serie) + " - Turma " + TurmaLabel(s.Turma)
}

// DateLabel formats a timestamp as dd/mm/yyyy. The zero time renders empty.
func DateLabel(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}

// BirthDateLabel reformats a YYYY-MM-DD birth date, or the date part of a
// timestamp, as dd/mm/yyyy.
func BirthDateLabel(v string) string {
	t, err := time.Parse(enrollment.DateLayout, enrollment.NormalizeDate(v))
	if err != nil {
		return v
	}
	return DateLabel(t)
}
