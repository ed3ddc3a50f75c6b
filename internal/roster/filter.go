// Package roster holds the admin view of enrolled students: the fetched list,
// search and category filtering, and the dashboard counters.
package roster

import (
	"strings"
	"time"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

// RecentWindow is how far back a student counts as recently enrolled.
const RecentWindow = 7 * 24 * time.Hour

// Category is a single-choice filter over the list.
type Category string

const (
	CategoryAll       Category = "all"
	CategoryRecent    Category = "recent"
	CategoryMorning   Category = Category(enrollment.ShiftMorning)
	CategoryAfternoon Category = Category(enrollment.ShiftAfternoon)
	CategoryEvening   Category = Category(enrollment.ShiftEvening)
	CategoryFullTime  Category = Category(enrollment.ShiftFullTime)
	CategoryApproved  Category = "approved"
	CategoryPending   Category = "pending"
)

// CategoryOption pairs a category with its filter label.
type CategoryOption struct {
	Value Category
	Label string
}

// Categories lists the filters in display order.
var Categories = []CategoryOption{
	{CategoryAll, "Todos"},
	{CategoryRecent, "Recentes (7 dias)"},
	{CategoryMorning, "Manhã"},
	{CategoryAfternoon, "Tarde"},
	{CategoryEvening, "Noite"},
	{CategoryFullTime, "Integral"},
	{CategoryApproved, "Aprovados"},
	{CategoryPending, "Pendentes"},
}

// ParseCategory maps a query value to a category. Unknown values select all.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, opt := range Categories {
		if opt.Value == c {
			return c
		}
	}
	return CategoryAll
}

// IsRecent reports whether createdAt falls within RecentWindow of now.
func IsRecent(createdAt, now time.Time) bool {
	return !createdAt.Before(now.Add(-RecentWindow))
}

func (c Category) matches(s enrollment.Student, now time.Time) bool {
	switch c {
	case CategoryRecent:
		return IsRecent(s.CreatedAt, now)
	case CategoryMorning, CategoryAfternoon, CategoryEvening, CategoryFullTime:
		return s.Turno == string(c)
	case CategoryApproved:
		return s.Approved
	case CategoryPending:
		return !s.Approved
	default:
		return true
	}
}

func matchesSearch(s enrollment.Student, term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{s.Nome, s.Email, s.Responsavel, s.Turma, s.Serie} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Filter returns the students matching both the search term and the
// category, in their original order. The term is matched case-insensitively
// as a substring of name, email, guardian, class or grade.
func Filter(students []enrollment.Student, search string, category Category, now time.Time) []enrollment.Student {
	term := strings.ToLower(strings.TrimSpace(search))

	out := make([]enrollment.Student, 0, len(students))
	for _, s := range students {
		if matchesSearch(s, term) && category.matches(s, now) {
			out = append(out, s)
		}
	}
	return out
}

// Stats are the dashboard counters, computed over the unfiltered list.
type Stats struct {
	Total    int
	Recent   int
	Manha    int
	Tarde    int
	Noite    int
	Integral int
	Approved int
	Pending  int
}

// Summarize counts students by recency, shift and approval.
func Summarize(students []enrollment.Student, now time.Time) Stats {
	st := Stats{Total: len(students)}
	for _, s := range students {
		if IsRecent(s.CreatedAt, now) {
			st.Recent++
		}
		switch s.Turno {
		case enrollment.ShiftMorning:
			st.Manha++
		case enrollment.ShiftAfternoon:
			st.Tarde++
		case enrollment.ShiftEvening:
			st.Noite++
		case enrollment.ShiftFullTime:
			st.Integral++
		}
		if s.Approved {
			st.Approved++
		} else {
			st.Pending++
		}
	}
	return st
}
