package views

import (
	"net/url"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/roster"
)

// Panel is the admin student list.
type Panel struct {
	View     roster.View
	ErrorMsg string
}

func (pn Panel) query(extra string) string {
	q := url.Values{}
	if pn.View.Search != "" {
		q.Set("q", pn.View.Search)
	}
	if pn.View.Category != roster.CategoryAll && pn.View.Category != "" {
		q.Set("category", string(pn.View.Category))
	}
	if extra != "" {
		q.Set(extra, "1")
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Details is the read-only student page.
type Details struct {
	Student      enrollment.Student
	DocumentHref string
}

func studentPath(id, suffix string) string {
	return "/admin/students/" + url.PathEscape(id) + suffix
}
