package views

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/roster"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestFileSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 Bytes"},
		{512, "512 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileSize(tt.n), "n=%d", tt.n)
	}
}

func TestDocumentHref(t *testing.T) {
	assert.Equal(t, "", DocumentHref("http://api:3000", ""))
	assert.Equal(t, "http://api:3000/uploads/rg.pdf", DocumentHref("http://api:3000", "/uploads/rg.pdf"))
	assert.Equal(t, "http://api:3000/uploads/rg.pdf", DocumentHref("http://api:3000/", "uploads/rg.pdf"))
	assert.Equal(t, "https://cdn.example/rg.pdf", DocumentHref("http://api:3000", "https://cdn.example/rg.pdf"))
	assert.Equal(t, "", DocumentHref("http://api:3000", "javascript:alert(1)"))
}

func TestStudentFormView_EscapesAndShowsErrors(t *testing.T) {
	html := render(t, StudentFormView(StudentForm{
		Action:      "/enroll",
		SubmitLabel: "Enviar Matrícula",
		Record:      enrollment.Record{Nome: `<script>alert("x")</script>`},
		Errors:      map[enrollment.FieldName]string{enrollment.FieldEmail: "Email inválido"},
		Policy:      enrollment.DefaultDocumentPolicy(),
	}))

	assert.NotContains(t, html, "<script>alert")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, "Email inválido")
	assert.Contains(t, html, `enctype="multipart/form-data"`)
	assert.Contains(t, html, "Enviar Matrícula")
	assert.NotContains(t, html, `name="approved"`)
}

func TestStudentFormView_EditShowsApproval(t *testing.T) {
	html := render(t, StudentFormView(StudentForm{
		Action:       "/admin/students/1",
		Edit:         true,
		Record:       enrollment.Record{Approved: true, Documento: enrollment.StoredDocument("/uploads/rg.pdf")},
		Policy:       enrollment.DefaultDocumentPolicy(),
		DocumentHref: "http://api/uploads/rg.pdf",
	}))

	assert.Contains(t, html, `name="approved"`)
	assert.Contains(t, html, "checked")
	assert.Contains(t, html, "Documento anexado")
	assert.Contains(t, html, "http://api/uploads/rg.pdf")
}

func TestLayout_Notification(t *testing.T) {
	n := notify.Notification{Kind: notify.Success, Message: "Estudante cadastrado com sucesso!"}
	html := render(t, Layout(Page{
		Title:        "Matrícula",
		Path:         "/",
		Notification: &n,
		Remaining:    1500 * time.Millisecond,
	}, ErrorView("t", "m", "")))

	assert.Contains(t, html, "Sucesso!")
	assert.Contains(t, html, "Estudante cadastrado com sucesso!")
	assert.Contains(t, html, "},1500)")
	assert.NotContains(t, html, "Sair")
}

func TestPanelView(t *testing.T) {
	now := time.Now()
	students := []enrollment.Student{
		{ID: "1", Nome: "Ana Souza", Turno: "manha", Serie: "3ano", Turma: "a", CreatedAt: now},
		{ID: "2", Nome: "Bruno Lima", Turno: "tarde", Approved: true, CreatedAt: now},
	}
	view := roster.View{
		State:    roster.StateLoaded,
		Search:   "a&b",
		Category: roster.CategoryAll,
		Students: students,
		Stats:    roster.Summarize(students, now),
	}

	html := render(t, PanelView(Panel{View: view}))

	assert.Contains(t, html, "Ana Souza")
	assert.Contains(t, html, "/admin/students/1/approve")
	assert.NotContains(t, html, "/admin/students/2/approve")
	assert.Contains(t, html, "export.csv?q=a%26b")
}

func TestPanelView_Error(t *testing.T) {
	html := render(t, PanelView(Panel{
		View:     roster.View{State: roster.StateError, Err: errors.New("boom")},
		ErrorMsg: "Erro ao carregar estudantes",
	}))
	assert.Contains(t, html, "Erro ao carregar estudantes")
}

func TestNotification_KindClassAndDismissTarget(t *testing.T) {
	n := notify.Notification{Kind: notify.Error, Message: "Falhou"}
	html := render(t, Notification(n, 0, "/admin?q=a&b"))

	assert.Contains(t, html, `class="notification error"`)
	assert.Contains(t, html, `value="/admin?q=a&amp;b"`)
	assert.NotContains(t, html, "<script>")
}

func TestLoginView_SignupCopy(t *testing.T) {
	html := render(t, LoginView(Login{Signup: true, Username: "ana", Next: "/admin/audit"}))

	assert.Contains(t, html, `action="/admin/signup"`)
	assert.Contains(t, html, "Criar Administrador")
	assert.Contains(t, html, `value="ana"`)
	assert.Contains(t, html, `name="next" value="/admin/audit"`)
	assert.Contains(t, html, `href="/admin/login"`)

	html = render(t, LoginView(Login{}))
	assert.Contains(t, html, `action="/admin/login"`)
	assert.Contains(t, html, `href="/admin/login?mode=signup"`)
	assert.NotContains(t, html, `name="next"`)
}

func TestDetailsView_SanitizesDocumentLink(t *testing.T) {
	html := render(t, DetailsView(Details{
		Student:      enrollment.Student{ID: "7", Nome: "Ana"},
		DocumentHref: "javascript:alert(1)",
	}))

	assert.NotContains(t, html, "javascript:")
	assert.Contains(t, html, `href="/admin/students/7/edit"`)
	assert.Contains(t, html, "Não informado")
}
