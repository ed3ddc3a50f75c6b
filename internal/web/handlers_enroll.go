package web

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

const enrollTitle = "Matrícula Escolar"

func enrollView() views.StudentForm {
	return views.StudentForm{
		Action:      "/enroll",
		Heading:     "Formulário de Matrícula",
		Description: "Preencha todos os campos obrigatórios para realizar a matrícula do estudante",
		SubmitLabel: "Enviar Matrícula",
		ResetAction: "/enroll/reset",
	}
}

// enrollForm returns the session's public form, creating it on first use.
// Callers hold st.mu.
func (s *Server) enrollForm(st *pageState) *enrollment.Form {
	if st.enroll == nil {
		st.enroll = enrollment.NewCreateForm(enrollment.WithDocumentPolicy(s.policy))
	}
	return st.enroll
}

// handleEnrollPage renders the public enrollment form.
func (s *Server) handleEnrollPage(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.mu.Lock()
	view := s.formView(s.enrollForm(st), enrollView())
	st.mu.Unlock()

	s.render(w, r, http.StatusOK, enrollTitle, views.StudentFormView(view))
}

// handleEnroll applies the posted fields and submits the enrollment.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	key := "enroll:" + sessionOf(r).ID()

	if s.busy(w, r, st, key, submission.OpCreate, "/") {
		return
	}

	if err := s.parseStudentForm(w, r); err != nil {
		s.rejectBody(w, r, err, st, "/")
		return
	}

	form, _, err := s.submit(r, st, &st.enroll, func() *enrollment.Form { return s.enrollForm(st) }, key, false)
	if err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	st.mu.Lock()
	view := s.formView(form, enrollView())
	st.mu.Unlock()
	s.render(w, r, submitStatus(err), enrollTitle, views.StudentFormView(view))
}

// handleEnrollReset clears the public form.
func (s *Server) handleEnrollReset(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.mu.Lock()
	st.enroll = nil
	st.mu.Unlock()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleDismiss closes the active notification and returns to the page it
// was shown on.
func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	s.state(r).presenter.Dismiss()

	if isHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	next := "/"
	if err := r.ParseForm(); err == nil {
		next = middleware.SafeNext(r.PostForm.Get("next"), "/")
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// rejectBody reports a form body that could not be read.
func (s *Server) rejectBody(w http.ResponseWriter, r *http.Request, err error, st *pageState, back string) {
	if errors.Is(err, errBodyTooLarge) {
		st.presenter.Show(notify.Error, enrollment.ErrDocumentTooLarge.Error(), "Erro no Arquivo")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	s.respondError(w, r, err, submission.OpCreate, http.StatusBadRequest)
}
