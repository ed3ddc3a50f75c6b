package web

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/roster"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

const adminTitle = "Painel Administrativo"

// handleAdmin renders the student list. The token is checked against the
// API profile first; a rejected token signs the admin out.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := s.state(r)
	client := s.client(r)

	user, err := client.Profile(ctx)
	if err == nil && !user.IsAdmin() {
		err = errNotAdmin
	}
	if err != nil {
		s.signOut(w, r, err)
		return
	}

	list := st.list()
	q := r.URL.Query()
	refresh := q.Get("refresh") == "1"

	// Only the first visit and an explicit refresh fetch; a failed load stays
	// in the error state until the admin asks again.
	if state, _ := list.State(); refresh || state == roster.StateLoading {
		err := list.Refresh(ctx, client)
		switch {
		case err == nil && refresh:
			msg := submission.SuccessMessage(submission.OpLoad)
			st.presenter.Show(notify.Success, msg.Message, msg.Title)
		case err != nil && !errors.Is(err, roster.ErrFetchInFlight):
			if s.expired(w, r, err) {
				return
			}
		}
	}

	panel := views.Panel{View: list.View(q.Get("q"), roster.ParseCategory(q.Get("category")), s.now())}
	if panel.View.State == roster.StateError {
		panel.ErrorMsg = submission.MapError(panel.View.Err, submission.OpLoad).Message
	}

	s.render(w, r, http.StatusOK, adminTitle, views.PanelView(panel))
}

var errNotAdmin = errors.New("account is not an administrator")

// signOut clears a session whose token the API no longer accepts.
func (s *Server) signOut(w http.ResponseWriter, r *http.Request, cause error) {
	logging.FromContext(r.Context()).Warn("admin profile check failed", "error", cause)
	if err := sessionOf(r).Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("clear session", "error", err)
	}

	msg := submission.MapError(cause, submission.OpLoad)
	if errors.Is(cause, errNotAdmin) {
		msg = submission.UserMessage{Title: "Acesso Negado", Message: "Acesso restrito a administradores"}
	}
	s.state(r).presenter.Show(notify.Error, msg.Message, msg.Title)
	middleware.RedirectToLogin(w, r, loginPath)
}

// handleStudentDetails renders one student as returned by the API.
func (s *Server) handleStudentDetails(w http.ResponseWriter, r *http.Request) {
	student, ok := s.fetchStudent(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, student.Nome, views.DetailsView(views.Details{
		Student:      *student,
		DocumentHref: views.DocumentHref(s.api.BaseURL(), student.DocumentosURL),
	}))
}

// fetchStudent loads the {id} student, writing the failure response itself.
func (s *Server) fetchStudent(w http.ResponseWriter, r *http.Request) (*enrollment.Student, bool) {
	student, err := s.client(r).GetStudent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if !s.expired(w, r, err) {
			s.respondError(w, r, err, submission.OpLoad, statusFor(err))
		}
		return nil, false
	}
	return student, true
}

func createView() views.StudentForm {
	return views.StudentForm{
		Action:      "/admin/students",
		Heading:     "Adicionar Estudante",
		Description: "Cadastre um novo estudante diretamente pelo painel",
		SubmitLabel: "Criar Estudante",
		CancelHref:  "/admin",
	}
}

func editView(id string) views.StudentForm {
	return views.StudentForm{
		Action:      "/admin/students/" + id,
		Heading:     "Editar Estudante",
		Description: "Altere os dados do estudante e salve as alterações",
		Edit:        true,
		SubmitLabel: "Salvar Alterações",
		CancelHref:  "/admin/students/" + id,
	}
}

// createForm returns the admin create form. Callers hold st.mu.
func (s *Server) createForm(st *pageState) *enrollment.Form {
	if st.create == nil {
		st.create = enrollment.NewCreateForm(enrollment.WithDocumentPolicy(s.policy))
	}
	return st.create
}

func (s *Server) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	st.mu.Lock()
	view := s.formView(s.createForm(st), createView())
	st.mu.Unlock()

	s.render(w, r, http.StatusOK, "Adicionar Estudante", views.StudentFormView(view))
}

// handleCreateStudent adds a student from the admin panel.
func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	st := s.state(r)
	key := "create:" + sessionOf(r).ID()
	if s.busy(w, r, st, key, submission.OpCreate, "/admin/students/new") {
		return
	}
	if err := s.parseStudentForm(w, r); err != nil {
		s.rejectBody(w, r, err, st, "/admin/students/new")
		return
	}

	form, res, err := s.submit(r, st, &st.create, func() *enrollment.Form { return s.createForm(st) }, key, false,
		submission.WithCreateTitle(submission.AdminCreateTitle))
	if s.finishAdminSubmit(r, st, res, err, "", form) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	if s.expired(w, r, err) {
		return
	}
	st.mu.Lock()
	view := s.formView(form, createView())
	st.mu.Unlock()
	s.render(w, r, submitStatus(err), "Adicionar Estudante", views.StudentFormView(view))
}

// handleEditPage hydrates a fresh edit form from the API.
func (s *Server) handleEditPage(w http.ResponseWriter, r *http.Request) {
	student, ok := s.fetchStudent(w, r)
	if !ok {
		return
	}

	st := s.state(r)
	st.mu.Lock()
	st.edit = enrollment.NewEditForm(*student, enrollment.WithDocumentPolicy(s.policy))
	view := s.formView(st.edit, editView(student.ID))
	st.mu.Unlock()

	s.render(w, r, http.StatusOK, "Editar Estudante", views.StudentFormView(view))
}

// handleUpdateStudent saves the edit form. Flipping approval on calls the
// approve endpoint only; anything else is a single update.
func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.state(r)
	key := "edit:" + sessionOf(r).ID() + ":" + id
	back := "/admin/students/" + id + "/edit"
	if s.busy(w, r, st, key, submission.OpUpdate, back) {
		return
	}
	if err := s.parseStudentForm(w, r); err != nil {
		s.rejectBody(w, r, err, st, back)
		return
	}

	st.mu.Lock()
	current := st.edit
	st.mu.Unlock()

	var student enrollment.Student
	if current != nil && current.Original().ID == id {
		student = *current.Original()
	} else {
		fetched, ok := s.fetchStudent(w, r)
		if !ok {
			return
		}
		student = *fetched
	}
	prepare := func() *enrollment.Form {
		if st.edit == nil || st.edit.Original().ID != id {
			st.edit = enrollment.NewEditForm(student, enrollment.WithDocumentPolicy(s.policy))
		}
		return st.edit
	}

	form, res, err := s.submit(r, st, &st.edit, prepare, key, true)
	if s.finishAdminSubmit(r, st, res, err, id, form) {
		st.mu.Lock()
		if st.edit == form {
			st.edit = nil
		}
		st.mu.Unlock()
		http.Redirect(w, r, "/admin/students/"+id, http.StatusSeeOther)
		return
	}
	if s.expired(w, r, err) {
		return
	}
	st.mu.Lock()
	view := s.formView(form, editView(id))
	st.mu.Unlock()
	s.render(w, r, submitStatus(err), "Editar Estudante", views.StudentFormView(view))
}

// busy rejects a submission while the same form is already in flight.
func (s *Server) busy(w http.ResponseWriter, r *http.Request, st *pageState, key string, op submission.Operation, back string) bool {
	if !s.guard.Busy(key) {
		return false
	}
	msg := submission.MapError(submission.ErrSubmitInFlight, op)
	st.presenter.Show(notify.Warning, msg.Message, msg.Title)
	http.Redirect(w, r, back, http.StatusSeeOther)
	return true
}

// finishAdminSubmit audits an admin create or edit and patches the list on
// success. It reports whether the submission completed. id is the edited
// student, or "" for a creation.
func (s *Server) finishAdminSubmit(r *http.Request, st *pageState, res submission.Result, err error, id string, form *enrollment.Form) bool {
	action := audit.ActionStudentCreate
	switch res.Operation {
	case submission.OpUpdate:
		action = audit.ActionStudentUpdate
	case submission.OpApprove:
		action = audit.ActionStudentApprove
	}

	if err == nil {
		if id == "" && res.Student != nil {
			id = res.Student.ID
		}
		s.patchList(r, st.list(), res, id, form)
		s.recordAudit(r, audit.Params{Action: action, StudentID: id})
		s.observeAdmin(string(action), nil)
		return true
	}

	if errors.Is(err, submission.ErrInvalid) || errors.Is(err, submission.ErrSubmitInFlight) {
		return false
	}
	s.recordAudit(r, audit.Params{Action: action, StudentID: id, Err: err})
	s.observeAdmin(string(action), err)
	return false
}

// patchList brings the held list in line with a confirmed submission. The
// returned student is used when it names the submitted record; otherwise an
// edit is applied from the form, and a creation reloads the list.
func (s *Server) patchList(r *http.Request, list *roster.List, res submission.Result, id string, form *enrollment.Form) {
	if returned := res.Student; returned != nil && returned.ID != "" && returned.ID == id {
		list.Replace(*returned)
		return
	}

	switch res.Operation {
	case submission.OpApprove:
		list.Patch(id, func(st *enrollment.Student) { st.Approved = true })
	case submission.OpUpdate:
		rec := form.Record()
		list.Patch(id, func(st *enrollment.Student) { *st = st.WithRecord(rec) })
	case submission.OpCreate:
		if state, _ := list.State(); state == roster.StateLoading {
			return
		}
		if err := list.Refresh(r.Context(), s.client(r)); err != nil && !errors.Is(err, roster.ErrFetchInFlight) {
			logging.FromContext(r.Context()).Warn("reload after create failed", "error", err)
		}
	}
}
