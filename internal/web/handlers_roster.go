package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/export"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/roster"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

// handleDeletePage asks for confirmation before deleting a student.
func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	student, ok := s.state(r).list().Get(id)
	if !ok {
		fetched, ok := s.fetchStudent(w, r)
		if !ok {
			return
		}
		student = *fetched
	}
	s.render(w, r, http.StatusOK, "Excluir Estudante", views.ConfirmDeleteView(student))
}

// handleDeleteStudent deletes a confirmed student. The list drops the row
// only after the API confirms.
func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.state(r)

	err := st.list().Delete(r.Context(), s.client(r), id)
	s.finishRosterAction(w, r, st, submission.OpDelete, audit.ActionStudentDelete, id, err)
}

// handleApproveStudent approves a pending student from the list.
func (s *Server) handleApproveStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.state(r)

	_, err := st.list().Approve(r.Context(), s.client(r), id)
	s.finishRosterAction(w, r, st, submission.OpApprove, audit.ActionStudentApprove, id, err)
}

func (s *Server) finishRosterAction(w http.ResponseWriter, r *http.Request, st *pageState, op submission.Operation, action audit.Action, id string, err error) {
	s.observeAdmin(string(action), err)
	s.recordAudit(r, audit.Params{Action: action, StudentID: id, Err: err})

	if err != nil {
		if s.expired(w, r, err) {
			return
		}
		msg := submission.MapError(err, op)
		logging.FromContext(r.Context()).Warn("roster action failed",
			"operation", op,
			"student_id", id,
			"code", msg.Code,
			"error", err,
		)
		st.presenter.Show(notify.Error, msg.Message, msg.Title)
	} else {
		msg := submission.SuccessMessage(op)
		st.presenter.Show(notify.Success, msg.Message, msg.Title)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// exportStudents returns the filtered subset the panel shows for the same
// query, loading the list first if it was never loaded.
func (s *Server) exportStudents(r *http.Request) ([]enrollment.Student, error) {
	list := s.state(r).list()
	switch state, err := list.State(); state {
	case roster.StateLoading:
		if err := list.Refresh(r.Context(), s.client(r)); err != nil {
			return nil, err
		}
	case roster.StateError:
		return nil, err
	}
	q := r.URL.Query()
	return list.View(q.Get("q"), roster.ParseCategory(q.Get("category")), s.now()).Students, nil
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "csv", "text/csv; charset=utf-8", s.csv.Render)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "pdf", "application/pdf", func(data export.Dataset) ([]byte, error) {
		return s.pdf.Render(data, "Lista de Estudantes")
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", s.xlsx.Render)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, format, contentType string, render func(export.Dataset) ([]byte, error)) {
	students, err := s.exportStudents(r)
	if err != nil {
		if !s.expired(w, r, err) {
			s.respondError(w, r, err, submission.OpLoad, statusFor(err))
		}
		return
	}

	body, err := render(export.RosterDataset(students))
	s.observeAdmin(string(audit.ActionRosterExport), err)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("render %s export: %w", format, err), submission.OpLoad, http.StatusInternalServerError)
		return
	}
	s.recordAudit(r, audit.Params{
		Action:  audit.ActionRosterExport,
		Details: map[string]any{"format": format, "rows": len(students), "query": r.URL.RawQuery},
	})

	filename := fmt.Sprintf("estudantes-%s.%s", s.now().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.FromContext(r.Context()).Error("write export", "format", format, "error", err)
	}
}

// handleAuditLog lists recent admin actions, optionally by action.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	action := audit.ParseAction(r.URL.Query().Get("action"))
	entries, err := s.audit.List(r.Context(), audit.Filter{
		Action:    action,
		StudentID: r.URL.Query().Get("student"),
	})
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list audit entries: %w", err), submission.OpLoad, http.StatusInternalServerError)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, entries)
		return
	}
	s.render(w, r, http.StatusOK, "Auditoria", views.AuditView(entries, action))
}
