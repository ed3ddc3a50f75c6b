package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// formOverhead is the body allowance for the text fields on top of the document.
const formOverhead = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// parseStudentForm reads a multipart or urlencoded form, capped at the
// document size plus the text fields.
func (s *Server) parseStudentForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.policy.MaxSize+formOverhead)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errBodyTooLarge
		}
		return fmt.Errorf("parse form: %w", err)
	}
	return nil
}

// applyForm copies posted values into form. Text fields missing from the
// post are left as they are. A selected document is checked against the
// policy first: a rejected file is reported and not stored, and accepted
// files may still raise warnings.
func (s *Server) applyForm(r *http.Request, form *enrollment.Form, presenter *notify.Presenter, withApproval bool) {
	logger := logging.FromContext(r.Context())

	for _, name := range enrollment.TextFields {
		if _, ok := r.PostForm[string(name)]; !ok {
			continue
		}
		if err := form.SetField(name, enrollment.Text(r.PostForm.Get(string(name)))); err != nil {
			logger.Error("set form field", "field", name, "error", err)
		}
	}

	if withApproval {
		approved := r.PostForm.Get(string(enrollment.FieldApproved)) == "true"
		if err := form.SetField(enrollment.FieldApproved, enrollment.Bool(approved)); err != nil {
			logger.Error("set form field", "field", enrollment.FieldApproved, "error", err)
		}
	}

	doc, ok, err := readDocument(r, s.policy.MaxSize)
	if err != nil {
		logger.Warn("read uploaded document", "error", err)
		presenter.Show(notify.Error, enrollment.ErrDocumentTooLarge.Error(), "Erro no Arquivo")
		return
	}
	if !ok {
		return
	}

	warnings, err := enrollment.CheckDocument(doc, form.Policy())
	if err != nil {
		presenter.Show(notify.Error, err.Error(), "Erro no Arquivo")
		return
	}
	if err := form.SetField(enrollment.FieldDocumento, enrollment.File(doc)); err != nil {
		logger.Error("set form field", "field", enrollment.FieldDocumento, "error", err)
		return
	}
	if len(warnings) > 0 {
		presenter.Show(notify.Warning, strings.Join(warnings, " "), "")
	}
}

// readDocument returns the uploaded identity document, if one was selected.
// It reads at most limit+1 bytes so the size check can still reject it.
func readDocument(r *http.Request, limit int64) (enrollment.Document, bool, error) {
	if r.MultipartForm == nil {
		return enrollment.Document{}, false, nil
	}
	file, header, err := r.FormFile(string(enrollment.FieldDocumento))
	if errors.Is(err, http.ErrMissingFile) {
		return enrollment.Document{}, false, nil
	}
	if err != nil {
		return enrollment.Document{}, false, err
	}
	defer file.Close()

	if header.Filename == "" || header.Size == 0 {
		return enrollment.Document{}, false, nil
	}
	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return enrollment.Document{}, false, err
	}
	return enrollment.PendingDocument(header.Filename, content), true, nil
}

// formView snapshots a form for rendering. Callers hold the page state lock.
func (s *Server) formView(form *enrollment.Form, v views.StudentForm) views.StudentForm {
	v.Record = form.Record()
	v.Errors = form.Errors()
	v.Policy = form.Policy()
	if orig := form.Original(); orig != nil {
		v.DocumentHref = views.DocumentHref(s.api.BaseURL(), orig.DocumentosURL)
	}
	return v
}

// submitStatus is the response status for a re-rendered form after a failed
// submission. Field errors are 422; API failures keep the page at 200 with
// the error shown as a notification.
func submitStatus(err error) int {
	if errors.Is(err, submission.ErrInvalid) {
		return http.StatusUnprocessableEntity
	}
	if errors.Is(err, submission.ErrSubmitInFlight) {
		return http.StatusConflict
	}
	return http.StatusOK
}

// pipeline builds a submission pipeline bound to the request's session.
func (s *Server) pipeline(r *http.Request, st *pageState, opts ...submission.Option) *submission.Pipeline {
	if s.metrics != nil {
		opts = append(opts, submission.WithObserver(func(_ context.Context, op submission.Operation, _ *enrollment.Student, err error) {
			s.metrics.ObserveSubmission(op.String(), err)
		}))
	}
	return submission.New(s.client(r), st.presenter, s.guard, opts...)
}

// submit applies the request to the form prepare returns and submits a copy
// of it, so st.mu is free while the API call runs. prepare is called with
// st.mu held and must return the form currently stored in *slot. The copy is
// stored back unless the slot was replaced in the meantime.
func (s *Server) submit(r *http.Request, st *pageState, slot **enrollment.Form, prepare func() *enrollment.Form, key string, withApproval bool, opts ...submission.Option) (*enrollment.Form, submission.Result, error) {
	st.mu.Lock()
	form := prepare()
	s.applyForm(r, form, st.presenter, withApproval)
	work := form.Clone()
	st.mu.Unlock()

	res, err := s.pipeline(r, st, opts...).Submit(r.Context(), key, work)

	st.mu.Lock()
	if *slot == form {
		*slot = work
	}
	st.mu.Unlock()
	return work, res, err
}
