package web

// errors.go provides unified error and page rendering for the web layer.
//
// Errors are:
//   - Logged with full technical details and the request ID (server-side)
//   - Mapped to a coded UserMessage through submission.MapError
//   - Rendered as JSON for API-style clients, or as a page otherwise
//
// Expired admin sessions are not errors here: handlers send the browser back
// to the login page with a notification instead.

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

// ErrorResponse represents the JSON structure for error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// render writes a full page with the session's active notification.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	page := views.Page{
		Title:    title,
		Path:     r.URL.RequestURI(),
		Username: username(r),
	}
	st := s.state(r)
	if n, ok := st.presenter.Active(); ok {
		page.Notification = &n
		page.Remaining = st.presenter.Remaining()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := views.Layout(page, body).Render(r.Context(), w); err != nil {
		slog.Error("render failed", "path", r.URL.Path, "error", err, "request_id", chimw.GetReqID(r.Context()))
	}
}

// respondError logs err and renders its user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, op submission.Operation, statusCode int) {
	userMsg := submission.MapError(err, op)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", chimw.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Code:    userMsg.Code,
		})
		return
	}
	s.render(w, r, statusCode, userMsg.Title, views.ErrorView(userMsg.Title, userMsg.Message, userMsg.Code))
}

// statusFor picks the response status for an API failure.
func statusFor(err error) int {
	switch status := api.StatusOf(err); {
	case status == http.StatusNotFound:
		return http.StatusNotFound
	case errors.Is(err, api.ErrNetwork), status >= 500:
		return http.StatusBadGateway
	case status >= 400:
		return status
	default:
		return http.StatusInternalServerError
	}
}

// expired handles a 401 from the API: the client has already cleared the
// session, so the admin is told and sent back to the login page.
func (s *Server) expired(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	msg := submission.MapError(err, submission.OpLoad)
	s.state(r).presenter.Show(notify.Error, msg.Message, msg.Title)
	middleware.RedirectToLogin(w, r, loginPath)
	return true
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if isHTMX(r) {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
