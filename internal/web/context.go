package web

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/session"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
)

// sessionOf returns the request's browser session.
func sessionOf(r *http.Request) *session.Session {
	return middleware.SessionFrom(r.Context())
}

// state returns the page state of the request's session.
func (s *Server) state(r *http.Request) *pageState {
	return s.states.get(sessionOf(r).ID())
}

// client returns the API client bound to the request's session token.
func (s *Server) client(r *http.Request) *api.Client {
	return s.api.WithSession(sessionOf(r))
}

// username is the signed-in admin, or "".
func username(r *http.Request) string {
	user, ok, err := sessionOf(r).User(r.Context())
	if err != nil || !ok {
		return ""
	}
	return user.Username
}

// recordAudit stores an admin action with the request's metadata. Audit
// failures are logged and never fail the request.
func (s *Server) recordAudit(r *http.Request, p audit.Params) {
	sess := sessionOf(r)
	p.SessionID = sess.ID()
	p.IPAddress = middleware.ClientIP(r)
	p.UserAgent = r.UserAgent()
	if p.Username == "" {
		p.Username = username(r)
	}
	if p.UserAgent != "" {
		p.Details = withClient(p.Details, p.UserAgent)
	}

	if _, err := s.audit.Record(r.Context(), p); err != nil {
		logging.FromContext(r.Context()).Error("audit record failed",
			"action", p.Action,
			"error", err,
		)
	}
}

// observeAdmin counts an admin action when metrics are enabled.
func (s *Server) observeAdmin(action string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveAdminAction(action, err)
	}
}

// withClient adds the parsed browser and OS to audit details.
func withClient(details map[string]any, raw string) map[string]any {
	ua := useragent.New(raw)
	name, version := ua.Browser()

	out := make(map[string]any, len(details)+3)
	for k, v := range details {
		out[k] = v
	}
	out["browser"] = strings.TrimSpace(name + " " + version)
	if osName := ua.OS(); osName != "" {
		out["os"] = osName
	}
	out["mobile"] = ua.Mobile()
	return out
}
