package web

import (
	"net/http"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/notify"
	"github.com/JonMunkholm/matricula/internal/session"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web/middleware"
	"github.com/JonMunkholm/matricula/internal/web/views"
)

const loginTitle = "Login Administrativo"

// handleLoginPage renders the login form, or the first-admin signup form
// with ?mode=signup. Signed-in admins go straight to the panel.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := middleware.SafeNext(r.URL.Query().Get("next"), "/admin")
	if username(r) != "" {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, loginTitle, views.LoginView(views.Login{
		Signup: r.URL.Query().Get("mode") == "signup",
		Next:   next,
	}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, false)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	s.authenticate(w, r, true)
}

// authenticate exchanges the posted credentials for a token and stores it in
// the session. A successful first-admin signup signs the admin in as well.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, signup bool) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, err, submission.OpLoad, http.StatusBadRequest)
		return
	}
	creds := api.Credentials{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}
	next := middleware.SafeNext(r.PostForm.Get("next"), "/admin")
	st := s.state(r)
	logger := logging.FromContext(r.Context())

	call, action, metric := s.api.Login, audit.ActionLogin, "login"
	if signup {
		call, action, metric = s.api.SignupFirstAdmin, audit.ActionSignupAdmin, "signup"
	}

	resp, err := call(r.Context(), creds)
	if err == nil {
		err = sessionOf(r).SetToken(r.Context(), resp.AccessToken, session.User{
			ID:       resp.User.ID,
			Username: resp.User.Username,
			Role:     resp.User.Role,
		})
	}
	s.observeAdmin(metric, err)

	if err != nil {
		msg := submission.AuthMessage(err, signup)
		logger.Warn("admin authentication failed", "signup", signup, "code", msg.Code, "error", err)
		st.presenter.Show(notify.Error, msg.Message, msg.Title)
		s.recordAudit(r, audit.Params{
			Action:   audit.ActionLoginFailed,
			Username: creds.Username,
			Details:  map[string]any{"signup": signup, "code": msg.Code},
			Err:      err,
		})
		s.render(w, r, http.StatusUnauthorized, loginTitle, views.LoginView(views.Login{
			Signup:   signup,
			Username: creds.Username,
			Next:     next,
		}))
		return
	}

	if signup {
		st.presenter.Show(notify.Success, "Administrador criado com sucesso!", "Conta Criada")
	} else {
		st.presenter.Show(notify.Success, "Login realizado com sucesso!", "Bem-vindo")
	}
	st.resetAdmin()
	s.recordAudit(r, audit.Params{Action: action, Username: resp.User.Username})
	logger.Info("admin signed in", "username", resp.User.Username, "signup", signup)

	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleLogout clears the stored token and the session's page state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	name := username(r)
	if err := sessionOf(r).Clear(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("logout failed", "error", err)
	}
	if name != "" {
		s.recordAudit(r, audit.Params{Action: audit.ActionLogout, Username: name})
	}
	s.states.drop(sessionOf(r).ID())

	s.state(r).presenter.Show(notify.Info, "Você saiu do painel administrativo", "Sessão Encerrada")
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}
