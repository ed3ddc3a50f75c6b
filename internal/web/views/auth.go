package views

// Login is the admin sign-in page, or the first-admin signup when Signup is set.
type Login struct {
	Signup   bool
	Username string
	Next     string
}

type loginCopy struct {
	heading, lead, action, submit string
	toggleHref, toggle            string
}

func (l Login) copy() loginCopy {
	if l.Signup {
		return loginCopy{
			heading:    "Criar Administrador",
			lead:       "Configure o primeiro administrador do sistema",
			action:     "/admin/signup",
			submit:     "Criar Administrador",
			toggleHref: "/admin/login",
			toggle:     "Já tenho uma conta? Fazer login",
		}
	}
	return loginCopy{
		heading:    "Login Administrativo",
		lead:       "Acesse o painel administrativo",
		action:     "/admin/login",
		submit:     "Entrar",
		toggleHref: "/admin/login?mode=signup",
		toggle:     "Primeiro acesso? Criar administrador",
	}
}
