// Package submission turns a validated enrollment form into exactly one API
// call and reports the outcome as a user notification.
//
// # Message Codes Reference
//
// Every failure shown to a user carries a code so secretariat staff can
// quote it when asking for help. Codes are grouped by category:
//
// # Server Responses (API001-API099)
//
//	API001 - The API supplied its own message; it is shown verbatim
//	API409 - Conflict: the student is already enrolled
//	API400 - Invalid data (400)
//	API422 - Validation data rejected (422)
//	API500 - Internal server error (5xx)
//	API401 - Session expired, admin must sign in again
//
// # Connectivity (NET001)
//
//	NET001 - No response received: refused, DNS failure or timeout
//
// # Local (SUB001-SUB099)
//
//	SUB001 - Form has validation errors, nothing was sent
//	SUB002 - A submission for this form is already in flight
//
// # Authentication (AUTH001-AUTH099)
//
//	AUTH001 - Empty username or password
//	AUTH002 - Wrong username or password (401)
//	AUTH003 - First administrator already exists (409 on signup)
//	AUTH004 - Invalid data (400)
//
// # Default (ERR000)
//
//	ERR000 - Anything else. Check logs for the technical error.
//
// # Precedence
//
// A server-supplied message always wins. After that the HTTP status decides,
// then transport failure, then the per-operation generic message.
package submission

import (
	"errors"
	"net/http"

	"github.com/JonMunkholm/matricula/internal/api"
)

// UserMessage is what a notification shows for a result.
type UserMessage struct {
	Title   string
	Message string
	Code    string
}

// Operation names the action a message belongs to. It selects the title and
// the generic fallback text.
type Operation int

const (
	OpCreate Operation = iota
	OpUpdate
	OpApprove
	OpDelete
	OpLoad
)

type operationText struct {
	successTitle   string
	successMessage string
	failureTitle   string
	genericFailure string
}

var operationTexts = map[Operation]operationText{
	OpCreate: {
		successTitle:   "Matrícula Enviada!",
		successMessage: "Estudante cadastrado com sucesso!",
		failureTitle:   "Erro no Envio",
		genericFailure: "Erro ao cadastrar estudante",
	},
	OpUpdate: {
		successTitle:   "Atualização Realizada",
		successMessage: "Estudante atualizado com sucesso!",
		failureTitle:   "Erro na Atualização",
		genericFailure: "Erro ao atualizar estudante",
	},
	OpApprove: {
		successTitle:   "Aprovação Realizada",
		successMessage: "Estudante aprovado com sucesso!",
		failureTitle:   "Erro na Aprovação",
		genericFailure: "Erro ao aprovar estudante",
	},
	OpDelete: {
		successTitle:   "Exclusão Realizada",
		successMessage: "Estudante excluído com sucesso!",
		failureTitle:   "Erro na Exclusão",
		genericFailure: "Erro ao excluir estudante. Tente novamente.",
	},
	OpLoad: {
		successTitle:   "Dados Atualizados",
		successMessage: "Lista de estudantes atualizada",
		failureTitle:   "Erro de Carregamento",
		genericFailure: "Erro ao carregar estudantes",
	},
}

// AdminCreateTitle replaces the public title when an admin adds a student.
const AdminCreateTitle = "Criação Realizada"

// SuccessMessage returns the notification for a completed operation.
func SuccessMessage(op Operation) UserMessage {
	t := operationTexts[op]
	return UserMessage{Title: t.successTitle, Message: t.successMessage}
}

var (
	msgInvalidForm = UserMessage{
		Title:   "Formulário Incompleto",
		Message: "Corrija os campos destacados antes de enviar",
		Code:    "SUB001",
	}
	msgInFlight = UserMessage{
		Title:   "Envio em Andamento",
		Message: "Aguarde a conclusão do envio anterior",
		Code:    "SUB002",
	}
	msgNetwork = UserMessage{
		Title:   "Erro de Conexão",
		Message: "Erro de conexão. Verifique sua internet e tente novamente",
		Code:    "NET001",
	}
	msgSessionExpired = UserMessage{
		Title:   "Sessão Expirada",
		Message: "Sua sessão expirou. Faça login novamente",
		Code:    "API401",
	}
)

// statusMessages holds the fallback text per HTTP status, used when the API
// sent no message of its own.
var statusMessages = map[int]UserMessage{
	http.StatusConflict:            {Message: "Este estudante já está cadastrado no sistema", Code: "API409"},
	http.StatusBadRequest:          {Message: "Dados inválidos. Verifique as informações enviadas", Code: "API400"},
	http.StatusUnprocessableEntity: {Message: "Dados de validação incorretos", Code: "API422"},
}

var msgServerError = UserMessage{
	Message: "Erro interno do servidor. Tente novamente mais tarde",
	Code:    "API500",
}

// MapError converts a failed operation into the message shown to the user.
func MapError(err error, op Operation) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	t := operationTexts[op]

	switch {
	case errors.Is(err, ErrInvalid):
		return msgInvalidForm
	case errors.Is(err, ErrSubmitInFlight):
		return msgInFlight
	case errors.Is(err, api.ErrUnauthorized):
		return msgSessionExpired
	}

	if msg := api.ServerMessage(err); msg != "" {
		return UserMessage{Title: t.failureTitle, Message: msg, Code: "API001"}
	}

	status := api.StatusOf(err)
	if m, ok := statusMessages[status]; ok {
		m.Title = t.failureTitle
		return m
	}
	if status >= 500 {
		m := msgServerError
		m.Title = t.failureTitle
		return m
	}
	if errors.Is(err, api.ErrNetwork) {
		return msgNetwork
	}

	return UserMessage{Title: t.failureTitle, Message: t.genericFailure, Code: "ERR000"}
}

// AuthMessage maps a login or first-admin signup failure.
func AuthMessage(err error, signup bool) UserMessage {
	if errors.Is(err, api.ErrEmptyCredentials) {
		return UserMessage{Title: "Campos Obrigatórios", Message: "Por favor, preencha todos os campos", Code: "AUTH001"}
	}
	if msg := api.ServerMessage(err); msg != "" {
		return UserMessage{Title: "Erro", Message: msg, Code: "API001"}
	}

	switch status := api.StatusOf(err); {
	case status == http.StatusUnauthorized:
		return UserMessage{Title: "Credenciais Inválidas", Message: "Usuário ou senha incorretos", Code: "AUTH002"}
	case status == http.StatusConflict && signup:
		return UserMessage{Title: "Administrador Existente", Message: "Já existe um administrador cadastrado no sistema", Code: "AUTH003"}
	case status == http.StatusBadRequest:
		return UserMessage{Title: "Dados Inválidos", Message: "Dados inválidos. Verifique as informações fornecidas", Code: "AUTH004"}
	}
	if errors.Is(err, api.ErrNetwork) {
		return msgNetwork
	}
	return UserMessage{Title: "Erro", Message: "Erro de autenticação", Code: "ERR000"}
}
