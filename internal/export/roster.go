package export

import (
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/roster"
)

// Roster column headers, in output order.
const (
	colNome        = "Nome"
	colEmail       = "Email"
	colTelefone    = "Telefone"
	colNascimento  = "Nascimento"
	colSerie       = "Série"
	colTurma       = "Turma"
	colTurno       = "Turno"
	colResponsavel = "Responsável"
	colPizza       = "Pizza Preferida"
	colStatus      = "Status"
	colCadastro    = "Cadastro"
)

var rosterHeaders = []string{
	colNome, colEmail, colTelefone, colNascimento, colSerie, colTurma,
	colTurno, colResponsavel, colPizza, colStatus, colCadastro,
}

// StatusLabel is the approval column value.
func StatusLabel(approved bool) string {
	if approved {
		return "Aprovado"
	}
	return "Pendente"
}

// RosterDataset converts students into export rows using display labels.
func RosterDataset(students []enrollment.Student) Dataset {
	rows := make([]map[string]string, 0, len(students))
	for _, s := range students {
		rows = append(rows, map[string]string{
			colNome:        s.Nome,
			colEmail:       s.Email,
			colTelefone:    s.Telefone,
			colNascimento:  roster.BirthDateLabel(s.DataNascimento),
			colSerie:       roster.SerieLabel(s.Serie),
			colTurma:       roster.TurmaLabel(s.Turma),
			colTurno:       roster.TurnoLabel(s.Turno),
			colResponsavel: s.Responsavel,
			colPizza:       s.PizzaPreferida,
			colStatus:      StatusLabel(s.Approved),
			colCadastro:    roster.DateLabel(s.CreatedAt),
		})
	}
	return Dataset{Headers: rosterHeaders, Rows: rows}
}
