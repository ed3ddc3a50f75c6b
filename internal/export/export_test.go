package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

func students() []enrollment.Student {
	return []enrollment.Student{
		{
			Nome: "Ana Lima", Email: "ana@escola.com", Telefone: "(11) 99999-8888",
			DataNascimento: "2015-04-20", Serie: "1medio", Turma: "a", Turno: "manha",
			Responsavel: "Rita; Lima", PizzaPreferida: "Calabresa", Approved: true,
			CreatedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		},
		{Nome: "Bruno Alves", Turno: "noite", DataNascimento: "2013-09-02T00:00:00.000Z"},
	}
}

func TestRosterDataset(t *testing.T) {
	ds := RosterDataset(students())

	require.Len(t, ds.Rows, 2)
	row := ds.Rows[0]
	assert.Equal(t, "1º Ano do Ensino Médio", row[colSerie])
	assert.Equal(t, "A", row[colTurma])
	assert.Equal(t, "Manhã", row[colTurno])
	assert.Equal(t, "20/04/2015", row[colNascimento])
	assert.Equal(t, "Aprovado", row[colStatus])
	assert.Equal(t, "01/06/2025", row[colCadastro])
	assert.Equal(t, "Pendente", ds.Rows[1][colStatus])
	assert.Equal(t, "02/09/2013", ds.Rows[1][colNascimento])
}

func TestCSVExporter_Render(t *testing.T) {
	out, err := NewCSVExporter(';', true).Render(RosterDataset(students()))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("\ufeff")))

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte("\ufeff"))))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, rosterHeaders, records[0])
	assert.Equal(t, "Rita; Lima", records[1][7], "separator inside a value is quoted")
}

func TestCSVExporter_RequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter(0, false).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporter_Render(t *testing.T) {
	e := NewPDFExporter()
	e.now = func() time.Time { return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC) }

	rows := RosterDataset(students())
	for i := 0; i < 80; i++ {
		rows.Rows = append(rows.Rows, rows.Rows[0])
	}

	out, err := e.Render(rows, "Estudantes Matriculados")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = e.Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestXLSXExporter_Render(t *testing.T) {
	out, err := NewXLSXExporter("Estudantes").Render(RosterDataset(students()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Estudantes")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rosterHeaders, rows[0])
	assert.Equal(t, "Ana Lima", rows[1][0])

	_, err = NewXLSXExporter("").Render(Dataset{})
	assert.Error(t, err)
}
