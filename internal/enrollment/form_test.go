package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

func fillValid(t *testing.T, f *Form) {
	t.Helper()
	values := map[FieldName]string{
		FieldNome:           "Maria Silva",
		FieldEmail:          "maria@escola.com",
		FieldTelefone:       "11999998888",
		FieldDataNascimento: "2015-04-20",
		FieldTurma:          "a",
		FieldSerie:          "3ano",
		FieldTurno:          ShiftMorning,
		FieldResponsavel:    "Joana Silva",
		FieldPizzaPreferida: "Margherita",
	}
	for name, v := range values {
		require.NoError(t, f.SetField(name, Text(v)))
	}
	require.NoError(t, f.SetField(FieldDocumento, File(PendingDocument("rg.pdf", make([]byte, 4096)))))
}

func TestForm_SetFieldMasksPhone(t *testing.T) {
	f := NewCreateForm()
	require.NoError(t, f.SetField(FieldTelefone, Text("11999998888")))
	assert.Equal(t, "(11) 99999-8888", f.Record().Telefone)
}

func TestForm_SetFieldRejectsWrongKind(t *testing.T) {
	f := NewCreateForm()

	assert.ErrorIs(t, f.SetField(FieldNome, Bool(true)), ErrValueKind)
	assert.ErrorIs(t, f.SetField(FieldDocumento, Text("rg.pdf")), ErrValueKind)
	assert.ErrorIs(t, f.SetField(FieldName("cpf"), Text("x")), ErrUnknownField)
}

func TestForm_SetFieldClearsOnlyThatError(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow))
	require.False(t, f.ValidateAll())
	require.NotEmpty(t, f.Error(FieldNome))
	require.NotEmpty(t, f.Error(FieldEmail))

	require.NoError(t, f.SetField(FieldNome, Text("x")))

	assert.Empty(t, f.Error(FieldNome), "error is cleared optimistically, not re-validated")
	assert.Equal(t, "Email é obrigatório", f.Error(FieldEmail))
}

func TestForm_ValidateAllEmpty(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow))

	assert.False(t, f.ValidateAll())
	errs := f.Errors()
	assert.Equal(t, "Nome é obrigatório", errs[FieldNome])
	assert.Equal(t, "Documento de identidade é obrigatório", errs[FieldDocumento])
	assert.Len(t, errs, 10)
	assert.NotContains(t, errs, FieldEndereco)
	assert.NotContains(t, errs, FieldObservacoes)
}

func TestForm_ValidateAllExactFailures(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow))
	fillValid(t, f)
	require.True(t, f.ValidateAll())
	assert.Empty(t, f.Errors())

	require.NoError(t, f.SetField(FieldEmail, Text("not-an-email")))
	require.NoError(t, f.SetField(FieldDataNascimento, Text("2030-01-01")))

	assert.False(t, f.ValidateAll())
	assert.Equal(t, map[FieldName]string{
		FieldEmail:          "Email inválido",
		FieldDataNascimento: "Data de nascimento não pode ser futura",
	}, f.Errors())
}

func TestForm_ErrorsReturnsCopy(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow))
	f.ValidateAll()

	errs := f.Errors()
	delete(errs, FieldNome)

	assert.NotEmpty(t, f.Error(FieldNome))
}

func TestForm_Reset(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow))
	fillValid(t, f)
	require.NoError(t, f.SetField(FieldEmail, Text("")))
	f.ValidateAll()

	f.Reset()

	assert.Equal(t, Record{}, f.Record())
	assert.Empty(t, f.Errors())
}

func TestForm_EditMode(t *testing.T) {
	student := Student{
		ID:             "st-1",
		Nome:           "Pedro Souza",
		Email:          "pedro@escola.com",
		Telefone:       "(21) 3333-4444",
		DataNascimento: "2012-01-05",
		Turma:          "b",
		Serie:          "7ano",
		Turno:          ShiftAfternoon,
		Responsavel:    "Carla Souza",
		PizzaPreferida: "Portuguesa",
		DocumentosURL:  "https://files/pedro.png",
	}
	f := NewEditForm(student, WithClock(fixedNow))

	assert.Equal(t, ModeEdit, f.Mode())
	assert.Equal(t, DocumentStored, f.Record().Documento.State())
	assert.True(t, f.ValidateAll(), "document is optional when editing: %v", f.Errors())
	assert.False(t, f.ApprovalGranted())

	require.NoError(t, f.SetField(FieldApproved, Bool(true)))
	assert.True(t, f.ApprovalGranted())

	require.NoError(t, f.SetField(FieldNome, Text("Outro Nome")))
	f.Reset()
	assert.Equal(t, "Pedro Souza", f.Record().Nome)
	assert.False(t, f.Record().Approved)
}

func TestForm_EditModeTimestampBirthDate(t *testing.T) {
	student := Student{
		ID:             "st-2",
		Nome:           "Lara Mendes",
		Email:          "lara@escola.com",
		Telefone:       "(11) 98888-7777",
		DataNascimento: "2015-04-20T00:00:00.000Z",
		Turma:          "a",
		Serie:          "4ano",
		Turno:          ShiftMorning,
		Responsavel:    "Rita Mendes",
		PizzaPreferida: "Calabresa",
	}
	f := NewEditForm(student, WithClock(fixedNow))

	assert.Equal(t, "2015-04-20", f.Record().DataNascimento)
	assert.True(t, f.ValidateAll(), "untouched edit form must validate: %v", f.Errors())
}

func TestForm_DocumentPolicyOption(t *testing.T) {
	f := NewCreateForm(WithClock(fixedNow), WithDocumentPolicy(DocumentPolicy{
		MaxSize:           1024,
		AllowedExtensions: []string{"pdf"},
	}))
	fillValid(t, f)

	assert.False(t, f.ValidateAll())
	assert.Contains(t, f.Error(FieldDocumento), "Arquivo muito grande")
}

func TestForm_CloneIsIndependent(t *testing.T) {
	f := NewEditForm(Student{ID: "st-1", Nome: "Pedro Souza"}, WithClock(fixedNow))
	f.ValidateAll()

	c := f.Clone()
	require.NoError(t, c.SetField(FieldNome, Text("Outro Nome")))
	c.Reset()
	require.NoError(t, c.SetField(FieldEmail, Text("x@y.com")))

	assert.Equal(t, "Pedro Souza", f.Record().Nome)
	assert.Empty(t, f.Record().Email)
	assert.NotEmpty(t, f.Error(FieldEmail), "errors on the original are untouched")
	assert.Empty(t, c.Error(FieldEmail))
	assert.Equal(t, "st-1", c.Original().ID)
	assert.NotSame(t, f.Original(), c.Original())
}

func TestStudent_WithRecord(t *testing.T) {
	created := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	s := Student{ID: "st-1", Nome: "Pedro", DocumentosURL: "/uploads/rg.pdf", CreatedAt: created}
	rec := RecordFromStudent(s)
	rec.Nome = "Pedro Souza"
	rec.Observacoes = "Alergia"
	rec.Approved = true

	got := s.WithRecord(rec)

	assert.Equal(t, "st-1", got.ID)
	assert.Equal(t, "Pedro Souza", got.Nome)
	assert.Equal(t, "Alergia", got.Observacoes)
	assert.True(t, got.Approved)
	assert.Equal(t, "/uploads/rg.pdf", got.DocumentosURL)
	assert.Equal(t, created, got.CreatedAt)
}
