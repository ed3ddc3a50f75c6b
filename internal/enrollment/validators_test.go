package enrollment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageOf(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		return ""
	}
	fe, ok := err.(*FieldError)
	require.True(t, ok, "expected *FieldError, got %T", err)
	return fe.Message
}

func TestTextValidators(t *testing.T) {
	tests := []struct {
		name     string
		validate func(string) error
		value    string
		want     string
	}{
		{"nome empty", ValidateNome, "   ", "Nome é obrigatório"},
		{"nome short", ValidateNome, " Al ", "Nome deve ter pelo menos 3 letras"},
		{"nome ok", ValidateNome, "Ana", ""},
		{"nome accents count as letters", ValidateNome, "Zoé", ""},
		{"email empty", ValidateEmail, "", "Email é obrigatório"},
		{"email no domain dot", ValidateEmail, "ana@escola", "Email inválido"},
		{"email with spaces", ValidateEmail, "ana silva@escola.com", "Email inválido"},
		{"email ok", ValidateEmail, "ana@escola.com.br", ""},
		{"telefone empty", ValidateTelefone, "", "Telefone é obrigatório"},
		{"telefone partial", ValidateTelefone, "(11) 9999", "Telefone inválido. Use o formato (11) 99999-9999"},
		{"telefone landline", ValidateTelefone, "(11) 3333-4444", ""},
		{"telefone mobile", ValidateTelefone, "(11) 99999-8888", ""},
		{"telefone 11 digits without 9", ValidateTelefone, "(11) 33333-4444", "Telefone inválido. Use o formato (11) 99999-9999"},
		{"turma empty", ValidateTurma, "", "Turma é obrigatória"},
		{"turma unknown", ValidateTurma, "z", "Turma inválida"},
		{"turma ok", ValidateTurma, "c", ""},
		{"serie empty", ValidateSerie, "", "Série é obrigatória"},
		{"serie unknown", ValidateSerie, "10ano", "Série inválida"},
		{"serie ok", ValidateSerie, "2medio", ""},
		{"turno empty", ValidateTurno, "", "Turno é obrigatório"},
		{"turno unknown", ValidateTurno, "madrugada", "Turno inválido"},
		{"turno ok", ValidateTurno, "integral", ""},
		{"responsavel empty", ValidateResponsavel, "", "Nome do responsável é obrigatório"},
		{"responsavel short", ValidateResponsavel, "Jo", "Nome do responsável deve ter pelo menos 3 letras"},
		{"responsavel ok", ValidateResponsavel, "João", ""},
		{"pizza empty", ValidatePizzaPreferida, "", "Pizza preferida é obrigatória"},
		{"pizza short", ValidatePizzaPreferida, "x", "Informe uma pizza válida"},
		{"pizza ok", ValidatePizzaPreferida, "Calabresa", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageOf(t, tt.validate(tt.value)))
		})
	}
}

func TestValidateDataNascimento(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty", "", "Data de nascimento é obrigatória"},
		{"malformed", "15/06/2020", "Data de nascimento inválida"},
		{"future", "2025-06-16", "Data de nascimento não pode ser futura"},
		{"today is too young", "2025-06-15", "Idade mínima: 3 anos"},
		{"day before third birthday", "2022-06-16", "Idade mínima: 3 anos"},
		{"third birthday", "2022-06-15", ""},
		{"older", "2010-01-01", ""},
		{"api timestamp", "2015-04-20T00:00:00.000Z", ""},
		{"timestamp with offset", "2015-04-20T00:00:00-03:00", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messageOf(t, ValidateDataNascimento(tt.value, now)))
		})
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2015-04-20", NormalizeDate("2015-04-20T00:00:00.000Z"))
	assert.Equal(t, "2015-04-20", NormalizeDate("2015-04-20T23:30:00-03:00"))
	assert.Equal(t, "2015-04-20", NormalizeDate(" 2015-04-20 "))
	assert.Equal(t, "20/04/2015", NormalizeDate("20/04/2015"))
	assert.Equal(t, "", NormalizeDate(""))
}

func TestAgeOn(t *testing.T) {
	birth := time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, AgeOn(birth, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, AgeOn(birth, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestValidateDocumento(t *testing.T) {
	policy := DefaultDocumentPolicy()

	assert.Equal(t, "Documento de identidade é obrigatório",
		messageOf(t, ValidateDocumento(Document{}, ModeCreate, policy)))
	assert.NoError(t, ValidateDocumento(Document{}, ModeEdit, policy))
	assert.NoError(t, ValidateDocumento(StoredDocument("https://files/doc.png"), ModeEdit, policy))
	assert.NoError(t, ValidateDocumento(PendingDocument("rg.pdf", make([]byte, 2048)), ModeCreate, policy))

	msg := messageOf(t, ValidateDocumento(PendingDocument("rg.exe", make([]byte, 2048)), ModeCreate, policy))
	assert.Contains(t, msg, "Tipo de arquivo não suportado")
}

func TestCheckDocument(t *testing.T) {
	policy := DocumentPolicy{MaxSize: 3 * 1024 * 1024, AllowedExtensions: []string{"pdf", "png"}}

	t.Run("too large", func(t *testing.T) {
		_, err := CheckDocument(PendingDocument("rg.png", make([]byte, 3*1024*1024+1)), policy)
		require.ErrorIs(t, err, ErrDocumentTooLarge)
		assert.Contains(t, err.Error(), "Tamanho máximo: 3MB")
	})

	t.Run("extension case insensitive", func(t *testing.T) {
		warnings, err := CheckDocument(PendingDocument("RG.PNG", make([]byte, 4096)), policy)
		require.NoError(t, err)
		assert.Empty(t, warnings)
	})

	t.Run("unsupported type lists accepted formats", func(t *testing.T) {
		_, err := CheckDocument(PendingDocument("rg.jpg", make([]byte, 4096)), policy)
		require.ErrorIs(t, err, ErrDocumentType)
		assert.Contains(t, err.Error(), ".pdf,.png")
	})

	t.Run("tiny file warns", func(t *testing.T) {
		warnings, err := CheckDocument(PendingDocument("rg.png", make([]byte, 10)), policy)
		require.NoError(t, err)
		assert.Len(t, warnings, 1)
	})

	t.Run("large pdf warns", func(t *testing.T) {
		warnings, err := CheckDocument(PendingDocument("rg.pdf", make([]byte, 2*1024*1024+1)), policy)
		require.NoError(t, err)
		assert.Equal(t, []string{"PDF muito grande. Considere compactar o arquivo."}, warnings)
	})

	t.Run("nothing selected", func(t *testing.T) {
		_, err := CheckDocument(StoredDocument("https://files/x.pdf"), policy)
		assert.ErrorIs(t, err, ErrDocumentNotPending)
	})
}
