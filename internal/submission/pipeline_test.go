package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/enrollment"
	"github.com/JonMunkholm/matricula/internal/notify"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC) }

type call struct {
	method  string
	id      string
	payload api.Payload
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	err   error
	block chan struct{}
}

func (f *fakeAPI) record(c call) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeAPI) CreateStudent(_ context.Context, p api.Payload) (*enrollment.Student, error) {
	if err := f.record(call{method: "create", payload: p}); err != nil {
		return nil, err
	}
	return &enrollment.Student{ID: "new-1"}, nil
}

func (f *fakeAPI) UpdateStudent(_ context.Context, id string, p api.Payload) (*enrollment.Student, error) {
	if err := f.record(call{method: "update", id: id, payload: p}); err != nil {
		return nil, err
	}
	return &enrollment.Student{ID: id}, nil
}

func (f *fakeAPI) ApproveStudent(_ context.Context, id string) (*enrollment.Student, error) {
	if err := f.record(call{method: "approve", id: id}); err != nil {
		return nil, err
	}
	return &enrollment.Student{ID: id, Approved: true}, nil
}

func (f *fakeAPI) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type shown struct {
	kind    notify.Kind
	message string
	title   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	list []shown
}

func (n *fakeNotifier) Show(kind notify.Kind, message, title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, shown{kind, message, title})
}

func (n *fakeNotifier) Last() shown {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.list) == 0 {
		return shown{}
	}
	return n.list[len(n.list)-1]
}

func filledCreateForm(t *testing.T) *enrollment.Form {
	t.Helper()
	f := enrollment.NewCreateForm(enrollment.WithClock(fixedNow))
	values := map[enrollment.FieldName]string{
		enrollment.FieldNome:           "Maria Silva",
		enrollment.FieldEmail:          "maria@escola.com",
		enrollment.FieldTelefone:       "11999998888",
		enrollment.FieldDataNascimento: "2015-04-20",
		enrollment.FieldTurma:          "a",
		enrollment.FieldSerie:          "3ano",
		enrollment.FieldTurno:          enrollment.ShiftMorning,
		enrollment.FieldResponsavel:    "Joana Silva",
		enrollment.FieldPizzaPreferida: "Margherita",
	}
	for name, v := range values {
		require.NoError(t, f.SetField(name, enrollment.Text(v)))
	}
	require.NoError(t, f.SetField(enrollment.FieldDocumento,
		enrollment.File(enrollment.PendingDocument("rg.pdf", make([]byte, 4096)))))
	return f
}

func persistedStudent() enrollment.Student {
	return enrollment.Student{
		ID:             "st-1",
		Nome:           "Pedro Souza",
		Email:          "pedro@escola.com",
		Telefone:       "(21) 3333-4444",
		DataNascimento: "2012-01-05",
		Turma:          "b",
		Serie:          "7ano",
		Turno:          enrollment.ShiftAfternoon,
		Responsavel:    "Carla Souza",
		PizzaPreferida: "Portuguesa",
		DocumentosURL:  "https://files/pedro.png",
	}
}

func TestSubmit_InvalidFormMakesNoCall(t *testing.T) {
	fake := &fakeAPI{}
	n := &fakeNotifier{}
	p := New(fake, n, NewInFlight())

	f := filledCreateForm(t)
	require.NoError(t, f.SetField(enrollment.FieldNome, enrollment.Text("")))

	_, err := p.Submit(context.Background(), "k", f)

	assert.ErrorIs(t, err, ErrInvalid)
	assert.Empty(t, fake.Calls())
	assert.Equal(t, "Nome é obrigatório", f.Error(enrollment.FieldNome))
	assert.Equal(t, shown{}, n.Last())
}

func TestSubmit_CreateSendsMultipartAndResets(t *testing.T) {
	fake := &fakeAPI{}
	n := &fakeNotifier{}
	var observed []Operation
	p := New(fake, n, NewInFlight(), WithObserver(func(_ context.Context, op Operation, _ *enrollment.Student, err error) {
		assert.NoError(t, err)
		observed = append(observed, op)
	}))

	f := filledCreateForm(t)
	res, err := p.Submit(context.Background(), "k", f)

	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, "new-1", res.Student.ID)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].method)
	assert.True(t, calls[0].payload.Multipart())

	assert.Equal(t, enrollment.Record{}, f.Record(), "create resets the form")
	assert.Equal(t, shown{notify.Success, "Estudante cadastrado com sucesso!", "Matrícula Enviada!"}, n.Last())
	assert.Equal(t, []Operation{OpCreate}, observed)
}

func TestSubmit_ConflictKeepsForm(t *testing.T) {
	fake := &fakeAPI{err: &api.Error{Status: 409}}
	n := &fakeNotifier{}
	p := New(fake, n, NewInFlight())

	f := filledCreateForm(t)
	before := f.Record()

	res, err := p.Submit(context.Background(), "k", f)

	require.Error(t, err)
	assert.False(t, res.Completed)
	assert.Len(t, fake.Calls(), 1, "never retried")
	assert.Equal(t, before, f.Record())
	assert.Equal(t, shown{notify.Error, "Este estudante já está cadastrado no sistema", "Erro no Envio"}, n.Last())
}

func TestSubmit_ServerMessageWins(t *testing.T) {
	fake := &fakeAPI{err: &api.Error{Status: 409, Message: "Email já cadastrado"}}
	n := &fakeNotifier{}
	p := New(fake, n, NewInFlight())

	_, err := p.Submit(context.Background(), "k", filledCreateForm(t))

	require.Error(t, err)
	assert.Equal(t, "Email já cadastrado", n.Last().message)
}

func TestSubmit_ApprovalFlipCallsOnlyApprove(t *testing.T) {
	fake := &fakeAPI{}
	n := &fakeNotifier{}
	p := New(fake, n, NewInFlight())

	f := enrollment.NewEditForm(persistedStudent(), enrollment.WithClock(fixedNow))
	require.NoError(t, f.SetField(enrollment.FieldApproved, enrollment.Bool(true)))

	res, err := p.Submit(context.Background(), "k", f)

	require.NoError(t, err)
	assert.Equal(t, OpApprove, res.Operation)
	assert.True(t, res.Student.Approved)
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, call{method: "approve", id: "st-1"}, calls[0])
	assert.Equal(t, "Aprovação Realizada", n.Last().title)
	assert.True(t, f.Record().Approved, "edit forms are not reset")
}

func TestSubmit_EditWithoutFileSendsJSON(t *testing.T) {
	fake := &fakeAPI{}
	n := &fakeNotifier{}
	p := New(fake, n, NewInFlight())

	f := enrollment.NewEditForm(persistedStudent(), enrollment.WithClock(fixedNow))
	require.NoError(t, f.SetField(enrollment.FieldNome, enrollment.Text("Pedro S. Souza")))

	res, err := p.Submit(context.Background(), "k", f)

	require.NoError(t, err)
	assert.Equal(t, OpUpdate, res.Operation)
	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "update", calls[0].method)
	assert.False(t, calls[0].payload.Multipart())
	assert.Equal(t, shown{notify.Success, "Estudante atualizado com sucesso!", "Atualização Realizada"}, n.Last())
}

func TestSubmit_EditWithNewFileSendsMultipart(t *testing.T) {
	fake := &fakeAPI{}
	p := New(fake, &fakeNotifier{}, NewInFlight())

	f := enrollment.NewEditForm(persistedStudent(), enrollment.WithClock(fixedNow))
	require.NoError(t, f.SetField(enrollment.FieldDocumento,
		enrollment.File(enrollment.PendingDocument("novo.png", make([]byte, 4096)))))

	_, err := p.Submit(context.Background(), "k", f)

	require.NoError(t, err)
	assert.True(t, fake.Calls()[0].payload.Multipart())
}

func TestSubmit_SecondConcurrentSubmitRejected(t *testing.T) {
	fake := &fakeAPI{block: make(chan struct{})}
	guard := NewInFlight()
	p := New(fake, &fakeNotifier{}, guard)

	done := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), "k", filledCreateForm(t))
		done <- err
	}()

	require.Eventually(t, func() bool { return guard.Busy("k") }, time.Second, time.Millisecond)

	_, err := p.Submit(context.Background(), "k", filledCreateForm(t))
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(fake.block)
	require.NoError(t, <-done)
	assert.Len(t, fake.Calls(), 1)
	assert.Equal(t, 0, guard.ActiveCount())
}

func TestSubmit_CustomCreateTitle(t *testing.T) {
	n := &fakeNotifier{}
	p := New(&fakeAPI{}, n, NewInFlight(), WithCreateTitle(AdminCreateTitle))

	_, err := p.Submit(context.Background(), "k", filledCreateForm(t))

	require.NoError(t, err)
	assert.Equal(t, "Criação Realizada", n.Last().title)
}

func TestMapError(t *testing.T) {
	network := fmt.Errorf("%w: dial tcp: connection refused", api.ErrNetwork)

	tests := []struct {
		name string
		err  error
		op   Operation
		code string
		msg  string
	}{
		{"server message beats status", &api.Error{Status: 500, Message: "falha no storage"}, OpCreate, "API001", "falha no storage"},
		{"conflict", &api.Error{Status: 409}, OpCreate, "API409", "Este estudante já está cadastrado no sistema"},
		{"bad request", &api.Error{Status: 400}, OpUpdate, "API400", "Dados inválidos. Verifique as informações enviadas"},
		{"unprocessable", &api.Error{Status: 422}, OpUpdate, "API422", "Dados de validação incorretos"},
		{"server error", &api.Error{Status: 503}, OpCreate, "API500", "Erro interno do servidor. Tente novamente mais tarde"},
		{"network", network, OpCreate, "NET001", "Erro de conexão. Verifique sua internet e tente novamente"},
		{"unauthorized", &api.Error{Status: 401, Message: "Unauthorized"}, OpDelete, "API401", "Sua sessão expirou. Faça login novamente"},
		{"generic delete", errors.New("boom"), OpDelete, "ERR000", "Erro ao excluir estudante. Tente novamente."},
		{"generic load", &api.Error{Status: 404}, OpLoad, "ERR000", "Erro ao carregar estudantes"},
		{"in flight", ErrSubmitInFlight, OpCreate, "SUB002", "Aguarde a conclusão do envio anterior"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err, tt.op)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.msg, got.Message)
		})
	}

	assert.Equal(t, UserMessage{}, MapError(nil, OpCreate))
	assert.Equal(t, "Erro na Exclusão", MapError(errors.New("x"), OpDelete).Title)
	assert.Equal(t, "Erro de Carregamento", MapError(errors.New("x"), OpLoad).Title)
}

func TestAuthMessage(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		signup bool
		title  string
		msg    string
	}{
		{"empty fields", api.ErrEmptyCredentials, false, "Campos Obrigatórios", "Por favor, preencha todos os campos"},
		{"server message", &api.Error{Status: 401, Message: "Senha expirada"}, false, "Erro", "Senha expirada"},
		{"wrong password", &api.Error{Status: 401}, false, "Credenciais Inválidas", "Usuário ou senha incorretos"},
		{"admin exists", &api.Error{Status: 409}, true, "Administrador Existente", "Já existe um administrador cadastrado no sistema"},
		{"conflict on login is generic", &api.Error{Status: 409}, false, "Erro", "Erro de autenticação"},
		{"bad request", &api.Error{Status: 400}, true, "Dados Inválidos", "Dados inválidos. Verifique as informações fornecidas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AuthMessage(tt.err, tt.signup)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.msg, got.Message)
		})
	}
}

func TestInFlight_WaitForDrain(t *testing.T) {
	g := NewInFlight()
	require.True(t, g.TryAcquire("a"))
	require.False(t, g.TryAcquire("a"))
	require.True(t, g.TryAcquire("b"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.WaitForDrain(ctx), context.DeadlineExceeded)

	g.Release("a")
	g.Release("b")
	assert.NoError(t, g.WaitForDrain(context.Background()))
}
