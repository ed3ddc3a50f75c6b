package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

type fakeTokens struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, nil
}

func (f *fakeTokens) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.cleared++
	return nil
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 2*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func validRecord() enrollment.Record {
	return enrollment.Record{
		Nome:           "Maria Silva",
		Email:          "maria@escola.com",
		Telefone:       "(11) 99999-8888",
		DataNascimento: "2015-04-20",
		Turma:          "a",
		Serie:          "3ano",
		Turno:          "manha",
		Responsavel:    "Joana Silva",
		PizzaPreferida: "Margherita",
	}
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://files", 0)
	assert.Error(t, err)

	c, err := New("", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
}

func TestCreateStudent_Multipart(t *testing.T) {
	var gotFields map[string]string
	var gotFile []byte
	var gotFilename string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/student", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		f, hdr, err := r.FormFile("documentoIdentidade")
		require.NoError(t, err)
		defer f.Close()
		gotFilename = hdr.Filename
		gotFile, _ = io.ReadAll(f)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "st-1", "nome": gotFields["nome"]})
	})

	rec := validRecord()
	rec.Documento = enrollment.PendingDocument("rg.pdf", []byte("%PDF-1.4 content"))

	st, err := c.CreateStudent(context.Background(), StudentPayload(rec, false))
	require.NoError(t, err)
	assert.Equal(t, "st-1", st.ID)

	assert.Equal(t, "Maria Silva", gotFields["nome"])
	assert.Equal(t, "(11) 99999-8888", gotFields["telefone"])
	assert.NotContains(t, gotFields, "approved", "creation never carries the approval flag")
	assert.NotContains(t, gotFields, "endereco")
	assert.Equal(t, "rg.pdf", gotFilename)
	assert.Equal(t, []byte("%PDF-1.4 content"), gotFile)
}

func TestUpdateStudent_JSONWithBearer(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/student/st-9", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "st-9", "approved": false})
	})

	tokens := &fakeTokens{token: "tok-1"}
	rec := validRecord()
	rec.Documento = enrollment.StoredDocument("https://files/rg.pdf")

	st, err := c.WithSession(tokens).UpdateStudent(context.Background(), "st-9", StudentPayload(rec, true))
	require.NoError(t, err)
	assert.Equal(t, "st-9", st.ID)
	assert.Equal(t, false, body["approved"])
	assert.NotContains(t, body, "documentosUrl")
	assert.NotContains(t, body, "documentoIdentidade")
}

func TestWithSession_DoesNotMutateOriginal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})
	_ = c.WithSession(&fakeTokens{token: "x"})

	_, err := c.ListStudents(context.Background())
	require.NoError(t, err)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized","statusCode":401}`))
	})
	tokens := &fakeTokens{token: "stale"}

	_, err := c.WithSession(tokens).ListStudents(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 401, StatusOf(err))
	assert.Equal(t, 1, tokens.cleared)
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"string message", 409, `{"message":"Email já cadastrado"}`, "Email já cadastrado"},
		{"array message", 400, `{"message":["nome should not be empty","email must be an email"]}`, "nome should not be empty; email must be an email"},
		{"no body", 500, ``, ""},
		{"html body", 502, `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			err := c.DeleteStudent(context.Background(), "st-1")

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, ServerMessage(err))
			assert.False(t, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	var observed []int
	c, err := New(url, time.Second, WithObserver(func(_, _ string, status int, _ time.Duration) {
		observed = append(observed, status)
	}))
	require.NoError(t, err)

	_, err = c.ListStudents(context.Background())
	assert.ErrorIs(t, err, ErrNetwork)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, []int{0}, observed)
}

func TestApproveStudent(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/student/st-3/approve", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"st-3","approved":true}`))
	})

	st, err := c.ApproveStudent(context.Background(), "st-3")
	require.NoError(t, err)
	assert.True(t, st.Approved)
	assert.Equal(t, 1, calls)
}

func TestMutations_EmptyBodyReturnsNilStudent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	created, err := c.CreateStudent(ctx, StudentPayload(validRecord(), false))
	require.NoError(t, err)
	assert.Nil(t, created)

	updated, err := c.UpdateStudent(ctx, "st-9", StudentPayload(validRecord(), true))
	require.NoError(t, err)
	assert.Nil(t, updated)

	approved, err := c.ApproveStudent(ctx, "st-9")
	require.NoError(t, err)
	assert.Nil(t, approved)
}

func TestEmptyIDRejectedWithoutRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
	})

	assert.Error(t, c.DeleteStudent(context.Background(), ""))
	_, err := c.GetStudent(context.Background(), "")
	assert.Error(t, err)
}
