package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strconv"

	"github.com/JonMunkholm/matricula/internal/enrollment"
)

// Payload is a request body for the student write endpoints.
type Payload interface {
	Encode() (body io.Reader, contentType string, err error)
	Multipart() bool
}

type jsonPayload struct {
	value any
}

func (p jsonPayload) Multipart() bool { return false }

func (p jsonPayload) Encode() (io.Reader, string, error) {
	raw, err := json.Marshal(p.value)
	if err != nil {
		return nil, "", fmt.Errorf("encode json payload: %w", err)
	}
	return bytes.NewReader(raw), "application/json", nil
}

// JSONPayload sends v as a JSON object.
func JSONPayload(v any) Payload { return jsonPayload{value: v} }

type multipartPayload struct {
	fields [][2]string
	file   enrollment.Document
}

func (p multipartPayload) Multipart() bool { return true }

func (p multipartPayload) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, kv := range p.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", kv[0], err)
		}
	}

	if p.file.IsPending() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			enrollment.FieldDocumento, escapeQuotes(p.file.Name)))
		h.Set("Content-Type", documentContentType(p.file))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create file part: %w", err)
		}
		if _, err := part.Write(p.file.Content); err != nil {
			return nil, "", fmt.Errorf("write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

func documentContentType(d enrollment.Document) string {
	if ct := mime.TypeByExtension("." + d.Extension()); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// studentBody is the JSON shape of a create or update without a file.
type studentBody struct {
	Nome           string `json:"nome"`
	Email          string `json:"email"`
	Telefone       string `json:"telefone"`
	DataNascimento string `json:"dataNascimento"`
	Turma          string `json:"turma"`
	Serie          string `json:"serie"`
	Turno          string `json:"turno"`
	Responsavel    string `json:"responsavel"`
	PizzaPreferida string `json:"pizzaPreferida"`
	Endereco       string `json:"endereco,omitempty"`
	Observacoes    string `json:"observacoes,omitempty"`
	Approved       *bool  `json:"approved,omitempty"`
}

// StudentPayload builds the body for a record. A pending document selects a
// multipart body with the file under "documentoIdentidade"; otherwise the
// record is sent as JSON. withApproved adds the approval flag, which only
// edits carry.
func StudentPayload(r enrollment.Record, withApproved bool) Payload {
	if r.Documento.IsPending() {
		p := multipartPayload{file: r.Documento}
		for _, name := range enrollment.TextFields {
			v, _ := r.Text(name)
			if v == "" && (name == enrollment.FieldEndereco || name == enrollment.FieldObservacoes) {
				continue
			}
			p.fields = append(p.fields, [2]string{string(name), v})
		}
		if withApproved {
			p.fields = append(p.fields, [2]string{string(enrollment.FieldApproved), strconv.FormatBool(r.Approved)})
		}
		return p
	}

	body := studentBody{
		Nome:           r.Nome,
		Email:          r.Email,
		Telefone:       r.Telefone,
		DataNascimento: r.DataNascimento,
		Turma:          r.Turma,
		Serie:          r.Serie,
		Turno:          r.Turno,
		Responsavel:    r.Responsavel,
		PizzaPreferida: r.PizzaPreferida,
		Endereco:       r.Endereco,
		Observacoes:    r.Observacoes,
	}
	if withApproved {
		approved := r.Approved
		body.Approved = &approved
	}
	return JSONPayload(body)
}
