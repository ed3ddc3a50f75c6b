package enrollment

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DocumentState tells whether an identity document is missing, waiting to be
// uploaded, or already stored by the API.
type DocumentState int

const (
	DocumentAbsent DocumentState = iota
	DocumentPending
	DocumentStored
)

// Document is the identity document attached to a record.
type Document struct {
	state   DocumentState
	Name    string
	Size    int64
	Content []byte
	URL     string
}

// PendingDocument wraps a selected file that has not been uploaded yet.
func PendingDocument(name string, content []byte) Document {
	return Document{
		state:   DocumentPending,
		Name:    name,
		Size:    int64(len(content)),
		Content: content,
	}
}

// StoredDocument references a document the API already holds.
func StoredDocument(url string) Document {
	return Document{state: DocumentStored, URL: url}
}

// State reports the document variant.
func (d Document) State() DocumentState { return d.state }

// IsPending reports whether d carries file bytes to upload.
func (d Document) IsPending() bool { return d.state == DocumentPending }

// Extension returns the lower-case extension of the file name without the dot.
func (d Document) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name)), ".")
}

// DefaultMaxDocumentSize is the largest accepted identity document (5 MB).
const DefaultMaxDocumentSize = 5 * 1024 * 1024

// DefaultAllowedExtensions are the identity document formats accepted by default.
var DefaultAllowedExtensions = []string{"pdf", "jpg", "jpeg", "png"}

// DocumentPolicy bounds the identity documents a form accepts.
type DocumentPolicy struct {
	MaxSize           int64
	AllowedExtensions []string
}

// DefaultDocumentPolicy returns the 5 MB pdf/jpg/jpeg/png policy.
func DefaultDocumentPolicy() DocumentPolicy {
	return DocumentPolicy{
		MaxSize:           DefaultMaxDocumentSize,
		AllowedExtensions: DefaultAllowedExtensions,
	}
}

// Accept renders the allow-list the way an HTML file input expects it.
func (p DocumentPolicy) Accept() string {
	exts := make([]string, len(p.AllowedExtensions))
	for i, ext := range p.AllowedExtensions {
		exts[i] = "." + ext
	}
	return strings.Join(exts, ",")
}

func (p DocumentPolicy) allows(ext string) bool {
	for _, allowed := range p.AllowedExtensions {
		if strings.EqualFold(strings.TrimPrefix(allowed, "."), ext) {
			return true
		}
	}
	return false
}

var (
	ErrDocumentTooLarge   = errors.New("Arquivo muito grande")
	ErrDocumentType       = errors.New("Tipo de arquivo não suportado")
	ErrDocumentNotPending = errors.New("Nenhum arquivo selecionado")
)

// Thresholds for advisory warnings on identity documents.
const (
	smallDocumentSize = 1024
	largePDFSize      = 2 * 1024 * 1024
)

// CheckDocument validates a selected file against the policy. A nil error may
// still come with warnings worth showing to the user.
func CheckDocument(d Document, p DocumentPolicy) (warnings []string, err error) {
	if !d.IsPending() {
		return nil, ErrDocumentNotPending
	}
	if d.Size > p.MaxSize {
		return nil, fmt.Errorf("%w. Tamanho máximo: %dMB", ErrDocumentTooLarge, p.MaxSize/(1024*1024))
	}
	ext := d.Extension()
	if !p.allows(ext) {
		return nil, fmt.Errorf("%w. Formatos aceitos: %s", ErrDocumentType, p.Accept())
	}

	if d.Size < smallDocumentSize {
		warnings = append(warnings, "O arquivo parece muito pequeno. Verifique se é uma imagem válida.")
	}
	if ext == "pdf" && d.Size > largePDFSize {
		warnings = append(warnings, "PDF muito grande. Considere compactar o arquivo.")
	}
	return warnings, nil
}
