package artifact

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"nexus/internal/types"
)

type Kind string

const (
	KindReport Kind = "report"
	KindLetter Kind = "letter"
)

// Document is a finished generated text together with the configuration
// that produced it.
type Document struct {
	ID         string                  `json:"id"`
	Kind       Kind                    `json:"kind"`
	ReportName string                  `json:"reportName"`
	Content    string                  `json:"content"`
	CreatedAt  time.Time               `json:"createdAt"`
	Params     *types.ReportParameters `json:"params,omitempty"`
}

// Store archives documents. IDs are "<report slug>/<uuid>" so List can
// scan a single prefix.
type Store interface {
	Put(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context, reportName string) ([]Document, error)
}

var ErrNotFound = errors.New("artifact not found")

// NewDocument stamps a document for p.
func NewDocument(kind Kind, p types.ReportParameters, content string, now time.Time) Document {
	cp := p.Clone()
	return Document{
		Kind:       kind,
		ReportName: p.ReportName,
		Content:    content,
		CreatedAt:  now.UTC(),
		Params:     &cp,
	}
}

// Slug maps a report name onto a safe key prefix.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "untitled"
	}
	return s
}

func assignID(doc Document) (Document, error) {
	if strings.TrimSpace(doc.Content) == "" {
		return Document{}, errors.New("artifact: content is required")
	}
	if doc.Kind == "" {
		doc.Kind = KindReport
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.ID == "" {
		doc.ID = Slug(doc.ReportName) + "/" + uuid.NewString()
	}
	return doc, nil
}

func checkID(id string) (string, error) {
	id = strings.Trim(strings.TrimSpace(id), "/")
	if id == "" || strings.Contains(id, "..") {
		return "", errors.New("artifact: invalid id")
	}
	return id, nil
}

// newestFirst orders by creation time, ties broken by id.
func newestFirst(a, b Document) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
