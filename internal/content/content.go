// Package content extracts the full text of a minutes record.
//
// HTML records resolve their markup through the atascopom-conteudo lookup
// endpoint and are reduced to plain text; PDF records are downloaded and
// their pages' text concatenated in document order.
package content

import (
	"context"
	"fmt"

	"github.com/ppiankov/copomatas/internal/model"
)

// Getter is the upstream transport used by Fetcher
type Getter interface {
	GetJSON(ctx context.Context, rawURL string, v any) error
	GetBytes(ctx context.Context, rawURL string) ([]byte, error)
}

// Fetcher produces the full text of records
type Fetcher struct {
	getter     Getter
	baseURL    string
	lookupPath string
}

// NewFetcher creates a Fetcher resolving links against baseURL. lookupPath is
// the path of the HTML metadata endpoint.
func NewFetcher(getter Getter, baseURL, lookupPath string) *Fetcher {
	return &Fetcher{
		getter:     getter,
		baseURL:    baseURL,
		lookupPath: lookupPath,
	}
}

// Fetch returns the full text of record. The extraction path is chosen by
// the record's document type alone.
func (f *Fetcher) Fetch(ctx context.Context, record model.MeetingRecord) (string, error) {
	switch record.DocumentType {
	case model.DocumentTypePDF:
		return f.FetchPDF(ctx, record.PageLink)
	case model.DocumentTypeHTML:
		return f.FetchHTML(ctx, record.PageLink)
	default:
		return "", fmt.Errorf("%w: %q", model.ErrUnknownDocumentType, record.DocumentType)
	}
}
