package content

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/ppiankov/copomatas/internal/model"
)

// FetchPDF downloads the document at link and returns the text of all its
// pages. An empty link yields MissingLinkSentinel without any request.
func (f *Fetcher) FetchPDF(ctx context.Context, link string) (string, error) {
	if link == "" {
		return model.MissingLinkSentinel, nil
	}

	data, err := f.getter.GetBytes(ctx, f.baseURL+link)
	if err != nil {
		return "", fmt.Errorf("download pdf: %w", err)
	}

	return ExtractPDFText(data)
}

// pageSource is the part of a decoded document text extraction reads
type pageSource interface {
	NumPage() int
	PageText(i int) (string, error)
}

type pdfDocument struct {
	reader *pdf.Reader
}

func (d pdfDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d pdfDocument) PageText(i int) (string, error) {
	page := d.reader.Page(i)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// ExtractPDFText decodes data as a PDF and concatenates the text of every
// page in document order.
func ExtractPDFText(data []byte) (text string, err error) {
	// the pdf package panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", model.ErrDocumentDecode, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrDocumentDecode, err)
	}

	return concatPages(pdfDocument{reader: reader})
}

func concatPages(doc pageSource) (string, error) {
	var buf strings.Builder
	for i := 1; i <= doc.NumPage(); i++ {
		pageText, err := doc.PageText(i)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", model.ErrDocumentDecode, i, err)
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}
