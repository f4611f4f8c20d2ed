package model

// DocumentType selects the extraction path for a record
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeHTML DocumentType = "html"
)

// Link fields of the two catalog generations
const (
	LinkFieldLegacy  = "LinkPagina" // atascopom-conteudo
	LinkFieldCurrent = "Url"        // atascopom
)

// linkFieldTypes is the fixed link-field to document-type table.
var linkFieldTypes = map[string]DocumentType{
	LinkFieldLegacy:  DocumentTypePDF,
	LinkFieldCurrent: DocumentTypeHTML,
}

// TypeForLinkField returns the document type tagged on rows whose link was read from field.
func TypeForLinkField(field string) (DocumentType, bool) {
	t, ok := linkFieldTypes[field]
	return t, ok
}

// MissingLinkSentinel replaces the full text of PDF records that have no link
const MissingLinkSentinel = "Link vazio ou inválido"

// MeetingRecord is one published COPOM minutes document
type MeetingRecord struct {
	ReferenceDate string       `json:"reference_date"`
	Title         string       `json:"title"`
	PageLink      string       `json:"page_link"`
	DocumentType  DocumentType `json:"document_type"`

	// FullText is nil until the content step has run for the record.
	FullText *string `json:"full_text,omitempty"`

	// PreviewText is nil until the summary step has run.
	PreviewText *string `json:"preview_text,omitempty"`
}

// Text returns the extracted full text and whether it is present
func (r MeetingRecord) Text() (string, bool) {
	if r.FullText == nil {
		return "", false
	}
	return *r.FullText, true
}

// WithFullText returns a copy of the record carrying text
func (r MeetingRecord) WithFullText(text string) MeetingRecord {
	r.FullText = &text
	return r
}

// WithPreview returns a copy of the record carrying preview
func (r MeetingRecord) WithPreview(preview string) MeetingRecord {
	r.PreviewText = &preview
	return r
}
