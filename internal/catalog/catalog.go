// Package catalog fetches the BCB minutes catalogs and normalizes them into records.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ppiankov/copomatas/internal/model"
)

// JSONGetter issues a GET and decodes the JSON body into v
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, v any) error
}

// Source JSON keys
const (
	containerKey     = "conteudo"
	referenceDateKey = "DataReferencia"
	titleKey         = "Titulo"
)

// Fetch retrieves one catalog and normalizes its entries, reading each
// entry's link from linkField. The document type follows from linkField.
func Fetch(ctx context.Context, getter JSONGetter, catalogURL string, linkField string) ([]model.MeetingRecord, error) {
	docType, ok := model.TypeForLinkField(linkField)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownLinkField, linkField)
	}

	var raw json.RawMessage
	if err := getter.GetJSON(ctx, catalogURL, &raw); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedCatalog, err)
	}

	return Normalize(body, linkField, docType)
}

// Normalize reduces the catalog entries to the four record columns.
func Normalize(body map[string]json.RawMessage, linkField string, docType model.DocumentType) ([]model.MeetingRecord, error) {
	raw, ok := body[containerKey]
	if !ok || string(raw) == "null" {
		return nil, model.ErrMalformedCatalog
	}

	var entries []map[string]any
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedCatalog, err)
	}

	records := make([]model.MeetingRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, model.MeetingRecord{
			ReferenceDate: stringField(entry, referenceDateKey),
			Title:         stringField(entry, titleKey),
			PageLink:      stringField(entry, linkField),
			DocumentType:  docType,
		})
	}

	return records, nil
}

// Merge concatenates legacy and current records in source order.
func Merge(legacy, current []model.MeetingRecord) []model.MeetingRecord {
	merged := make([]model.MeetingRecord, 0, len(legacy)+len(current))
	merged = append(merged, legacy...)
	return append(merged, current...)
}

// stringField reads key from entry; missing and null values read as empty
func stringField(entry map[string]any, key string) string {
	switch v := entry[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
