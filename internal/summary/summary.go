// Package summary derives the head and tail preview of a record's full text.
package summary

import (
	"fmt"

	"github.com/ppiankov/copomatas/internal/model"
)

const (
	// ExcerptLength is the number of characters kept from each end of the text.
	ExcerptLength = 500

	// Separator joins the head and tail excerpts.
	Separator = " (.......) "
)

// Preview returns the first and last ExcerptLength characters of text joined
// by Separator. Texts shorter than twice ExcerptLength yield overlapping
// excerpts; a text of 10 characters appears twice in full.
func Preview(text string) string {
	runes := []rune(text)

	head := runes[:min(ExcerptLength, len(runes))]
	tail := runes[max(0, len(runes)-ExcerptLength):]

	return string(head) + Separator + string(tail)
}

// Apply returns a copy of records with PreviewText set from FullText. Every
// record must already carry its full text.
func Apply(records []model.MeetingRecord) ([]model.MeetingRecord, error) {
	out := make([]model.MeetingRecord, len(records))
	for i, r := range records {
		text, ok := r.Text()
		if !ok {
			return nil, fmt.Errorf("row %d (%s): %w", i, r.Title, model.ErrMissingFullText)
		}
		out[i] = r.WithPreview(Preview(text))
	}
	return out, nil
}
