package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/copomatas/internal/model"
)

// Metadata response keys
const (
	containerKey = "conteudo"
	markupKey    = "OutrasInformacoes"
)

// FetchHTML resolves the markup of an HTML record through the metadata
// endpoint and returns it as plain text.
func (f *Fetcher) FetchHTML(ctx context.Context, link string) (string, error) {
	var body map[string]json.RawMessage
	if err := f.getter.GetJSON(ctx, f.LookupURL(link), &body); err != nil {
		return "", fmt.Errorf("fetch metadata: %w", err)
	}

	markup, err := markupFromLookup(body)
	if err != nil {
		return "", err
	}

	return StripMarkup(markup)
}

// LookupURL builds the metadata endpoint URL for link. The lookup code is
// the last path segment of link.
func (f *Fetcher) LookupURL(link string) string {
	code := lookupCode(link)
	filter := fmt.Sprintf("IdentificadorUrl eq '%s'", code)
	return f.baseURL + f.lookupPath + "?filtro=" + strings.ReplaceAll(url.QueryEscape(filter), "+", "%20")
}

func lookupCode(link string) string {
	segments := strings.Split(link, "/")
	return segments[len(segments)-1]
}

func markupFromLookup(body map[string]json.RawMessage) (string, error) {
	raw, ok := body[containerKey]
	if !ok {
		return "", model.ErrMissingContentKey
	}

	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return "", model.ErrEmptyContent
	}

	field, ok := items[0][markupKey]
	if !ok {
		return "", model.ErrMissingField
	}

	// null decodes into a nil pointer without error
	var markup *string
	if err := json.Unmarshal(field, &markup); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrMissingField, err)
	}
	if markup == nil {
		return "", fmt.Errorf("%w: value is null", model.ErrMissingField)
	}

	return *markup, nil
}

// StripMarkup returns the text nodes of an HTML fragment separated by single
// spaces. Script and style bodies are dropped and entities are decoded.
func StripMarkup(markup string) (string, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("parse markup: %w", err)
	}

	var tokens []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			tokens = append(tokens, strings.Fields(n.Data)...)
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(tokens, " "), nil
}
