package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Upstream shape and data errors.
var (
	// ErrMalformedCatalog indicates a catalog response without a "conteudo" list.
	ErrMalformedCatalog = errors.New("malformed catalog: \"conteudo\" list not found")

	// ErrMissingContentKey indicates a metadata response without the "conteudo" key.
	ErrMissingContentKey = errors.New("key \"conteudo\" not found in the JSON response")

	// ErrEmptyContent indicates "conteudo" is not a list or holds no entries.
	ErrEmptyContent = errors.New("\"conteudo\" is not a list or is empty")

	// ErrMissingField indicates the first metadata entry has no "OutrasInformacoes".
	ErrMissingField = errors.New("key \"OutrasInformacoes\" not found in the first item of \"conteudo\"")

	// ErrDocumentDecode indicates the downloaded bytes are not a readable PDF.
	ErrDocumentDecode = errors.New("invalid PDF document")

	// ErrMissingFullText indicates a record reached the summary step without text.
	ErrMissingFullText = errors.New("record has no full text")

	// ErrUnknownDocumentType indicates a record tagged with neither pdf nor html.
	ErrUnknownDocumentType = errors.New("unknown document type")

	// ErrUnknownLinkField indicates a catalog link field with no document type mapping.
	ErrUnknownLinkField = errors.New("unknown catalog link field")
)

// NetworkError is a transport failure or a non-success HTTP status.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when the request never got a response
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status: %d %s (URL: %s)", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	}
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IOError is a failure writing output to local storage.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// IsNetwork checks if the error chain holds a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsIO checks if the error chain holds an IOError.
func IsIO(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}

// StatusCode returns the HTTP status carried by a NetworkError in err, or 0.
func StatusCode(err error) int {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.StatusCode
	}
	return 0
}
