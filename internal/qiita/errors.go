package qiita

import (
	"errors"
	"fmt"
)

// ErrNoURL marks an item response without a url field. The API's own error
// payload is not decoded further.
var ErrNoURL = errors.New("response has no url")

// APIError is a non-success HTTP status on a call that requires one.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: qiita API %d: %s", e.Op, e.StatusCode, e.Body)
}

// ParseError reports a mandatory response field that was missing or invalid.
type ParseError struct {
	Op    string
	Field string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: response missing field %q", e.Op, e.Field)
}
