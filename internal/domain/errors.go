package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInputLine marks an input line without a separator. It aborts the run.
	ErrMalformedInputLine = errors.New("malformed input line")
	// ErrUnrecognizedOriginURL marks a URL that does not match .../download/<id>/<filename>.
	ErrUnrecognizedOriginURL = errors.New("unrecognized origin url")
	// ErrUnsupportedFileType is reported by the upload host when the URL is not an image.
	ErrUnsupportedFileType = errors.New("file type not supported")
)

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	URL    string
	Status string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %s", e.URL, e.Status)
}

// IsSuccess reports whether code is a 2xx status.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}
