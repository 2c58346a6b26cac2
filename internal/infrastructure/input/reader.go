package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
)

const commentPrefix = "#"

// Reader parses "<document_path><sep><source_url>" lines in a single forward pass.
// Lines have no length limit.
type Reader struct {
	in        *bufio.Reader
	separator string
	line      int
	done      bool
}

var _ ports.RecordSource = (*Reader)(nil)

// NewReader wraps r; separator defaults to ":".
func NewReader(r io.Reader, separator string) *Reader {
	if separator == "" {
		separator = ":"
	}
	return &Reader{in: bufio.NewReader(r), separator: separator}
}

// Next returns the next record, io.EOF once the input is exhausted, or an
// error wrapping domain.ErrMalformedInputLine for a line without separator.
func (r *Reader) Next() (domain.InputRecord, error) {
	for !r.done {
		raw, err := r.in.ReadString('\n')
		if errors.Is(err, io.EOF) {
			r.done = true
		} else if err != nil {
			return domain.InputRecord{}, fmt.Errorf("read input: %w", err)
		}
		if raw == "" {
			continue
		}

		r.line++
		text := strings.TrimSpace(raw)
		if text == "" || strings.HasPrefix(text, commentPrefix) {
			continue
		}

		path, rawURL, found := strings.Cut(text, r.separator)
		if !found {
			return domain.InputRecord{}, fmt.Errorf("line %d %q: %w", r.line, text, domain.ErrMalformedInputLine)
		}

		return domain.InputRecord{
			DocumentPath: path,
			SourceURL:    strings.TrimSpace(rawURL),
			Line:         r.line,
		}, nil
	}
	return domain.InputRecord{}, io.EOF
}
