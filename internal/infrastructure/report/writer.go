package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"ImageMigrator/internal/domain"
	"ImageMigrator/internal/ports"
)

// Writer emits the migration report as separator-joined lines. Fields are
// not quoted, so values containing the separator corrupt the row.
type Writer struct {
	out       *bufio.Writer
	separator string
	rows      int
}

var _ ports.ReportWriter = (*Writer)(nil)

// NewWriter writes the header row immediately.
func NewWriter(w io.Writer, separator string) (*Writer, error) {
	if separator == "" {
		separator = ","
	}
	rw := &Writer{out: bufio.NewWriter(w), separator: separator}
	if err := rw.writeLine(domain.ReportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return rw, nil
}

// WriteRow appends one record.
func (w *Writer) WriteRow(row domain.ReportRow) error {
	if err := w.writeLine(row.Fields()); err != nil {
		return fmt.Errorf("write row %d: %w", w.rows+1, err)
	}
	w.rows++
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (w *Writer) Flush() error {
	return w.out.Flush()
}

func (w *Writer) writeLine(fields []string) error {
	_, err := w.out.WriteString(strings.Join(fields, w.separator) + "\n")
	return err
}
