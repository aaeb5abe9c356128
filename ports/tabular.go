package ports

import (
	"io"

	"debias/domain/table"
)

// TabularReader parses an uploaded file into a frame. The filename decides
// the format (.csv, .xls, .xlsx).
type TabularReader interface {
	Read(r io.Reader, filename string) (*table.Frame, error)
}

// TabularWriter serializes a frame for on-disk storage.
type TabularWriter interface {
	Write(w io.Writer, fr *table.Frame) error
}
