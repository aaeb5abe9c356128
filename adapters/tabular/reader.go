// Package tabular reads and writes the dataset file formats the engine
// accepts: CSV and Excel (.xlsx via excelize). Legacy OLE .xls is rejected
// up front because excelize cannot parse it.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"debias/domain/table"
)

// Reader parses uploaded files into frames. The filename extension decides
// the format; anything other than .csv/.xlsx is rejected.
type Reader struct{}

// NewReader creates a tabular reader
func NewReader() *Reader {
	return &Reader{}
}

// Read parses the file content into a frame
func (rd *Reader) Read(r io.Reader, filename string) (*table.Frame, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv":
		return rd.readCSV(r)
	case ".xlsx":
		return rd.readExcel(r)
	case ".xls":
		return nil, fmt.Errorf("legacy .xls is not supported; save the file as .xlsx or .csv")
	default:
		return nil, fmt.Errorf("unsupported file type %q (expected .csv or .xlsx)", ext)
	}
}

func (rd *Reader) readCSV(r io.Reader) (*table.Frame, error) {
	reader := csv.NewReader(r)
	// Rows may be ragged; the frame pads short rows with missing cells.
	reader.FieldsPerRecord = -1

	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	readTime := time.Since(readStart)
	log.Printf("[Tabular] CSV read in %.2fms (%d rows)", float64(readTime.Nanoseconds())/1e6, len(rows))

	return rd.processRows(rows)
}

func (rd *Reader) readExcel(r io.Reader) (*table.Frame, error) {
	readStart := time.Now()
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	readTime := time.Since(readStart)
	log.Printf("[Tabular] Excel sheet %q read in %.2fms (%d rows)", sheets[0], float64(readTime.Nanoseconds())/1e6, len(rows))

	return rd.processRows(rows)
}

func (rd *Reader) processRows(rows [][]string) (*table.Frame, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column_%d", i+1)
		}
		header[i] = name
	}
	return table.New(header, rows[1:]), nil
}

// Writer serializes frames as CSV, the store's canonical on-disk format.
// Uploads in Excel form are converted on the way in.
type Writer struct{}

// NewWriter creates a tabular writer
func NewWriter() *Writer {
	return &Writer{}
}

// Write serializes the frame as CSV with a header row
func (wr *Writer) Write(w io.Writer, fr *table.Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(fr.Columns()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 0; i < fr.NumRows(); i++ {
		if err := writer.Write(fr.Row(i)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// Encode renders the frame to an in-memory CSV buffer
func (wr *Writer) Encode(fr *table.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := wr.Write(&buf, fr); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
