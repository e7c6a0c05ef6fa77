package bulk

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

const (
	MimeCSV  = "text/csv"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Format is an accepted upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// RawRow is one decoded data row: lower-cased header label -> cell text.
// Index is 1-based and counts data rows only.
type RawRow struct {
	Index  int
	Fields map[string]string
}

// Get returns the trimmed value of column name ("" when absent).
func (r RawRow) Get(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// RowReader yields rows once, in file order. Next returns io.EOF after the
// last row. Readers are not restartable.
type RowReader interface {
	Next() (RawRow, error)
	Close() error
}

// FormatOf maps a declared MIME type to a Format. Parameters such as charset
// are ignored; the content is never sniffed to pick a format.
func FormatOf(mimeType string) (Format, error) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return "", &UnsupportedFormatError{MimeType: mimeType}
	}
	switch mt {
	case MimeCSV:
		return FormatCSV, nil
	case MimeXLSX:
		return FormatXLSX, nil
	default:
		return "", &UnsupportedFormatError{MimeType: mimeType}
	}
}

// Decode returns a RowReader over data interpreted as the declared type.
func Decode(data []byte, mimeType string) (RowReader, error) {
	format, err := FormatOf(mimeType)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return newXLSXReader(data)
	}
	return newCSVReader(data)
}

func normalizeHeader(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return out
}

// rowFromCells pairs cells with header labels. Cells beyond the header are
// dropped, missing cells become "". Unlabelled columns are ignored and the
// first of duplicated labels wins.
func rowFromCells(index int, header, cells []string) RawRow {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if _, seen := fields[name]; seen {
			continue
		}
		v := ""
		if i < len(cells) {
			v = cells[i]
		}
		fields[name] = v
	}
	return RawRow{Index: index, Fields: fields}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type csvReader struct {
	r      *csv.Reader
	header []string
	n      int
}

func newCSVReader(data []byte) (*csvReader, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &csvReader{r: r}, nil
		}
		return nil, &DecodeError{Err: fmt.Errorf("read header: %w", err)}
	}
	return &csvReader{r: r, header: normalizeHeader(header)}, nil
}

func (c *csvReader) Next() (RawRow, error) {
	if c.header == nil {
		return RawRow{}, io.EOF
	}
	rec, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return RawRow{}, io.EOF
		}
		return RawRow{}, &DecodeError{Row: c.n + 1, Err: err}
	}
	c.n++
	return rowFromCells(c.n, c.header, rec), nil
}

func (c *csvReader) Close() error { return nil }

type xlsxReader struct {
	f      *excelize.File
	rows   *excelize.Rows
	header []string
	n      int
}

func isZipContainer(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

func newXLSXReader(data []byte) (*xlsxReader, error) {
	if !isZipContainer(data) {
		return nil, &DecodeError{Err: errors.New("declared spreadsheet is not an xlsx container")}
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("open spreadsheet: %w", err)}
	}
	x := &xlsxReader{f: f}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return x, nil
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, &DecodeError{Err: fmt.Errorf("read sheet %q: %w", sheets[0], err)}
	}
	x.rows = rows
	cells, ok, err := x.nextNonBlank()
	if err != nil {
		_ = x.Close()
		return nil, &DecodeError{Err: fmt.Errorf("read header: %w", err)}
	}
	if ok {
		x.header = normalizeHeader(cells)
	}
	return x, nil
}

func (x *xlsxReader) nextNonBlank() ([]string, bool, error) {
	for x.rows.Next() {
		cells, err := x.rows.Columns()
		if err != nil {
			return nil, false, err
		}
		if !isBlank(cells) {
			return cells, true, nil
		}
	}
	return nil, false, x.rows.Error()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (x *xlsxReader) Next() (RawRow, error) {
	if x.rows == nil || x.header == nil {
		return RawRow{}, io.EOF
	}
	cells, ok, err := x.nextNonBlank()
	if err != nil {
		return RawRow{}, &DecodeError{Row: x.n + 1, Err: err}
	}
	if !ok {
		return RawRow{}, io.EOF
	}
	x.n++
	return rowFromCells(x.n, x.header, cells), nil
}

func (x *xlsxReader) Close() error {
	if x.rows != nil {
		_ = x.rows.Close()
	}
	return x.f.Close()
}
