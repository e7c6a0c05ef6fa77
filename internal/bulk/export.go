package bulk

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/entity"
)

const (
	ExportCSV   = "csv"
	ExportExcel = "excel"

	exportSheet = "Contacts"
)

// Export is an encoded contact download.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}

func exportRecord(c entity.Contact) []string {
	return []string{
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.Timezone,
		c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// EncodeExport renders contacts in the requested format with the fixed
// column order of entity.ExportColumns.
func EncodeExport(contacts []entity.Contact, format string) (*Export, error) {
	switch format {
	case ExportCSV:
		data, err := encodeCSV(contacts)
		if err != nil {
			return nil, err
		}
		return &Export{Data: data, ContentType: MimeCSV, Filename: "contacts.csv"}, nil
	case ExportExcel:
		data, err := encodeXLSX(contacts)
		if err != nil {
			return nil, err
		}
		return &Export{Data: data, ContentType: MimeXLSX, Filename: "contacts.xlsx"}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExportFormat, format)
	}
}

func encodeCSV(contacts []entity.Contact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entity.ExportColumns); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		if err := w.Write(exportRecord(c)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func encodeXLSX(contacts []entity.Contact) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	writeRow := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(exportSheet, cell, &row)
	}
	if err := writeRow(1, entity.ExportColumns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, c := range contacts {
		if err := writeRow(i+2, exportRecord(c)); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
