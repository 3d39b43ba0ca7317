package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of the generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const defaultSheet = "Sheet1"

// Book is a streaming XLSX workbook built row by row through excelize's
// stream writer, so large exports never materialize fully in memory.
type Book struct {
	file    *excelize.File
	stream  *excelize.StreamWriter
	nextRow int
}

// NewBook opens a workbook with a single sheet and writes the header row.
func NewBook(header []string) (*Book, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(defaultSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open stream writer: %w", err)
	}

	b := &Book{file: f, stream: sw, nextRow: 1}
	if len(header) > 0 {
		cells := make([]any, len(header))
		for i, h := range header {
			cells[i] = excelize.Cell{StyleID: 0, Value: h}
		}
		if err := b.writeRow(cells); err != nil {
			f.Close()
			return nil, err
		}
	}
	return b, nil
}

// AppendRow adds one data row to the sheet.
func (b *Book) AppendRow(values []any) error {
	cells := make([]any, len(values))
	copy(cells, values)
	return b.writeRow(cells)
}

func (b *Book) writeRow(cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, b.nextRow)
	if err != nil {
		return fmt.Errorf("failed to compute row coordinate: %w", err)
	}
	if err := b.stream.SetRow(cell, cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", b.nextRow, err)
	}
	b.nextRow++
	return nil
}

// Rows reports the number of rows written, header included.
func (b *Book) Rows() int {
	return b.nextRow - 1
}

// WriteTo flushes the stream and writes the workbook to w, closing the
// underlying file.
func (b *Book) WriteTo(w io.Writer) error {
	defer b.file.Close()
	if err := b.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush stream writer: %w", err)
	}
	if err := b.file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Close releases the workbook without writing it out.
func (b *Book) Close() error {
	return b.file.Close()
}

// Export filenames follow the dashboard conventions, date-stamped with the
// generation day.

func BasicFilename(tab Tab, now time.Time) string {
	label := "Список"
	if tab == TabList61 {
		label = "Деталі"
	}
	return fmt.Sprintf("Декларації_%s_%s.xlsx", label, now.Format("2006-01-02"))
}

func ExtendedFilename(now time.Time) string {
	return fmt.Sprintf("Декларації_Розширений_%s.xlsx", now.Format("2006-01-02"))
}

func ExtendedGoodsFilename(now time.Time) string {
	return fmt.Sprintf("Розширений_експорт_%s.xlsx", now.Format("2006-01-02"))
}
