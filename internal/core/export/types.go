package export

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format represents the export file format
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "xlsx"
	FormatCSV   Format = "csv"
)

// ParseFormat accepts the format names used in query strings.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// Exporter is the interface for all export formats
type Exporter interface {
	Export(data *ExportData, writer io.Writer) error
	GetContentType() string
	GetFileExtension() string
}

// ExportData is a titled table.
type ExportData struct {
	Title       string
	Description string
	CreatedAt   time.Time

	Headers []string
	Rows    [][]interface{}

	Style ExportStyle
}

// ExportStyle defines styling options for exports
type ExportStyle struct {
	// PDF specific
	Orientation string // "portrait" or "landscape"
	PageSize    string // "A4", "Letter", etc.

	HeaderBgColor string // Hex color
	AlternateRows bool
	RowBgColor1   string // Hex color for odd rows
	RowBgColor2   string // Hex color for even rows
	FontSize      float64

	// Excel specific
	SheetName    string
	FreezeHeader bool
	AutoFilter   bool
	ColumnWidths map[int]float64 // Column index -> width
}

// DefaultStyle returns default export styling
func DefaultStyle() ExportStyle {
	return ExportStyle{
		Orientation:   "portrait",
		PageSize:      "A4",
		HeaderBgColor: "#2F3E46",
		AlternateRows: true,
		RowBgColor1:   "#FFFFFF",
		RowBgColor2:   "#F2F2F2",
		FontSize:      10,
		SheetName:     "Sheet1",
		FreezeHeader:  true,
		AutoFilter:    true,
		ColumnWidths:  make(map[int]float64),
	}
}

// NewTable builds ExportData with the default style.
func NewTable(title string, headers []string, rows [][]interface{}) *ExportData {
	return &ExportData{
		Title:     title,
		CreatedAt: time.Now(),
		Headers:   headers,
		Rows:      rows,
		Style:     DefaultStyle(),
	}
}
