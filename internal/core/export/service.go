package export

import (
	"bytes"
	"fmt"
)

// Service picks an exporter by format
type Service struct {
	exporters map[Format]Exporter
}

// NewService creates a new export service
func NewService() *Service {
	return &Service{
		exporters: map[Format]Exporter{
			FormatPDF:   NewPDFExporter(),
			FormatExcel: NewExcelExporter(),
			FormatCSV:   NewCSVExporter(),
		},
	}
}

// File is a rendered export ready to be sent.
type File struct {
	Content     []byte
	ContentType string
	Filename    string
}

// Export renders data in format; name is the filename without extension.
func (s *Service) Export(data *ExportData, format Format, name string) (*File, error) {
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}

	var buf bytes.Buffer
	if err := exporter.Export(data, &buf); err != nil {
		return nil, fmt.Errorf("%s export failed: %w", format, err)
	}

	return &File{
		Content:     buf.Bytes(),
		ContentType: exporter.GetContentType(),
		Filename:    name + exporter.GetFileExtension(),
	}, nil
}
