package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVExporter writes the header row and data rows; title and styling are
// ignored.
type CSVExporter struct{}

func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(data *ExportData, writer io.Writer) error {
	w := csv.NewWriter(writer)
	if err := w.Write(data.Headers); err != nil {
		return err
	}
	record := make([]string, 0, len(data.Headers))
	for _, row := range data.Rows {
		record = record[:0]
		for _, v := range row {
			record = append(record, fmt.Sprintf("%v", v))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (e *CSVExporter) GetContentType() string {
	return "text/csv; charset=utf-8"
}

func (e *CSVExporter) GetFileExtension() string {
	return ".csv"
}
