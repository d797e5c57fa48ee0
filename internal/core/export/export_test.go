package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() *ExportData {
	return NewTable("Payments", []string{"Order", "Amount", "Credits"}, [][]interface{}{
		{"WFP-1", 1400.0, 20},
		{"WFP-2", 3200.0, 60},
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)

	f, err = ParseFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestExcelExport(t *testing.T) {
	file, err := NewService().Export(sampleTable(), FormatExcel, "payments")
	require.NoError(t, err)
	assert.Equal(t, "payments.xlsx", file.Filename)

	wb, err := excelize.OpenReader(bytes.NewReader(file.Content))
	require.NoError(t, err)
	defer wb.Close()

	title, err := wb.GetCellValue("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Payments", title)

	header, err := wb.GetCellValue("Sheet1", "C3")
	require.NoError(t, err)
	assert.Equal(t, "Credits", header)

	last, err := wb.GetCellValue("Sheet1", "A5")
	require.NoError(t, err)
	assert.Equal(t, "WFP-2", last)
}

func TestPDFExport(t *testing.T) {
	data := sampleTable()
	data.Description = "Оплати за березень"
	file, err := NewService().Export(data, FormatPDF, "payments")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Content, []byte("%PDF-")))
}

func TestPDFExportNeedsHeaders(t *testing.T) {
	_, err := NewService().Export(&ExportData{Title: "x"}, FormatPDF, "x")
	assert.Error(t, err)
}

func TestCSVExport(t *testing.T) {
	file, err := NewService().Export(sampleTable(), FormatCSV, "payments")
	require.NoError(t, err)
	assert.Equal(t, "Order,Amount,Credits\nWFP-1,1400,20\nWFP-2,3200,60\n", string(file.Content))
}
