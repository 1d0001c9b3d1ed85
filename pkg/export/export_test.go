package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Giảng viên", "Tổng giờ"},
		Rows: []map[string]string{
			{"Giảng viên": "BS. Nguyễn Văn A", "Tổng giờ": "7.5"},
			{"Giảng viên": "BS. Phạm Thị D", "Tổng giờ": "0"},
		},
	}
}

func TestCSVExporterWritesBOMAndRows(t *testing.T) {
	payload, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(payload, utf8BOM))

	lines := strings.Split(strings.TrimSpace(string(payload[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Giảng viên,Tổng giờ", lines[0])
	assert.Equal(t, "BS. Nguyễn Văn A,7.5", lines[1])
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
	_, err = NewXLSXExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestXLSXExporterRoundTrip(t *testing.T) {
	payload, err := NewXLSXExporter().Render(sampleDataset(), "Thống kê")
	require.NoError(t, err)

	rows, err := ParseWorkbook(payload)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Giảng viên", "Tổng giờ"}, rows[0])
	assert.Equal(t, []string{"BS. Phạm Thị D", "0"}, rows[2])
}

func TestPDFExporterProducesDocument(t *testing.T) {
	payload, err := NewPDFExporter().Render(sampleDataset(), "Teaching hours")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestReadFirstSheetRejectsGarbage(t *testing.T) {
	_, err := ParseWorkbook([]byte("not a workbook"))
	assert.Error(t, err)
}
