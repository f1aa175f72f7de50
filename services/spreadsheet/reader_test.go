package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	coreerrors "github.com/orderstack/orderstack/internal/errors"
)

func workbookBytes(t *testing.T, cells map[string]string) []byte {
	t.Helper()

	f := excelize.NewFile()
	for cell, value := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", cell, value))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		format   Format
		ok       bool
	}{
		{"orders.xlsx", FormatXLSX, true},
		{"ORDERS.XLSX", FormatXLSX, true},
		{"orders.xls", FormatXLS, true},
		{"orders.csv", "", false},
		{"orders.pdf", "", false},
		{"orders", "", false},
	}

	for _, tt := range tests {
		format, ok := FormatFromFilename(tt.filename)
		assert.Equal(t, tt.ok, ok, tt.filename)
		assert.Equal(t, tt.format, format, tt.filename)
	}
}

func TestReadCell_ModernWorkbook(t *testing.T) {
	data := workbookBytes(t, map[string]string{
		"B2": "  г. Алматы  ",
		"C3": "FoodCo",
	})

	value, err := ReadCell(data, FormatXLSX, "B2")
	require.NoError(t, err)
	assert.Equal(t, "г. Алматы", value)

	value, err = ReadCell(data, FormatXLSX, "C3")
	require.NoError(t, err)
	assert.Equal(t, "FoodCo", value)
}

func TestReadCell_EmptyCell(t *testing.T) {
	data := workbookBytes(t, map[string]string{"A1": "x"})

	value, err := ReadCell(data, FormatXLSX, "Z99")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestReadCell_BadCellReference(t *testing.T) {
	data := workbookBytes(t, map[string]string{"A1": "x"})

	_, err := ReadCell(data, FormatXLSX, "not-a-cell")
	assert.Error(t, err)
}

func TestReadCell_GarbageBytes(t *testing.T) {
	garbage := []byte("this is not a workbook")

	_, err := ReadCell(garbage, FormatXLSX, "A1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrDecodeFailed))

	_, err = ReadCell(garbage, FormatXLS, "A1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, coreerrors.ErrDecodeFailed))
}
