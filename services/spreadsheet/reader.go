package spreadsheet

import (
	"bytes"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	coreerrors "github.com/orderstack/orderstack/internal/errors"
)

// Format tags the workbook container: legacy BIFF binary or the modern
// zip-based format.
type Format string

const (
	FormatXLS  Format = "xls"
	FormatXLSX Format = "xlsx"
)

// Order files from the legacy suppliers are produced by Russian-locale
// Excel; BIFF text records are decoded through this codepage.
const legacyCodepage = "cp1251"

// FormatFromFilename derives the workbook format from the filename
// extension. The second return is false for non-spreadsheet files.
func FormatFromFilename(filename string) (Format, bool) {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return FormatXLSX, true
	case strings.HasSuffix(strings.ToLower(filename), ".xls"):
		return FormatXLS, true
	default:
		return "", false
	}
}

// ReadCell returns the text at cellRef on the first sheet, or "" when
// the cell is absent or blank. Bytes that cannot be parsed as a workbook
// of the declared format yield ErrDecodeFailed.
func ReadCell(data []byte, format Format, cellRef string) (string, error) {
	col, row, err := excelize.CellNameToCoordinates(cellRef)
	if err != nil {
		return "", errors.Wrapf(err, "bad cell reference %q", cellRef)
	}

	switch format {
	case FormatXLS:
		return readLegacyCell(data, col, row)
	case FormatXLSX:
		return readModernCell(data, cellRef)
	default:
		return "", errors.Errorf("unsupported workbook format %q", format)
	}
}

func readModernCell(data []byte, cellRef string) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", errors.WithMessagef(coreerrors.ErrDecodeFailed, "xlsx: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return "", errors.WithMessage(coreerrors.ErrDecodeFailed, "xlsx: workbook has no sheets")
	}

	value, err := f.GetCellValue(sheet, cellRef)
	if err != nil {
		return "", errors.Wrapf(err, "reading cell %s", cellRef)
	}
	return strings.TrimSpace(value), nil
}

func readLegacyCell(data []byte, col, row int) (string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), legacyCodepage)
	if err != nil {
		return "", errors.WithMessagef(coreerrors.ErrDecodeFailed, "xls: %v", err)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return "", errors.WithMessage(coreerrors.ErrDecodeFailed, "xls: workbook has no sheets")
	}

	// xls rows and columns are zero-based
	rowIdx, colIdx := row-1, col-1
	if rowIdx > int(sheet.MaxRow) {
		return "", nil
	}
	r := sheet.Row(rowIdx)
	if r == nil {
		return "", nil
	}
	return strings.TrimSpace(r.Col(colIdx)), nil
}
