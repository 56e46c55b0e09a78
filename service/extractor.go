package service

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/ledgerlens/statementchat/model"
	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// ExtractText converts an uploaded spreadsheet into a CSV blob suitable for
// prompting. The filename extension selects the parser; the caller has
// already checked it is one of the supported ones.
func ExtractText(data []byte, ext string) (string, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(ext) {
	case ".xlsx":
		rows, err = parseXLSX(data)
	case ".xls":
		rows, err = parseXLS(data)
	default:
		return "", &model.ParseError{Err: fmt.Errorf("unsupported file extension %q", ext)}
	}
	if err != nil {
		return "", &model.ParseError{Err: err}
	}
	if len(rows) == 0 {
		return "", &model.ParseError{Err: fmt.Errorf("spreadsheet has no rows")}
	}

	return rowsToCSV(rows)
}

func parseXLSX(data []byte) ([][]string, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer xl.Close()

	sheetName := xl.GetSheetName(0)
	rows, err := xl.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// parseXLS parses legacy XLS. xlsReader works with file paths, so the bytes
// go through a temp file.
func parseXLS(data []byte) ([][]string, error) {
	tmpFile, err := os.CreateTemp("", "statement-*.xls")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return nil, err
	}
	tmpFile.Close()

	xlsBook, err := xls.OpenFile(tmpFile.Name())
	if err != nil {
		return nil, err
	}

	sheet, err := xlsBook.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, fmt.Errorf("no sheets found")
	}

	rows := [][]string{}
	for _, xlsRow := range sheet.GetRows() {
		rowData := []string{}
		for _, col := range xlsRow.GetCols() {
			rowData = append(rowData, col.GetString())
		}
		rows = append(rows, rowData)
	}
	return rows, nil
}

// rowsToCSV renders the grid as CSV. Parsers trim trailing empty cells per
// row, so every row is padded to the widest one to keep columns aligned.
func rowsToCSV(rows [][]string) (string, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		padded := make([]string, width)
		copy(padded, row)
		if err := w.Write(padded); err != nil {
			return "", &model.ParseError{Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", &model.ParseError{Err: err}
	}

	return buf.String(), nil
}
