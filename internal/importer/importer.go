package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ellavondegurechaff/materialpool/internal/domain/materials"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")
	ErrMissingColumns    = errors.New("required columns are missing")
	ErrEmptyFile         = errors.New("file has no header row")
)

type column int

const (
	colCategory column = iota
	colIdentifier
	colDescription
	colStatus
	colHolder
	colUsageTime
)

// headerAliases maps every accepted header to its column.
var headerAliases = map[string]column{
	"游戏名称":        colCategory,
	"category":    colCategory,
	"账户名称":        colIdentifier,
	"identifier":  colIdentifier,
	"描述":          colDescription,
	"description": colDescription,
	"使用状态":        colStatus,
	"状态":          colStatus,
	"status":      colStatus,
	"使用人":         colHolder,
	"holder":      colHolder,
	"使用时间":        colUsageTime,
	"usage_time":  colUsageTime,
}

var timeLayouts = []string{
	time.DateTime,
	time.DateOnly,
	time.RFC3339,
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// TemplateHeaders is the header row of the downloadable template.
var TemplateHeaders = []string{"游戏名称", "账户名称", "描述", "使用状态", "使用人", "使用时间"}

const templateSheet = "Materials"

// DetectFormat picks the parser from the file name.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", ErrUnsupportedFormat
}

// Parse reads rows from r. Line numbers count the header as line 1.
func Parse(r io.Reader, format Format) ([]materials.ImportRow, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	return toRows(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return records, nil
}

func toRows(records [][]string) ([]materials.ImportRow, error) {
	if len(records) == 0 {
		return nil, ErrEmptyFile
	}

	index := make(map[column]int)
	for i, header := range records[0] {
		key := strings.ToLower(strings.TrimSpace(header))
		if col, ok := headerAliases[key]; ok {
			if _, seen := index[col]; !seen {
				index[col] = i
			}
		}
	}
	if _, ok := index[colCategory]; !ok {
		return nil, fmt.Errorf("%w: category (游戏名称)", ErrMissingColumns)
	}
	if _, ok := index[colIdentifier]; !ok {
		return nil, fmt.Errorf("%w: identifier (账户名称)", ErrMissingColumns)
	}

	rows := make([]materials.ImportRow, 0, len(records)-1)
	for n, record := range records[1:] {
		if blank(record) {
			continue
		}
		cell := func(c column) string {
			i, ok := index[c]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, materials.ImportRow{
			Line:        n + 2,
			Category:    cell(colCategory),
			Identifier:  cell(colIdentifier),
			Description: cell(colDescription),
			Status:      cell(colStatus),
			Holder:      cell(colHolder),
			ClaimedAt:   parseTime(cell(colUsageTime)),
		})
	}
	return rows, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseTime accepts the usual layouts; unparseable values count as absent.
func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// WriteTemplate writes the xlsx import template with one example row.
func WriteTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(TemplateHeaders))
	for i, h := range TemplateHeaders {
		header[i] = h
	}
	example := []any{"原神", "player_001", "月卡账号", materials.LabelIdle, "", ""}

	if err := f.SetSheetRow(templateSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetSheetRow(templateSheet, "A2", &example); err != nil {
		return fmt.Errorf("failed to write example row: %w", err)
	}
	if err := f.SetColWidth(templateSheet, "A", "F", 18); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}
