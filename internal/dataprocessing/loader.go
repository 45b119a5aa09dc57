package dataprocessing

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"engineatlas/internal/dataset"
)

// Loader reads a raw table into text columns without transforming any
// cell. CSV and TSV files are read directly; .xlsx workbooks are read
// from their first sheet.
type Loader struct {
	logger    *slog.Logger
	delimiter rune
}

// NewLoader returns a loader with comma delimiting.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:    logger.With(slog.String("component", "loader")),
		delimiter: ',',
	}
}

// SetDelimiter overrides the field delimiter for delimited files. It
// is ignored for workbooks.
func (l *Loader) SetDelimiter(d rune) {
	if d != 0 {
		l.delimiter = d
	}
}

// Load reads the file at path into a table of text columns.
func (l *Loader) Load(ctx context.Context, path string) (*dataset.Table, error) {
	start := time.Now()

	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		records, err = l.readWorkbook(path)
	default:
		records, err = l.readDelimited(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	tbl, err := buildTable(records)
	if err != nil {
		return nil, fmt.Errorf("file %s: %w", path, err)
	}

	l.logger.InfoContext(ctx, "raw dataset loaded",
		slog.String("path", path),
		slog.Int("rows", tbl.NumRows()),
		slog.Int("columns", tbl.NumCols()),
		slog.Duration("duration", time.Since(start)))
	return tbl, nil
}

func (l *Loader) readDelimited(ctx context.Context, path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	// Strip a UTF-8 BOM if present so the first header cell stays clean.
	if r, _, err := br.ReadRune(); err == nil && r != '\ufeff' {
		if err := br.UnreadRune(); err != nil {
			return nil, fmt.Errorf("failed to rewind reader: %w", err)
		}
	}

	reader := csv.NewReader(br)
	reader.Comma = l.delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		if len(records)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(records)+1, err)
		}
		records = append(records, row)
	}
	return records, nil
}

func (l *Loader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// buildTable turns raw records into text columns. The first record is
// the header; blank header cells get positional names and duplicates
// get numeric suffixes so column names stay unique.
func buildTable(records [][]string) (*dataset.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	header := records[0]
	if len(header) == 0 {
		return nil, fmt.Errorf("empty header row")
	}
	names := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = name
	}
	names = uniqueNames(names)

	columns := make([][]string, len(names))
	for i := range columns {
		columns[i] = make([]string, 0, len(records)-1)
	}
	for _, row := range records[1:] {
		for ci := range names {
			if ci < len(row) {
				columns[ci] = append(columns[ci], row[ci])
			} else {
				columns[ci] = append(columns[ci], "")
			}
		}
	}

	tbl := dataset.NewTable()
	for i, name := range names {
		if err := tbl.AddTextColumn(name, columns[i]); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}
