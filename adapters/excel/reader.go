package excel

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"ecostim/domain/product"
	"ecostim/internal"
	"ecostim/ports"
)

const utf8BOM = "\ufeff"

// DataReader handles reading Excel, CSV and TSV files (optionally gzipped)
type DataReader struct {
	filePath string
	fileType string // "xlsx", "csv" or "tsv"
	gzipped  bool
	logger   *internal.Logger
}

var _ ports.RowSource = (*DataReader)(nil)

// NewDataReader creates a data reader, choosing the format from the file extension
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	name := strings.ToLower(filePath)
	gzipped := strings.HasSuffix(name, ".gz")
	if gzipped {
		name = strings.TrimSuffix(name, ".gz")
	}
	fileType := "csv"
	switch filepath.Ext(name) {
	case ".xlsx":
		fileType = "xlsx"
	case ".tsv", ".txt":
		fileType = "tsv"
	case ".csv":
		fileType = "csv"
	default:
		// Open Food Facts dumps are tab separated
		if gzipped {
			fileType = "tsv"
		}
	}
	return &DataReader{filePath: filePath, fileType: fileType, gzipped: gzipped, logger: logger}
}

// Each streams every data row to fn. Header cells are trimmed and a
// leading BOM is dropped. Short rows leave the missing columns absent.
func (r *DataReader) Each(ctx context.Context, fn func(product.RawAttributes) error) error {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}
	start := time.Now()
	var (
		n   int
		err error
	)
	counted := func(row product.RawAttributes) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		n++
		return fn(row)
	}
	if r.fileType == "xlsx" {
		err = r.eachExcel(counted)
	} else {
		err = r.eachDelimited(counted)
	}
	if err != nil {
		return err
	}
	r.logger.Debug("[DataReader] %s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, n)
	return nil
}

// ReadData reads the whole file into memory
func (r *DataReader) ReadData(ctx context.Context) (*TableData, error) {
	data := &TableData{}
	err := r.Each(ctx, func(row product.RawAttributes) error {
		data.Rows = append(data.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	headers, err := r.Headers()
	if err != nil {
		return nil, err
	}
	data.Headers = headers
	return data, nil
}

// Headers returns the trimmed header row.
func (r *DataReader) Headers() ([]string, error) {
	var headers []string
	errStop := errors.New("stop")
	visit := func(h []string) error {
		headers = h
		return errStop
	}
	var err error
	if r.fileType == "xlsx" {
		err = r.walkExcel(visit, nil)
	} else {
		err = r.walkDelimited(visit, nil)
	}
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return headers, nil
}

func (r *DataReader) eachDelimited(fn func(product.RawAttributes) error) error {
	var headers []string
	return r.walkDelimited(func(h []string) error {
		headers = h
		return nil
	}, func(record []string) error {
		return fn(toRow(headers, record))
	})
}

func (r *DataReader) walkDelimited(onHeader func([]string) error, onRecord func([]string) error) error {
	file, err := os.Open(r.filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s file: %w", strings.ToUpper(r.fileType), err)
	}
	defer file.Close()

	var src io.Reader = file
	if r.gzipped {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	reader := csv.NewReader(bufio.NewReaderSize(src, 1<<20))
	if r.fileType == "tsv" {
		reader.Comma = '\t'
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read header of %s: %w", r.filePath, err)
	}
	if err := onHeader(cleanHeader(header)); err != nil {
		return err
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", r.filePath, err)
		}
		if onRecord == nil {
			continue
		}
		if err := onRecord(record); err != nil {
			return err
		}
	}
}

func (r *DataReader) eachExcel(fn func(product.RawAttributes) error) error {
	var headers []string
	return r.walkExcel(func(h []string) error {
		headers = h
		return nil
	}, func(record []string) error {
		return fn(toRow(headers, record))
	})
}

// walkExcel streams the first sheet of the workbook
func (r *DataReader) walkExcel(onHeader func([]string) error, onRecord func([]string) error) error {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("Excel file %s has no sheets", r.filePath)
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	defer rows.Close()

	first := true
	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		if first {
			first = false
			if err := onHeader(cleanHeader(record)); err != nil {
				return err
			}
			continue
		}
		if onRecord == nil {
			continue
		}
		if err := onRecord(record); err != nil {
			return err
		}
	}
	if first {
		return fmt.Errorf("Excel file %s has no header row", r.filePath)
	}
	return rows.Error()
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func toRow(headers, record []string) product.RawAttributes {
	row := make(product.RawAttributes, len(headers))
	for j, cell := range record {
		if j < len(headers) && headers[j] != "" {
			row[headers[j]] = cell
		}
	}
	return row
}
