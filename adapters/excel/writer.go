package excel

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/ports"
)

// DataWriter writes tabular artifacts as UTF-8 CSV with a BOM, or XLSX
// when the path ends in .xlsx
type DataWriter struct {
	filePath string
	bom      bool
}

var (
	_ ports.StimulusWriter = (*DataWriter)(nil)
	_ ports.RowSink        = (*DataWriter)(nil)
)

// NewDataWriter creates a writer for filePath. Stimulus and response
// files carry a BOM so spreadsheet tools detect UTF-8.
func NewDataWriter(filePath string) *DataWriter {
	return &DataWriter{filePath: filePath, bom: true}
}

// WithoutBOM drops the byte order mark, as for intermediate pipeline files.
func (w *DataWriter) WithoutBOM() *DataWriter {
	w.bom = false
	return w
}

func (w *DataWriter) Path() string { return w.filePath }

func (w *DataWriter) WriteStimuli(ctx context.Context, stims []stimulus.Stimulus) error {
	records := make([][]string, len(stims))
	for i, s := range stims {
		records[i] = StimulusRecord(s)
	}
	return w.Write(ctx, StimulusColumns, records)
}

func (w *DataWriter) WriteTrials(ctx context.Context, trials []stimulus.Trial) error {
	records := make([][]string, len(trials))
	for i, t := range trials {
		records[i] = TrialRecord(t)
	}
	return w.Write(ctx, TrialColumns, records)
}

// WriteResponses writes one participant's session.
func (w *DataWriter) WriteResponses(ctx context.Context, responses []stimulus.Response, p stimulus.Participant) error {
	header := append(append([]string{}, StimulusColumns...), ResponseExtraColumns...)
	records := make([][]string, len(responses))
	for i, r := range responses {
		records[i] = ResponseRecord(r, p)
	}
	return w.Write(ctx, header, records)
}

// WriteRows writes raw rows projected onto header.
func (w *DataWriter) WriteRows(ctx context.Context, header []string, rows []product.RawAttributes) error {
	records := make([][]string, len(rows))
	for i, r := range rows {
		rec := make([]string, len(header))
		for j, h := range header {
			rec[j] = r[h]
		}
		records[i] = rec
	}
	return w.Write(ctx, header, records)
}

// Write writes a header and records, creating parent directories.
func (w *DataWriter) Write(ctx context.Context, header []string, records [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(w.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if strings.EqualFold(filepath.Ext(w.filePath), ".xlsx") {
		return w.writeExcel(header, records)
	}
	return w.writeCSV(header, records)
}

func (w *DataWriter) writeCSV(header []string, records [][]string) error {
	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	buf := bufio.NewWriter(file)
	if w.bom {
		if _, err := buf.WriteString(utf8BOM); err != nil {
			return err
		}
	}
	cw := csv.NewWriter(buf)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	return file.Close()
}

func (w *DataWriter) writeExcel(header []string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}
	if err := sw.SetRow("A1", toCells(header)); err != nil {
		return err
	}
	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, toCells(rec)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.SaveAs(w.filePath)
}

func toCells(rec []string) []interface{} {
	out := make([]interface{}, len(rec))
	for i, v := range rec {
		out[i] = v
	}
	return out
}
