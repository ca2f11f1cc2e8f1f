package jsonl

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"ecostim/domain/product"
	"ecostim/internal"
	"ecostim/ports"
)

// Reader streams a JSON Lines product dump, optionally gzipped
type Reader struct {
	path   string
	logger *internal.Logger
}

var _ ports.RowSource = (*Reader)(nil)

func NewReader(path string, logger *internal.Logger) *Reader {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Reader{path: path, logger: logger}
}

// IsJSONL reports whether path names a JSON Lines dump.
func IsJSONL(path string) bool {
	p := strings.TrimSuffix(strings.ToLower(path), ".gz")
	return strings.HasSuffix(p, ".jsonl") || strings.HasSuffix(p, ".ndjson")
}

// Each calls fn for every valid document. Malformed lines are skipped and counted.
func (r *Reader) Each(ctx context.Context, fn func(product.RawAttributes) error) error {
	file, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("failed to open JSONL file: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if strings.HasSuffix(strings.ToLower(r.path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		src = gz
	}

	br := bufio.NewReaderSize(src, 1<<20)
	lineNo, skipped := 0, 0
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if err := ctx.Err(); err != nil {
				return err
			}
			line = bytes.TrimSpace(line)
			switch {
			case len(line) == 0:
			case !gjson.ValidBytes(line):
				skipped++
				r.logger.Trace("[jsonl] skipping malformed line %d", lineNo)
			default:
				if err := fn(ToRow(gjson.ParseBytes(line))); err != nil {
					return err
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("failed to read %s: %w", r.path, readErr)
		}
	}
	if skipped > 0 {
		r.logger.Warn("[jsonl] %s: skipped %d malformed lines of %d", r.path, skipped, lineNo)
	}
	return nil
}
