package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/use-agent/screenmatch/models"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Extractor projects a single named column out of a delimited export.
type Extractor struct {
	column string
}

// NewExtractor creates an Extractor for the given header name.
func NewExtractor(column string) *Extractor {
	return &Extractor{column: strings.TrimSpace(column)}
}

// Symbols parses table as CSV with a header row and returns the trimmed,
// non-empty values of the configured column in row order.
//
// Content that is not valid CSV fails with MALFORMED_EXPORT. Rows that are
// shorter than the symbol column or carry a blank value are skipped.
func (e *Extractor) Symbols(table *models.ExportedTable) ([]string, error) {
	if table == nil {
		return nil, models.NewPipelineError(models.ErrCodeMalformedExport, "no export captured", nil)
	}

	r, err := decode(table.Data, table.Encoding)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeMalformedExport,
			fmt.Sprintf("unsupported export encoding %q", table.Encoding), err)
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		slog.Warn("export is empty", "file", table.FileName)
		return []string{}, nil
	}
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeMalformedExport, "failed to parse export header", err)
	}

	idx := columnIndex(header, e.column)
	if idx < 0 {
		slog.Warn("export has no symbol column",
			"file", table.FileName,
			"column", e.column,
			"header", strings.Join(header, ","),
		)
	}

	symbols := []string{}
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, models.NewPipelineError(models.ErrCodeMalformedExport, "failed to parse export rows", err)
		}
		if idx < 0 || idx >= len(record) {
			continue
		}
		if sym := strings.TrimSpace(record[idx]); sym != "" {
			symbols = append(symbols, sym)
		}
	}
	return symbols, nil
}

// columnIndex finds name among the header cells. Cells are trimmed and the
// first one is stripped of a UTF-8 byte order mark.
func columnIndex(header []string, name string) int {
	for i, cell := range header {
		if i == 0 {
			cell = strings.TrimPrefix(cell, "\ufeff")
		}
		if strings.TrimSpace(cell) == name {
			return i
		}
	}
	return -1
}

// decode returns a reader yielding data as UTF-8. An empty label means
// UTF-8; a leading BOM in any Unicode encoding is honored and removed.
func decode(data []byte, label string) (io.Reader, error) {
	var enc encoding.Encoding = unicode.UTF8
	if label = strings.TrimSpace(label); label != "" {
		e, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		enc = e
	}
	dec := unicode.BOMOverride(enc.NewDecoder())
	return transform.NewReader(bytes.NewReader(data), dec), nil
}
