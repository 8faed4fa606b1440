package transform

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVAssemblyError wraps an I/O failure from the CSV writer. This should
// be unreachable in practice since the writer's sink is an in-memory
// buffer, but a failure there is still reported rather than panicking.
type CSVAssemblyError struct {
	Err error
}

func (e *CSVAssemblyError) Error() string {
	return fmt.Sprintf("failed to assemble CSV output: %v", e.Err)
}

func (e *CSVAssemblyError) Unwrap() error {
	return e.Err
}

// Render applies rowOptions to buf to obtain rows, applies colOptions
// to each row's bytes to obtain that row's cells, rectangularizes the
// result, and emits it as RFC 4180 CSV with no header row. The outer
// split is always by rowOptions and the inner split of each row is
// always by colOptions.
func Render(rowOptions, colOptions *Options, buf []byte) ([]byte, error) {
	rowSegments := DimensionSplit(rowOptions, buf)

	rows := make([][][]byte, len(rowSegments))
	width := 0
	for i, rowBytes := range rowSegments {
		cells := DimensionSplit(colOptions, rowBytes)
		rows[i] = cells
		if len(cells) > width {
			width = len(cells)
		}
	}

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	w.UseCRLF = true

	for _, cells := range rows {
		record := make([]string, width)
		for i := 0; i < width; i++ {
			if i < len(cells) {
				record[i] = string(cells[i])
			}
		}
		if err := w.Write(record); err != nil {
			return nil, &CSVAssemblyError{Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &CSVAssemblyError{Err: err}
	}

	return out.Bytes(), nil
}
