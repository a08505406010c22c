package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ReadCSV reads a statement export into raw rows. The delimiter is sniffed
// from the header line (Boursorama exports use semicolons, generic exports
// commas). A stream without a readable header is a whole-batch failure.
func ReadCSV(r io.Reader) ([]RawRow, error) {
	br := bufio.NewReader(r)
	header, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("empty csv input")
	}

	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(header)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv input")
	}

	columns := records[0]
	columns[0] = strings.TrimPrefix(columns[0], "\ufeff")
	for i, col := range columns {
		columns[i] = strings.TrimSpace(col)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(RawRow, len(columns))
		for i, value := range record {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			row[columns[i]] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// sniffDelimiter picks the separator appearing most often in the first line.
func sniffDelimiter(header []byte) rune {
	line := string(header)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(line, ";") >= strings.Count(line, ",") {
		return ';'
	}
	return ','
}
