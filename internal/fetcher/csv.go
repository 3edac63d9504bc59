package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the CSV reader.
type CSVOptions struct {
	Delimiter rune // default ','
	Comment   rune // 0 = none
}

// ReadCSV reads a CSV document, returning the header row separately
// from the data rows. Fields are whitespace-trimmed and rows may vary
// in width.
func ReadCSV(r io.Reader, opts CSVOptions) ([]string, [][]string, error) {
	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.FieldsPerRecord = -1

	var header []string
	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, eris.Wrap(err, "csv: read row")
		}

		for i, field := range record {
			record[i] = strings.TrimSpace(field)
		}

		if header == nil {
			header = record
			continue
		}
		rows = append(rows, record)
	}

	if header == nil {
		return nil, nil, eris.New("csv: missing header row")
	}
	return header, rows, nil
}
