package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"socdash/internal/risk"
	"socdash/internal/transform/insights"
	"socdash/pkg/models"
)

// ReadCSV parses an event log. Rows that cannot be parsed are returned as
// failures; only header and I/O problems are fatal.
func ReadCSV(r io.Reader) ([]models.Event, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headerRow, err := cr.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("read header: empty input")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header, err := insights.NewHeader(headerRow)
	if err != nil {
		return nil, nil, err
	}

	var events []models.Event
	var failures []error
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				failures = append(failures, &risk.MalformedEventError{Row: perr.StartLine, Reason: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		ev, err := insights.ParseRecord(header, record, line)
		if err != nil {
			failures = append(failures, err)
			continue
		}
		events = append(events, ev)
	}
	return events, failures, nil
}

// ReadCSVFile parses an event log from disk.
func ReadCSVFile(path string) ([]models.Event, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}
