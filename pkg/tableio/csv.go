// Package tableio reads raw tables from CSV and writes result tables back out.
package tableio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"ecomtools/pkg/models"
)

// ReadCSV reads a header line followed by data rows. Ragged rows are accepted;
// missing trailing cells read as empty.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return models.RawTable{}, models.ErrEmptyInput
	}
	if err != nil {
		return models.RawTable{}, fmt.Errorf("read header: %w", err)
	}
	raw := models.RawTable{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return models.RawTable{}, fmt.Errorf("read csv: %w", err)
		}
		raw.Rows = append(raw.Rows, rec)
	}
	return raw, nil
}

func ReadCSVFile(path string) (models.RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawTable{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the table header and records.
func WriteCSV(w io.Writer, t models.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	if err := cw.WriteAll(models.Records(t)); err != nil {
		return err
	}
	return cw.Error()
}
