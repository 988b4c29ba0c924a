package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// loadCSV loads a numeric matrix from a CSV file (no header). Lines starting
// with '#' are skipped.
func loadCSV(filename string) (*mat.Dense, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := readCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", filename)
	}
	return m, nil
}

func readCSV(r io.Reader) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, errors.New("empty file")
	}

	cols := len(records[0])
	data := make([]float64, 0, len(records)*cols)
	for i, record := range records {
		if len(record) != cols {
			return nil, errors.Newf("row %d has %d columns, want %d", i, len(record), cols)
		}
		for j, val := range record {
			f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "row %d, col %d", i, j)
			}
			data = append(data, f)
		}
	}

	return mat.NewDense(len(records), cols, data), nil
}

// saveCSV writes a matrix to a CSV file.
func saveCSV(filename string, m mat.Matrix) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := writeCSV(file, m); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func writeCSV(w io.Writer, m mat.Matrix) error {
	writer := csv.NewWriter(w)

	r, c := m.Dims()
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			record[j] = strconv.FormatFloat(m.At(i, j), 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// rowsMatrix converts an embedding to a matrix for writing.
func rowsMatrix(rows [][]float64) *mat.Dense {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return &mat.Dense{}
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}
