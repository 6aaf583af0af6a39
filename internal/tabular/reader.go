package tabular

import (
	"encoding/csv"
	"io"
	"os"
)

// ReadCSV reads a dataset file back into records keyed by its header row.
// A header-only file yields an empty slice. Rows shorter than the header
// leave the missing fields empty; longer rows have the excess ignored.
func ReadCSV(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		record := make(Record, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadDataset reads <dataset>.csv from dir.
func ReadDataset(dir, dataset string) ([]Record, error) {
	return ReadCSV(DatasetPath(dir, dataset))
}
