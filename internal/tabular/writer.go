// Package tabular persists collected records as CSV datasets and reads
// them back for visualization and reporting.
package tabular

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"

	"github.com/fabricmgr/fabricmgr/internal/apperrors"
	"github.com/fabricmgr/fabricmgr/internal/logger"
	"github.com/fabricmgr/fabricmgr/internal/schema"
)

// Record is one flat collected row: field name to stringified value.
type Record map[string]string

// defaultColumns is the header used when there is neither a schema nor any
// record to derive one from.
var defaultColumns = []string{"id", "name", "type"}

// WriteCSV writes records to path as comma-delimited UTF-8.
//
// The header row is always written, so an empty dataset produces a
// header-only file. When columns is non-nil it fixes the column set and
// order: record fields outside it are dropped (one warning per call) and
// absent fields become empty strings. When columns is nil the header is the
// sorted union of all record keys.
func WriteCSV(log logger.Logger, path string, records []Record, columns []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Error("failed to create output directory", logger.String("path", path), logger.Err(err))
		return apperrors.WrapWriteFailure(err, path)
	}

	cols := columns
	if cols == nil {
		cols = deriveColumns(records)
	} else if dropped := droppedFields(records, cols); len(dropped) > 0 {
		log.Warn("dropping fields not in dataset schema",
			logger.String("path", path),
			logger.Strings("fields", dropped))
	}

	file, err := os.Create(path)
	if err != nil {
		log.Error("failed to create dataset file", logger.String("path", path), logger.Err(err))
		return apperrors.WrapWriteFailure(err, path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(cols); err != nil {
		log.Error("failed to write header", logger.String("path", path), logger.Err(err))
		return apperrors.WrapWriteFailure(err, path)
	}

	row := make([]string, len(cols))
	for _, record := range records {
		for i, col := range cols {
			row[i] = record[col]
		}
		if err := writer.Write(row); err != nil {
			log.Error("failed to write record", logger.String("path", path), logger.Err(err))
			return apperrors.WrapWriteFailure(err, path)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Error("failed to flush dataset", logger.String("path", path), logger.Err(err))
		return apperrors.WrapWriteFailure(err, path)
	}
	if err := file.Close(); err != nil {
		log.Error("failed to close dataset file", logger.String("path", path), logger.Err(err))
		return apperrors.WrapWriteFailure(err, path)
	}

	log.Debug("dataset written", logger.String("path", path), logger.Int("records", len(records)))
	return nil
}

// WriteDataset persists one dataset under dir as <dataset>.csv, using the
// registered schema columns when the dataset is registered. It returns the
// written path.
func WriteDataset(log logger.Logger, dir, dataset string, records []Record) (string, error) {
	cols, _ := schema.Columns(dataset)
	path := DatasetPath(dir, dataset)
	return path, WriteCSV(log, path, records, cols)
}

// DatasetPath returns the CSV path for a dataset under dir.
func DatasetPath(dir, dataset string) string {
	return filepath.Join(dir, dataset+".csv")
}

// deriveColumns builds a header from the records themselves: the sorted
// union of every record's keys.
func deriveColumns(records []Record) []string {
	if len(records) == 0 {
		return defaultColumns
	}
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			seen[key] = struct{}{}
		}
	}
	cols := make([]string, 0, len(seen))
	for key := range seen {
		cols = append(cols, key)
	}
	sort.Strings(cols)
	return cols
}

// droppedFields returns the sorted set of record fields absent from cols.
func droppedFields(records []Record, cols []string) []string {
	allowed := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		allowed[col] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, record := range records {
		for key := range record {
			if _, ok := allowed[key]; !ok {
				seen[key] = struct{}{}
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	dropped := make([]string, 0, len(seen))
	for key := range seen {
		dropped = append(dropped, key)
	}
	sort.Strings(dropped)
	return dropped
}
