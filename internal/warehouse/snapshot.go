package warehouse

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gradienthealth/studyselect/internal/model"
)

// SnapshotReader streams model.StudyRow records from a parquet study export,
// letting the pipeline run without a warehouse connection.
type SnapshotReader struct {
	file   *os.File
	reader *parquet.GenericReader[model.StudyRow]
}

// OpenSnapshot opens a parquet snapshot and validates its schema.
func OpenSnapshot(path string) (*SnapshotReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.StudyRow](pf)
	if err := ValidateSchema(r.Schema()); err != nil {
		r.Close()
		f.Close()
		return nil, err
	}
	return &SnapshotReader{file: f, reader: r}, nil
}

// NumRows returns the total number of series rows in the snapshot.
func (r *SnapshotReader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records. Returns io.EOF when done.
func (r *SnapshotReader) Read(rows []model.StudyRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read snapshot rows: %w", err)
	}
	return n, err
}

// ReadAll drains the snapshot into memory.
func (r *SnapshotReader) ReadAll() ([]model.StudyRow, error) {
	var all []model.StudyRow
	buf := make([]model.StudyRow, 1024)
	for {
		n, err := r.Read(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close releases all resources.
func (r *SnapshotReader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// ValidateSchema checks that the snapshot carries the study/series
// projection columns the pipeline depends on.
func ValidateSchema(schema *parquet.Schema) error {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}
	for _, col := range []string{"study_uid", "patient_id", "series_uid", "modality"} {
		if !columns[col] {
			return fmt.Errorf("snapshot missing required column: %s", col)
		}
	}
	return nil
}
