package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gradienthealth/studyselect/internal/model"
)

// StudySeriesColumns is the COPY column order for the study_series table.
func StudySeriesColumns() []string {
	return []string{
		"study_uid", "patient_id", "study_date", "report_text",
		"series_uid", "modality", "acquisition_date", "series_description",
		"body_part_examined", "slice_thickness", "contrast_bolus_agent",
		"load_batch_id",
	}
}

// SeriesRowSource implements pgx.CopyFromSource by reading StudyRows from a
// channel, giving natural backpressure between the snapshot reader and the
// COPY writer.
type SeriesRowSource struct {
	ch      <-chan *model.StudyRow
	batchID uuid.UUID
	current *model.StudyRow
}

// NewSeriesRowSource creates a CopyFromSource backed by a channel; every
// emitted row is tagged with the load batch ID.
func NewSeriesRowSource(ch <-chan *model.StudyRow, batchID uuid.UUID) *SeriesRowSource {
	return &SeriesRowSource{ch: ch, batchID: batchID}
}

// Next advances to the next row. Returns false when the channel is closed.
func (s *SeriesRowSource) Next() bool {
	row, ok := <-s.ch
	if !ok {
		return false
	}
	s.current = row
	return true
}

// Values returns the current row's values in COPY column order.
func (s *SeriesRowSource) Values() ([]any, error) {
	r := s.current
	return []any{
		r.StudyUID, r.PatientID, nilIfEmpty(r.StudyDate), nilIfEmpty(r.ReportText),
		r.SeriesUID, nilIfEmpty(r.Modality), nilIfEmpty(r.AcquisitionDate), nilIfEmpty(r.SeriesDescription),
		nilIfEmpty(r.BodyPartExamined), r.SliceThickness, nilIfEmpty(r.ContrastBolusAgent),
		s.batchID,
	}, nil
}

// Err returns any error encountered during iteration.
func (s *SeriesRowSource) Err() error { return nil }

func nilIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Compile-time check that SeriesRowSource satisfies the interface.
var _ pgx.CopyFromSource = (*SeriesRowSource)(nil)
