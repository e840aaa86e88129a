package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gradienthealth/studyselect/internal/model"
	embedsql "github.com/gradienthealth/studyselect/internal/sql"
)

// LoadStudies submits the study/series projection query and assembles the
// rows into Study values. The pipeline depends only on the row shape, not
// on the warehouse's query engine.
func LoadStudies(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) ([]model.Study, error) {
	rows, err := pool.Query(ctx, embedsql.SelectStudyRows)
	if err != nil {
		return nil, fmt.Errorf("query study rows: %w", err)
	}
	defer rows.Close()

	var flat []model.StudyRow
	for rows.Next() {
		var r model.StudyRow
		if err := rows.Scan(
			&r.StudyUID, &r.PatientID, &r.StudyDate, &r.ReportText,
			&r.SeriesUID, &r.Modality, &r.AcquisitionDate, &r.SeriesDescription,
			&r.BodyPartExamined, &r.SliceThickness, &r.ContrastBolusAgent,
		); err != nil {
			return nil, fmt.Errorf("scan study row: %w", err)
		}
		flat = append(flat, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read study rows: %w", err)
	}

	studies := AssembleStudies(flat)
	log.Info().
		Int("series_rows", len(flat)).
		Int("studies", len(studies)).
		Msg("study index loaded from warehouse")
	return studies, nil
}

// LoadSnapshotStudies reads a parquet snapshot and assembles it into Study
// values, the offline equivalent of LoadStudies.
func LoadSnapshotStudies(path string, log zerolog.Logger) ([]model.Study, error) {
	r, err := OpenSnapshot(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	flat, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	studies := AssembleStudies(flat)
	log.Info().
		Str("snapshot", path).
		Int("series_rows", len(flat)).
		Int("studies", len(studies)).
		Msg("study index loaded from snapshot")
	return studies, nil
}
