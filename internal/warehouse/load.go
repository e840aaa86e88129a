package warehouse

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gradienthealth/studyselect/internal/db"
	"github.com/gradienthealth/studyselect/internal/model"
	embedsql "github.com/gradienthealth/studyselect/internal/sql"
)

const readBatchSize = 1024

// LoadResult holds metrics from one snapshot load into the local mirror.
type LoadResult struct {
	BatchID      uuid.UUID
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	Duration     time.Duration
}

// LoadSnapshot streams series rows from a parquet snapshot into the
// study_series mirror table via the COPY protocol. Rows missing their
// identifying UIDs are rejected and counted, never fatal.
func LoadSnapshot(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, path string) (*LoadResult, error) {
	start := time.Now()

	reader, err := OpenSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("load open: %w", err)
	}
	defer reader.Close()

	batchID := uuid.New()
	ch := make(chan *model.StudyRow, readBatchSize)
	errCh := make(chan error, 1)

	var rowsRead, rowsRejected int64

	// Producer goroutine: read snapshot → validate → push to channel.
	go func() {
		defer close(ch)
		buf := make([]model.StudyRow, readBatchSize)
		for {
			n, readErr := reader.Read(buf)
			for i := 0; i < n; i++ {
				rowsRead++
				row := buf[i]
				if row.StudyUID == "" || row.SeriesUID == "" || row.PatientID == "" {
					rowsRejected++
					log.Warn().Int64("row", rowsRead).Msg("row rejected: missing study/series/patient identifier")
					continue
				}
				select {
				case ch <- &row:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				errCh <- fmt.Errorf("read snapshot at row %d: %w", rowsRead, readErr)
				return
			}
		}
		errCh <- nil
	}()

	source := db.NewSeriesRowSource(ch, batchID)
	rowsLoaded, copyErr := pool.CopyFrom(ctx,
		pgx.Identifier{"study_series"},
		db.StudySeriesColumns(),
		source,
	)

	// On copy failure pgx stops reading the source mid-stream; drain the
	// channel so the producer can finish and report instead of blocking.
	for range ch {
	}

	if prodErr := <-errCh; prodErr != nil {
		return nil, fmt.Errorf("load producer: %w", prodErr)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("load copy: %w", copyErr)
	}

	dur := time.Since(start)
	log.Info().
		Str("batch_id", batchID.String()).
		Int64("rows_read", rowsRead).
		Int64("rows_loaded", rowsLoaded).
		Int64("rows_rejected", rowsRejected).
		Str("duration", dur.String()).
		Msg("snapshot load complete")

	return &LoadResult{
		BatchID:      batchID,
		RowsRead:     rowsRead,
		RowsLoaded:   rowsLoaded,
		RowsRejected: rowsRejected,
		Duration:     dur,
	}, nil
}

// MirrorStats summarizes the mirror table contents.
type MirrorStats struct {
	SeriesRows int64
	Studies    int64
	Patients   int64
}

// Stats counts the series rows, studies and patients in the mirror.
func Stats(ctx context.Context, pool *pgxpool.Pool) (*MirrorStats, error) {
	var s MirrorStats
	if err := pool.QueryRow(ctx, embedsql.CountStudyRows).Scan(&s.SeriesRows, &s.Studies, &s.Patients); err != nil {
		return nil, fmt.Errorf("count study rows: %w", err)
	}
	return &s, nil
}

// DeleteBatch removes every row loaded under one batch ID, so a bad or
// superseded snapshot load can be replaced.
func DeleteBatch(ctx context.Context, pool *pgxpool.Pool, batchID uuid.UUID) (int64, error) {
	tag, err := pool.Exec(ctx, embedsql.DeleteLoadBatch, batchID)
	if err != nil {
		return 0, fmt.Errorf("delete batch %s: %w", batchID, err)
	}
	return tag.RowsAffected(), nil
}
