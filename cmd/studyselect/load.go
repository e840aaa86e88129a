package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/db"
	"github.com/gradienthealth/studyselect/internal/exitcode"
	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/warehouse"
)

var (
	loadFile         string
	loadReplaceBatch string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Bulk-load a parquet study snapshot into the warehouse mirror",
	RunE:  runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&loadFile, "file", "", "Path to parquet study snapshot (required)")
	f.StringVar(&loadReplaceBatch, "replace-batch", "", "Delete this load batch ID before loading")
	_ = loadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}
	if _, err := os.Stat(loadFile); err != nil {
		log.Error().Err(err).Msg("snapshot file not accessible")
		os.Exit(exitcode.ValidationError)
	}

	pool, err := db.NewPool(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer pool.Close()

	if loadReplaceBatch != "" {
		batchID, err := uuid.Parse(loadReplaceBatch)
		if err != nil {
			log.Error().Err(err).Msg("invalid --replace-batch ID")
			os.Exit(exitcode.UsageError)
		}
		deleted, err := warehouse.DeleteBatch(ctx, pool, batchID)
		if err != nil {
			log.Error().Err(err).Msg("delete batch failed")
			os.Exit(exitcode.QueryError)
		}
		log.Info().Str("batch_id", loadReplaceBatch).Int64("rows", deleted).Msg("previous batch deleted")
	}

	result, err := warehouse.LoadSnapshot(ctx, pool, log, loadFile)
	if err != nil {
		log.Error().Err(err).Msg("snapshot load failed")
		os.Exit(exitcode.QueryError)
	}

	stats, err := warehouse.Stats(ctx, pool)
	if err != nil {
		log.Error().Err(err).Msg("mirror stats failed")
		os.Exit(exitcode.QueryError)
	}

	fmt.Printf("Load complete: %d rows loaded, %d rejected, batch %s (%.1fs)\n",
		result.RowsLoaded, result.RowsRejected, result.BatchID, result.Duration.Seconds())
	fmt.Printf("Mirror now holds %d series rows, %d studies, %d patients\n",
		stats.SeriesRows, stats.Studies, stats.Patients)
	return nil
}
