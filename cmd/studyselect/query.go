package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/exitcode"
	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/runner"
)

var queryLimit int

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Pair PET/CT studies with prior chest CTs and write candidate_pairs.csv",
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Cap the number of candidate pairs emitted (0 = no cap)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Limit = queryLimit
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateWarehouse(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	runDir, err := cfg.CreateRunDir()
	if err != nil {
		log.Error().Err(err).Msg("create run dir failed")
		os.Exit(exitcode.ValidationError)
	}

	pairs, err := runner.Query(ctx, cfg, log, runDir)
	if err != nil {
		log.Error().Err(err).Msg("query failed")
		os.Exit(exitcode.QueryError)
	}

	fmt.Printf("Query complete: %d candidate pairs in %s\n", len(pairs), runDir)
	return nil
}
