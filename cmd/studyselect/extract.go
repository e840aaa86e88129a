package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/artifact"
	"github.com/gradienthealth/studyselect/internal/exitcode"
	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/model"
	"github.com/gradienthealth/studyselect/internal/runner"
)

var (
	extractInput   string
	extractMaxRows int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run LLM extraction over candidate pairs and write extracted_pairs.csv",
	Long:  "Reads candidate_pairs.csv from the run directory (pass --run-name to resume an existing run, or --input to point at a pairs file) and issues one extraction request per distinct study and role.",
	RunE:  runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractInput, "input", "", "Candidate pairs CSV (default: <run dir>/candidate_pairs.csv)")
	f.IntVar(&extractMaxRows, "max-rows", 0, "Cap the number of pairs sent to extraction (0 = no cap)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.MaxRows = extractMaxRows
	log, logErr := logging.SetupWithFile(cfg.LogFormat, cfg.Paths.LogsDir)
	if logErr != nil {
		log.Warn().Err(logErr).Msg("file logging unavailable, continuing on stderr")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runDir, err := cfg.CreateRunDir()
	if err != nil {
		log.Error().Err(err).Msg("create run dir failed")
		os.Exit(exitcode.ValidationError)
	}

	input := extractInput
	if input == "" {
		input = filepath.Join(runDir, artifact.CandidatePairsFile)
	}
	pairs, err := artifact.ReadCandidatePairs(input)
	if err != nil {
		log.Error().Err(err).Msg("read candidate pairs failed")
		os.Exit(exitcode.ValidationError)
	}

	results, err := runner.Extract(ctx, cfg, log, runDir, pairs)
	if err != nil {
		log.Error().Err(err).Msg("extraction failed")
		os.Exit(exitcode.ExtractError)
	}

	errors := 0
	for _, r := range results {
		if r.CT.Status == model.ExtractionError || r.PET.Status == model.ExtractionError {
			errors++
		}
	}
	fmt.Printf("Extraction complete: %d pairs, %d with errors, artifacts in %s\n",
		len(results), errors, runDir)
	return nil
}
