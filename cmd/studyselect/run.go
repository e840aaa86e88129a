package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/exitcode"
	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/runner"
)

var (
	runLimit   int
	runMaxRows int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the full pipeline: query, extract, select",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runLimit, "limit", 0, "Cap the number of candidate pairs emitted (0 = no cap)")
	f.IntVar(&runMaxRows, "max-rows", 0, "Cap the number of pairs sent to extraction (0 = no cap)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Limit = runLimit
	cfg.MaxRows = runMaxRows
	log, logErr := logging.SetupWithFile(cfg.LogFormat, cfg.Paths.LogsDir)
	if logErr != nil {
		log.Warn().Err(logErr).Msg("file logging unavailable, continuing on stderr")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cfg.ValidateWarehouse(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
	if err := cfg.ValidateLLM(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	runDir, err := cfg.CreateRunDir()
	if err != nil {
		log.Error().Err(err).Msg("create run dir failed")
		os.Exit(exitcode.ValidationError)
	}

	summary, err := runner.Run(ctx, cfg, log, runDir)
	if err != nil {
		if pe, ok := err.(*runner.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("pipeline failed")
			switch pe.Phase {
			case "query":
				os.Exit(exitcode.QueryError)
			case "extract":
				os.Exit(exitcode.ExtractError)
			default:
				os.Exit(exitcode.SelectError)
			}
		}
		log.Error().Err(err).Msg("pipeline failed")
		os.Exit(exitcode.SelectError)
	}

	fmt.Printf("Run complete: %d pairs, %d selected, %d rejected, %d extraction errors (%.1fs)\n",
		summary.PairsEmitted, summary.PairsSelected, summary.PairsRejected,
		summary.ExtractionErrors, summary.DurationTotal.Seconds())
	fmt.Printf("Artifacts: %s\n", summary.RunDir)
	return nil
}
