package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/artifact"
	"github.com/gradienthealth/studyselect/internal/exitcode"
	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/runner"
)

var selectInput string

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Apply selection rules to extracted pairs and write selected_pairs.csv and audit_log.csv",
	RunE:  runSelect,
}

func init() {
	selectCmd.Flags().StringVar(&selectInput, "input", "", "Extracted pairs CSV (default: <run dir>/extracted_pairs.csv)")
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := logging.Setup(cfg.LogFormat)

	runDir, err := cfg.CreateRunDir()
	if err != nil {
		log.Error().Err(err).Msg("create run dir failed")
		os.Exit(exitcode.ValidationError)
	}

	input := selectInput
	if input == "" {
		input = filepath.Join(runDir, artifact.ExtractedPairsFile)
	}
	results, err := artifact.ReadExtractedPairs(input)
	if err != nil {
		log.Error().Err(err).Msg("read extracted pairs failed")
		os.Exit(exitcode.ValidationError)
	}

	decisions, err := runner.Select(log, runDir, results)
	if err != nil {
		log.Error().Err(err).Msg("selection failed")
		os.Exit(exitcode.SelectError)
	}

	selected := 0
	for _, d := range decisions {
		if d.Selected {
			selected++
		}
	}
	fmt.Printf("Selection complete: %d of %d pairs selected, audit log in %s\n",
		selected, len(decisions), runDir)
	return nil
}
