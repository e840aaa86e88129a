package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gradienthealth/studyselect/internal/config"
)

const defaultConfigPath = "configs/selection.yaml"

var (
	cfgPath   string
	dsn       string
	logFormat string
	runName   string
	snapshot  string
)

var rootCmd = &cobra.Command{
	Use:   "studyselect",
	Short: "PET/CT study pair selection pipeline",
	Long:  "Pairs PET/CT studies with their nearest prior chest CT, extracts structured findings from radiology reports via an LLM, and applies selection rules to produce an auditable cohort.",
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", defaultConfigPath, "Path to YAML config file")
	pf.StringVar(&dsn, "dsn", "", "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&runName, "run-name", "", "Run directory name; reuse an existing name to resume a run")
	pf.StringVar(&snapshot, "snapshot", "", "Parquet study snapshot; bypasses the warehouse")
}

// loadConfig merges the config file, .env, environment and flags. The file
// is optional unless --config points somewhere explicit.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	var cfg *config.Config
	if _, err := os.Stat(cfgPath); err != nil {
		if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config file: %w", err)
		}
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
	}

	if dsn != "" {
		cfg.DSN = dsn
	}
	cfg.LogFormat = logFormat
	cfg.RunName = runName
	if snapshot != "" {
		cfg.Snapshot = snapshot
	}
	return cfg, nil
}
