package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime configuration for a studyselect run. Flag-bound
// fields are populated by the CLI; the yaml-tagged sections come from the
// config file. The value is immutable once loaded and threaded explicitly
// through the pipeline stages.
type Config struct {
	// Flag-bound fields.
	DSN       string
	LogFormat string // "text" or "json"
	RunName   string
	Snapshot  string // parquet study snapshot, bypasses the warehouse
	InputCSV  string
	Limit     int
	MaxRows   int

	Paths     Paths     `yaml:"paths"`
	Selection Selection `yaml:"selection"`
	LLM       LLM       `yaml:"llm"`
}

// Paths locates run artifacts. Relative entries are resolved against the
// config file's directory at load time.
type Paths struct {
	OutputDir      string `yaml:"output_dir"`
	LogsDir        string `yaml:"logs_dir"`
	PromptsDir     string `yaml:"prompts_dir"`
	RunDirTemplate string `yaml:"run_dir_template"`
}

// Selection carries the pairing term sets and the pairing window.
type Selection struct {
	MaxDays             int      `yaml:"max_days"`
	PETReportTerms      []string `yaml:"pet_report_terms"`
	CTChestTerms        []string `yaml:"ct_chest_terms"`
	CTNonContrastTerms  []string `yaml:"ct_noncontrast_terms"`
	CTWithContrastTerms []string `yaml:"ct_with_contrast_terms"`
	CTExcludeTerms      []string `yaml:"ct_exclude_terms"`
	CTLocalizerTerms    []string `yaml:"ct_localizer_terms"`
}

// LLM configures the inference-service client and the orchestrator.
type LLM struct {
	APIKey          string  `yaml:"api_key"`
	Model           string  `yaml:"model"`
	Concurrency     int     `yaml:"concurrency"`
	Retries         int     `yaml:"retries"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSeconds  int     `yaml:"timeout_seconds"`
}

// Load reads the YAML config file, applies defaults and environment
// overrides, and resolves relative paths against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	c.resolvePaths(filepath.Dir(path))
	return &c, nil
}

// Default returns a config with defaults and environment overrides applied,
// for commands run without a config file.
func Default() *Config {
	var c Config
	c.applyDefaults()
	c.applyEnvOverrides()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Paths.OutputDir == "" {
		c.Paths.OutputDir = "outputs"
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = filepath.Join(c.Paths.OutputDir, "logs")
	}
	if c.Paths.RunDirTemplate == "" {
		c.Paths.RunDirTemplate = "run_%s"
	}
	if c.Selection.MaxDays == 0 {
		c.Selection.MaxDays = 60
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.Concurrency == 0 {
		c.LLM.Concurrency = 20
	}
	if c.LLM.Retries == 0 {
		c.LLM.Retries = 3
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.LLM.MaxOutputTokens == 0 {
		c.LLM.MaxOutputTokens = 2000
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 60
	}
}

func (c *Config) applyEnvOverrides() {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" && c.DSN == "" {
		c.DSN = dsn
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.LLM.Model = model
	}
}

func (c *Config) resolvePaths(baseDir string) {
	for _, p := range []*string{&c.Paths.OutputDir, &c.Paths.LogsDir, &c.Paths.PromptsDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}

// ValidateWarehouse checks that a warehouse connection or snapshot is usable.
func (c *Config) ValidateWarehouse() error {
	if c.Snapshot != "" {
		if _, err := os.Stat(c.Snapshot); err != nil {
			return fmt.Errorf("snapshot not accessible: %w", err)
		}
		return nil
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required (or pass --snapshot)")
	}
	return nil
}

// ValidateLLM checks the fields required before any extraction work begins.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key or OPENAI_API_KEY is required")
	}
	if c.LLM.Concurrency < 1 {
		return fmt.Errorf("llm.concurrency must be >= 1")
	}
	return nil
}

// CreateRunDir creates and returns the per-run output directory. An explicit
// run name reuses an existing directory, which lets stages resume a run.
func (c *Config) CreateRunDir() (string, error) {
	name := c.RunName
	if name == "" {
		name = fmt.Sprintf(c.Paths.RunDirTemplate, time.Now().UTC().Format("20060102_150405"))
	}
	dir := filepath.Join(c.Paths.OutputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}
