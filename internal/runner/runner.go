package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/gradienthealth/studyselect/internal/artifact"
	"github.com/gradienthealth/studyselect/internal/config"
	"github.com/gradienthealth/studyselect/internal/db"
	"github.com/gradienthealth/studyselect/internal/extract"
	"github.com/gradienthealth/studyselect/internal/model"
	"github.com/gradienthealth/studyselect/internal/pairing"
	"github.com/gradienthealth/studyselect/internal/selection"
	"github.com/gradienthealth/studyselect/internal/warehouse"
)

// PipelineError wraps an error with the stage where it occurred, letting
// the CLI map stages to exit codes.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Query loads the study index (warehouse or snapshot), runs the pairing
// engine, and writes candidate_pairs.csv into runDir.
func Query(ctx context.Context, cfg *config.Config, log zerolog.Logger, runDir string) ([]model.CandidatePair, error) {
	var studies []model.Study
	var err error

	if cfg.Snapshot != "" {
		studies, err = warehouse.LoadSnapshotStudies(cfg.Snapshot, log)
	} else {
		pool, perr := db.NewPool(ctx, cfg.DSN)
		if perr != nil {
			return nil, &PipelineError{Phase: "query", Err: perr}
		}
		studies, err = warehouse.LoadStudies(ctx, pool, log)
		pool.Close()
	}
	if err != nil {
		return nil, &PipelineError{Phase: "query", Err: err}
	}

	pairs := pairing.New(cfg.Selection, log).Pair(studies)
	if cfg.Limit > 0 && len(pairs) > cfg.Limit {
		pairs = pairs[:cfg.Limit]
	}

	out := filepath.Join(runDir, artifact.CandidatePairsFile)
	if err := artifact.WriteCandidatePairs(out, pairs); err != nil {
		return nil, &PipelineError{Phase: "query", Err: err}
	}
	log.Info().Int("pairs", len(pairs)).Str("path", out).Msg("candidate pairs written")
	return pairs, nil
}

// Extract runs the orchestrator over the candidate pairs and writes
// extracted_pairs.csv plus the per-study extraction artifacts.
func Extract(ctx context.Context, cfg *config.Config, log zerolog.Logger, runDir string, pairs []model.CandidatePair) ([]extract.Result, error) {
	if err := cfg.ValidateLLM(); err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}
	if cfg.MaxRows > 0 && len(pairs) > cfg.MaxRows {
		pairs = pairs[:cfg.MaxRows]
	}

	ctPrompt, petPrompt, err := extract.LoadPrompts(cfg.Paths.PromptsDir)
	if err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}
	client, err := extract.NewOpenAIClient(cfg.LLM)
	if err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}
	store, err := extract.NewStore(runDir)
	if err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}

	orch := extract.NewOrchestrator(client, store, cfg.LLM, ctPrompt, petPrompt, log)
	results, err := orch.Run(ctx, pairs)
	if err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}

	out := filepath.Join(runDir, artifact.ExtractedPairsFile)
	if err := artifact.WriteExtractedPairs(out, results); err != nil {
		return nil, &PipelineError{Phase: "extract", Err: err}
	}
	log.Info().Int("pairs", len(results)).Str("path", out).Msg("extracted pairs written")
	return results, nil
}

// Select evaluates the rules over extracted pairs and writes
// selected_pairs.csv and audit_log.csv.
func Select(log zerolog.Logger, runDir string, results []extract.Result) ([]model.SelectionDecision, error) {
	decisions := make([]model.SelectionDecision, 0, len(results))
	selected := 0
	for _, r := range results {
		d := selection.Evaluate(r.Pair, r.CT, r.PET)
		if d.Selected {
			selected++
		}
		decisions = append(decisions, d)
	}

	selectedPath := filepath.Join(runDir, artifact.SelectedPairsFile)
	if err := artifact.WriteSelectedPairs(selectedPath, results, decisions); err != nil {
		return nil, &PipelineError{Phase: "select", Err: err}
	}
	auditPath := filepath.Join(runDir, artifact.AuditLogFile)
	if err := artifact.WriteAuditLog(auditPath, decisions); err != nil {
		return nil, &PipelineError{Phase: "select", Err: err}
	}

	log.Info().
		Int("selected", selected).
		Int("rejected", len(decisions)-selected).
		Str("audit", auditPath).
		Msg("selection complete")
	return decisions, nil
}

// Run executes the full pipeline: query → extract → select.
func Run(ctx context.Context, cfg *config.Config, log zerolog.Logger, runDir string) (*model.RunSummary, error) {
	totalStart := time.Now()
	summary := &model.RunSummary{RunDir: runDir}

	start := time.Now()
	pairs, err := Query(ctx, cfg, log, runDir)
	if err != nil {
		return nil, err
	}
	summary.PairsEmitted = len(pairs)
	summary.DurationQuery = time.Since(start)

	start = time.Now()
	results, err := Extract(ctx, cfg, log, runDir, pairs)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		if r.CT.Status == model.ExtractionError || r.PET.Status == model.ExtractionError {
			summary.ExtractionErrors++
		}
	}
	summary.DurationExtract = time.Since(start)

	start = time.Now()
	decisions, err := Select(log, runDir, results)
	if err != nil {
		return nil, err
	}
	for _, d := range decisions {
		if d.Selected {
			summary.PairsSelected++
		} else {
			summary.PairsRejected++
		}
	}
	summary.DurationSelect = time.Since(start)
	summary.DurationTotal = time.Since(totalStart)

	log.Info().
		Int("pairs", summary.PairsEmitted).
		Int("selected", summary.PairsSelected).
		Int("rejected", summary.PairsRejected).
		Int("extraction_errors", summary.ExtractionErrors).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("pipeline complete")
	return summary, nil
}
