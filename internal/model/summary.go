package model

import "time"

// RunSummary captures metrics from a single pipeline run.
type RunSummary struct {
	RunID            string
	RunDir           string
	StudiesLoaded    int
	PairsEmitted     int
	StudiesExtracted int
	ExtractionErrors int
	PairsSelected    int
	PairsRejected    int
	DurationQuery    time.Duration
	DurationExtract  time.Duration
	DurationSelect   time.Duration
	DurationTotal    time.Duration
}
