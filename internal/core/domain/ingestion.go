package domain

import "fmt"

// FailedItem records a single item that failed during an ingestion stage.
type FailedItem struct {
	// Item is the file, URL or document identifier.
	Item string `json:"item"`

	// Reason is the error message.
	Reason string `json:"reason"`
}

// IngestionSummary aggregates the outcome of an ingestion stage.
type IngestionSummary struct {
	// Stage is the stage name (acquire, chunk, load, ingest).
	Stage string `json:"stage"`

	// Processed counts items handled successfully.
	Processed int `json:"processed"`

	// Failed counts items that raised an error.
	Failed int `json:"failed"`

	// Skipped counts items ignored with a warning (e.g. empty content).
	Skipped int `json:"skipped"`

	// Chunks counts chunks produced or upserted.
	Chunks int `json:"chunks"`

	// FailedItems lists the failures in the order they were recorded.
	FailedItems []FailedItem `json:"failed_items,omitempty"`
}

// NewIngestionSummary creates an empty summary for a stage.
func NewIngestionSummary(stage string) *IngestionSummary {
	return &IngestionSummary{Stage: stage}
}

// RecordFailure adds a failed item.
func (s *IngestionSummary) RecordFailure(item string, err error) {
	s.Failed++
	s.FailedItems = append(s.FailedItems, FailedItem{Item: item, Reason: err.Error()})
}

// HasFailures returns true if any item failed.
func (s *IngestionSummary) HasFailures() bool {
	return s.Failed > 0
}

// Total returns the number of items seen.
func (s *IngestionSummary) Total() int {
	return s.Processed + s.Failed + s.Skipped
}

// String returns the one-line summary printed at the end of a stage.
func (s *IngestionSummary) String() string {
	return fmt.Sprintf("Processed: %d, Failed: %d, Skipped: %d", s.Processed, s.Failed, s.Skipped)
}
