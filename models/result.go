package models

import (
	"errors"
	"time"
)

// DefaultEncoding is assumed when an export does not declare one.
const DefaultEncoding = "utf-8"

// ExportedTable is the raw tabular export captured from the screener page.
// It only lives between the export trigger and parsing.
type ExportedTable struct {
	// Data holds the file bytes as downloaded.
	Data []byte

	// Encoding is the declared character encoding of Data.
	Encoding string

	// FileName is the name the export was saved under inside the working
	// directory.
	FileName string
}

// Counts are the sizes of the three output sequences.
type Counts struct {
	Extracted int `json:"extracted"`
	Reference int `json:"reference"`
	Matched   int `json:"matched"`
}

// RunOutcome is the terminal state of one pipeline execution.
type RunOutcome struct {
	// Success is true only when every stage finished and all artifacts
	// were written.
	Success bool `json:"success"`

	// Counts is populated on success.
	Counts Counts `json:"counts"`

	// Artifacts lists the written file paths on success.
	Artifacts []string `json:"artifacts,omitempty"`

	// Stage, Code and Cause describe the failure.
	Stage string `json:"stage,omitempty"`
	Code  string `json:"code,omitempty"`
	Cause string `json:"cause,omitempty"`

	// Duration is the wall time of the run.
	Duration time.Duration `json:"duration"`

	// Err is the originating error, nil on success.
	Err error `json:"-"`
}

// Succeeded builds a successful outcome.
func Succeeded(counts Counts, artifacts []string) RunOutcome {
	return RunOutcome{Success: true, Counts: counts, Artifacts: artifacts}
}

// Failed builds a failed outcome from a stage error.
func Failed(stage string, err error) RunOutcome {
	pe := WithStage(stage, err)
	return RunOutcome{
		Stage: pe.Stage,
		Code:  pe.Code,
		Cause: pe.Error(),
		Err:   pe,
	}
}

// Rejected reports whether the run was refused before any side effects.
func (o RunOutcome) Rejected() bool {
	var pe *PipelineError
	return errors.As(o.Err, &pe) && pe.Code == ErrCodeInvalidRequest
}
