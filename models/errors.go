package models

import (
	"errors"
	"fmt"
)

// Error codes reported in a failed RunOutcome.
const (
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeNavigationTimeout     = "NAVIGATION_TIMEOUT"
	ErrCodeNavigation            = "NAVIGATION_FAILED"
	ErrCodeExportControlNotFound = "EXPORT_CONTROL_NOT_FOUND"
	ErrCodeExportTimeout         = "EXPORT_TIMEOUT"
	ErrCodeMalformedExport       = "MALFORMED_EXPORT"
	ErrCodeBrowserLaunch         = "BROWSER_LAUNCH_FAILED"

	// Release feed error codes.
	ErrCodeReferenceMetadata     = "REFERENCE_METADATA_ERROR"
	ErrCodeReferenceAssetMissing = "REFERENCE_ASSET_MISSING"
	ErrCodeReferenceFetch        = "REFERENCE_FETCH_ERROR"

	ErrCodeOutputWrite   = "OUTPUT_WRITE_FAILED"
	ErrCodeConfigInvalid = "CONFIG_INVALID"
	ErrCodeCanceled      = "RUN_CANCELED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

// Pipeline stage names.
const (
	StageValidate  = "validate"
	StageScreener  = "screener"
	StageExtract   = "extract"
	StageReference = "reference"
	StageReconcile = "reconcile"
	StageOutput    = "output"
)

// PipelineError is the internal error type carrying an error code and the
// stage that produced it. It supports error wrapping via Unwrap.
type PipelineError struct {
	Stage   string
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *PipelineError) Error() string {
	prefix := e.Code
	if e.Stage != "" {
		prefix = e.Stage + ": " + e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError without a stage. The
// orchestrator tags the stage when the error crosses a stage boundary.
func NewPipelineError(code, message string, err error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Err: err}
}

// WithStage returns err tagged with stage. A PipelineError that already
// carries a stage is returned unchanged; any other error becomes an
// INTERNAL_ERROR for that stage.
func WithStage(stage string, err error) *PipelineError {
	if err == nil {
		return nil
	}
	var pe *PipelineError
	if errors.As(err, &pe) {
		if pe.Stage != "" {
			return pe
		}
		tagged := *pe
		tagged.Stage = stage
		return &tagged
	}
	return &PipelineError{Stage: stage, Code: ErrCodeInternal, Message: "unexpected failure", Err: err}
}

// CodeOf returns the error code carried by err, or "" if err is not a
// PipelineError.
func CodeOf(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
