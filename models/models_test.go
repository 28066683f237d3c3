package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prefix = "https://chartink.com/screener/"

func TestNewScreenerRequest(t *testing.T) {
	req, err := NewScreenerRequest("  https://chartink.com/screener/copy-nr7-1 \n", prefix)
	require.NoError(t, err)
	assert.Equal(t, "https://chartink.com/screener/copy-nr7-1", req.URL)
}

func TestNewScreenerRequest_Rejected(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"not a url",
		"http://evil.example/screener/x",
		"http://chartink.com/screener/x",
		"https://chartink.com/dashboard/x",
		"https://chartink.com.evil.example/screener/x",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := NewScreenerRequest(raw, prefix)
			require.Error(t, err)
			assert.Equal(t, ErrCodeInvalidRequest, CodeOf(err))
		})
	}
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewPipelineError(ErrCodeReferenceFetch, "download of fno.txt failed", cause)

	assert.Equal(t, "REFERENCE_FETCH_ERROR: download of fno.txt failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	tagged := WithStage(StageReference, err)
	assert.Equal(t, "reference: REFERENCE_FETCH_ERROR: download of fno.txt failed: connection reset", tagged.Error())
	assert.Empty(t, err.Stage, "tagging copies the error")

	assert.Same(t, tagged, WithStage(StageOutput, tagged), "an existing stage is kept")
}

func TestWithStage_ForeignError(t *testing.T) {
	cause := errors.New("boom")
	pe := WithStage(StageExtract, cause)
	assert.Equal(t, StageExtract, pe.Stage)
	assert.Equal(t, ErrCodeInternal, pe.Code)
	assert.ErrorIs(t, pe, cause)

	assert.Nil(t, WithStage(StageExtract, nil))
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewPipelineError(ErrCodeExportTimeout, "slow", nil))
	assert.Equal(t, ErrCodeExportTimeout, CodeOf(wrapped))
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

func TestRunOutcome(t *testing.T) {
	ok := Succeeded(Counts{Extracted: 3, Reference: 5, Matched: 2}, []string{"final.txt"})
	assert.True(t, ok.Success)
	assert.False(t, ok.Rejected())
	assert.NoError(t, ok.Err)

	failed := Failed(StageReference, NewPipelineError(ErrCodeReferenceAssetMissing, "no .txt asset", nil))
	assert.False(t, failed.Success)
	assert.Equal(t, StageReference, failed.Stage)
	assert.Equal(t, ErrCodeReferenceAssetMissing, failed.Code)
	assert.Equal(t, "reference: REFERENCE_ASSET_MISSING: no .txt asset", failed.Cause)
	assert.False(t, failed.Rejected())

	rejected := Failed(StageValidate, NewPipelineError(ErrCodeInvalidRequest, "bad url", nil))
	assert.True(t, rejected.Rejected())
}
