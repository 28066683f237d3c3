// Package pipeline sequences one reconciliation pass: screener export,
// symbol extraction, reference fetch, intersection and artifact writing.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/screenmatch/models"
	"github.com/use-agent/screenmatch/output"
	"github.com/use-agent/screenmatch/reconcile"
	"github.com/use-agent/screenmatch/scraper"
)

// Exporter captures the tabular export of a screener report.
type Exporter interface {
	Export(ctx context.Context, req models.ScreenerRequest) (*models.ExportedTable, error)
}

// Extractor projects the symbol column out of an export.
type Extractor interface {
	Symbols(table *models.ExportedTable) ([]string, error)
}

// ReferenceSource returns the normalized reference symbol list.
type ReferenceSource interface {
	Fetch(ctx context.Context) ([]string, error)
}

// ArtifactWriter persists the three output lists.
type ArtifactWriter interface {
	WriteAll(a output.Artifacts) ([]string, error)
}

// Options holds the pipeline collaborators and settings.
type Options struct {
	Exporter  Exporter
	Extractor Extractor
	Reference ReferenceSource
	Writer    ArtifactWriter

	// URLPrefix is the required screener URL prefix.
	URLPrefix string

	// WorkDir is removed once more after the run.
	WorkDir string
}

// Pipeline runs reconciliation passes. It holds no state between runs.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run executes one pass for rawURL. Stages run strictly in order and the
// first failure ends the run; artifacts are written only if every earlier
// stage succeeded.
func (p *Pipeline) Run(ctx context.Context, rawURL string) (outcome models.RunOutcome) {
	start := time.Now()
	defer func() {
		outcome.Duration = time.Since(start)
		if outcome.Success {
			slog.Info("run completed",
				"extracted", outcome.Counts.Extracted,
				"reference", outcome.Counts.Reference,
				"matched", outcome.Counts.Matched,
				"elapsed", outcome.Duration,
			)
			return
		}
		slog.Error("run failed",
			"stage", outcome.Stage,
			"code", outcome.Code,
			"error", outcome.Cause,
			"elapsed", outcome.Duration,
		)
	}()

	// ── validate ──────────────────────────────────────────────────────
	req, err := models.NewScreenerRequest(rawURL, p.opts.URLPrefix)
	if err != nil {
		return models.Failed(models.StageValidate, err)
	}

	if p.opts.WorkDir != "" {
		defer scraper.RemoveWorkDir(p.opts.WorkDir)
	}

	// ── screener ──────────────────────────────────────────────────────
	table, err := p.opts.Exporter.Export(ctx, req)
	if err != nil {
		return models.Failed(models.StageScreener, err)
	}

	// ── extract ───────────────────────────────────────────────────────
	extracted, err := p.opts.Extractor.Symbols(table)
	if err != nil {
		return models.Failed(models.StageExtract, err)
	}
	slog.Info("symbols extracted", "count", len(extracted))

	// ── reference ─────────────────────────────────────────────────────
	refs, err := p.opts.Reference.Fetch(ctx)
	if err != nil {
		return models.Failed(models.StageReference, err)
	}

	// ── reconcile ─────────────────────────────────────────────────────
	if err := ctx.Err(); err != nil {
		return models.Failed(models.StageReconcile,
			models.NewPipelineError(models.ErrCodeCanceled, "run canceled", err))
	}
	matched := reconcile.Match(extracted, refs)
	slog.Info("symbols reconciled", "matched", len(matched))

	// ── output ────────────────────────────────────────────────────────
	paths, err := p.opts.Writer.WriteAll(output.Artifacts{
		Extracted: extracted,
		Reference: refs,
		Matched:   matched,
	})
	if err != nil {
		return models.Failed(models.StageOutput, err)
	}

	return models.Succeeded(models.Counts{
		Extracted: len(extracted),
		Reference: len(refs),
		Matched:   len(matched),
	}, paths)
}
