package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/use-agent/screenmatch/config"
	"github.com/use-agent/screenmatch/models"
	"golang.org/x/sync/errgroup"
)

// diagnoseTimeout bounds the page snapshot taken after the export control
// wait failed.
const diagnoseTimeout = 5 * time.Second

// Driver runs one screener export: it owns the working directory and the
// browser session for the duration of Export.
type Driver struct {
	cfg  config.ScreenerConfig
	open SessionOpener
}

// NewDriver creates a Driver that acquires sessions from open.
func NewDriver(cfg config.ScreenerConfig, open SessionOpener) *Driver {
	return &Driver{cfg: cfg, open: open}
}

// Export validates req, opens a session, and returns the exported table.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Validate        – reject foreign URLs before any side effect
//  2. Work dir        – clear and recreate; DEFER removal
//  3. Session         – acquire; DEFER close
//  4. Navigate        – until network quiescence (NavigationTimeout)
//  5. Locate control  – selector + text (ControlTimeout)
//  6. Export          – arm download, then click and wait joined (ExportTimeout)
//  7. Save            – move to the known file name and read it
//
// The deferred steps run on every exit path, so a failed or cancelled run
// leaves neither a browser process nor a partial download behind.
func (d *Driver) Export(ctx context.Context, req models.ScreenerRequest) (*models.ExportedTable, error) {
	// ── 1. Validate ───────────────────────────────────────────────────
	if err := req.Validate(d.cfg.URLPrefix); err != nil {
		return nil, err
	}

	// ── 2. Work dir ───────────────────────────────────────────────────
	if err := prepareWorkDir(d.cfg.WorkDir); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to prepare work dir", err)
	}
	defer RemoveWorkDir(d.cfg.WorkDir)

	// ── 3. Session ────────────────────────────────────────────────────
	sess, err := d.open(ctx)
	if err != nil {
		var pe *models.PipelineError
		if errors.As(err, &pe) {
			return nil, err
		}
		return nil, models.NewPipelineError(models.ErrCodeBrowserLaunch, "failed to open browser session", err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Warn("browser session close failed", "error", closeErr)
		}
	}()

	// ── 4. Navigate ───────────────────────────────────────────────────
	slog.Info("opening screener", "url", req.URL)
	if err := d.navigate(ctx, sess, req.URL); err != nil {
		return nil, err
	}

	// ── 5. Locate export control ──────────────────────────────────────
	if err := d.locateControl(ctx, sess); err != nil {
		return nil, err
	}

	// ── 6. Trigger export and await the download ──────────────────────
	dl, err := d.triggerExport(ctx, sess)
	if err != nil {
		return nil, err
	}

	// ── 7. Save under the known name ──────────────────────────────────
	return d.save(dl)
}

func (d *Driver) navigate(ctx context.Context, sess Session, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, d.cfg.NavigationTimeout)
	defer cancel()

	start := time.Now()
	if err := sess.Navigate(navCtx, url); err != nil {
		return categorizeError(err, navCtx,
			models.ErrCodeNavigationTimeout, fmt.Sprintf("page did not settle within %s", d.cfg.NavigationTimeout),
			models.ErrCodeNavigation, "navigation to screener failed")
	}
	slog.Debug("screener loaded", "url", url, "elapsed", time.Since(start))
	return nil
}

func (d *Driver) locateControl(ctx context.Context, sess Session) error {
	ctlCtx, cancel := context.WithTimeout(ctx, d.cfg.ControlTimeout)
	defer cancel()

	err := sess.WaitControl(ctlCtx, d.cfg.ControlSelector, d.cfg.ControlText)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return models.NewPipelineError(models.ErrCodeCanceled, "run canceled while waiting for export control", err)
	}

	msg := fmt.Sprintf("no %q control matching %s appeared within %s",
		d.cfg.ControlText, d.cfg.ControlSelector, d.cfg.ControlTimeout)

	snapCtx, snapCancel := context.WithTimeout(ctx, diagnoseTimeout)
	defer snapCancel()
	if html, htmlErr := sess.HTML(snapCtx); htmlErr == nil {
		diag := Diagnose(html, d.cfg.ControlSelector)
		slog.Warn("export control not found",
			"title", diag.Title,
			"tableRows", diag.TableRows,
			"selectorMatches", diag.Matches,
		)
		msg += "; " + diag.String()
	}
	return models.NewPipelineError(models.ErrCodeExportControlNotFound, msg, err)
}

// triggerExport arms the download listener first, then runs the click and
// the download wait as two joined tasks. The download can complete before
// the click call returns, so neither may wait for the other; the first
// failure cancels its sibling.
func (d *Driver) triggerExport(ctx context.Context, sess Session) (*Download, error) {
	exportCtx, cancel := context.WithTimeout(ctx, d.cfg.ExportTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(exportCtx)

	wait, err := sess.ArmDownload(gctx, d.cfg.WorkDir)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to arm download listener", err)
	}

	var (
		dl       *Download
		clickErr error
	)
	g.Go(func() error {
		if err := sess.ClickControl(gctx); err != nil {
			clickErr = err
			return err
		}
		return nil
	})
	g.Go(func() error {
		var err error
		dl, err = wait()
		return err
	})

	if err := g.Wait(); err != nil {
		if clickErr != nil && !errors.Is(clickErr, context.DeadlineExceeded) && !errors.Is(clickErr, context.Canceled) {
			return nil, models.NewPipelineError(models.ErrCodeExportControlNotFound, "export control could not be clicked", clickErr)
		}
		msg := fmt.Sprintf("export download did not complete within %s", d.cfg.ExportTimeout)
		return nil, categorizeError(err, exportCtx, models.ErrCodeExportTimeout, msg, models.ErrCodeExportTimeout, msg)
	}
	slog.Debug("export downloaded", "suggestedName", dl.SuggestedName, "url", dl.URL)
	return dl, nil
}

// save moves the download to the configured name inside the work dir,
// replacing a stale file of that name, and reads it back.
func (d *Driver) save(dl *Download) (*models.ExportedTable, error) {
	target := filepath.Join(d.cfg.WorkDir, d.cfg.ExportFileName)
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to remove stale export", err)
	}
	if err := os.Rename(dl.Path, target); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to save export", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeInternal, "failed to read export", err)
	}
	slog.Info("export captured", "file", d.cfg.ExportFileName, "bytes", len(data))

	encoding := d.cfg.ExportEncoding
	if encoding == "" {
		encoding = models.DefaultEncoding
	}
	return &models.ExportedTable{
		Data:     data,
		Encoding: encoding,
		FileName: d.cfg.ExportFileName,
	}, nil
}

// categorizeError wraps a stage error into a typed PipelineError. Deadline
// errors (or an expired stage context) map to timeoutCode, cancellation of
// the run to RUN_CANCELED, anything else to failCode.
func categorizeError(err error, stageCtx context.Context, timeoutCode, timeoutMsg, failCode, failMsg string) *models.PipelineError {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(stageCtx.Err(), context.DeadlineExceeded):
		return models.NewPipelineError(timeoutCode, timeoutMsg, err)
	case errors.Is(err, context.Canceled), errors.Is(stageCtx.Err(), context.Canceled):
		return models.NewPipelineError(models.ErrCodeCanceled, "run canceled", err)
	default:
		return models.NewPipelineError(failCode, failMsg, err)
	}
}
