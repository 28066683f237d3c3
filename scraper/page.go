package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/screenmatch/config"
	"github.com/use-agent/screenmatch/models"
	"github.com/ysmood/gson"
)

// Session is one scoped browser session with a single page.
type Session interface {
	// Navigate loads url and returns once the network has been quiet for
	// the idle window, or ctx is done.
	Navigate(ctx context.Context, url string) error

	// WaitControl waits until an element matching selector whose text
	// contains text (case-insensitive) is visible, and remembers it.
	WaitControl(ctx context.Context, selector, text string) error

	// ArmDownload starts listening for the next download into dir. The
	// returned wait blocks until the download completes or ctx is done.
	ArmDownload(ctx context.Context, dir string) (wait func() (*Download, error), err error)

	// ClickControl clicks the element found by WaitControl.
	ClickControl(ctx context.Context) error

	// HTML returns the current page HTML.
	HTML(ctx context.Context) (string, error)

	// Close releases the page, the browser context and the browser.
	Close() error
}

// SessionOpener acquires a fresh Session.
type SessionOpener func(ctx context.Context) (Session, error)

// Download describes a completed browser download.
type Download struct {
	// Path is where the browser stored the file.
	Path string

	// SuggestedName is the file name proposed by the server.
	SuggestedName string

	// URL is the download source.
	URL string
}

// rodSession is the go-rod implementation of Session.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser // root browser, owns the process
	scoped   *rod.Browser // incognito context for this run
	page     *rod.Page
	router   *rod.HijackRouter
	control  *rod.Element
	idle     time.Duration
}

// RodOpener returns a SessionOpener that launches a local Chromium with cfg
// and opens one page in a fresh incognito context.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Launch       – start Chromium with automation-masking flags
//  2. Connect      – attach over CDP
//  3. Incognito    – isolated context so downloads and cookies are per run
//  4. Page         – single tab
//  5. Stealth      – mask navigator.webdriver etc. (before navigation!)
//  6. Headers      – extra request headers
//  7. Hijack       – block configured resource types / ad domains
//
// Any failure releases whatever was already acquired.
func RodOpener(cfg config.BrowserConfig, idle time.Duration) SessionOpener {
	return func(ctx context.Context) (Session, error) {
		return openRod(ctx, cfg, idle)
	}
}

func openRod(ctx context.Context, cfg config.BrowserConfig, idle time.Duration) (_ Session, err error) {
	s := &rodSession{idle: idle}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	// ── 1. Launch ─────────────────────────────────────────────────────
	l := launcher.New().
		Context(ctx).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)
	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	// Desktop width so responsive "sm:" controls are rendered visible.
	l.Set(flags.Flag("window-size"), "1366,900")

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserLaunch, "failed to launch browser", err)
	}
	// Only a launched process can be cleaned up; Cleanup blocks until exit.
	s.launcher = l
	slog.Debug("browser launched", "controlURL", controlURL)

	// ── 2. Connect ────────────────────────────────────────────────────
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserLaunch, "failed to connect to browser", err)
	}
	s.browser = browser

	// ── 3. Incognito context ──────────────────────────────────────────
	scoped, err := browser.Incognito()
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserLaunch, "failed to create browser context", err)
	}
	s.scoped = scoped

	// ── 4. Page ───────────────────────────────────────────────────────
	page, err := scoped.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeBrowserLaunch, "failed to open page", err)
	}
	s.page = page

	// ── 5. Stealth injection ──────────────────────────────────────────
	if cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 6. Extra headers ──────────────────────────────────────────────
	if len(cfg.Headers) > 0 {
		if hdrErr := (proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(cfg.Headers)}).Call(page); hdrErr != nil {
			slog.Warn("failed to set extra headers", "error", hdrErr)
		}
	}

	// ── 7. Hijack router ──────────────────────────────────────────────
	s.router = setupHijack(page, cfg.BlockedResourceTypes, cfg.BlockAds)

	return s, nil
}

// Navigate sets up the idle waiter BEFORE navigation: WaitRequestIdle
// installs a CDP listener, and registering it after Navigate would miss
// in-flight requests and report a false idle.
//
// WaitRequestIdle uses the Fetch domain, which conflicts with
// HijackRequests, so with a hijack router installed DOM stability is used
// as the quiescence signal instead.
func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)

	var waitIdle func()
	if s.router == nil {
		waitIdle = p.WaitRequestIdle(s.idle, nil, nil, nil)
	}

	if err := p.Navigate(url); err != nil {
		return err
	}

	if waitIdle != nil {
		waitIdle()
	} else if err := p.WaitDOMStable(s.idle, 0.1); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *rodSession) WaitControl(ctx context.Context, selector, text string) error {
	p := s.page.Context(ctx)
	el, err := p.ElementR(selector, "/"+regexp.QuoteMeta(text)+"/i")
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return err
	}
	s.control = el
	return nil
}

func (s *rodSession) ArmDownload(ctx context.Context, dir string) (func() (*Download, error), error) {
	// Chromium requires an absolute download path.
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	wait := s.scoped.Context(ctx).WaitDownload(abs)
	return func() (*Download, error) {
		info := wait()
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if info == nil {
			return nil, errors.New("download did not start")
		}
		return &Download{
			Path:          filepath.Join(abs, info.GUID),
			SuggestedName: info.SuggestedFilename,
			URL:           info.URL,
		}, nil
	}, nil
}

func (s *rodSession) ClickControl(ctx context.Context) error {
	if s.control == nil {
		return errors.New("export control not located")
	}
	return s.control.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close tears everything down in reverse acquisition order. It is safe to
// call on a partially opened session.
func (s *rodSession) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Stop())
	}
	if s.page != nil {
		errs = append(errs, s.page.Close())
	}
	if s.scoped != nil {
		errs = append(errs, s.scoped.Close())
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
	}
	if s.launcher != nil {
		// Waits for the process to exit and removes its user-data dir.
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close browser session: %w", err)
	}
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
