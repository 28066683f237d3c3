package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/screenmatch/config"
	"github.com/use-agent/screenmatch/models"
	"github.com/use-agent/screenmatch/output"
	"github.com/use-agent/screenmatch/pipeline"
	"github.com/use-agent/screenmatch/reference"
	"github.com/use-agent/screenmatch/scraper"
	"github.com/use-agent/screenmatch/tabular"
)

// Process exit statuses.
const (
	exitOK       = 0
	exitFailed   = 1
	exitRejected = 2
)

// exitError carries a process exit status out of a cobra command.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	var ee *exitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &ee):
		return ee.code
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitRejected
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screenmatch [screener-url]",
		Short: "screenmatch intersects a Chartink screener with the published F&O list.",
		Long: "screenmatch exports the symbols of a Chartink screener report, fetches the\n" +
			"latest F&O reference list and writes symbols.txt, nse.txt and final.txt.\n" +
			"Without an argument the screener URL is read from stdin.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// ── 1. Load configuration ───────────────────────────────────────
			cfg, err := config.Load()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", models.ErrCodeConfigInvalid, err)
				return &exitError{code: exitFailed}
			}

			// ── 2. Initialise structured logging ────────────────────────────
			initLogger(cfg.Log, cmd.ErrOrStderr())

			// ── 3. Resolve the screener URL ─────────────────────────────────
			rawURL, err := screenerURL(args, cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				slog.Error("failed to read screener URL", "error", err)
				return &exitError{code: exitFailed}
			}

			// ── 4. Wire the pipeline ────────────────────────────────────────
			p := pipeline.New(pipeline.Options{
				Exporter:  scraper.NewDriver(cfg.Screener, scraper.RodOpener(cfg.Browser, cfg.Screener.IdleWindow)),
				Extractor: tabular.NewExtractor(cfg.Screener.SymbolColumn),
				Reference: reference.NewFetcher(cfg.Reference),
				Writer:    output.NewWriter(cfg.Output),
				URLPrefix: cfg.Screener.URLPrefix,
				WorkDir:   cfg.Screener.WorkDir,
			})

			// ── 5. Run and report ───────────────────────────────────────────
			outcome := p.Run(cmd.Context(), rawURL)
			fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))

			switch {
			case outcome.Success:
				return nil
			case outcome.Rejected():
				return &exitError{code: exitRejected}
			default:
				return &exitError{code: exitFailed}
			}
		},
	}
}

// screenerURL returns the URL argument, or prompts for one on in.
func screenerURL(args []string, in io.Reader, out io.Writer) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	fmt.Fprint(out, "Enter Chartink screener URL: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read screener URL: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig, w io.Writer) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
