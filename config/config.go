package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every environment variable. Nested sections add
// their own segment, e.g. SCREENMATCH_LOG_LEVEL or SCREENMATCH_SCREENER_NAV_TIMEOUT.
const envPrefix = "screenmatch"

// Config holds all application configuration.
type Config struct {
	Browser   BrowserConfig
	Screener  ScreenerConfig
	Reference ReferenceConfig
	Output    OutputConfig
	Log       LogConfig
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `envconfig:"HEADLESS" default:"true"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `envconfig:"NO_SANDBOX" default:"false"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `envconfig:"BROWSER_BIN"`

	// Proxy is the proxy URL handed to the browser.
	Proxy string `envconfig:"PROXY"`

	// Stealth injects anti-bot-detection evasions before navigation.
	Stealth bool `envconfig:"STEALTH" default:"false"`

	// BlockedResourceTypes lists resource types to block ("Image", "Font",
	// "Media", "Stylesheet", "Script"). Empty disables request hijacking.
	// Stylesheets should stay allowed: the export control is hidden by CSS
	// on narrow viewports and Rod only clicks visible elements.
	BlockedResourceTypes []string `envconfig:"BLOCKED_RESOURCES"`

	// BlockAds drops requests to known ad and tracking domains.
	BlockAds bool `envconfig:"BLOCK_ADS" default:"false"`

	// Headers are extra request headers sent with every page request.
	Headers map[string]string `envconfig:"HEADERS"`
}

// ScreenerConfig controls the screener session.
type ScreenerConfig struct {
	// URLPrefix is the required prefix of every screener URL.
	URLPrefix string `envconfig:"URL_PREFIX" default:"https://chartink.com/screener/"`

	// NavigationTimeout bounds page load until network quiescence.
	NavigationTimeout time.Duration `envconfig:"NAV_TIMEOUT" default:"120s"`

	// ControlTimeout bounds the wait for the export control to appear.
	ControlTimeout time.Duration `envconfig:"CONTROL_TIMEOUT" default:"60s"`

	// ExportTimeout bounds the click plus download completion.
	ExportTimeout time.Duration `envconfig:"EXPORT_TIMEOUT" default:"60s"`

	// IdleWindow is how long the network must stay quiet to count as idle.
	IdleWindow time.Duration `envconfig:"IDLE_WINDOW" default:"500ms"`

	// ControlSelector is the CSS selector of the export control.
	ControlSelector string `envconfig:"CONTROL_SELECTOR" default:"span.hidden.sm\\:flex"`

	// ControlText must appear (case-insensitive) in the control's text.
	ControlText string `envconfig:"CONTROL_TEXT" default:"CSV"`

	// SymbolColumn is the header name of the symbol column in the export.
	SymbolColumn string `envconfig:"SYMBOL_COLUMN" default:"Symbol"`

	// WorkDir holds transient downloads. It is cleared before and removed
	// after every run.
	WorkDir string `envconfig:"WORK_DIR" default:"./downloads"`

	// ExportFileName is the name the export is saved under inside WorkDir.
	ExportFileName string `envconfig:"EXPORT_FILE" default:"chartink.csv"`

	// ExportEncoding is the character encoding the export is declared in.
	ExportEncoding string `envconfig:"EXPORT_ENCODING" default:"utf-8"`
}

// ReferenceConfig controls the reference release feed.
type ReferenceConfig struct {
	// APIBase is the release API root.
	APIBase string `envconfig:"API" default:"https://api.github.com"`

	// Repository is the "owner/name" publishing the reference list.
	Repository string `envconfig:"REPO" default:"MaheshTechnicals/FNO-Stocks-list"`

	// AssetSuffix selects the list file among the release assets.
	AssetSuffix string `envconfig:"ASSET_SUFFIX" default:".txt"`

	// Prefix is the exchange-qualifier token stripped from each entry.
	Prefix string `envconfig:"PREFIX" default:"NSE:"`

	// UserAgent is sent with every feed request.
	UserAgent string `envconfig:"USER_AGENT" default:"MaheshTechnicals-App"`

	// Timeout bounds each feed request.
	Timeout time.Duration `envconfig:"TIMEOUT" default:"30s"`
}

// OutputConfig controls the output artifacts.
type OutputConfig struct {
	// Dir is where the artifacts are written.
	Dir string `envconfig:"DIR" default:"."`

	ExtractedFile string `envconfig:"EXTRACTED_FILE" default:"symbols.txt"`
	ReferenceFile string `envconfig:"REFERENCE_FILE" default:"nse.txt"`
	MatchedFile   string `envconfig:"MATCHED_FILE" default:"final.txt"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `envconfig:"LEVEL" default:"info"`
	Format string `envconfig:"FORMAT" default:"text"` // "json" or "text"
}

// Load reads configuration from a .env file (if any) and environment
// variables, applying defaults for everything unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that would fail only after the browser
// launched.
func (c *Config) Validate() error {
	s := c.Screener
	if s.NavigationTimeout <= 0 || s.ControlTimeout <= 0 || s.ExportTimeout <= 0 {
		return errors.New("config: screener timeouts must be positive")
	}
	if s.ControlText == "" || s.SymbolColumn == "" {
		return errors.New("config: control text and symbol column are required")
	}
	if s.WorkDir == "" || s.ExportFileName == "" {
		return errors.New("config: work dir and export file name are required")
	}
	// The work dir is deleted recursively on every run.
	switch filepath.Clean(s.WorkDir) {
	case ".", "..", string(filepath.Separator):
		return fmt.Errorf("config: work dir %q must be a dedicated directory", s.WorkDir)
	}
	if err := c.checkWorkDirIsolation(); err != nil {
		return err
	}
	if _, err := cascadia.Compile(s.ControlSelector); err != nil {
		return fmt.Errorf("config: invalid control selector %q: %w", s.ControlSelector, err)
	}

	r := c.Reference
	if r.APIBase == "" || r.Repository == "" || r.AssetSuffix == "" {
		return errors.New("config: reference API, repository and asset suffix are required")
	}
	if r.Timeout <= 0 {
		return errors.New("config: reference timeout must be positive")
	}

	o := c.Output
	if o.ExtractedFile == "" || o.ReferenceFile == "" || o.MatchedFile == "" {
		return errors.New("config: output file names are required")
	}
	if o.ExtractedFile == o.ReferenceFile || o.ExtractedFile == o.MatchedFile || o.ReferenceFile == o.MatchedFile {
		return errors.New("config: output file names must be distinct")
	}
	return nil
}

// checkWorkDirIsolation rejects layouts where removing the work dir would
// delete the artifacts: an output dir equal to or inside the work dir, or a
// work dir at an artifact path.
func (c *Config) checkWorkDirIsolation() error {
	work, err := filepath.Abs(c.Screener.WorkDir)
	if err != nil {
		return fmt.Errorf("config: resolve work dir: %w", err)
	}
	out, err := filepath.Abs(c.Output.Dir)
	if err != nil {
		return fmt.Errorf("config: resolve output dir: %w", err)
	}
	if within(work, out) {
		return fmt.Errorf("config: output dir %q must not be inside work dir %q", c.Output.Dir, c.Screener.WorkDir)
	}
	for _, name := range []string{c.Output.ExtractedFile, c.Output.ReferenceFile, c.Output.MatchedFile} {
		if within(work, filepath.Join(out, name)) {
			return fmt.Errorf("config: work dir %q collides with artifact %s", c.Screener.WorkDir, name)
		}
	}
	return nil
}

// within reports whether path equals dir or is below it. Both must be
// absolute.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
