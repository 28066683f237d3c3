package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults(t *testing.T) Config {
	t.Helper()
	var cfg Config
	require.NoError(t, envconfig.Process(envPrefix, &cfg))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaults(t)
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "https://chartink.com/screener/", cfg.Screener.URLPrefix)
	assert.Equal(t, 120*time.Second, cfg.Screener.NavigationTimeout)
	assert.Equal(t, 60*time.Second, cfg.Screener.ControlTimeout)
	assert.Equal(t, 60*time.Second, cfg.Screener.ExportTimeout)
	assert.Equal(t, `span.hidden.sm\:flex`, cfg.Screener.ControlSelector)
	assert.Equal(t, "CSV", cfg.Screener.ControlText)
	assert.Equal(t, "Symbol", cfg.Screener.SymbolColumn)
	assert.Equal(t, "./downloads", cfg.Screener.WorkDir)
	assert.Equal(t, "chartink.csv", cfg.Screener.ExportFileName)
	assert.Equal(t, "https://api.github.com", cfg.Reference.APIBase)
	assert.Equal(t, "MaheshTechnicals/FNO-Stocks-list", cfg.Reference.Repository)
	assert.Equal(t, ".txt", cfg.Reference.AssetSuffix)
	assert.Equal(t, "NSE:", cfg.Reference.Prefix)
	assert.Equal(t, "MaheshTechnicals-App", cfg.Reference.UserAgent)
	assert.Equal(t, "symbols.txt", cfg.Output.ExtractedFile)
	assert.Equal(t, "nse.txt", cfg.Output.ReferenceFile)
	assert.Equal(t, "final.txt", cfg.Output.MatchedFile)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("SCREENMATCH_SCREENER_NAV_TIMEOUT", "5s")
	t.Setenv("SCREENMATCH_REFERENCE_REPO", "acme/lists")
	t.Setenv("SCREENMATCH_OUTPUT_DIR", "out")
	t.Setenv("SCREENMATCH_BROWSER_BLOCKED_RESOURCES", "Image,Font")
	t.Setenv("SCREENMATCH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Screener.NavigationTimeout)
	assert.Equal(t, "acme/lists", cfg.Reference.Repository)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, []string{"Image", "Font"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate_SeparateDirs(t *testing.T) {
	tests := []struct {
		name    string
		workDir string
		outDir  string
	}{
		{"defaults", "./downloads", "."},
		{"shared name prefix", "./downloads", "./downloads-out"},
		{"siblings", "tmp/downloads", "out"},
		{"work dir inside output dir", "out/downloads", "out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults(t)
			cfg.Screener.WorkDir = tt.workDir
			cfg.Output.Dir = tt.outDir
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad_RejectsOutputInsideWorkDir(t *testing.T) {
	t.Setenv("SCREENMATCH_SCREENER_WORK_DIR", "./downloads")
	t.Setenv("SCREENMATCH_OUTPUT_DIR", "./downloads/out")

	_, err := Load()
	assert.ErrorContains(t, err, "must not be inside work dir")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero navigation timeout", func(c *Config) { c.Screener.NavigationTimeout = 0 }},
		{"negative export timeout", func(c *Config) { c.Screener.ExportTimeout = -time.Second }},
		{"empty control text", func(c *Config) { c.Screener.ControlText = "" }},
		{"empty symbol column", func(c *Config) { c.Screener.SymbolColumn = "" }},
		{"work dir is cwd", func(c *Config) { c.Screener.WorkDir = "." }},
		{"work dir is root", func(c *Config) { c.Screener.WorkDir = "/" }},
		{"work dir is output dir", func(c *Config) { c.Screener.WorkDir = "out/"; c.Output.Dir = "out" }},
		{"output dir inside work dir", func(c *Config) { c.Screener.WorkDir = "./downloads"; c.Output.Dir = "./downloads/out" }},
		{"output dir deep inside work dir", func(c *Config) { c.Screener.WorkDir = "tmp/downloads"; c.Output.Dir = "tmp/downloads/a/b/../c" }},
		{"work dir at artifact path", func(c *Config) { c.Screener.WorkDir = "out/final.txt"; c.Output.Dir = "out" }},
		{"bad selector", func(c *Config) { c.Screener.ControlSelector = "span[" }},
		{"empty repository", func(c *Config) { c.Reference.Repository = "" }},
		{"zero reference timeout", func(c *Config) { c.Reference.Timeout = 0 }},
		{"empty output name", func(c *Config) { c.Output.MatchedFile = "" }},
		{"duplicate output names", func(c *Config) { c.Output.MatchedFile = c.Output.ExtractedFile }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults(t)
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
