package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/screenmatch/config"
	"github.com/use-agent/screenmatch/models"
)

// Release is the subset of the release-metadata document the fetcher uses.
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Fetcher retrieves the latest published reference list.
type Fetcher struct {
	client *resty.Client
	cfg    config.ReferenceConfig
}

// NewFetcher creates a Fetcher. Every request carries cfg.UserAgent and is
// bounded by cfg.Timeout.
func NewFetcher(cfg config.ReferenceConfig) *Fetcher {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(cfg.APIBase, "/"))
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetTimeout(cfg.Timeout)

	return &Fetcher{client: client, cfg: cfg}
}

// Fetch resolves the latest release, downloads its list asset and returns
// the normalized symbols in source line order.
func (f *Fetcher) Fetch(ctx context.Context) ([]string, error) {
	release, err := f.LatestRelease(ctx)
	if err != nil {
		return nil, err
	}

	asset, err := SelectAsset(release, f.cfg.AssetSuffix)
	if err != nil {
		return nil, err
	}
	slog.Info("reference release resolved",
		"repo", f.cfg.Repository,
		"tag", release.TagName,
		"asset", asset.Name,
	)

	raw, err := f.Download(ctx, asset)
	if err != nil {
		return nil, err
	}

	symbols := Normalize(raw, f.cfg.Prefix)
	slog.Debug("reference list normalized", "asset", asset.Name, "symbols", len(symbols))
	return symbols, nil
}

// LatestRelease queries the release-metadata endpoint of the configured
// repository.
func (f *Fetcher) LatestRelease(ctx context.Context) (*Release, error) {
	path := fmt.Sprintf("/repos/%s/releases/latest", strings.Trim(f.cfg.Repository, "/"))

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		Get(path)
	if err != nil {
		return nil, models.NewPipelineError(models.ErrCodeReferenceMetadata,
			"release metadata request failed", err)
	}
	if !resp.IsSuccess() {
		return nil, models.NewPipelineError(models.ErrCodeReferenceMetadata,
			fmt.Sprintf("release API error: %s", resp.Status()), nil)
	}

	var release Release
	if err := json.Unmarshal(resp.Body(), &release); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeReferenceMetadata,
			"release metadata is not valid JSON", err)
	}
	return &release, nil
}

// SelectAsset returns the first asset whose name ends with suffix.
func SelectAsset(release *Release, suffix string) (*Asset, error) {
	if release != nil {
		for i := range release.Assets {
			if strings.HasSuffix(release.Assets[i].Name, suffix) {
				return &release.Assets[i], nil
			}
		}
	}
	return nil, models.NewPipelineError(models.ErrCodeReferenceAssetMissing,
		fmt.Sprintf("no %s asset found in the latest release", suffix), nil)
}

// Download retrieves the asset content as text.
func (f *Fetcher) Download(ctx context.Context, asset *Asset) (string, error) {
	if asset.BrowserDownloadURL == "" {
		return "", models.NewPipelineError(models.ErrCodeReferenceFetch,
			fmt.Sprintf("asset %s has no download URL", asset.Name), nil)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(asset.BrowserDownloadURL)
	if err != nil {
		return "", models.NewPipelineError(models.ErrCodeReferenceFetch,
			fmt.Sprintf("download of %s failed", asset.Name), err)
	}
	if !resp.IsSuccess() {
		return "", models.NewPipelineError(models.ErrCodeReferenceFetch,
			fmt.Sprintf("download of %s failed: %s", asset.Name, resp.Status()), nil)
	}
	return string(resp.Body()), nil
}
