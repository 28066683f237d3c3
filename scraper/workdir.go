package scraper

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// prepareWorkDir removes dir with everything in it and recreates it empty.
func prepareWorkDir(dir string) error {
	switch filepath.Clean(dir) {
	case ".", "..", string(filepath.Separator):
		return fmt.Errorf("refusing to use %q as work dir", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear work dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create work dir %s: %w", dir, err)
	}
	return nil
}

// RemoveWorkDir deletes dir and any partial download in it. Failures are
// logged, never returned: cleanup must not mask the run's outcome.
func RemoveWorkDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		slog.Warn("failed to remove work dir", "dir", dir, "error", err)
	}
}
