// Package output writes the three reconciliation artifacts.
package output

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/use-agent/screenmatch/config"
	"github.com/use-agent/screenmatch/models"
)

// Artifacts are the three sequences produced by a successful run.
type Artifacts struct {
	Extracted []string
	Reference []string
	Matched   []string
}

// Writer persists Artifacts as newline-joined text files.
type Writer struct {
	cfg config.OutputConfig
}

// NewWriter creates a Writer for the configured directory and file names.
func NewWriter(cfg config.OutputConfig) *Writer {
	return &Writer{cfg: cfg}
}

// Paths returns the destination paths in extracted, reference, matched order.
func (w *Writer) Paths() []string {
	return []string{
		filepath.Join(w.cfg.Dir, w.cfg.ExtractedFile),
		filepath.Join(w.cfg.Dir, w.cfg.ReferenceFile),
		filepath.Join(w.cfg.Dir, w.cfg.MatchedFile),
	}
}

// rename is swapped in tests to fail a specific move.
var rename = os.Rename

// WriteAll writes every artifact, replacing files of the same name. All
// three are staged as temporary files first. Existing destinations are then
// moved aside and the staged files moved in; if any move fails, every
// destination is restored to its previous state.
func (w *Writer) WriteAll(a Artifacts) ([]string, error) {
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return nil, models.NewPipelineError(models.ErrCodeOutputWrite,
			fmt.Sprintf("failed to create output dir %s", w.cfg.Dir), err)
	}

	paths := w.Paths()
	contents := [][]string{a.Extracted, a.Reference, a.Matched}

	staged := make([]string, 0, len(paths))
	discard := func() {
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
	}

	for i, dest := range paths {
		tmp, err := stage(dest, contents[i])
		if err != nil {
			discard()
			return nil, models.NewPipelineError(models.ErrCodeOutputWrite,
				fmt.Sprintf("failed to write %s", dest), err)
		}
		staged = append(staged, tmp)
	}

	if err := commit(paths, staged); err != nil {
		discard()
		return nil, models.NewPipelineError(models.ErrCodeOutputWrite, "failed to replace artifacts", err)
	}
	for i, dest := range paths {
		slog.Debug("artifact written", "path", dest, "entries", len(contents[i]))
	}
	return paths, nil
}

// commit moves staged[i] to paths[i] for every i, or leaves every path as
// it was.
func commit(paths, staged []string) error {
	backups := make([]string, len(paths))
	moved := make([]bool, len(paths))

	rollback := func() {
		for i, dest := range paths {
			switch {
			case backups[i] != "":
				if err := rename(backups[i], dest); err != nil {
					slog.Error("failed to restore artifact", "path", dest, "backup", backups[i], "error", err)
				}
			case moved[i]:
				_ = os.Remove(dest)
			}
		}
	}

	for i, dest := range paths {
		bak, err := backup(dest)
		if err != nil {
			rollback()
			return fmt.Errorf("back up %s: %w", dest, err)
		}
		backups[i] = bak
	}
	for i, dest := range paths {
		if err := rename(staged[i], dest); err != nil {
			rollback()
			return fmt.Errorf("move %s into place: %w", dest, err)
		}
		moved[i] = true
	}

	for _, bak := range backups {
		if bak != "" {
			_ = os.Remove(bak)
		}
	}
	return nil
}

// backup moves an existing dest aside and returns the backup path, or ""
// if dest does not exist.
func backup(dest string) (string, error) {
	if _, err := os.Lstat(dest); errors.Is(err, os.ErrNotExist) {
		return "", nil
	} else if err != nil {
		return "", err
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".bak.*")
	if err != nil {
		return "", err
	}
	bak := f.Name()
	_ = f.Close()
	if err := rename(dest, bak); err != nil {
		_ = os.Remove(bak)
		return "", err
	}
	return bak, nil
}

// stage writes lines to a temporary file next to dest and returns its path.
func stage(dest string, lines []string) (string, error) {
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		return "", fmt.Errorf("%s is a directory", dest)
	}
	f, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return "", err
	}
	_, werr := f.WriteString(strings.Join(lines, "\n"))
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := os.Chmod(f.Name(), 0o644); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
