package domain

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var pathReplacer = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")

// sanitize makes s safe as a single path component. Spaces are kept.
func sanitize(s string) string {
	s = strings.TrimSpace(pathReplacer.Replace(s))
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// OutputDir is root/model/region/reference/parameter.
func OutputDir(root, model, region, reference, parameter string) string {
	return filepath.Join(root, sanitize(model), sanitize(region), sanitize(reference), sanitize(parameter))
}

// SoundingDir is root/Soundings/<station>.
func SoundingDir(root, station string) string {
	return filepath.Join(root, "Soundings", sanitize(station))
}

// MeteogramDir is root/NWS/<grid>/<lat>_<lon>, coordinates at four decimals.
func MeteogramDir(root, grid string, lat, lon float64) string {
	return filepath.Join(root, "NWS", sanitize(grid), fmt.Sprintf("%.4f_%.4f", lat, lon))
}

// ImageName is <stem>_<NNN>.png.
func ImageName(stem string, index int) string {
	return fmt.Sprintf("%s_%03d.png", sanitize(stem), index)
}

// ClearDir ensures dir exists and removes whatever a previous run left in it.
// Only creating the directory can fail; removal errors are logged and skipped.
func ClearDir(dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("list output dir", "dir", dir, "error", err)
		return nil
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			logger.Debug("remove stale output", "path", p, "error", err)
		}
	}
	return nil
}
