package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/opensdd/osdd-api/clients/go/osdd"
)

// Persist writes a materialized result under root.
// - Directory entries are created (0755).
// - File entries are written, overwriting existing files (0644), with parent
//   directories created as needed.
// - Entries with neither a file nor a directory are skipped.
// - Paths escaping root are rejected; absolute paths are treated as relative to root.
func Persist(_ context.Context, root string, result *osdd.MaterializedResult) error {
	log := slog.With("op", "export.Persist")
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("root path cannot be empty")
	}
	if result == nil {
		return fmt.Errorf("materialized result cannot be nil")
	}
	root = filepath.Clean(root)

	written := 0
	for i, e := range result.GetEntries() {
		if e == nil {
			continue
		}

		if e.HasDirectory() {
			dir := strings.TrimSpace(e.GetDirectory())
			if dir == "" {
				continue
			}
			full, err := resolveUnder(root, dir)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			log.Debug("Ensuring directory exists", "dir", full)
			if err := os.MkdirAll(full, 0o755); err != nil {
				return fmt.Errorf("entry %d: failed to create directory %s: %w", i, full, err)
			}
			continue
		}

		f := e.GetFile()
		if !e.HasFile() || f == nil {
			continue
		}
		p := strings.TrimSpace(f.GetPath())
		if p == "" {
			return fmt.Errorf("entry %d: file path cannot be empty", i)
		}
		full, err := resolveUnder(root, p)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("entry %d: failed to create directories for %s: %w", i, full, err)
		}
		log.Debug("Writing file", "path", full)
		if err := os.WriteFile(full, []byte(f.GetContent()), 0o644); err != nil {
			return fmt.Errorf("entry %d: failed to write file %s: %w", i, full, err)
		}
		written++
	}
	log.Debug("Export written", "root", root, "files", written)
	return nil
}

// resolveUnder joins p onto root and fails if the result leaves root.
func resolveUnder(root, p string) (string, error) {
	rel := filepath.Clean(p)
	if filepath.IsAbs(rel) {
		rel = strings.TrimPrefix(rel, string(os.PathSeparator))
	}
	full := filepath.Clean(filepath.Join(root, rel))

	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes root: %s", p)
	}
	return full, nil
}
