package file

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// FindRecentAfter walks dir and returns regular files modified after
// startTime that keep accepts. Hidden files and directories are skipped.
// A nil keep accepts every file.
func FindRecentAfter(dir string, startTime time.Time, keep func(path string) bool) ([]string, error) {
	var recentFiles []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(startTime) && (keep == nil || keep(path)) {
			recentFiles = append(recentFiles, path)
		}
		return nil
	})

	return recentFiles, err
}

// HasExt returns a matcher for the given extensions, compared case
// insensitively. Extensions may be given with or without the leading dot.
func HasExt(exts ...string) func(path string) bool {
	set := make(map[string]bool, len(exts))
	for _, ext := range exts {
		set["."+strings.TrimPrefix(strings.ToLower(ext), ".")] = true
	}
	return func(path string) bool {
		return set[strings.ToLower(filepath.Ext(path))]
	}
}
