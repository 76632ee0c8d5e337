package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReplaceExt swaps the extension of path. ext may omit the leading dot; an
// empty ext strips the extension.
func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filepath.Join(dir, filename+ext)
	}
	return filepath.Join(dir, filename[:lastDot]+ext)
}

// WriteAtomic writes data to a temp file next to path and renames it into
// place, so readers never observe a partial file.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
