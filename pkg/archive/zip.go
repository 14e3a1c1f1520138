package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	maxFileSize  = 100 * 1024 * 1024  // per file
	maxTotalSize = 1024 * 1024 * 1024 // whole archive
	maxFileCount = 50000
)

// ExtractZip unpacks a module zip into a new temp directory and returns the
// directory and a function removing it. Entries escaping the directory,
// symlinks, and archives over the size limits are rejected.
func ExtractZip(data []byte, prefix string) (dir string, cleanup func(), err error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read zip archive: %w", err)
	}
	if len(reader.File) > maxFileCount {
		return "", nil, fmt.Errorf("zip archive contains %d files, exceeds maximum of %d", len(reader.File), maxFileCount)
	}

	tmpDir, err := os.MkdirTemp("", "breakcheck-"+sanitize(prefix)+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	cleanup = func() { os.RemoveAll(tmpDir) }

	base, err := filepath.Abs(tmpDir)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	var total int64
	for _, file := range reader.File {
		if file.Mode()&os.ModeSymlink != 0 {
			continue
		}
		n, err := extractFile(base, file)
		if err != nil {
			cleanup()
			return "", nil, err
		}
		total += n
		if total > maxTotalSize {
			cleanup()
			return "", nil, fmt.Errorf("total extracted size exceeds maximum of %d bytes", maxTotalSize)
		}
	}
	return tmpDir, cleanup, nil
}

// extractFile writes one entry below base and returns the bytes written.
func extractFile(base string, file *zip.File) (int64, error) {
	target, err := filepath.Abs(filepath.Join(base, file.Name))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve path %s: %w", file.Name, err)
	}
	if target != base && !strings.HasPrefix(target, base+string(os.PathSeparator)) {
		return 0, fmt.Errorf("zip entry attempts path traversal: %s", file.Name)
	}

	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create directory %s: %w", file.Name, err)
		}
		return 0, nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create parent directory for %s: %w", file.Name, err)
	}

	rc, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", file.Name, err)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, maxFileSize+1))
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", file.Name, err)
	}
	if n > maxFileSize {
		return 0, fmt.Errorf("file %s exceeds maximum size of %d bytes", file.Name, maxFileSize)
	}
	return n, nil
}

// sanitize makes prefix safe for use in a temp directory name.
func sanitize(prefix string) string {
	return strings.Map(func(r rune) rune {
		if r == '/' || r == os.PathSeparator || r == '*' {
			return '_'
		}
		return r
	}, prefix)
}
