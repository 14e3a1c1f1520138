package gomod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
)

// FileName is the name of the module file.
const FileName = "go.mod"

// FindModulePath reads the go.mod in dir and returns its module path.
func FindModulePath(dir string) (string, error) {
	gomodPath := filepath.Join(dir, FileName)

	data, err := os.ReadFile(gomodPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no go.mod found at %s", gomodPath)
		}
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}

	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("go.mod at %s has no module directive", gomodPath)
	}
	if err := module.CheckImportPath(path); err != nil {
		return "", fmt.Errorf("go.mod at %s: %w", gomodPath, err)
	}
	return path, nil
}

// FindRoot walks up from start to the nearest directory containing go.mod.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	for {
		info, err := os.Stat(filepath.Join(dir, FileName))
		if err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found in %s or any parent directory", start)
		}
		dir = parent
	}
}
