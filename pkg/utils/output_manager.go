package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputManager handles output file naming and directory layout
type OutputManager struct {
	BaseOutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	if err := os.MkdirAll(om.BaseOutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// DatedFilePath returns <base>/<name>_<date>.<ext>
func (om *OutputManager) DatedFilePath(name, date, ext string) string {
	// Clean the name to remove any path separators
	cleanName := filepath.Base(name)
	return filepath.Join(om.BaseOutputDir, fmt.Sprintf("%s_%s.%s", cleanName, date, strings.TrimPrefix(ext, ".")))
}

// ResolveFile maps a bare file name to a path inside the output directory.
// Names that try to escape the directory are rejected.
func (om *OutputManager) ResolveFile(fileName string) (string, error) {
	cleanFileName := filepath.Base(fileName)
	if cleanFileName != fileName || cleanFileName == "." || cleanFileName == ".." {
		return "", fmt.Errorf("invalid file name %q", fileName)
	}
	return filepath.Join(om.BaseOutputDir, cleanFileName), nil
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".md":
		return "markdown"
	default:
		return "unknown"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// LatestFile returns the most recently modified file in the output
// directory whose name starts with prefix, or "" when none exists.
func (om *OutputManager) LatestFile(prefix, ext string) (string, error) {
	entries, err := os.ReadDir(om.BaseOutputDir)
	if err != nil {
		return "", err
	}
	var latest string
	var latestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || filepath.Ext(e.Name()) != ext {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod || (mod == latestMod && e.Name() > filepath.Base(latest)) {
			latest = filepath.Join(om.BaseOutputDir, e.Name())
			latestMod = mod
		}
	}
	return latest, nil
}
