// Package pathutils resolves user supplied file locations for state files,
// device lists, and generated reports.
package pathutils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
	runTimestampLayoutConstant      = "20060102_150405"
	timestampedFileNameTemplate     = "%s_%s%s"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// FileLocator expands home shortcuts and anchors relative paths to a base directory.
type FileLocator struct {
	homeDirectoryProvider HomeDirectoryProvider
	baseDirectory         string
}

// NewFileLocator constructs a FileLocator anchored at baseDirectory. An empty
// base leaves relative paths untouched.
func NewFileLocator(baseDirectory string) *FileLocator {
	return NewFileLocatorWithProvider(baseDirectory, os.UserHomeDir)
}

// NewFileLocatorWithProvider constructs a FileLocator with a custom home directory provider.
func NewFileLocatorWithProvider(baseDirectory string, provider HomeDirectoryProvider) *FileLocator {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &FileLocator{homeDirectoryProvider: provider, baseDirectory: strings.TrimSpace(baseDirectory)}
}

// Resolve expands a leading tilde and joins relative paths onto the base directory.
func (locator *FileLocator) Resolve(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if locator == nil || len(trimmedPath) == 0 {
		return trimmedPath
	}

	if trimmedPath == tildeSymbolConstant || strings.HasPrefix(trimmedPath, tildeForwardSlashPrefixConstant) {
		homeDirectory, homeDirectoryError := locator.homeDirectoryProvider()
		if homeDirectoryError != nil || len(homeDirectory) == 0 {
			return trimmedPath
		}
		return filepath.Join(homeDirectory, strings.TrimPrefix(trimmedPath, tildeSymbolConstant))
	}

	if filepath.IsAbs(trimmedPath) || len(locator.baseDirectory) == 0 {
		return trimmedPath
	}

	return filepath.Join(locator.baseDirectory, trimmedPath)
}

// FormatRunTimestamp renders the timestamp used in generated file names.
func FormatRunTimestamp(moment time.Time) string {
	return moment.Format(runTimestampLayoutConstant)
}

// TimestampedFileName joins prefix, timestamp, and extension, e.g. bulkadd_results_20240101_120000.csv.
func TimestampedFileName(prefix string, runTimestamp string, extension string) string {
	return fmt.Sprintf(timestampedFileNameTemplate, prefix, runTimestamp, extension)
}
