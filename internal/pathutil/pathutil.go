// Package pathutil provides shared checks for extract and output paths.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateFilePath rejects empty paths, null bytes and ".." segments.
// Segments are checked before cleaning, so "data/../etc/passwd" fails even
// though it would clean to "etc/passwd".
func ValidateFilePath(filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if strings.Contains(filePath, "\x00") {
		return fmt.Errorf("file path contains invalid characters")
	}

	for _, segment := range strings.Split(filepath.ToSlash(filePath), "/") {
		if segment == ".." {
			return fmt.Errorf("file path contains path traversal: %q", filePath)
		}
	}
	return nil
}

// ValidateOutputPath applies ValidateFilePath and also rejects paths that
// name a directory, either by a trailing separator or because one exists.
func ValidateOutputPath(filePath string) error {
	if err := ValidateFilePath(filePath); err != nil {
		return err
	}
	if strings.HasSuffix(filepath.ToSlash(filePath), "/") {
		return fmt.Errorf("output path is a directory: %q", filePath)
	}
	if info, err := os.Stat(filePath); err == nil && info.IsDir() {
		return fmt.Errorf("output path is a directory: %q", filePath)
	}
	return nil
}
