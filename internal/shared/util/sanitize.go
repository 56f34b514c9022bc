package util

import (
	"errors"
	"strings"
)

// SanitizeFileName removes path separators, collapses whitespace to
// underscores, and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}
