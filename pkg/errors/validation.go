package errors

import (
	"strings"
	"unicode"
)

// MaxNameLength bounds dialogue names, which double as file and key names.
const MaxNameLength = 128

// ValidateDialogueName validates a dialogue name for use as a storage key.
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty or blank names
//   - No control characters
//   - No path separators, and not "." or ".." on its own
//   - Maximum length of [MaxNameLength] characters
func ValidateDialogueName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidName, "dialogue name cannot be empty")
	}

	if len(name) > MaxNameLength {
		return New(ErrCodeInvalidName, "dialogue name too long (max %d characters)", MaxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "dialogue name contains invalid control characters")
		}
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidName, "dialogue name cannot be %q", name)
	}

	dangerousPatterns := []string{
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}
	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "dialogue name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a relative storage path (a folder or key prefix)
// for safety.
//
// Validation rules:
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
//
// An empty path is valid and means the store root.
func ValidatePath(path string) error {
	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
