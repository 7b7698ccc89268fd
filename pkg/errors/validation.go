package errors

import (
	"strings"
	"unicode"
)

// MaxCanvasDimension bounds either side of a rendered image. Larger canvases
// are rejected as resource errors before any pixel buffer is allocated.
const MaxCanvasDimension = 16384

// ValidateScriptName validates a script display name for safety.
// Names end up in output file names, so they must not contain path
// components or control characters.
//
// The validation rules are intentionally conservative:
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
//
// An empty name is accepted; callers substitute a default.
func ValidateScriptName(name string) error {
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "script name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "script name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "script name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateCanvasSize checks that a requested canvas is non-degenerate and
// within MaxCanvasDimension on both axes.
func ValidateCanvasSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeResource, "degenerate canvas %dx%d", width, height)
	}
	if width > MaxCanvasDimension || height > MaxCanvasDimension {
		return New(ErrCodeResource, "canvas %dx%d exceeds maximum of %d pixels per side",
			width, height, MaxCanvasDimension)
	}
	return nil
}
