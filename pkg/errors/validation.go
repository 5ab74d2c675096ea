package errors

import (
	"strings"
	"unicode"
)

// ValidateLockfileFilename validates an uploaded lockfile filename for
// safety. It ensures the filename is a simple basename without path
// components, so it can be used for format detection and storage keys.
func ValidateLockfileFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidLockfile, "lockfile filename cannot be empty")
	}
	if len(filename) > 256 {
		return New(ErrCodeInvalidLockfile, "lockfile filename too long (max 256 characters)")
	}
	if strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		return New(ErrCodeInvalidLockfile, "lockfile filename must not contain path components")
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidLockfile, "lockfile filename contains control characters")
		}
	}
	return nil
}

// ValidateEntryKey validates an entry key supplied by a caller (CLI argument
// or API query parameter) before it is used in a graph lookup.
//
// Keys are package-manager controlled, so the rules stay conservative:
// non-empty, bounded length, no control characters or null bytes.
func ValidateEntryKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidEntry, "entry key cannot be empty")
	}
	if len(key) > 512 {
		return New(ErrCodeInvalidEntry, "entry key too long (max 512 characters)")
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidEntry, "entry key contains control characters")
		}
	}
	return nil
}

// ValidateDependencyName validates a dependency name supplied by a caller.
// npm names allow scopes (@scope/name) but never whitespace, control
// characters, or traversal sequences.
func ValidateDependencyName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "dependency name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "dependency name too long (max 256 characters)")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "\\") {
		return New(ErrCodeInvalidInput, "dependency name contains invalid characters")
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "dependency name contains invalid characters")
		}
	}
	return nil
}
