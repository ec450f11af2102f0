package db

import "strings"

// IsUniqueViolation reports whether err came from a Postgres unique index.
// A non-empty constraint narrows the match to that one index; callers use it
// to turn a specific duplicate-key failure into a domain conflict instead of
// an opaque internal error.
func IsUniqueViolation(err error, constraint string) bool {
	if err == nil {
		return false
	}
	if constraint != "" {
		return strings.Contains(err.Error(), constraint)
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
