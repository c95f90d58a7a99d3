package db

import "strings"

// IsUniqueViolation reports whether the provided error is a unique violation.
// When constraintName is provided, a Postgres error naming that constraint
// matches; the generic duplicate-key texts (Postgres and sqlite) match either
// way so the same call sites work against the sqlite test databases.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}
