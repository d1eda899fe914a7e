package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CheckDatabaseCompatibility reports whether a binary at version current can
// open a database written by version written.
//
// Compatibility Rules:
//   - If either version is "main" (development build), the check is skipped
//   - The reader must be a caret-compatible upgrade of the writer
//
// Examples:
//   - Writer 1.2.0, Reader 1.4.1 -> OK
//   - Writer 1.2.0, Reader 1.1.0 -> ERROR (reader older than the data)
//   - Writer 1.2.0, Reader 2.0.0 -> ERROR (major differs)
//   - Writer 0.3.0, Reader 0.4.0 -> ERROR (0.x minors are breaking)
func CheckDatabaseCompatibility(current, written string) error {
	current = strings.TrimPrefix(current, "v")
	written = strings.TrimPrefix(written, "v")

	if current == "main" || written == "main" {
		return nil
	}

	reader, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version '%s': %w", current, err)
	}

	constraint, err := semver.NewConstraint("^" + written)
	if err != nil {
		return fmt.Errorf("invalid database version '%s': %w", written, err)
	}

	if !constraint.Check(reader) {
		return fmt.Errorf("database written by %s cannot be opened by %s", written, current)
	}

	return nil
}
