// Package domain holds the error taxonomy shared by the build pipeline
// components.
package domain

import (
	"errors"
)

// Error kinds raised by the build pipeline. Callers match them with
// errors.Is; Tag attaches a kind to an underlying cause.
var (
	// ErrSchema marks a DDL failure. Fatal; the prior schema is left as it
	// was before the failed transaction.
	ErrSchema = errors.New("schema error")
	// ErrSourceFile marks a missing or unreadable input file. Fatal for the
	// stage that needs it.
	ErrSourceFile = errors.New("source file error")
	// ErrRowValidation marks a single record that cannot be parsed or
	// inserted. Recoverable (skip + count) except in the food dimension load.
	ErrRowValidation = errors.New("row validation error")
	// ErrImportInterrupted marks a bulk import that stopped mid-batch.
	// Recoverable: re-invoking the importer resumes from the last committed
	// checkpoint.
	ErrImportInterrupted = errors.New("import interrupted")
	// ErrIntegrityViolation marks a failed post-build consistency check.
	ErrIntegrityViolation = errors.New("integrity violation")
)

// Tag attaches an error kind to err so both the kind and the cause survive
// errors.Is matching. Returns nil when err is nil.
func Tag(kind, err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(kind, err)
}
