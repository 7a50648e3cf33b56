package persistence

// ISubmissionPersistence defines the interface for persisting the local
// history of successfully submitted transactions. All implementations must be
// thread-safe; the demo CLI and library callers may interleave operations.
//
// The interface supports:
// - Submission record management (save, load, list, delete)
// - Lifecycle management (close, health check)
type ISubmissionPersistence interface {
	// SaveSubmission persists a submission record keyed by its transaction
	// signature. Saving an existing signature overwrites it (idempotent).
	SaveSubmission(record *SubmissionRecord) error

	// LoadSubmission retrieves a record by transaction signature.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadSubmission(signature string) (*SubmissionRecord, error)

	// ListSubmissions returns all records sorted by submission time
	// (ascending, signature as tie-breaker). Returns an empty slice if none
	// exist, error only on storage failure.
	ListSubmissions() ([]*SubmissionRecord, error)

	// DeleteSubmission removes a record by transaction signature.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteSubmission(signature string) error

	// Close cleanly shuts down the persistence layer.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the persistence layer is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
