package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/haadi101/lazorpay/pkg/persistence"
)

// MemoryPersistence is an in-memory implementation of ISubmissionPersistence.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access.
// Copies records to prevent external mutation.
type MemoryPersistence struct {
	mu sync.RWMutex

	// Submission storage: signature -> record
	records map[string]*persistence.SubmissionRecord

	// Closed flag
	closed bool
}

// NewMemoryPersistence creates a new in-memory persistence layer.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{
		records: make(map[string]*persistence.SubmissionRecord),
	}
}

// SaveSubmission persists a submission record.
func (m *MemoryPersistence) SaveSubmission(record *persistence.SubmissionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SubmissionRecord")
	}
	if record.Signature == "" {
		return fmt.Errorf("cannot save SubmissionRecord without signature")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	// Copy to prevent external mutation
	m.records[record.Signature] = copyRecord(record)
	return nil
}

// LoadSubmission retrieves a record by transaction signature.
func (m *MemoryPersistence) LoadSubmission(signature string) (*persistence.SubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	record, exists := m.records[signature]
	if !exists {
		return nil, nil // Not found is not an error
	}

	return copyRecord(record), nil
}

// ListSubmissions returns all records sorted by submission time.
func (m *MemoryPersistence) ListSubmissions() ([]*persistence.SubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	result := make([]*persistence.SubmissionRecord, 0, len(m.records))
	for _, record := range m.records {
		result = append(result, copyRecord(record))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt != result[j].SubmittedAt {
			return result[i].SubmittedAt < result[j].SubmittedAt
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

// DeleteSubmission removes a record.
func (m *MemoryPersistence) DeleteSubmission(signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	delete(m.records, signature)
	return nil
}

// Close marks the layer as closed.
func (m *MemoryPersistence) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the layer is usable.
func (m *MemoryPersistence) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("persistence layer is closed")
	}
	return nil
}

func copyRecord(record *persistence.SubmissionRecord) *persistence.SubmissionRecord {
	cp := *record
	return &cp
}

// Compile-time check
var _ persistence.ISubmissionPersistence = (*MemoryPersistence)(nil)
