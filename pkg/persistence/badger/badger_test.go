package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haadi101/lazorpay/pkg/persistence"
)

func newTestPersistence(t *testing.T) *BadgerPersistence {
	t.Helper()
	p, err := NewBadgerPersistence(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func testRecord(sig string, submittedAt int64) *persistence.SubmissionRecord {
	return &persistence.SubmissionRecord{
		Signature:   sig,
		Wallet:      "7fUAJdStEuGbc3sM84cKRL6yYaaSstyLSU4ve5oovLS7",
		Kind:        "transfer",
		SubmittedAt: submittedAt,
		Attempts:    1,
	}
}

func Test_BadgerPersistence(t *testing.T) {
	t.Run("Should save, load and delete a record", func(t *testing.T) {
		p := newTestPersistence(t)

		record := testRecord("sig-1", 100)
		require.NoError(t, p.SaveSubmission(record))

		got, err := p.LoadSubmission("sig-1")
		require.NoError(t, err)
		assert.Equal(t, record, got)

		require.NoError(t, p.DeleteSubmission("sig-1"))
		got, err = p.LoadSubmission("sig-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should return nil for a missing record", func(t *testing.T) {
		p := newTestPersistence(t)

		got, err := p.LoadSubmission("missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should list records sorted by submission time", func(t *testing.T) {
		p := newTestPersistence(t)

		require.NoError(t, p.SaveSubmission(testRecord("sig-c", 300)))
		require.NoError(t, p.SaveSubmission(testRecord("sig-a", 100)))
		require.NoError(t, p.SaveSubmission(testRecord("sig-b", 200)))

		records, err := p.ListSubmissions()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "sig-a", records[0].Signature)
		assert.Equal(t, "sig-b", records[1].Signature)
		assert.Equal(t, "sig-c", records[2].Signature)
	})

	t.Run("Should survive reopen", func(t *testing.T) {
		dir := t.TempDir()

		p, err := NewBadgerPersistence(dir, zap.NewNop())
		require.NoError(t, err)
		require.NoError(t, p.SaveSubmission(testRecord("sig-1", 100)))
		require.NoError(t, p.Close())

		p2, err := NewBadgerPersistence(dir, zap.NewNop())
		require.NoError(t, err)
		defer func() { _ = p2.Close() }()

		got, err := p2.LoadSubmission("sig-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "sig-1", got.Signature)
	})

	t.Run("Should pass health check while open and fail after close", func(t *testing.T) {
		p, err := NewBadgerPersistence(t.TempDir(), zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, p.HealthCheck())
		require.NoError(t, p.Close())
		require.NoError(t, p.Close()) // idempotent
		require.Error(t, p.HealthCheck())
		require.Error(t, p.SaveSubmission(testRecord("sig-1", 100)))
	})
}
