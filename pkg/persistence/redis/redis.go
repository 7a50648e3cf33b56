package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/haadi101/lazorpay/pkg/persistence"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixSubmission  = "lazorpay:submission:"
	keySchemaVersion     = "lazorpay:metadata:schema_version"
	currentSchemaVersion = "v1"

	// Key set for listing operations (Redis doesn't support prefix iteration natively)
	keySetSubmissions = "lazorpay:submissions:index"
)

// RedisPersistence is a Redis-backed implementation of ISubmissionPersistence.
// Suitable for deployments that already run Redis and want the history shared
// across hosts.
type RedisPersistence struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string // Custom prefix for all keys
	mu        sync.RWMutex
	closed    bool
}

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys (for multi-tenant
	// setups). If empty, keys use the default "lazorpay:" namespace.
	KeyPrefix string
}

// NewRedisPersistence creates a new Redis-backed persistence layer.
func NewRedisPersistence(cfg *RedisConfig, logger *zap.Logger) (*RedisPersistence, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rp := &RedisPersistence{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rp.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis persistence initialized", "address", cfg.Address, "db", cfg.DB)

	return rp, nil
}

// prefixKey adds the custom key prefix (if configured) to a key
func (r *RedisPersistence) prefixKey(key string) string {
	if r.keyPrefix == "" {
		return key
	}
	return r.keyPrefix + key
}

// initSchema initializes or validates the schema version
func (r *RedisPersistence) initSchema(ctx context.Context) error {
	schemaKey := r.prefixKey(keySchemaVersion)

	existingVersion, err := r.client.Get(ctx, schemaKey).Result()
	if err == redis.Nil {
		// First time setup - set schema version
		return r.client.Set(ctx, schemaKey, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existingVersion != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existingVersion, currentSchemaVersion)
	}

	return nil
}

// SaveSubmission persists a submission record
func (r *RedisPersistence) SaveSubmission(record *persistence.SubmissionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil SubmissionRecord")
	}
	if record.Signature == "" {
		return fmt.Errorf("cannot save SubmissionRecord without signature")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := persistence.MarshalSubmissionRecord(record)
	if err != nil {
		return err
	}

	key := r.prefixKey(keyPrefixSubmission + record.Signature)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.SAdd(ctx, r.prefixKey(keySetSubmissions), record.Signature)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save submission %s: %w", record.Signature, err)
	}

	return nil
}

// LoadSubmission retrieves a record by transaction signature
func (r *RedisPersistence) LoadSubmission(signature string) (*persistence.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSubmission+signature)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load submission %s: %w", signature, err)
	}

	return persistence.UnmarshalSubmissionRecord(data)
}

// ListSubmissions returns all records sorted by submission time
func (r *RedisPersistence) ListSubmissions() ([]*persistence.SubmissionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	signatures, err := r.client.SMembers(ctx, r.prefixKey(keySetSubmissions)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list submission index: %w", err)
	}

	result := make([]*persistence.SubmissionRecord, 0, len(signatures))
	for _, sig := range signatures {
		data, err := r.client.Get(ctx, r.prefixKey(keyPrefixSubmission+sig)).Bytes()
		if err == redis.Nil {
			// Index entry without a record; skip rather than fail the listing.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load submission %s: %w", sig, err)
		}

		record, err := persistence.UnmarshalSubmissionRecord(data)
		if err != nil {
			return nil, err
		}
		result = append(result, record)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].SubmittedAt != result[j].SubmittedAt {
			return result[i].SubmittedAt < result[j].SubmittedAt
		}
		return result[i].Signature < result[j].Signature
	})

	return result, nil
}

// DeleteSubmission removes a record
func (r *RedisPersistence) DeleteSubmission(signature string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx := context.Background()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.prefixKey(keyPrefixSubmission+signature))
	pipe.SRem(ctx, r.prefixKey(keySetSubmissions), signature)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete submission %s: %w", signature, err)
	}

	return nil
}

// Close shuts down the Redis connection
func (r *RedisPersistence) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}
	return nil
}

// HealthCheck verifies the Redis connection is alive
func (r *RedisPersistence) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("persistence layer is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Compile-time check
var _ persistence.ISubmissionPersistence = (*RedisPersistence)(nil)
