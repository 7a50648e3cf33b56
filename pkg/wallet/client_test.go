package wallet

import (
	"context"
	"crypto/elliptic"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haadi101/lazorpay/pkg/signature"
)

// fakeRemote scripts the relayer boundary for tests.
type fakeRemote struct {
	signMessage   func(ctx context.Context, message []byte) (*SignedMessage, error)
	submitGasless func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error)
}

func (f *fakeRemote) SignMessage(ctx context.Context, message []byte) (*SignedMessage, error) {
	return f.signMessage(ctx, message)
}

func (f *fakeRemote) SubmitGasless(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
	return f.submitGasless(ctx, payload)
}

func testConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  5 * time.Millisecond,
		Timeout:    100 * time.Millisecond,
	}
}

func newTestClient(t *testing.T, remote Remote, cfg Config) *Client {
	t.Helper()
	client, err := NewClient(remote, cfg, zap.NewNop())
	require.NoError(t, err)
	return client
}

func testPayload() *GaslessPayload {
	return &GaslessPayload{Instructions: []json.RawMessage{json.RawMessage(`{"kind":"transfer"}`)}}
}

func Test_NewClient(t *testing.T) {
	t.Run("Should reject nil remote", func(t *testing.T) {
		_, err := NewClient(nil, testConfig(), zap.NewNop())
		require.Error(t, err)
	})

	t.Run("Should reject nil logger", func(t *testing.T) {
		_, err := NewClient(&fakeRemote{}, testConfig(), nil)
		require.Error(t, err)
	})

	t.Run("Should reject invalid config", func(t *testing.T) {
		for _, cfg := range []Config{
			{MaxRetries: 0, BaseDelay: time.Millisecond, Timeout: time.Second},
			{MaxRetries: 1, BaseDelay: 0, Timeout: time.Second},
			{MaxRetries: 1, BaseDelay: time.Millisecond, Timeout: 0},
		} {
			_, err := NewClient(&fakeRemote{}, cfg, zap.NewNop())
			require.Error(t, err)
		}
	})
}

func Test_SignAndSend_Success(t *testing.T) {
	t.Run("Should return a plain string result unchanged", func(t *testing.T) {
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				return json.RawMessage(fmt.Sprintf("%q", sig88)), nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		sig, _, err := client.SignAndSend(context.Background(), testPayload())
		require.NoError(t, err)
		assert.Equal(t, sig88, sig)
	})

	t.Run("Should extract from object shapes", func(t *testing.T) {
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				return json.RawMessage(fmt.Sprintf(`{"signatures": [%q, %q]}`, sig87, sig88)), nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		sig, _, err := client.SignAndSend(context.Background(), testPayload())
		require.NoError(t, err)
		assert.Equal(t, sig88, sig)
	})

	t.Run("Should reject nil payload", func(t *testing.T) {
		client := newTestClient(t, &fakeRemote{}, testConfig())
		_, _, err := client.SignAndSend(context.Background(), nil)
		require.Error(t, err)
	})
}

func Test_SignAndSend_Retry(t *testing.T) {
	t.Run("Should make exactly MaxRetries attempts when always rate limited", func(t *testing.T) {
		attempts := 0
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				attempts++
				return nil, fmt.Errorf("relayer returned status 429: slow down")
			},
		}
		client := newTestClient(t, remote, testConfig())

		_, _, err := client.SignAndSend(context.Background(), testPayload())
		require.Error(t, err)
		assert.Equal(t, 3, attempts)

		var throttled *ThrottledError
		require.ErrorAs(t, err, &throttled)
		assert.Equal(t, 3, throttled.Attempts)
		assert.Contains(t, throttled.Error(), "429")
	})

	t.Run("Should classify rate-limit markers case-insensitively", func(t *testing.T) {
		for _, msg := range []string{
			"Too Many Requests",
			"request was RATE LIMITed",
			"upstream throttling in effect",
		} {
			attempts := 0
			remote := &fakeRemote{
				submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
					attempts++
					return nil, errors.New(msg)
				},
			}
			client := newTestClient(t, remote, testConfig())

			_, _, err := client.SignAndSend(context.Background(), testPayload())
			require.Error(t, err)
			assert.Equal(t, 3, attempts, "marker %q should be retried", msg)
		}
	})

	t.Run("Should not retry a terminal error", func(t *testing.T) {
		attempts := 0
		terminal := errors.New("invalid instruction data")
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				attempts++
				return nil, terminal
			},
		}
		client := newTestClient(t, remote, testConfig())

		_, _, err := client.SignAndSend(context.Background(), testPayload())
		require.ErrorIs(t, err, terminal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Should succeed after a transient failure with one backoff", func(t *testing.T) {
		attempts := 0
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				attempts++
				if attempts == 1 {
					return nil, errors.New("429 too many requests")
				}
				return json.RawMessage(`"sig123"`), nil
			},
		}
		cfg := testConfig()
		client := newTestClient(t, remote, cfg)

		start := time.Now()
		sig, reported, err := client.SignAndSend(context.Background(), testPayload())
		elapsed := time.Since(start)

		require.NoError(t, err)
		assert.Equal(t, "sig123", sig)
		assert.Equal(t, 2, attempts)
		assert.Equal(t, 2, reported)
		// One backoff of BaseDelay * 2^0.
		assert.GreaterOrEqual(t, elapsed, cfg.BaseDelay)
	})

	t.Run("Should not retry an unrecognized response shape", func(t *testing.T) {
		attempts := 0
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				attempts++
				return json.RawMessage(`{"foo": 123}`), nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		_, _, err := client.SignAndSend(context.Background(), testPayload())
		require.ErrorIs(t, err, ErrUnrecognizedResponse)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Should honor caller cancellation during backoff", func(t *testing.T) {
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				return nil, errors.New("429")
			},
		}
		cfg := testConfig()
		cfg.BaseDelay = time.Hour
		client := newTestClient(t, remote, cfg)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, _, err := client.SignAndSend(ctx, testPayload())
		require.ErrorIs(t, err, context.Canceled)
	})
}

func Test_SignAndSend_Timeout(t *testing.T) {
	t.Run("Should time out an attempt that never settles", func(t *testing.T) {
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				<-ctx.Done() // never settles on its own
				return nil, ctx.Err()
			},
		}
		cfg := testConfig()
		cfg.Timeout = 30 * time.Millisecond
		client := newTestClient(t, remote, cfg)

		start := time.Now()
		_, _, err := client.SignAndSend(context.Background(), testPayload())
		elapsed := time.Since(start)

		require.ErrorIs(t, err, ErrTimeout)
		assert.GreaterOrEqual(t, elapsed, cfg.Timeout)
		assert.Less(t, elapsed, cfg.Timeout+200*time.Millisecond)
	})

	t.Run("Should not retry after a timeout", func(t *testing.T) {
		attempts := 0
		remote := &fakeRemote{
			submitGasless: func(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error) {
				attempts++
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		cfg := testConfig()
		cfg.Timeout = 10 * time.Millisecond
		client := newTestClient(t, remote, cfg)

		_, _, err := client.SignAndSend(context.Background(), testPayload())
		require.ErrorIs(t, err, ErrTimeout)
		assert.Equal(t, 1, attempts)
	})
}

func Test_SignMessage(t *testing.T) {
	n := new(big.Int).Set(p256Order(t))
	halfN := new(big.Int).Rsh(n, 1)

	buildRawSig := func(r, s *big.Int) []byte {
		sig := make([]byte, signature.Length)
		r.FillBytes(sig[:signature.ComponentLength])
		s.FillBytes(sig[signature.ComponentLength:])
		return sig
	}

	t.Run("Should normalize a high-S signature", func(t *testing.T) {
		highS := buildRawSig(big.NewInt(11), new(big.Int).Add(halfN, big.NewInt(5)))
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				return &SignedMessage{
					Signature:     base64.StdEncoding.EncodeToString(highS),
					SignedPayload: base64.StdEncoding.EncodeToString([]byte("payload")),
				}, nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		signed, err := client.SignMessage(context.Background(), []byte("hello"))
		require.NoError(t, err)

		decoded, err := base64.StdEncoding.DecodeString(signed.Signature)
		require.NoError(t, err)
		assert.False(t, signature.IsHighS(decoded))
		assert.True(t, signature.IsValidLowS(decoded))
		// r component survives.
		assert.Equal(t, highS[:signature.ComponentLength], decoded[:signature.ComponentLength])
	})

	t.Run("Should leave a low-S signature unchanged", func(t *testing.T) {
		lowS := buildRawSig(big.NewInt(11), big.NewInt(12345))
		encoded := base64.StdEncoding.EncodeToString(lowS)
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				return &SignedMessage{Signature: encoded}, nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		signed, err := client.SignMessage(context.Background(), []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, encoded, signed.Signature)
	})

	t.Run("Should fail loudly on an undecodable signature", func(t *testing.T) {
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				return &SignedMessage{Signature: "not base64!!!"}, nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		_, err := client.SignMessage(context.Background(), []byte("hello"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode")
	})

	t.Run("Should pass through signatures of unexpected length", func(t *testing.T) {
		odd := []byte{1, 2, 3, 4, 5}
		encoded := base64.StdEncoding.EncodeToString(odd)
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				return &SignedMessage{Signature: encoded}, nil
			},
		}
		client := newTestClient(t, remote, testConfig())

		signed, err := client.SignMessage(context.Background(), []byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, encoded, signed.Signature)
	})

	t.Run("Should not retry on rate limit", func(t *testing.T) {
		attempts := 0
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				attempts++
				return nil, errors.New("429 too many requests")
			},
		}
		client := newTestClient(t, remote, testConfig())

		_, err := client.SignMessage(context.Background(), []byte("hello"))
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Should reject empty message", func(t *testing.T) {
		client := newTestClient(t, &fakeRemote{}, testConfig())
		_, err := client.SignMessage(context.Background(), nil)
		require.Error(t, err)
	})

	t.Run("Should time out a signing call that never settles", func(t *testing.T) {
		remote := &fakeRemote{
			signMessage: func(ctx context.Context, message []byte) (*SignedMessage, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}
		cfg := testConfig()
		cfg.Timeout = 20 * time.Millisecond
		client := newTestClient(t, remote, cfg)

		_, err := client.SignMessage(context.Background(), []byte("hello"))
		require.ErrorIs(t, err, ErrTimeout)
	})
}

func p256Order(t *testing.T) *big.Int {
	t.Helper()
	return elliptic.P256().Params().N
}
