package signature

import (
	"bytes"
	"crypto/elliptic"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzNormalizeIdempotent(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, Length))
	f.Add(bytes.Repeat([]byte{0xff}, Length))
	f.Add(make([]byte, 63))

	f.Fuzz(func(t *testing.T, sig []byte) {
		once := Normalize(sig)
		twice := Normalize(once)
		require.Equal(t, once, twice)

		if len(sig) != Length {
			// Length guard: identity passthrough.
			require.Equal(t, sig, once)
			return
		}

		require.Len(t, once, Length)

		// r is never rewritten.
		require.Equal(t, sig[:ComponentLength], once[:ComponentLength])

		// Canonical-form invariant holds whenever s was in the valid range.
		n := elliptic.P256().Params().N
		s := new(big.Int).SetBytes(sig[ComponentLength:])
		if s.Sign() > 0 && s.Cmp(n) < 0 {
			require.False(t, IsHighS(once))
			require.True(t, IsValidLowS(once))
		}
	})
}
