package signature

import (
	"crypto/elliptic"
	"math/big"
)

// Passkey authenticators sign over NIST P-256. A signature is the fixed
// 64-byte concatenation of two 32-byte big-endian unsigned integers r and s.
// ECDSA is malleable: for any valid (r, s), (r, n-s) verifies too. Solana's
// secp256r1 precompile only accepts the canonical low-S form (s <= n/2), so
// a high-S signature from an authenticator must be rewritten before it is
// submitted on-chain.
const (
	// Length is the raw signature length in bytes (r || s).
	Length = 64

	// ComponentLength is the length of each of r and s in bytes.
	ComponentLength = 32
)

var (
	// order is the P-256 curve order n.
	order = elliptic.P256().Params().N

	// halfOrder is floor(n/2). s is canonical iff 0 < s <= halfOrder.
	halfOrder = new(big.Int).Rsh(order, 1)
)

// IsHighS reports whether sig carries a non-canonical s component (s > n/2).
// Inputs that are not exactly 64 bytes are not applicable and return false.
func IsHighS(sig []byte) bool {
	if len(sig) != Length {
		return false
	}
	s := new(big.Int).SetBytes(sig[ComponentLength:])
	return s.Cmp(halfOrder) > 0
}

// IsValidLowS reports whether sig is a 64-byte signature whose s component is
// in the canonical range (0, n/2]. Stricter than !IsHighS: a zero s fails
// here but is not "high". Exposed for diagnostics and tests; Normalize output
// always satisfies it for 64-byte input with a nonzero s.
func IsValidLowS(sig []byte) bool {
	if len(sig) != Length {
		return false
	}
	s := new(big.Int).SetBytes(sig[ComponentLength:])
	return s.Sign() > 0 && s.Cmp(halfOrder) <= 0
}

// Normalize rewrites sig into canonical low-S form. The function is total:
// input that is not exactly 64 bytes is returned unchanged (callers sitting
// in front of untrusted signer output log and move on rather than fail), and
// no other failure path exists. For 64-byte input a fresh slice is always
// returned, with s replaced by n-s when s > n/2. r is never touched.
func Normalize(sig []byte) []byte {
	if len(sig) != Length {
		return sig
	}

	out := make([]byte, Length)
	copy(out, sig)

	s := new(big.Int).SetBytes(sig[ComponentLength:])
	if s.Cmp(halfOrder) <= 0 {
		return out
	}

	// Any valid s satisfies s < n, so n-s is positive and fits in 32 bytes.
	// The Mod guards the s >= n case that only arises from garbage input,
	// keeping the function panic-free. FillBytes zero-pads on the left.
	s.Sub(order, s)
	s.Mod(s, order)
	s.FillBytes(out[ComponentLength:])

	return out
}
