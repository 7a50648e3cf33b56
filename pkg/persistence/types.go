package persistence

// SubmissionRecord captures one successfully submitted transaction so the
// demo can show a transfer history without re-querying the chain.
type SubmissionRecord struct {
	// Signature is the base58 transaction signature returned by the relayer.
	// Serves as the primary key.
	Signature string `json:"signature"`

	// Wallet is the smart-wallet address the submission was issued for.
	Wallet string `json:"wallet"`

	// Kind describes the operation: "transfer", "mint" or "subscription".
	Kind string `json:"kind"`

	// Memo is an optional free-form note attached by the caller.
	Memo string `json:"memo,omitempty"`

	// SubmittedAt is the Unix timestamp when the relayer accepted the
	// submission.
	SubmittedAt int64 `json:"submittedAt"`

	// Attempts is how many attempts the resilient wrapper needed.
	Attempts int `json:"attempts"`
}
