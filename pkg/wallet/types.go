package wallet

import (
	"context"
	"encoding/json"
)

// SignedMessage is the result of a remote passkey signing call. Both fields
// are base64, the wire encoding the relayer uses for binary values.
type SignedMessage struct {
	// Signature is the base64-encoded 64-byte P-256 signature (r || s).
	Signature string `json:"signature"`

	// SignedPayload is the base64-encoded payload the authenticator signed
	// over (WebAuthn authenticator data plus client data hash).
	SignedPayload string `json:"signedPayload"`
}

// GaslessPayload carries one or more serialized chain instructions for
// sponsored execution. Instruction encoding belongs to the relayer; this
// layer forwards it opaquely.
type GaslessPayload struct {
	Instructions []json.RawMessage `json:"instructions"`
}

// Remote is the wallet relayer boundary. Implementations are expected to be
// slow, rate limited and loose about response shapes; Client exists to make
// them bearable. SubmitGasless returns the raw response body so the single
// decode step in Client can classify its shape.
type Remote interface {
	// SignMessage asks the remote passkey holder to sign an arbitrary message.
	SignMessage(ctx context.Context, message []byte) (*SignedMessage, error)

	// SubmitGasless submits instructions for sponsored execution and returns
	// the relayer's raw success value.
	SubmitGasless(ctx context.Context, payload *GaslessPayload) (json.RawMessage, error)
}
