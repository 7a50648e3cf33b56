package wallet

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/mr-tron/base58"
)

// The relayer's success value is not contractually stable. Observed shapes,
// in precedence order: a plain string, an object with a "signature" field, an
// object with a "signatures" list (last element is the confirmed one), and
// free-form JSON that merely embeds a signature somewhere. The raw value is
// decoded exactly once into one of the variants below; everything downstream
// switches on the tag instead of re-inspecting the JSON.
type resultShape int

const (
	shapeUnrecognized resultShape = iota
	shapeString
	shapeSignatureField
	shapeSignatureList
	shapeScanned
)

func (s resultShape) String() string {
	switch s {
	case shapeString:
		return "string"
	case shapeSignatureField:
		return "signature_field"
	case shapeSignatureList:
		return "signature_list"
	case shapeScanned:
		return "scanned"
	default:
		return "unrecognized"
	}
}

// extractedResult is the canonical form of a relayer success value.
type extractedResult struct {
	shape     resultShape
	signature string
}

// A Solana transaction signature is 64 bytes, which base58-encodes to 87 or
// 88 characters. The scan fallback looks for exactly that textual shape.
const (
	signatureTokenAlphabet = "[1-9A-HJ-NP-Za-km-z]"
	signatureTokenMinChars = 87
	signatureTokenMaxChars = 88
)

var signatureTokenPattern = regexp.MustCompile(
	fmt.Sprintf("%s{%d,%d}", signatureTokenAlphabet, signatureTokenMinChars, signatureTokenMaxChars))

// extractSignature maps a raw relayer success value to the canonical string
// result. shapeUnrecognized means no rule applied.
func extractSignature(raw json.RawMessage) extractedResult {
	if len(raw) == 0 {
		return extractedResult{shape: shapeUnrecognized}
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil && plain != "" {
		return extractedResult{shape: shapeString, signature: plain}
	}

	var obj struct {
		Signature  string   `json:"signature"`
		Signatures []string `json:"signatures"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Signature != "" {
			return extractedResult{shape: shapeSignatureField, signature: obj.Signature}
		}
		if len(obj.Signatures) > 0 {
			// The list holds intermediate signatures; the last one is final.
			return extractedResult{shape: shapeSignatureList, signature: obj.Signatures[len(obj.Signatures)-1]}
		}
	}

	// Last resort: scan the serialized text for an embedded signature token.
	// Candidates must actually decode to 64 bytes, not just match the
	// alphabet and length.
	for _, candidate := range signatureTokenPattern.FindAllString(string(raw), -1) {
		decoded, err := base58.Decode(candidate)
		if err == nil && len(decoded) == 64 {
			return extractedResult{shape: shapeScanned, signature: candidate}
		}
	}

	return extractedResult{shape: shapeUnrecognized}
}
