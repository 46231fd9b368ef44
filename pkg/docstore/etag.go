package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Fingerprint computes a strong ETag over the canonical JSON encoding of a
// payload. encoding/json sorts map keys, so structurally equal payloads
// always fingerprint identically regardless of wire field order.
func Fingerprint(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// Marshalling our own plain values cannot realistically fail;
		// degrade to an unmatchable tag instead of erroring the read path.
		return `"unfingerprintable"`
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%q", hex.EncodeToString(sum[:8]))
}
