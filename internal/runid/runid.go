package runid

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// Compute derives a deterministic run identifier using SHA256.
// Formula: SHA256(config_fingerprint|seed), base58-encoded and truncated.
// The same configuration and seed always map to the same ID, so repeated
// sweeps upsert rather than duplicate.
func Compute(configFingerprint string, seed int64) string {
	data := fmt.Sprintf("%s|%d", configFingerprint, seed)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])[:16]
}
