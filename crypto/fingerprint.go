package crypto

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// fingerprintSize is the number of digest bytes shown in a fingerprint.
const fingerprintSize = 8

// Fingerprint returns the first 8 bytes of BLAKE3(key) in hex. Two parties
// holding the same key see the same fingerprint.
func Fingerprint(key SymmetricKey) string {
	if key.IsZero() {
		return "none"
	}
	sum := blake3.Sum256(key[:])
	return hex.EncodeToString(sum[:fingerprintSize])
}
