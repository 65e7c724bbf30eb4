package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"umbra/internal/domain"
)

// KeyID returns a short hex identifier of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars). It is meant
// for logs and listings, not for out-of-band identity verification.
func KeyID(pub []byte) domain.KeyID {
	sum := sha256.Sum256(pub)
	return domain.KeyID(hex.EncodeToString(sum[:10]))
}
