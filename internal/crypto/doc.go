// Package crypto exposes the minimal primitives used by umbra.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519,
//     PublicX25519, DH)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - HKDF-SHA256 and HMAC-SHA256 (HKDF, HMACSHA256)
//   - ChaCha20-Poly1305 authenticated encryption (Seal, Open)
//   - Short public-key identifiers for display/logging (KeyID)
//
// # Notes
//
// Keys use the fixed-size array types defined in internal/domain to avoid
// accidental reallocations. Callers own returned secrets and should erase them
// with internal/util/memzero once they are no longer needed.
package crypto
