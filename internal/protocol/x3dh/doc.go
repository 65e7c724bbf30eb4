// Package x3dh implements the X3DH key-agreement used to bootstrap a Double Ratchet
// session between two parties.
//
// # Overview
//
// X3DH lets an initiator derive a shared root key and initial chain key with a
// responder who has published a prekey bundle. The bundle contains:
//   - Identity key (X25519) and signing key (Ed25519)
//   - Signed prekey (X25519) and its Ed25519 signature
//   - Optionally one one-time prekey (X25519)
//
// # Flows
//
// Initiator:
//  1. Verify the signed prekey signature.
//  2. Generate an ephemeral X25519 key pair.
//  3. Compute DH values (IKa·SPKb, EKa·IKb, EKa·SPKb[, EKa·OPKb]).
//  4. HKDF over 0xFF*32 followed by the DH transcript to produce 64 bytes:
//     root key then chain key.
//  5. Return the secrets, the SPK/OPK identifiers used, and the ephemeral pair.
//
// Responder:
//  1. Receive the PreKeyMessage (initiator IK, base key EK, SPKID[, OPKID]).
//  2. Look up SPK and optionally the OPK.
//  3. Compute the symmetric DH set (SPKb·IKa, IKb·EKa, SPKb·EKa[, OPKb·EKa]).
//  4. HKDF the same transcript to the identical secrets.
//
// # Errors
//
// domain.ErrInvalidSignature is returned when the SPK signature fails
// verification. DH failures (low-order points) are returned wrapped.
//
// Both functions are pure: they touch no storage, and intermediate DH outputs
// are erased before returning.
package x3dh
