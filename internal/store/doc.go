// Package store provides file-based persistence for umbra's session layer.
//
// FileStore implements every storage collaborator of the domain package on a
// single directory:
//   - the local identity, sealed with a passphrase (identity.enc)
//   - peer identity keys (remote_identities.json)
//   - signed and one-time pre-keys (spk_pairs.json, opk_pairs.json, prekey_meta.json)
//   - one encoded session state per peer device (sessions/<address>.state)
//   - the sealed-sender trust root and revoked server keys (trust.json)
//
// Writes are buffered per unit of work and reach disk only when the unit
// commits: every changed file is staged as a synced temp file, then renamed
// into place. Units run concurrently and are validated optimistically at
// commit; the check covers units of one FileStore value, so a directory must
// not be shared between processes.
package store
