package types

import "time"

// ServerCertificate binds a server signing key to a key id. It is signed by
// the trust root.
type ServerCertificate struct {
	KeyID     uint32        `json:"key_id"`
	Key       Ed25519Public `json:"key"`
	Signature []byte        `json:"signature"`
}

// SenderCertificate vouches that Sender owns IdentityKey until Expires. It is
// signed by the key of Signer.
type SenderCertificate struct {
	Sender      Address           `json:"sender"`
	IdentityKey X25519Public      `json:"identity_key"`
	Expires     uint64            `json:"expires"` // milliseconds since the Unix epoch
	Signer      ServerCertificate `json:"signer"`
	Signature   []byte            `json:"signature"`
}

// ExpiresAt returns the expiration as a time.Time.
func (c SenderCertificate) ExpiresAt() time.Time {
	return time.UnixMilli(int64(c.Expires))
}
