package types

// SignedPreKeyPair is the full signed pre-key stored locally.
type SignedPreKeyPair struct {
	ID         SignedPreKeyID `json:"id"`
	Priv       X25519Private  `json:"priv"`
	Pub        X25519Public   `json:"pub"`
	Signature  []byte         `json:"signature"`
	CreatedUTC int64          `json:"created_utc"`
}

// OneTimePreKeyPair is the full (private+public) one-time pre-key stored locally.
type OneTimePreKeyPair struct {
	ID   OneTimePreKeyID `json:"id"`
	Priv X25519Private   `json:"priv"`
	Pub  X25519Public    `json:"pub"`
}

// Public returns the shareable half of the pair.
func (p OneTimePreKeyPair) Public() OneTimePreKeyPublic {
	return OneTimePreKeyPublic{ID: p.ID, Pub: p.Pub}
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID  OneTimePreKeyID `json:"id"`
	Pub X25519Public    `json:"pub"`
}

// PreKeyBundle is the set of public keys a device publishes so others can start
// sessions with it. SignedPreKeySignature is base64-encoded automatically.
type PreKeyBundle struct {
	Address               Address              `json:"address"`
	IdentityKey           X25519Public         `json:"identity_key"`
	SigningKey            Ed25519Public        `json:"signing_key"`
	SignedPreKeyID        SignedPreKeyID       `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public         `json:"signed_pre_key"`
	SignedPreKeySignature []byte               `json:"signed_pre_key_signature"`
	OneTimePreKey         *OneTimePreKeyPublic `json:"one_time_pre_key,omitempty"`
}

// PreKeyMessage carries the X3DH handshake parameters alongside the first
// ratchet messages of an initiator, until the responder has replied.
type PreKeyMessage struct {
	IdentityKey     X25519Public    `json:"identity_key"`
	BaseKey         X25519Public    `json:"base_key"`
	SignedPreKeyID  SignedPreKeyID  `json:"signed_pre_key_id"`
	OneTimePreKeyID OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
	Message         RatchetMessage  `json:"message"`
}
