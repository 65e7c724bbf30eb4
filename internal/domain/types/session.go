package types

import "slices"

// CurrentSessionVersion is the protocol version recorded in new sessions.
const CurrentSessionVersion uint32 = 3

// SendingChain is the local half of the current Diffie-Hellman ratchet step.
type SendingChain struct {
	RatchetPublic  X25519Public  `json:"ratchet_public"`
	RatchetPrivate X25519Private `json:"ratchet_private"`
	ChainKey       SymmetricKey  `json:"chain_key"`
	Index          uint32        `json:"index"`
}

// ReceivingChain is the symmetric chain for one remote ratchet key. Index is
// the counter of the next message key the chain will produce.
type ReceivingChain struct {
	RatchetKey X25519Public `json:"ratchet_key"`
	ChainKey   SymmetricKey `json:"chain_key"`
	Index      uint32       `json:"index"`
}

// SkippedKey is a derived but not yet consumed message key.
type SkippedKey struct {
	RatchetKey X25519Public `json:"ratchet_key"`
	Counter    uint32       `json:"counter"`
	MessageKey SymmetricKey `json:"message_key"`
}

// PendingPreKey records the X3DH parameters an initiator attaches to its
// messages until the responder's first reply arrives.
type PendingPreKey struct {
	SignedPreKeyID  SignedPreKeyID  `json:"signed_pre_key_id"`
	OneTimePreKeyID OneTimePreKeyID `json:"one_time_pre_key_id,omitempty"`
	BaseKey         X25519Public    `json:"base_key"`
}

// SessionState is the durable record of one pairwise ratchet session.
//
// Receiving[0] is the active receiving chain; the rest are archived chains,
// newest first. Skipped is ordered oldest first. Both are bounded by the
// engine's limits.
type SessionState struct {
	Version           uint32           `json:"version"`
	LocalIdentityKey  X25519Public     `json:"local_identity_key"`
	RemoteIdentityKey X25519Public     `json:"remote_identity_key"`
	RootKey           SymmetricKey     `json:"root_key"`
	Sending           SendingChain     `json:"sending"`
	Receiving         []ReceivingChain `json:"receiving,omitempty"`
	PreviousCounter   uint32           `json:"previous_counter"`
	Skipped           []SkippedKey     `json:"skipped,omitempty"`
	Pending           *PendingPreKey   `json:"pending,omitempty"`
	BaseKey           X25519Public     `json:"base_key"`
}

// HasSendingChain reports whether a sending chain has been established.
func (s SessionState) HasSendingChain() bool {
	return !s.Sending.RatchetPrivate.IsZero()
}

// Clone returns a deep copy that shares no memory with s.
func (s SessionState) Clone() SessionState {
	out := s
	out.Receiving = slices.Clone(s.Receiving)
	out.Skipped = slices.Clone(s.Skipped)
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	return out
}

// Wipe zeroes every secret held by the state in place.
func (s *SessionState) Wipe() {
	s.RootKey = SymmetricKey{}
	s.Sending.RatchetPrivate = X25519Private{}
	s.Sending.ChainKey = SymmetricKey{}
	for i := range s.Receiving {
		s.Receiving[i].ChainKey = SymmetricKey{}
	}
	for i := range s.Skipped {
		s.Skipped[i].MessageKey = SymmetricKey{}
	}
	s.Receiving = nil
	s.Skipped = nil
}
