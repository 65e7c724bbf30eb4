package ratchet

import (
	"encoding/binary"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/util/memzero"
)

var (
	rootInfo    = []byte("umbra-ratchet-root")
	messageInfo = []byte("umbra-message-keys")

	messageKeySeed = []byte{0x01}
	chainKeySeed   = []byte{0x02}
)

// rootStep mixes a DH output into the root key, returning the next root key
// and a fresh chain key.
func rootStep(rk domain.SymmetricKey, dh *[32]byte) (next, ck domain.SymmetricKey, err error) {
	err = crypto.HKDF(dh[:], rk[:], rootInfo, next[:], ck[:])
	return next, ck, err
}

// chainStep advances a chain key one step and returns the message key for the
// position the chain key was at.
func chainStep(ck domain.SymmetricKey) (next, mk domain.SymmetricKey) {
	mk = crypto.HMACSHA256(ck[:], messageKeySeed)
	next = crypto.HMACSHA256(ck[:], chainKeySeed)
	return next, mk
}

func sealMessage(mk domain.SymmetricKey, ad, plaintext []byte) ([]byte, error) {
	var sc memzero.Scope
	defer sc.Wipe()

	var key [32]byte
	nonce := make([]byte, crypto.NonceSize)
	if err := crypto.HKDF(mk[:], nil, messageInfo, sc.Key(&key)[:], nonce); err != nil {
		return nil, err
	}
	return crypto.Seal(&key, nonce, plaintext, ad)
}

func openMessage(mk domain.SymmetricKey, ad, ciphertext []byte) ([]byte, error) {
	var sc memzero.Scope
	defer sc.Wipe()

	var key [32]byte
	nonce := make([]byte, crypto.NonceSize)
	if err := crypto.HKDF(mk[:], nil, messageInfo, sc.Key(&key)[:], nonce); err != nil {
		return nil, err
	}
	return crypto.Open(&key, nonce, ciphertext, ad)
}

// associatedData binds both identities and the message header to the ciphertext.
func associatedData(sender, receiver domain.X25519Public, msg domain.RatchetMessage) []byte {
	out := make([]byte, 0, 32*3+1+8)
	out = append(out, sender[:]...)
	out = append(out, receiver[:]...)
	out = append(out, msg.Version)
	out = append(out, msg.RatchetKey[:]...)
	out = binary.BigEndian.AppendUint32(out, msg.Counter)
	out = binary.BigEndian.AppendUint32(out, msg.PreviousCounter)
	return out
}
