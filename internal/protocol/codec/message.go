package codec

import (
	"umbra/internal/crypto"
	"umbra/internal/domain"
)

type wireMessage struct {
	_               struct{} `cbor:",toarray"`
	RatchetKey      []byte
	Counter         uint32
	PreviousCounter uint32
	Ciphertext      []byte
}

type wirePreKeyMessage struct {
	_               struct{} `cbor:",toarray"`
	IdentityKey     []byte
	BaseKey         []byte
	SignedPreKeyID  string
	OneTimePreKeyID string
	Message         wireMessage
}

func toWireMessage(m domain.RatchetMessage) wireMessage {
	return wireMessage{
		RatchetKey:      m.RatchetKey[:],
		Counter:         m.Counter,
		PreviousCounter: m.PreviousCounter,
		Ciphertext:      m.Ciphertext,
	}
}

func fromWireMessage(w wireMessage) (domain.RatchetMessage, error) {
	rk, err := key32(w.RatchetKey, "ratchet key")
	if err != nil {
		return domain.RatchetMessage{}, err
	}
	if len(w.Ciphertext) < crypto.Overhead {
		return domain.RatchetMessage{}, malformed("ciphertext shorter than the authentication tag")
	}
	return domain.RatchetMessage{
		Version:         domain.CurrentMessageVersion,
		RatchetKey:      rk,
		Counter:         w.Counter,
		PreviousCounter: w.PreviousCounter,
		Ciphertext:      w.Ciphertext,
	}, nil
}

// EncodeMessage encodes a ratchet message. Only the current message version
// can be encoded.
func EncodeMessage(m domain.RatchetMessage) ([]byte, error) {
	if m.Version != domain.CurrentMessageVersion {
		return nil, malformed("message: unsupported version %d", m.Version)
	}
	return encode(messageVersion, toWireMessage(m))
}

// DecodeMessage is the inverse of EncodeMessage.
func DecodeMessage(data []byte) (domain.RatchetMessage, error) {
	var w wireMessage
	if err := decode(messageVersion, data, &w, "message"); err != nil {
		return domain.RatchetMessage{}, err
	}
	return fromWireMessage(w)
}

// EncodePreKeyMessage encodes a prekey message with its embedded ratchet message.
func EncodePreKeyMessage(m domain.PreKeyMessage) ([]byte, error) {
	if m.Message.Version != domain.CurrentMessageVersion {
		return nil, malformed("prekey message: unsupported version %d", m.Message.Version)
	}
	return encode(messageVersion, wirePreKeyMessage{
		IdentityKey:     m.IdentityKey[:],
		BaseKey:         m.BaseKey[:],
		SignedPreKeyID:  string(m.SignedPreKeyID),
		OneTimePreKeyID: string(m.OneTimePreKeyID),
		Message:         toWireMessage(m.Message),
	})
}

// DecodePreKeyMessage is the inverse of EncodePreKeyMessage.
func DecodePreKeyMessage(data []byte) (domain.PreKeyMessage, error) {
	var w wirePreKeyMessage
	if err := decode(messageVersion, data, &w, "prekey message"); err != nil {
		return domain.PreKeyMessage{}, err
	}
	ik, err := key32(w.IdentityKey, "identity key")
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	base, err := key32(w.BaseKey, "base key")
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	if w.SignedPreKeyID == "" {
		return domain.PreKeyMessage{}, malformed("prekey message: missing signed prekey id")
	}
	msg, err := fromWireMessage(w.Message)
	if err != nil {
		return domain.PreKeyMessage{}, err
	}
	return domain.PreKeyMessage{
		IdentityKey:     ik,
		BaseKey:         base,
		SignedPreKeyID:  domain.SignedPreKeyID(w.SignedPreKeyID),
		OneTimePreKeyID: domain.OneTimePreKeyID(w.OneTimePreKeyID),
		Message:         msg,
	}, nil
}
