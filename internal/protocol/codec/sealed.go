package codec

import (
	"github.com/google/uuid"

	"umbra/internal/domain"
)

type wireAddress struct {
	_        struct{} `cbor:",toarray"`
	UUID     []byte
	DeviceID uint32
}

type wireServerBody struct {
	_     struct{} `cbor:",toarray"`
	KeyID uint32
	Key   []byte
}

type wireServerCertificate struct {
	_         struct{} `cbor:",toarray"`
	KeyID     uint32
	Key       []byte
	Signature []byte
}

type wireSenderBody struct {
	_           struct{} `cbor:",toarray"`
	Sender      wireAddress
	IdentityKey []byte
	Expires     uint64
	Signer      wireServerCertificate
}

type wireSenderCertificate struct {
	_           struct{} `cbor:",toarray"`
	Sender      wireAddress
	IdentityKey []byte
	Expires     uint64
	Signer      wireServerCertificate
	Signature   []byte
}

type wireEnvelope struct {
	_                struct{} `cbor:",toarray"`
	EphemeralKey     []byte
	EncryptedStatic  []byte
	EncryptedMessage []byte
}

type wireContent struct {
	_           struct{} `cbor:",toarray"`
	Type        uint8
	Certificate wireSenderCertificate
	Content     []byte
}

func toWireServer(c domain.ServerCertificate) wireServerCertificate {
	return wireServerCertificate{KeyID: c.KeyID, Key: c.Key[:], Signature: c.Signature}
}

func fromWireServer(w wireServerCertificate) (domain.ServerCertificate, error) {
	key, err := key32(w.Key, "server key")
	if err != nil {
		return domain.ServerCertificate{}, err
	}
	return domain.ServerCertificate{KeyID: w.KeyID, Key: key, Signature: w.Signature}, nil
}

func toWireSender(c domain.SenderCertificate) wireSenderCertificate {
	return wireSenderCertificate{
		Sender:      wireAddress{UUID: c.Sender.UUID[:], DeviceID: c.Sender.DeviceID},
		IdentityKey: c.IdentityKey[:],
		Expires:     c.Expires,
		Signer:      toWireServer(c.Signer),
		Signature:   c.Signature,
	}
}

func fromWireSender(w wireSenderCertificate) (domain.SenderCertificate, error) {
	id, err := uuid.FromBytes(w.Sender.UUID)
	if err != nil {
		return domain.SenderCertificate{}, malformed("sender address: %v", err)
	}
	ik, err := key32(w.IdentityKey, "sender identity key")
	if err != nil {
		return domain.SenderCertificate{}, err
	}
	signer, err := fromWireServer(w.Signer)
	if err != nil {
		return domain.SenderCertificate{}, err
	}
	return domain.SenderCertificate{
		Sender:      domain.Address{UUID: id, DeviceID: w.Sender.DeviceID},
		IdentityKey: ik,
		Expires:     w.Expires,
		Signer:      signer,
		Signature:   w.Signature,
	}, nil
}

// ServerCertificateBody returns the bytes the trust root signs.
func ServerCertificateBody(c domain.ServerCertificate) ([]byte, error) {
	return encode(certificateVersion, wireServerBody{KeyID: c.KeyID, Key: c.Key[:]})
}

// SenderCertificateBody returns the bytes the server key signs: every field
// of c except its own signature, including the complete signer certificate.
func SenderCertificateBody(c domain.SenderCertificate) ([]byte, error) {
	w := toWireSender(c)
	return encode(certificateVersion, wireSenderBody{
		Sender:      w.Sender,
		IdentityKey: w.IdentityKey,
		Expires:     w.Expires,
		Signer:      w.Signer,
	})
}

// EncodeServerCertificate encodes a signed server certificate.
func EncodeServerCertificate(c domain.ServerCertificate) ([]byte, error) {
	return encode(certificateVersion, toWireServer(c))
}

// DecodeServerCertificate is the inverse of EncodeServerCertificate.
func DecodeServerCertificate(data []byte) (domain.ServerCertificate, error) {
	var w wireServerCertificate
	if err := decode(certificateVersion, data, &w, "server certificate"); err != nil {
		return domain.ServerCertificate{}, err
	}
	return fromWireServer(w)
}

// EncodeSenderCertificate encodes a signed sender certificate.
func EncodeSenderCertificate(c domain.SenderCertificate) ([]byte, error) {
	return encode(certificateVersion, toWireSender(c))
}

// DecodeSenderCertificate is the inverse of EncodeSenderCertificate.
func DecodeSenderCertificate(data []byte) (domain.SenderCertificate, error) {
	var w wireSenderCertificate
	if err := decode(certificateVersion, data, &w, "sender certificate"); err != nil {
		return domain.SenderCertificate{}, err
	}
	return fromWireSender(w)
}

// EncodeEnvelope encodes the outer sealed-sender envelope.
func EncodeEnvelope(e domain.SealedEnvelope) ([]byte, error) {
	if e.Version != domain.CurrentSealedVersion {
		return nil, malformed("envelope: unsupported version %d", e.Version)
	}
	return encode(sealedVersion, wireEnvelope{
		EphemeralKey:     e.EphemeralKey[:],
		EncryptedStatic:  e.EncryptedStatic,
		EncryptedMessage: e.EncryptedMessage,
	})
}

// DecodeEnvelope is the inverse of EncodeEnvelope.
func DecodeEnvelope(data []byte) (domain.SealedEnvelope, error) {
	var w wireEnvelope
	if err := decode(sealedVersion, data, &w, "envelope"); err != nil {
		return domain.SealedEnvelope{}, err
	}
	eph, err := key32(w.EphemeralKey, "ephemeral key")
	if err != nil {
		return domain.SealedEnvelope{}, err
	}
	if len(w.EncryptedStatic) == 0 || len(w.EncryptedMessage) == 0 {
		return domain.SealedEnvelope{}, malformed("envelope: empty ciphertext")
	}
	return domain.SealedEnvelope{
		Version:          domain.CurrentSealedVersion,
		EphemeralKey:     eph,
		EncryptedStatic:  w.EncryptedStatic,
		EncryptedMessage: w.EncryptedMessage,
	}, nil
}

// EncodeContent encodes the plaintext of the envelope's inner layer.
func EncodeContent(c domain.SealedContent) ([]byte, error) {
	if err := checkType(c.Type); err != nil {
		return nil, err
	}
	return encode(sealedVersion, wireContent{
		Type:        uint8(c.Type),
		Certificate: toWireSender(c.Certificate),
		Content:     c.Content,
	})
}

// DecodeContent is the inverse of EncodeContent.
func DecodeContent(data []byte) (domain.SealedContent, error) {
	var w wireContent
	if err := decode(sealedVersion, data, &w, "sealed content"); err != nil {
		return domain.SealedContent{}, err
	}
	if err := checkType(domain.MessageType(w.Type)); err != nil {
		return domain.SealedContent{}, err
	}
	cert, err := fromWireSender(w.Certificate)
	if err != nil {
		return domain.SealedContent{}, err
	}
	return domain.SealedContent{
		Type:        domain.MessageType(w.Type),
		Certificate: cert,
		Content:     w.Content,
	}, nil
}

func checkType(t domain.MessageType) error {
	switch t {
	case domain.MessageTypeWhisper, domain.MessageTypePreKey:
		return nil
	default:
		return malformed("unknown message type %d", t)
	}
}
