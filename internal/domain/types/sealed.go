package types

// CurrentSealedVersion is the sealed-sender envelope version this module produces.
const CurrentSealedVersion uint8 = 1

// SealedEnvelope is what a relay sees: nothing in it names the sender.
type SealedEnvelope struct {
	Version          uint8        `json:"version"`
	EphemeralKey     X25519Public `json:"ephemeral_key"`
	EncryptedStatic  []byte       `json:"encrypted_static"`
	EncryptedMessage []byte       `json:"encrypted_message"`
}

// SealedContent is the plaintext inside the envelope's static layer.
type SealedContent struct {
	Type        MessageType       `json:"type"`
	Certificate SenderCertificate `json:"certificate"`
	Content     []byte            `json:"content"`
}
