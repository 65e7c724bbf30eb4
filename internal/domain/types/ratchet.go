package types

// CurrentMessageVersion is the ratchet message version this module produces.
const CurrentMessageVersion uint8 = 3

// RatchetMessage is one Double Ratchet ciphertext and its header. The
// authentication tag is the trailing 16 bytes of Ciphertext.
type RatchetMessage struct {
	Version         uint8        `json:"version"`
	RatchetKey      X25519Public `json:"ratchet_key"`
	Counter         uint32       `json:"n"`
	PreviousCounter uint32       `json:"pn"`
	Ciphertext      []byte       `json:"ciphertext"`
}

// MessageType tells the receiver how to interpret inner message bytes.
type MessageType uint8

const (
	// MessageTypeWhisper is an encoded RatchetMessage on an established session.
	MessageTypeWhisper MessageType = 2
	// MessageTypePreKey is an encoded PreKeyMessage that can bootstrap a session.
	MessageTypePreKey MessageType = 3
)

// String returns the lower-case name of the type.
func (t MessageType) String() string {
	switch t {
	case MessageTypeWhisper:
		return "whisper"
	case MessageTypePreKey:
		return "prekey"
	default:
		return "unknown"
	}
}

// CiphertextMessage is an encoded ratchet or prekey message plus its type.
type CiphertextMessage struct {
	Type  MessageType `json:"type"`
	Bytes []byte      `json:"bytes"`
}

// DecryptedMessage is what the sealed-sender service returns on receipt.
type DecryptedMessage struct {
	From      Address     `json:"from"`
	Type      MessageType `json:"type"`
	Plaintext []byte      `json:"plaintext"`
}
