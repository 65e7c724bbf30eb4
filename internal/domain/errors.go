package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the session layer. Callers match them with errors.Is;
// returned errors usually wrap one of these with more detail.
var (
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrDecryptionFailed   = errors.New("decryption failed")
	ErrMalformedMessage   = errors.New("malformed message")
	ErrDuplicateMessage   = errors.New("duplicate message")
	ErrKeyLimitExceeded   = errors.New("message key limit exceeded")
	ErrUntrustedSender    = errors.New("untrusted sender")
	ErrExpiredCertificate = errors.New("expired certificate")
	ErrNotFound           = errors.New("not found")
	ErrStorageFailure     = errors.New("storage failure")

	// ErrSelfSend is returned when a sealed message claims to come from the local device.
	ErrSelfSend = errors.New("sealed message sent by local device")
	// ErrNoSession indicates there is no stored session with the peer.
	ErrNoSession = errors.New("no session with peer")
)

// KnownSenderError is returned for a sealed message whose sender became
// known, from the decrypted certificate, before the message was rejected. The
// host can use Sender to reset the session or ask for the message again. When
// the certificate itself failed validation, Sender is only what it claims.
type KnownSenderError struct {
	Sender Address
	Err    error
}

func (e *KnownSenderError) Error() string {
	return fmt.Sprintf("sealed message from %s: %v", e.Sender, e.Err)
}

func (e *KnownSenderError) Unwrap() error { return e.Err }

var kinds = []struct {
	err   error
	label string
}{
	// Order matters: wrapped errors may match more than one kind and the
	// first match wins.
	{ErrExpiredCertificate, "expired_certificate"},
	{ErrUntrustedSender, "untrusted_sender"},
	{ErrSelfSend, "self_send"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrDecryptionFailed, "decryption_failed"},
	{ErrMalformedMessage, "malformed_message"},
	{ErrDuplicateMessage, "duplicate_message"},
	{ErrKeyLimitExceeded, "key_limit_exceeded"},
	{ErrNoSession, "no_session"},
	{ErrStorageFailure, "storage_failure"},
	{ErrNotFound, "not_found"},
}

// ErrorKind returns a stable label for err suitable for metrics and logs.
// A nil error is "ok"; errors outside the known kinds are "internal".
func ErrorKind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "internal"
}
