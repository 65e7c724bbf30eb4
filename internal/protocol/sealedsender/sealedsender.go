// Package sealedsender hides the sender of a message from everyone but the
// recipient.
//
// An envelope has two layers. The outer layer is keyed from a fresh ephemeral
// key and the recipient's identity key and carries the sender's identity key.
// The inner layer is keyed from the sender's and recipient's identity keys,
// chained to the outer layer, and carries the sender certificate together with
// the ratchet message. A recipient therefore learns the sender only after
// both layers authenticate, and accepts it only if the certificate validates
// and names the same identity key that keyed the inner layer.
package sealedsender

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/certificate"
	"umbra/internal/protocol/codec"
	"umbra/internal/util/memzero"
)

var (
	saltPrefix    = []byte("UnidentifiedDelivery")
	ephemeralInfo = []byte("umbra-sealed-ephemeral")
	staticInfo    = []byte("umbra-sealed-static")
)

// ErrCertificateMismatch is returned by Seal when the certificate does not
// belong to the sending identity.
var ErrCertificateMismatch = errors.New("sealedsender: certificate identity does not match sender")

// Every layer key is used for exactly one encryption, so a fixed nonce is safe.
var zeroNonce = make([]byte, crypto.NonceSize)

// Seal encrypts content for recipient. content.Certificate must certify
// sender's identity key.
func Seal(sender domain.Identity, recipient domain.X25519Public, content domain.SealedContent) ([]byte, error) {
	if content.Certificate.IdentityKey != sender.XPub {
		return nil, ErrCertificateMismatch
	}
	return seal(sender, recipient, content)
}

func seal(sender domain.Identity, recipient domain.X25519Public, content domain.SealedContent) ([]byte, error) {
	var sc memzero.Scope
	defer sc.Wipe()

	plaintext, err := codec.EncodeContent(content)
	if err != nil {
		return nil, err
	}
	sc.Track(plaintext)

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, err
	}
	sc.Key((*[32]byte)(&ephPriv))

	chain, cipher, err := ephemeralKeys(&sc, ephPriv, recipient, recipient, ephPub)
	if err != nil {
		return nil, fmt.Errorf("sealedsender: recipient key: %w", err)
	}
	encStatic, err := crypto.Seal(cipher, zeroNonce, sender.XPub[:], ephPub[:])
	if err != nil {
		return nil, err
	}

	staticCipher, err := staticKey(&sc, sender.XPriv, recipient, chain, encStatic)
	if err != nil {
		return nil, fmt.Errorf("sealedsender: recipient key: %w", err)
	}
	encMessage, err := crypto.Seal(staticCipher, zeroNonce, plaintext, encStatic)
	if err != nil {
		return nil, err
	}

	return codec.EncodeEnvelope(domain.SealedEnvelope{
		Version:          domain.CurrentSealedVersion,
		EphemeralKey:     ephPub,
		EncryptedStatic:  encStatic,
		EncryptedMessage: encMessage,
	})
}

// Unseal opens an envelope addressed to local and validates the sender
// certificate inside it at now.
//
// Errors wrap domain.ErrMalformedMessage for undecodable input and
// domain.ErrDecryptionFailed when either layer fails to authenticate. An
// envelope whose certificate names local.Address is dropped with
// domain.ErrSelfSend before the certificate is validated. A certificate that
// is rejected, or does not match the authenticated sender key, yields a
// *domain.KnownSenderError wrapping domain.ErrUntrustedSender joined with the
// cause.
func Unseal(local domain.Identity, envelope []byte, v *certificate.Validator, now time.Time) (domain.SealedContent, error) {
	env, err := codec.DecodeEnvelope(envelope)
	if err != nil {
		return domain.SealedContent{}, err
	}

	var sc memzero.Scope
	defer sc.Wipe()

	chain, cipher, err := ephemeralKeys(&sc, local.XPriv, env.EphemeralKey, local.XPub, env.EphemeralKey)
	if err != nil {
		return domain.SealedContent{}, fmt.Errorf("%w: ephemeral key: %v", domain.ErrDecryptionFailed, err)
	}
	staticBytes, err := crypto.Open(cipher, zeroNonce, env.EncryptedStatic, env.EphemeralKey[:])
	if err != nil {
		return domain.SealedContent{}, fmt.Errorf("%w: sender key layer", domain.ErrDecryptionFailed)
	}
	if len(staticBytes) != 32 {
		return domain.SealedContent{}, fmt.Errorf("%w: sender key length %d", domain.ErrMalformedMessage, len(staticBytes))
	}
	senderKey := domain.X25519Public(staticBytes)

	staticCipher, err := staticKey(&sc, local.XPriv, senderKey, chain, env.EncryptedStatic)
	if err != nil {
		return domain.SealedContent{}, fmt.Errorf("%w: sender key: %v", domain.ErrDecryptionFailed, err)
	}
	plaintext, err := crypto.Open(staticCipher, zeroNonce, env.EncryptedMessage, env.EncryptedStatic)
	if err != nil {
		return domain.SealedContent{}, fmt.Errorf("%w: message layer", domain.ErrDecryptionFailed)
	}
	sc.Track(plaintext)

	content, err := codec.DecodeContent(plaintext)
	if err != nil {
		return domain.SealedContent{}, err
	}
	sender := content.Certificate.Sender
	if sender == local.Address {
		return domain.SealedContent{}, domain.ErrSelfSend
	}
	if err := v.Validate(content.Certificate, now); err != nil {
		return domain.SealedContent{}, &domain.KnownSenderError{
			Sender: sender,
			Err:    fmt.Errorf("%w: %w", domain.ErrUntrustedSender, err),
		}
	}
	if subtle.ConstantTimeCompare(content.Certificate.IdentityKey[:], senderKey[:]) != 1 {
		return domain.SealedContent{}, &domain.KnownSenderError{
			Sender: sender,
			Err:    fmt.Errorf("%w: certificate key does not match sender key", domain.ErrUntrustedSender),
		}
	}
	return content, nil
}

// ephemeralKeys derives the outer layer's chain and cipher keys from
// DH(priv, peer), salted with the recipient and ephemeral public keys.
func ephemeralKeys(sc *memzero.Scope, priv domain.X25519Private, peer, recipient, eph domain.X25519Public) (chain, cipher *[32]byte, err error) {
	dh, err := crypto.DH(priv, peer)
	if err != nil {
		return nil, nil, err
	}
	sc.Key(&dh)

	salt := make([]byte, 0, len(saltPrefix)+64)
	salt = append(salt, saltPrefix...)
	salt = append(salt, recipient[:]...)
	salt = append(salt, eph[:]...)

	chain, cipher = sc.Key(new([32]byte)), sc.Key(new([32]byte))
	if err := crypto.HKDF(dh[:], salt, ephemeralInfo, chain[:], cipher[:]); err != nil {
		return nil, nil, err
	}
	return chain, cipher, nil
}

// staticKey derives the inner layer's cipher key from the identity DH,
// salted with the outer chain key and the encrypted sender key.
func staticKey(sc *memzero.Scope, priv domain.X25519Private, peer domain.X25519Public, chain *[32]byte, encStatic []byte) (*[32]byte, error) {
	dh, err := crypto.DH(priv, peer)
	if err != nil {
		return nil, err
	}
	sc.Key(&dh)

	salt := make([]byte, 0, len(chain)+len(encStatic))
	salt = append(salt, chain[:]...)
	salt = append(salt, encStatic...)

	cipher := sc.Key(new([32]byte))
	if err := crypto.HKDF(dh[:], salt, staticInfo, cipher[:]); err != nil {
		return nil, err
	}
	return cipher, nil
}
