package crypto

import (
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// NonceSize is the nonce length expected by Seal and Open.
const NonceSize = chacha20poly1305.NonceSize

// Overhead is the number of bytes Seal adds to a plaintext.
const Overhead = chacha20poly1305.Overhead

var errNonceSize = errors.New("aead: bad nonce length")

// Seal encrypts and authenticates plaintext with ChaCha20-Poly1305.
func Seal(key *[32]byte, nonce, plaintext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, errNonceSize
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, ad), nil
}

// Open authenticates and decrypts ciphertext produced by Seal.
func Open(key *[32]byte, nonce, ciphertext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, errNonceSize
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, ciphertext, ad)
}
