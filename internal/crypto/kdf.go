package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HKDF expands secret with HKDF-SHA256 and fills each of outs in order.
func HKDF(secret, salt, info []byte, outs ...[]byte) error {
	r := hkdf.New(sha256.New, secret, salt, info)
	for _, out := range outs {
		if _, err := io.ReadFull(r, out); err != nil {
			return err
		}
	}
	return nil
}

// HMACSHA256 returns HMAC-SHA256(key, data).
func HMACSHA256(key, data []byte) (out [32]byte) {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	h.Sum(out[:0])
	return out
}
