package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

func TestDH_IsSymmetric(t *testing.T) {
	aPriv, aPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	bPriv, bPub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	ab, err := crypto.DH(aPriv, bPub)
	require.NoError(t, err)
	ba, err := crypto.DH(bPriv, aPub)
	require.NoError(t, err)
	require.Equal(t, ab, ba)
}

func TestDH_RejectsLowOrderPoint(t *testing.T) {
	priv, _, err := crypto.GenerateX25519()
	require.NoError(t, err)

	_, err = crypto.DH(priv, domain.X25519Public{})
	require.Error(t, err)
}

func TestEd25519_SignVerify(t *testing.T) {
	priv, pub, err := crypto.GenerateEd25519()
	require.NoError(t, err)

	sig := crypto.SignEd25519(priv, []byte("spk"))
	require.True(t, crypto.VerifyEd25519(pub, []byte("spk"), sig))
	require.False(t, crypto.VerifyEd25519(pub, []byte("spK"), sig))
	require.False(t, crypto.VerifyEd25519(pub, []byte("spk"), sig[:10]))
}

func TestSealOpen(t *testing.T) {
	var key [32]byte
	key[0] = 7
	nonce := make([]byte, crypto.NonceSize)

	ct, err := crypto.Seal(&key, nonce, []byte("hello"), []byte("ad"))
	require.NoError(t, err)
	require.Len(t, ct, len("hello")+crypto.Overhead)

	pt, err := crypto.Open(&key, nonce, ct, []byte("ad"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pt)

	_, err = crypto.Open(&key, nonce, ct, []byte("AD"))
	require.Error(t, err)
}

func TestKeyID(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	id := crypto.KeyID(pub[:])
	require.Len(t, id.String(), 20)
	require.Equal(t, id, crypto.KeyID(pub[:]))
}

func TestKey32FromB64(t *testing.T) {
	_, pub, err := crypto.GenerateX25519()
	require.NoError(t, err)

	got, err := crypto.Key32FromB64(crypto.B64(pub[:]))
	require.NoError(t, err)
	require.Equal(t, [32]byte(pub), got)

	_, err = crypto.Key32FromB64(crypto.B64(pub[:31]))
	require.Error(t, err)
}
