package sealedsender

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/certificate"
)

func identity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	return domain.Identity{Address: domain.Address{UUID: uuid.New(), DeviceID: 1}, XPub: xPub, XPriv: xPriv}
}

// A sender holding someone else's valid certificate gets through both
// layers with its own key but is rejected on the key comparison.
func TestUnseal_CertificateKeyMismatch(t *testing.T) {
	rootPriv, rootPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	serverPriv, serverPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	server, err := certificate.IssueServerCertificate(rootPriv, 1, serverPub)
	require.NoError(t, err)

	alice, bob, mallory := identity(t), identity(t), identity(t)
	aliceCert, err := certificate.IssueSenderCertificate(serverPriv, server, alice.Address, alice.XPub, time.UnixMilli(5000))
	require.NoError(t, err)

	env, err := seal(mallory, bob.XPub, domain.SealedContent{
		Type:        domain.MessageTypeWhisper,
		Certificate: aliceCert,
		Content:     []byte("spoofed"),
	})
	require.NoError(t, err)

	_, err = Unseal(bob, env, certificate.NewValidator(rootPub), time.UnixMilli(0))
	require.ErrorIs(t, err, domain.ErrUntrustedSender)
	require.NotErrorIs(t, err, domain.ErrInvalidSignature)

	var known *domain.KnownSenderError
	require.True(t, errors.As(err, &known))
	require.Equal(t, alice.Address, known.Sender)
}
