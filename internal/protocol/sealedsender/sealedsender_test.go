package sealedsender_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/certificate"
	"umbra/internal/protocol/codec"
	"umbra/internal/protocol/sealedsender"
)

const expires = 31337

type fixture struct {
	alice, bob domain.Identity
	validator  *certificate.Validator
	cert       domain.SenderCertificate
	serverPriv domain.Ed25519Private
	server     domain.ServerCertificate
}

func makeIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	require.NoError(t, err)
	edPriv, edPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	return domain.Identity{
		Address: domain.Address{UUID: uuid.New(), DeviceID: 1},
		XPub:    xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv,
	}
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	rootPriv, rootPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	serverPriv, serverPub, err := crypto.GenerateEd25519()
	require.NoError(t, err)
	server, err := certificate.IssueServerCertificate(rootPriv, 1, serverPub)
	require.NoError(t, err)

	f := fixture{
		alice:     makeIdentity(t),
		bob:       makeIdentity(t),
		validator:  certificate.NewValidator(rootPub),
		serverPriv: serverPriv,
		server:     server,
	}
	f.cert, err = certificate.IssueSenderCertificate(serverPriv, server, f.alice.Address, f.alice.XPub, time.UnixMilli(expires))
	require.NoError(t, err)
	return f
}

func (f fixture) content(inner string) domain.SealedContent {
	return domain.SealedContent{
		Type:        domain.MessageTypeWhisper,
		Certificate: f.cert,
		Content:     []byte(inner),
	}
}

func TestSealUnseal_RoundTrip(t *testing.T) {
	f := newFixture(t)

	env, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("hello"))
	require.NoError(t, err)

	got, err := sealedsender.Unseal(f.bob, env, f.validator, time.UnixMilli(31336))
	require.NoError(t, err)
	require.Equal(t, f.alice.Address, got.Certificate.Sender)
	require.Equal(t, f.alice.XPub, got.Certificate.IdentityKey)
	require.Equal(t, domain.MessageTypeWhisper, got.Type)
	require.Equal(t, []byte("hello"), got.Content)
}

func TestSeal_FreshEphemeralKey(t *testing.T) {
	f := newFixture(t)
	a, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("same"))
	require.NoError(t, err)
	b, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("same"))
	require.NoError(t, err)

	ea, err := codec.DecodeEnvelope(a)
	require.NoError(t, err)
	eb, err := codec.DecodeEnvelope(b)
	require.NoError(t, err)
	require.NotEqual(t, ea.EphemeralKey, eb.EphemeralKey)
	require.NotEqual(t, ea.EncryptedStatic, eb.EncryptedStatic)
}

func TestSeal_RejectsForeignCertificate(t *testing.T) {
	f := newFixture(t)
	mallory := makeIdentity(t)

	_, err := sealedsender.Seal(mallory, f.bob.XPub, f.content("x"))
	require.ErrorIs(t, err, sealedsender.ErrCertificateMismatch)
}

func TestUnseal_ExpiredCertificate(t *testing.T) {
	f := newFixture(t)
	env, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("late"))
	require.NoError(t, err)

	_, err = sealedsender.Unseal(f.bob, env, f.validator, time.UnixMilli(31338))
	require.ErrorIs(t, err, domain.ErrUntrustedSender)
	require.ErrorIs(t, err, domain.ErrExpiredCertificate)

	var known *domain.KnownSenderError
	require.True(t, errors.As(err, &known))
	require.Equal(t, f.alice.Address, known.Sender)
}

func TestUnseal_SelfSendDroppedBeforeValidation(t *testing.T) {
	f := newFixture(t)
	own, err := certificate.IssueSenderCertificate(f.serverPriv, f.server, f.bob.Address, f.bob.XPub, time.UnixMilli(expires))
	require.NoError(t, err)
	env, err := sealedsender.Seal(f.bob, f.bob.XPub, domain.SealedContent{
		Type:        domain.MessageTypeWhisper,
		Certificate: own,
		Content:     []byte("note to self"),
	})
	require.NoError(t, err)

	// Expired, but the self-send check comes first.
	_, err = sealedsender.Unseal(f.bob, env, f.validator, time.UnixMilli(expires+1))
	require.ErrorIs(t, err, domain.ErrSelfSend)
	require.NotErrorIs(t, err, domain.ErrUntrustedSender)
}

func TestUnseal_UntrustedRoot(t *testing.T) {
	f := newFixture(t)
	_, otherRoot, err := crypto.GenerateEd25519()
	require.NoError(t, err)

	env, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("x"))
	require.NoError(t, err)

	_, err = sealedsender.Unseal(f.bob, env, certificate.NewValidator(otherRoot), time.UnixMilli(0))
	require.ErrorIs(t, err, domain.ErrUntrustedSender)
	require.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestUnseal_WrongRecipient(t *testing.T) {
	f := newFixture(t)
	carol := makeIdentity(t)

	env, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("x"))
	require.NoError(t, err)

	_, err = sealedsender.Unseal(carol, env, f.validator, time.UnixMilli(0))
	require.ErrorIs(t, err, domain.ErrDecryptionFailed)
}

func TestUnseal_Tampered(t *testing.T) {
	f := newFixture(t)
	raw, err := sealedsender.Seal(f.alice, f.bob.XPub, f.content("payload"))
	require.NoError(t, err)
	env, err := codec.DecodeEnvelope(raw)
	require.NoError(t, err)

	unseal := func(e domain.SealedEnvelope) error {
		b, err := codec.EncodeEnvelope(e)
		require.NoError(t, err)
		_, err = sealedsender.Unseal(f.bob, b, f.validator, time.UnixMilli(0))
		return err
	}

	t.Run("ephemeral key", func(t *testing.T) {
		e := env
		e.EphemeralKey[5] ^= 1
		require.ErrorIs(t, unseal(e), domain.ErrDecryptionFailed)
	})

	for _, field := range []struct {
		name string
		get  func(*domain.SealedEnvelope) *[]byte
	}{
		{"encrypted static", func(e *domain.SealedEnvelope) *[]byte { return &e.EncryptedStatic }},
		{"encrypted message", func(e *domain.SealedEnvelope) *[]byte { return &e.EncryptedMessage }},
	} {
		t.Run(field.name, func(t *testing.T) {
			orig := *field.get(&env)
			for i := range len(orig) * 8 {
				e := env
				flipped := append([]byte(nil), orig...)
				flipped[i/8] ^= 1 << (i % 8)
				*field.get(&e) = flipped
				require.ErrorIs(t, unseal(e), domain.ErrDecryptionFailed, fmt.Sprintf("bit %d", i))
			}
		})
	}

	_, err = sealedsender.Unseal(f.bob, raw[:len(raw)-3], f.validator, time.UnixMilli(0))
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
}
