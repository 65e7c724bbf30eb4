package codec_test

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/codec"
)

func key(b byte) [32]byte {
	var k [32]byte
	for i := range k {
		k[i] = b + byte(i)
	}
	return k
}

func sampleMessage() domain.RatchetMessage {
	return domain.RatchetMessage{
		Version:         domain.CurrentMessageVersion,
		RatchetKey:      key(1),
		Counter:         7,
		PreviousCounter: 3,
		Ciphertext:      []byte("0123456789abcdef-ciphertext"),
	}
}

func sampleState() domain.SessionState {
	return domain.SessionState{
		Version:           domain.CurrentSessionVersion,
		LocalIdentityKey:  key(1),
		RemoteIdentityKey: key(2),
		RootKey:           key(3),
		Sending: domain.SendingChain{
			RatchetPublic: key(4), RatchetPrivate: key(5), ChainKey: key(6), Index: 9,
		},
		Receiving: []domain.ReceivingChain{
			{RatchetKey: key(7), ChainKey: key(8), Index: 2},
			{RatchetKey: key(9), ChainKey: key(10), Index: 40},
		},
		PreviousCounter: 4,
		Skipped: []domain.SkippedKey{
			{RatchetKey: key(9), Counter: 38, MessageKey: key(11)},
			{RatchetKey: key(7), Counter: 0, MessageKey: key(12)},
		},
		Pending: &domain.PendingPreKey{SignedPreKeyID: "spk", OneTimePreKeyID: "opk", BaseKey: key(13)},
		BaseKey: key(13),
	}
}

func sampleCertificate() domain.SenderCertificate {
	return domain.SenderCertificate{
		Sender:      domain.Address{UUID: uuid.MustParse("9f6c2a4e-3c1b-4b8e-9a57-2d1f0e7c6b5a"), DeviceID: 2},
		IdentityKey: key(20),
		Expires:     31337,
		Signer: domain.ServerCertificate{
			KeyID: 1, Key: key(21), Signature: []byte("server-signature"),
		},
		Signature: []byte("sender-signature"),
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	m := sampleMessage()
	b, err := codec.EncodeMessage(m)
	require.NoError(t, err)
	require.Equal(t, byte(0x33), b[0])

	got, err := codec.DecodeMessage(b)
	require.NoError(t, err)
	require.Equal(t, m, got)

	again, err := codec.EncodeMessage(got)
	require.NoError(t, err)
	require.Equal(t, b, again)
}

func TestPreKeyMessage_RoundTrip(t *testing.T) {
	for _, opk := range []domain.OneTimePreKeyID{"", "opk-1"} {
		m := domain.PreKeyMessage{
			IdentityKey:     key(1),
			BaseKey:         key(2),
			SignedPreKeyID:  "spk-1",
			OneTimePreKeyID: opk,
			Message:         sampleMessage(),
		}
		b, err := codec.EncodePreKeyMessage(m)
		require.NoError(t, err)

		got, err := codec.DecodePreKeyMessage(b)
		require.NoError(t, err)
		require.Equal(t, m, got)

		// The two message shapes never decode as each other.
		_, err = codec.DecodeMessage(b)
		require.ErrorIs(t, err, domain.ErrMalformedMessage)
	}
}

func TestDecodeMessage_Malformed(t *testing.T) {
	good, err := codec.EncodeMessage(sampleMessage())
	require.NoError(t, err)

	shortKey, err := cbor.Marshal([]any{[]byte{1, 2, 3}, 1, 0, make([]byte, 32)})
	require.NoError(t, err)
	// A map with the same content is not the canonical array form.
	asMap, err := cbor.Marshal(map[string]any{"n": 1})
	require.NoError(t, err)
	// 0x18 0x07 is a non-minimal encoding of the integer 7.
	nonMinimal := append([]byte{0x33, 0x84, 0x58, 0x20}, make([]byte, 32)...)
	nonMinimal = append(nonMinimal, 0x18, 0x07, 0x00, 0x50)
	nonMinimal = append(nonMinimal, make([]byte, 16)...)

	for name, data := range map[string][]byte{
		"empty":           nil,
		"unknown version": append([]byte{0x22}, good[1:]...),
		"trailing bytes":  append(append([]byte(nil), good...), 0x00),
		"truncated":       good[:len(good)-1],
		"short key":       append([]byte{0x33}, shortKey...),
		"wrong shape":     append([]byte{0x33}, asMap...),
		"non-minimal int": nonMinimal,
		"version only":    {0x33},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.DecodeMessage(data)
			require.ErrorIs(t, err, domain.ErrMalformedMessage)
		})
	}
}

func TestEncodeMessage_RejectsOtherVersions(t *testing.T) {
	m := sampleMessage()
	m.Version = 2
	_, err := codec.EncodeMessage(m)
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestSessionState_RoundTrip(t *testing.T) {
	for name, st := range map[string]domain.SessionState{
		"full": sampleState(),
		"responder before first send": {
			Version:           domain.CurrentSessionVersion,
			LocalIdentityKey:  key(1),
			RemoteIdentityKey: key(2),
			RootKey:           key(3),
			Receiving:         []domain.ReceivingChain{{RatchetKey: key(4), ChainKey: key(5)}},
			BaseKey:           key(4),
		},
	} {
		t.Run(name, func(t *testing.T) {
			b, err := codec.EncodeSessionState(st)
			require.NoError(t, err)

			got, err := codec.DecodeSessionState(b)
			require.NoError(t, err)
			require.Equal(t, st.RootKey, got.RootKey)
			require.Equal(t, st.Sending, got.Sending)
			require.Equal(t, st.Receiving, got.Receiving)
			require.Equal(t, st.Pending, got.Pending)
			require.Equal(t, len(st.Skipped), len(got.Skipped))
			for i := range st.Skipped {
				require.Equal(t, st.Skipped[i], got.Skipped[i])
			}

			again, err := codec.EncodeSessionState(got)
			require.NoError(t, err)
			require.Equal(t, b, again)
		})
	}
}

func TestDecodeSessionState_Rejects(t *testing.T) {
	good, err := codec.EncodeSessionState(sampleState())
	require.NoError(t, err)

	st := sampleState()
	st.Version = 99
	future, err := codec.EncodeSessionState(st)
	require.NoError(t, err)

	for name, data := range map[string][]byte{
		"unknown format":  append([]byte{0x07}, good[1:]...),
		"trailing bytes":  append(append([]byte(nil), good...), 0x80),
		"session version": future,
		"legacy garbage":  []byte("\x01{not json"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := codec.DecodeSessionState(data)
			require.ErrorIs(t, err, domain.ErrMalformedMessage)
		})
	}
}

func TestDecodeSessionState_LegacyJSON(t *testing.T) {
	b64 := func(b byte) string { k := key(b); return crypto.B64(k[:]) }
	snap := map[string]any{
		"localIdentity":  b64(1),
		"remoteIdentity": b64(2),
		"rootKey":        b64(3),
		"sendChain":      map[string]any{"key": b64(4), "index": 5},
		"recvChain":      map[string]any{"key": b64(6), "index": 2},
		"ratchetPrivate": b64(7),
		"ratchetPublic":  b64(8),
		"remoteRatchet":  b64(9),
		"pn":             3,
		"baseKey":        b64(10),
		"skipped": map[string]string{
			b64(9) + ":1": b64(11),
			b64(9) + ":0": b64(12),
		},
	}
	doc, err := json.Marshal(snap)
	require.NoError(t, err)

	st, err := codec.DecodeSessionState(append([]byte{0x01}, doc...))
	require.NoError(t, err)
	require.Equal(t, domain.CurrentSessionVersion, st.Version)
	require.Equal(t, domain.SymmetricKey(key(3)), st.RootKey)
	require.Equal(t, uint32(5), st.Sending.Index)
	require.Equal(t, domain.X25519Private(key(7)), st.Sending.RatchetPrivate)
	require.Equal(t, []domain.ReceivingChain{
		{RatchetKey: key(9), ChainKey: key(6), Index: 2},
	}, st.Receiving)
	require.Equal(t, uint32(3), st.PreviousCounter)
	require.Len(t, st.Skipped, 2)
	require.Equal(t, uint32(0), st.Skipped[0].Counter)
	require.Equal(t, domain.SymmetricKey(key(12)), st.Skipped[0].MessageKey)
	require.Nil(t, st.Pending)

	// Re-encoding upgrades to the current format.
	b, err := codec.EncodeSessionState(st)
	require.NoError(t, err)
	require.Equal(t, byte(0x02), b[0])

	// Unknown fields are not silently dropped.
	snap["extra"] = true
	doc, err = json.Marshal(snap)
	require.NoError(t, err)
	_, err = codec.DecodeSessionState(append([]byte{0x01}, doc...))
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
}

func TestSenderCertificate_RoundTrip(t *testing.T) {
	c := sampleCertificate()
	b, err := codec.EncodeSenderCertificate(c)
	require.NoError(t, err)

	got, err := codec.DecodeSenderCertificate(b)
	require.NoError(t, err)
	require.Equal(t, c, got)

	sb, err := codec.EncodeServerCertificate(c.Signer)
	require.NoError(t, err)
	server, err := codec.DecodeServerCertificate(sb)
	require.NoError(t, err)
	require.Equal(t, c.Signer, server)
}

func TestCertificateBodies_CoverEveryField(t *testing.T) {
	base := sampleCertificate()
	body, err := codec.SenderCertificateBody(base)
	require.NoError(t, err)

	// The signature itself is not part of the body.
	c := base
	c.Signature = []byte("other")
	same, err := codec.SenderCertificateBody(c)
	require.NoError(t, err)
	require.Equal(t, body, same)

	for name, mutate := range map[string]func(*domain.SenderCertificate){
		"sender":           func(c *domain.SenderCertificate) { c.Sender.DeviceID++ },
		"identity key":     func(c *domain.SenderCertificate) { c.IdentityKey[0] ^= 1 },
		"expires":          func(c *domain.SenderCertificate) { c.Expires++ },
		"signer key id":    func(c *domain.SenderCertificate) { c.Signer.KeyID++ },
		"signer signature": func(c *domain.SenderCertificate) { c.Signer.Signature = []byte("x") },
	} {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			other, err := codec.SenderCertificateBody(c)
			require.NoError(t, err)
			require.NotEqual(t, body, other)
		})
	}

	s1, err := codec.ServerCertificateBody(base.Signer)
	require.NoError(t, err)
	srv := base.Signer
	srv.Key[0] ^= 1
	s2, err := codec.ServerCertificateBody(srv)
	require.NoError(t, err)
	require.NotEqual(t, s1, s2)
}

func TestEnvelopeAndContent_RoundTrip(t *testing.T) {
	env := domain.SealedEnvelope{
		Version:          domain.CurrentSealedVersion,
		EphemeralKey:     key(1),
		EncryptedStatic:  []byte("static"),
		EncryptedMessage: []byte("message"),
	}
	b, err := codec.EncodeEnvelope(env)
	require.NoError(t, err)
	require.Equal(t, byte(0x11), b[0])
	got, err := codec.DecodeEnvelope(b)
	require.NoError(t, err)
	require.Equal(t, env, got)

	content := domain.SealedContent{
		Type:        domain.MessageTypePreKey,
		Certificate: sampleCertificate(),
		Content:     []byte("inner"),
	}
	cb, err := codec.EncodeContent(content)
	require.NoError(t, err)
	gotContent, err := codec.DecodeContent(cb)
	require.NoError(t, err)
	require.Equal(t, content, gotContent)

	content.Type = 9
	_, err = codec.EncodeContent(content)
	require.ErrorIs(t, err, domain.ErrMalformedMessage)

	_, err = codec.DecodeEnvelope(append([]byte{0x22}, b[1:]...))
	require.ErrorIs(t, err, domain.ErrMalformedMessage)
}
