package x3dh

import (
	"bytes"
	"fmt"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/util/memzero"
)

var (
	kdfInfo = []byte("umbra-x3dh")
	// Prepended to the DH transcript so its first 32 bytes never form a
	// valid curve point encoding shared with other protocols.
	kdfPad = bytes.Repeat([]byte{0xFF}, 32)
)

// Secrets is the output of the agreement: the initial root key and chain key.
type Secrets struct {
	RootKey  domain.SymmetricKey
	ChainKey domain.SymmetricKey
}

// Wipe zeroes both keys.
func (s *Secrets) Wipe() {
	memzero.Zero(s.RootKey[:])
	memzero.Zero(s.ChainKey[:])
}

// Initiation is what the initiator keeps after running the agreement.
type Initiation struct {
	Secrets
	EphemeralPrivate domain.X25519Private
	EphemeralPublic  domain.X25519Public
	SignedPreKeyID   domain.SignedPreKeyID
	OneTimePreKeyID  domain.OneTimePreKeyID
	RemoteIdentity   domain.X25519Public
}

// Wipe zeroes the secrets and the ephemeral private key.
func (in *Initiation) Wipe() {
	in.Secrets.Wipe()
	memzero.Zero(in.EphemeralPrivate[:])
}

// InitiatorRoot runs X3DH against bundle on behalf of local.
//
// The signed pre-key signature is checked with the bundle's signing key before
// any secret is computed. The bundle's one-time pre-key is used when present.
func InitiatorRoot(local domain.Identity, bundle domain.PreKeyBundle) (Initiation, error) {
	if err := VerifySignedPreKey(bundle.SigningKey, bundle.SignedPreKey, bundle.SignedPreKeySignature); err != nil {
		return Initiation{}, err
	}

	ephPriv, ephPub, err := crypto.GenerateX25519()
	if err != nil {
		return Initiation{}, err
	}

	var sc memzero.Scope
	defer sc.Wipe()
	// The returned Initiation holds its own copy.
	sc.Key((*[32]byte)(&ephPriv))

	dh1, err := crypto.DH(local.XPriv, bundle.SignedPreKey) // DH(IKA, SPKB)
	if err != nil {
		return Initiation{}, fmt.Errorf("x3dh: dh1: %w", err)
	}
	sc.Key(&dh1)
	dh2, err := crypto.DH(ephPriv, bundle.IdentityKey) // DH(EKA, IKB)
	if err != nil {
		return Initiation{}, fmt.Errorf("x3dh: dh2: %w", err)
	}
	sc.Key(&dh2)
	dh3, err := crypto.DH(ephPriv, bundle.SignedPreKey) // DH(EKA, SPKB)
	if err != nil {
		return Initiation{}, fmt.Errorf("x3dh: dh3: %w", err)
	}
	sc.Key(&dh3)

	transcript := make([]byte, 0, 32*5)
	transcript = append(transcript, kdfPad...)
	transcript = append(transcript, dh1[:]...)
	transcript = append(transcript, dh2[:]...)
	transcript = append(transcript, dh3[:]...)

	var opkID domain.OneTimePreKeyID
	if bundle.OneTimePreKey != nil {
		dh4, err := crypto.DH(ephPriv, bundle.OneTimePreKey.Pub) // DH(EKA, OPKB)
		if err != nil {
			return Initiation{}, fmt.Errorf("x3dh: dh4: %w", err)
		}
		sc.Key(&dh4)
		transcript = append(transcript, dh4[:]...)
		opkID = bundle.OneTimePreKey.ID
	}

	secrets, err := derive(sc.Track(transcript))
	if err != nil {
		return Initiation{}, err
	}
	return Initiation{
		Secrets:          secrets,
		EphemeralPrivate: ephPriv,
		EphemeralPublic:  ephPub,
		SignedPreKeyID:   bundle.SignedPreKeyID,
		OneTimePreKeyID:  opkID,
		RemoteIdentity:   bundle.IdentityKey,
	}, nil
}

// ResponderRoot recomputes the initiator's secrets from the responder's side.
//
// oneTime must be non-nil exactly when the initiator used a one-time pre-key.
func ResponderRoot(
	local domain.Identity,
	signedPreKey domain.X25519Private,
	oneTime *domain.X25519Private,
	initiatorIdentity domain.X25519Public,
	baseKey domain.X25519Public,
) (Secrets, error) {
	var sc memzero.Scope
	defer sc.Wipe()

	dh1, err := crypto.DH(signedPreKey, initiatorIdentity) // DH(SPKB, IKA)
	if err != nil {
		return Secrets{}, fmt.Errorf("x3dh: dh1: %w", err)
	}
	sc.Key(&dh1)
	dh2, err := crypto.DH(local.XPriv, baseKey) // DH(IKB, EKA)
	if err != nil {
		return Secrets{}, fmt.Errorf("x3dh: dh2: %w", err)
	}
	sc.Key(&dh2)
	dh3, err := crypto.DH(signedPreKey, baseKey) // DH(SPKB, EKA)
	if err != nil {
		return Secrets{}, fmt.Errorf("x3dh: dh3: %w", err)
	}
	sc.Key(&dh3)

	transcript := make([]byte, 0, 32*5)
	transcript = append(transcript, kdfPad...)
	transcript = append(transcript, dh1[:]...)
	transcript = append(transcript, dh2[:]...)
	transcript = append(transcript, dh3[:]...)

	if oneTime != nil {
		dh4, err := crypto.DH(*oneTime, baseKey) // DH(OPKB, EKA)
		if err != nil {
			return Secrets{}, fmt.Errorf("x3dh: dh4: %w", err)
		}
		sc.Key(&dh4)
		transcript = append(transcript, dh4[:]...)
	}
	return derive(sc.Track(transcript))
}

// VerifySignedPreKey checks the signed pre-key signature.
func VerifySignedPreKey(signingKey domain.Ed25519Public, spk domain.X25519Public, sig []byte) error {
	if !crypto.VerifyEd25519(signingKey, spk.Slice(), sig) {
		return fmt.Errorf("%w: signed pre-key", domain.ErrInvalidSignature)
	}
	return nil
}

func derive(transcript []byte) (Secrets, error) {
	var s Secrets
	salt := make([]byte, 32)
	if err := crypto.HKDF(transcript, salt, kdfInfo, s.RootKey[:], s.ChainKey[:]); err != nil {
		return Secrets{}, err
	}
	return s, nil
}
