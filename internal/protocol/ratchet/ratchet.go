package ratchet

import (
	"errors"
	"fmt"
	"math"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/protocol/x3dh"
	"umbra/internal/util/memzero"
)

// ErrUninitializedSession is returned for a SessionState that was not created
// by InitAsInitiator, InitAsResponder or a successful decode.
var ErrUninitializedSession = errors.New("ratchet: session is not initialized")

// Engine runs the Double Ratchet over caller-owned SessionState values under
// a fixed set of Limits. An Engine holds no session data and is safe for
// concurrent use; a single SessionState is not.
type Engine struct {
	limits Limits
}

// New returns an Engine with DefaultLimits adjusted by opts.
func New(opts ...Option) (*Engine, error) {
	l := DefaultLimits()
	for _, opt := range opts {
		if err := opt(&l); err != nil {
			return nil, err
		}
	}
	return &Engine{limits: l}, nil
}

// Limits returns the bounds the engine enforces.
func (e *Engine) Limits() Limits { return e.limits }

// InitAsInitiator builds the initiator's session from an X3DH initiation.
// The X3DH ephemeral key doubles as the first sending ratchet key, and the
// X3DH chain key seeds the first sending chain.
func InitAsInitiator(in x3dh.Initiation, localIdentity domain.X25519Public) domain.SessionState {
	return domain.SessionState{
		Version:           domain.CurrentSessionVersion,
		LocalIdentityKey:  localIdentity,
		RemoteIdentityKey: in.RemoteIdentity,
		RootKey:           in.RootKey,
		Sending: domain.SendingChain{
			RatchetPublic:  in.EphemeralPublic,
			RatchetPrivate: in.EphemeralPrivate,
			ChainKey:       in.ChainKey,
		},
		Pending: &domain.PendingPreKey{
			SignedPreKeyID:  in.SignedPreKeyID,
			OneTimePreKeyID: in.OneTimePreKeyID,
			BaseKey:         in.EphemeralPublic,
		},
		BaseKey: in.EphemeralPublic,
	}
}

// InitAsResponder builds the responder's session. The initiator's base key
// is the first remote ratchet key; the responder has no sending chain until
// its first Encrypt.
func InitAsResponder(
	s x3dh.Secrets,
	localIdentity, remoteIdentity, baseKey domain.X25519Public,
) domain.SessionState {
	return domain.SessionState{
		Version:           domain.CurrentSessionVersion,
		LocalIdentityKey:  localIdentity,
		RemoteIdentityKey: remoteIdentity,
		RootKey:           s.RootKey,
		Receiving: []domain.ReceivingChain{
			{RatchetKey: baseKey, ChainKey: s.ChainKey},
		},
		BaseKey: baseKey,
	}
}

// Encrypt derives the next sending message key and encrypts plaintext under it.
//
// It returns the advanced state; in is never modified. On error in is returned
// unchanged.
func (e *Engine) Encrypt(in domain.SessionState, plaintext []byte) (domain.SessionState, domain.RatchetMessage, error) {
	st := in.Clone()
	msg, err := e.encrypt(&st, plaintext)
	if err != nil {
		st.Wipe()
		return in, domain.RatchetMessage{}, err
	}
	return st, msg, nil
}

// Decrypt authenticates and decrypts msg.
//
// It returns the advanced state; in is never modified. On error in is returned
// unchanged so the caller can keep using it.
func (e *Engine) Decrypt(in domain.SessionState, msg domain.RatchetMessage) (domain.SessionState, []byte, error) {
	if msg.Version != domain.CurrentMessageVersion {
		return in, nil, fmt.Errorf("%w: unsupported message version %d", domain.ErrMalformedMessage, msg.Version)
	}
	if in.Version == 0 {
		return in, nil, ErrUninitializedSession
	}
	st := in.Clone()
	pt, err := e.decrypt(&st, msg)
	if err != nil {
		st.Wipe()
		return in, nil, err
	}
	// Anything decrypted proves the peer has our session; stop sending the
	// X3DH parameters.
	st.Pending = nil
	return st, pt, nil
}

func (e *Engine) encrypt(st *domain.SessionState, plaintext []byte) (domain.RatchetMessage, error) {
	if st.Version == 0 {
		return domain.RatchetMessage{}, ErrUninitializedSession
	}
	if !st.HasSendingChain() {
		if err := e.startSendingChain(st); err != nil {
			return domain.RatchetMessage{}, err
		}
	}
	if st.Sending.Index == math.MaxUint32 {
		return domain.RatchetMessage{}, fmt.Errorf("%w: sending chain exhausted", domain.ErrKeyLimitExceeded)
	}

	next, mk := chainStep(st.Sending.ChainKey)
	defer memzero.Zero(mk[:])

	msg := domain.RatchetMessage{
		Version:         domain.CurrentMessageVersion,
		RatchetKey:      st.Sending.RatchetPublic,
		Counter:         st.Sending.Index,
		PreviousCounter: st.PreviousCounter,
	}
	ct, err := sealMessage(mk, associatedData(st.LocalIdentityKey, st.RemoteIdentityKey, msg), plaintext)
	if err != nil {
		return domain.RatchetMessage{}, err
	}
	msg.Ciphertext = ct

	st.Sending.ChainKey = next
	st.Sending.Index++
	return msg, nil
}

// startSendingChain performs the sending half of a DH ratchet step for a
// responder that has not sent yet.
func (e *Engine) startSendingChain(st *domain.SessionState) error {
	if len(st.Receiving) == 0 {
		return ErrUninitializedSession
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}

	var sc memzero.Scope
	defer sc.Wipe()

	dh, err := crypto.DH(priv, st.Receiving[0].RatchetKey)
	if err != nil {
		return fmt.Errorf("ratchet: sending step: %w", err)
	}
	rk, ck, err := rootStep(st.RootKey, sc.Key(&dh))
	if err != nil {
		return err
	}
	st.RootKey = rk
	st.Sending = domain.SendingChain{RatchetPublic: pub, RatchetPrivate: priv, ChainKey: ck}
	st.PreviousCounter = 0
	return nil
}

func (e *Engine) decrypt(st *domain.SessionState, msg domain.RatchetMessage) ([]byte, error) {
	ad := associatedData(st.RemoteIdentityKey, st.LocalIdentityKey, msg)

	// A key derived earlier for an out-of-order message.
	if i := findSkipped(st.Skipped, msg.RatchetKey, msg.Counter); i >= 0 {
		mk := takeSkipped(st, i)
		defer memzero.Zero(mk[:])
		return open(mk, ad, msg)
	}

	ci := findChain(st.Receiving, msg.RatchetKey)
	if ci >= 0 && msg.Counter < st.Receiving[ci].Index {
		// Below the chain position and not cached: it was consumed already.
		return nil, fmt.Errorf("%w: counter %d on ratchet key %s",
			domain.ErrDuplicateMessage, msg.Counter, crypto.KeyID(msg.RatchetKey[:]))
	}
	if ci < 0 {
		// The sender performed a DH ratchet step.
		if err := e.receiveStep(st, msg); err != nil {
			return nil, err
		}
		ci = 0
	}

	mk, err := e.advanceTo(st, ci, msg.Counter)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(mk[:])
	return open(mk, ad, msg)
}

// receiveStep handles a new remote ratchet key: it caches what is left of the
// current receiving chain up to the sender's previous counter, derives a new
// receiving chain, archives the old one and starts a new sending chain.
func (e *Engine) receiveStep(st *domain.SessionState, msg domain.RatchetMessage) error {
	if !st.HasSendingChain() {
		// Only an initiator that already ratcheted can produce a new key before
		// we have sent anything.
		return fmt.Errorf("%w: unknown ratchet key %s", domain.ErrDecryptionFailed, crypto.KeyID(msg.RatchetKey[:]))
	}
	if len(st.Receiving) > 0 {
		if err := e.skipUntil(st, 0, msg.PreviousCounter); err != nil {
			return err
		}
	}

	var sc memzero.Scope
	defer sc.Wipe()

	dh, err := crypto.DH(st.Sending.RatchetPrivate, msg.RatchetKey)
	if err != nil {
		return fmt.Errorf("%w: ratchet key: %v", domain.ErrMalformedMessage, err)
	}
	rk, recvCK, err := rootStep(st.RootKey, sc.Key(&dh))
	if err != nil {
		return err
	}
	sc.Key((*[32]byte)(&rk))
	e.pushChain(st, domain.ReceivingChain{RatchetKey: msg.RatchetKey, ChainKey: recvCK})

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	dh2, err := crypto.DH(priv, msg.RatchetKey)
	if err != nil {
		return fmt.Errorf("%w: ratchet key: %v", domain.ErrMalformedMessage, err)
	}
	next, sendCK, err := rootStep(rk, sc.Key(&dh2))
	if err != nil {
		return err
	}

	st.PreviousCounter = st.Sending.Index
	st.Sending = domain.SendingChain{RatchetPublic: pub, RatchetPrivate: priv, ChainKey: sendCK}
	st.RootKey = next
	return nil
}

// advanceTo moves receiving chain ci past counter, caching the keys it skips,
// and returns the message key for counter.
func (e *Engine) advanceTo(st *domain.SessionState, ci int, counter uint32) (domain.SymmetricKey, error) {
	if counter == math.MaxUint32 {
		return domain.SymmetricKey{}, fmt.Errorf("%w: counter %d", domain.ErrKeyLimitExceeded, counter)
	}
	chain := &st.Receiving[ci]
	if need := uint64(counter-chain.Index) + 1; need > uint64(e.limits.MaxSkip) {
		return domain.SymmetricKey{}, fmt.Errorf("%w: %d message keys needed, limit %d",
			domain.ErrKeyLimitExceeded, need, e.limits.MaxSkip)
	}
	if err := e.skipUntil(st, ci, counter); err != nil {
		return domain.SymmetricKey{}, err
	}
	next, mk := chainStep(chain.ChainKey)
	chain.ChainKey = next
	chain.Index++
	return mk, nil
}

// skipUntil derives every message key of receiving chain ci below until and
// caches it. At most MaxSkip keys are derived.
func (e *Engine) skipUntil(st *domain.SessionState, ci int, until uint32) error {
	chain := &st.Receiving[ci]
	if until <= chain.Index {
		return nil
	}
	if gap := uint64(until - chain.Index); gap > uint64(e.limits.MaxSkip) {
		return fmt.Errorf("%w: %d message keys needed, limit %d", domain.ErrKeyLimitExceeded, gap, e.limits.MaxSkip)
	}
	for chain.Index < until {
		next, mk := chainStep(chain.ChainKey)
		e.cacheSkipped(st, domain.SkippedKey{RatchetKey: chain.RatchetKey, Counter: chain.Index, MessageKey: mk})
		chain.ChainKey = next
		chain.Index++
	}
	return nil
}

func open(mk domain.SymmetricKey, ad []byte, msg domain.RatchetMessage) ([]byte, error) {
	pt, err := openMessage(mk, ad, msg.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: counter %d", domain.ErrDecryptionFailed, msg.Counter)
	}
	return pt, nil
}
