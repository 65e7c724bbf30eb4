package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"umbra/internal/crypto"
	"umbra/internal/domain"
	"umbra/internal/observability/metrics"
	"umbra/internal/protocol/codec"
	"umbra/internal/protocol/ratchet"
	"umbra/internal/protocol/x3dh"
	"umbra/internal/util/memzero"
)

// Service runs the ratchet engine against persisted sessions.
//
// Each call is one load-modify-store cycle inside Transactor.InTx. When the
// store fails the call returns domain.ErrStorageFailure and nothing the cycle
// wrote is kept, so the stored session is still the one the next call sees.
type Service struct {
	tx      domain.Transactor
	engine  *ratchet.Engine
	metrics *metrics.Metrics
	log     *slog.Logger
	locks   *keyedMutex
}

// New returns a session service. m may be shared with other services but must
// not be nil.
func New(tx domain.Transactor, engine *ratchet.Engine, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{
		tx:      tx,
		engine:  engine,
		metrics: m,
		log:     log,
		locks:   newKeyedMutex(),
	}
}

// InitiateSession runs X3DH against bundle and stores the resulting session
// under the bundle's address, replacing any previous one. Messages encrypted
// on it are prekey messages until the peer replies.
func (s *Service) InitiateSession(ctx context.Context, bundle domain.PreKeyBundle) (err error) {
	defer s.metrics.Since("initiate", time.Now())
	unlock := s.locks.lock(bundle.Address)
	defer unlock()

	err = s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
		local, err := st.Identities.LocalIdentity(ctx)
		if err != nil {
			return storageFailure(err)
		}
		defer local.Wipe()

		ini, err := x3dh.InitiatorRoot(local, bundle)
		if err != nil {
			return err
		}
		defer ini.Wipe()

		next := ratchet.InitAsInitiator(ini, local.XPub)
		defer next.Wipe()

		if err := st.Identities.SaveRemoteIdentity(ctx, bundle.Address, bundle.IdentityKey); err != nil {
			return storageFailure(err)
		}
		if err := st.Sessions.StoreSession(ctx, bundle.Address, next); err != nil {
			return storageFailure(err)
		}
		return nil
	})

	attrs := []any{
		slog.String("session", bundle.Address.String()),
		slog.String("key_id", crypto.KeyID(bundle.IdentityKey.Slice()).String()),
	}
	if err != nil {
		s.log.WarnContext(ctx, "session initiation failed",
			append(attrs, slog.String("error_kind", domain.ErrorKind(err)))...)
		return err
	}
	s.log.InfoContext(ctx, "session initiated", attrs...)
	return nil
}

// HasSession reports whether a session with peer is stored.
func (s *Service) HasSession(ctx context.Context, peer domain.Address) (bool, error) {
	unlock := s.locks.lock(peer)
	defer unlock()

	var found bool
	err := s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
		cur, err := st.Sessions.LoadSession(ctx, peer)
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return storageFailure(err)
		}
		cur.Wipe()
		found = true
		return nil
	})
	return found, err
}

// DeleteSession removes the session with peer. It returns domain.ErrNoSession
// if there is none.
func (s *Service) DeleteSession(ctx context.Context, peer domain.Address) error {
	unlock := s.locks.lock(peer)
	defer unlock()

	err := s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
		cur, err := load(ctx, st, peer)
		if err != nil {
			return err
		}
		cur.Wipe()
		if err := st.Sessions.DeleteSession(ctx, peer); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "session deleted", slog.String("session", peer.String()))
	return nil
}

// Encrypt encrypts plaintext for peer. While the peer has not replied to a
// session this device initiated, the result is a prekey message.
func (s *Service) Encrypt(
	ctx context.Context,
	peer domain.Address,
	plaintext []byte,
) (out domain.CiphertextMessage, err error) {
	err = s.EncryptWith(ctx, peer, plaintext, func(ct domain.CiphertextMessage) error {
		out = ct
		return nil
	})
	if err != nil {
		return domain.CiphertextMessage{}, err
	}
	return out, nil
}

// EncryptWith is Encrypt that hands the message to use before the advanced
// session is stored. If use fails nothing is stored and its error is
// returned, so the message key is not spent. use may be called again if the
// store reruns the unit; only the last call matches the stored session.
func (s *Service) EncryptWith(
	ctx context.Context,
	peer domain.Address,
	plaintext []byte,
	use func(domain.CiphertextMessage) error,
) (err error) {
	defer s.observe("encrypt", time.Now(), &err)
	unlock := s.locks.lock(peer)
	defer unlock()

	var typ domain.MessageType
	err = s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
		cur, err := load(ctx, st, peer)
		if err != nil {
			return err
		}
		defer cur.Wipe()

		next, msg, err := s.engine.Encrypt(cur, plaintext)
		if err != nil {
			return err
		}
		defer next.Wipe()

		ct, err := wrap(next, msg)
		if err != nil {
			return err
		}
		if err := use(ct); err != nil {
			return err
		}
		typ = ct.Type
		if err := st.Sessions.StoreSession(ctx, peer, next); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		s.log.WarnContext(ctx, "encrypt failed",
			slog.String("session", peer.String()),
			slog.String("error_kind", domain.ErrorKind(err)),
		)
		return err
	}
	s.log.DebugContext(ctx, "message encrypted",
		slog.String("session", peer.String()),
		slog.String("type", typ.String()),
	)
	return nil
}

// Decrypt decrypts msg from peer. A prekey message for which no matching
// session exists creates one, consuming the referenced one-time pre-key.
func (s *Service) Decrypt(
	ctx context.Context,
	peer domain.Address,
	msg domain.CiphertextMessage,
) ([]byte, error) {
	return s.decrypt(ctx, peer, nil, msg)
}

// DecryptFrom is Decrypt that additionally requires the session's remote
// identity key to equal identity. A mismatch returns domain.ErrUntrustedSender
// and leaves the stored session untouched.
func (s *Service) DecryptFrom(
	ctx context.Context,
	peer domain.Address,
	identity domain.X25519Public,
	msg domain.CiphertextMessage,
) ([]byte, error) {
	return s.decrypt(ctx, peer, &identity, msg)
}

func (s *Service) decrypt(
	ctx context.Context,
	peer domain.Address,
	identity *domain.X25519Public,
	msg domain.CiphertextMessage,
) (pt []byte, err error) {
	defer s.observe("decrypt", time.Now(), &err)
	unlock := s.locks.lock(peer)
	defer unlock()

	switch msg.Type {
	case domain.MessageTypeWhisper:
		var rm domain.RatchetMessage
		if rm, err = codec.DecodeMessage(msg.Bytes); err != nil {
			break
		}
		err = s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
			memzero.Zero(pt)
			cur, err := load(ctx, st, peer)
			if err != nil {
				return err
			}
			defer cur.Wipe()
			if err := checkIdentity(cur.RemoteIdentityKey, identity); err != nil {
				return err
			}
			pt, err = s.advance(ctx, st, peer, cur, rm)
			return err
		})
	case domain.MessageTypePreKey:
		var pm domain.PreKeyMessage
		if pm, err = codec.DecodePreKeyMessage(msg.Bytes); err != nil {
			break
		}
		err = s.inTx(ctx, func(ctx context.Context, st domain.Stores) error {
			memzero.Zero(pt)
			var err error
			pt, err = s.decryptPreKey(ctx, st, peer, identity, pm)
			return err
		})
	default:
		err = fmt.Errorf("%w: unknown message type %d", domain.ErrMalformedMessage, msg.Type)
	}

	if err != nil {
		s.log.WarnContext(ctx, "decrypt failed",
			slog.String("session", peer.String()),
			slog.String("type", msg.Type.String()),
			slog.String("error_kind", domain.ErrorKind(err)),
		)
		return nil, err
	}
	s.log.DebugContext(ctx, "message decrypted",
		slog.String("session", peer.String()),
		slog.String("type", msg.Type.String()),
	)
	return pt, nil
}

// decryptPreKey decrypts a prekey message. A session created from the same
// base key is reused so repeated prekey messages decrypt normally; otherwise
// the responder side of X3DH builds a new session which replaces the stored
// one only if the message authenticates and the sender's identity key is the
// one already recorded for peer, if any.
func (s *Service) decryptPreKey(
	ctx context.Context,
	st domain.Stores,
	peer domain.Address,
	identity *domain.X25519Public,
	m domain.PreKeyMessage,
) ([]byte, error) {
	if err := checkIdentity(m.IdentityKey, identity); err != nil {
		return nil, err
	}

	cur, err := st.Sessions.LoadSession(ctx, peer)
	switch {
	case err == nil:
		defer cur.Wipe()
		if cur.BaseKey == m.BaseKey && cur.RemoteIdentityKey == m.IdentityKey {
			return s.advance(ctx, st, peer, cur, m.Message)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, storageFailure(err)
	}

	// An incoming message never changes the identity key recorded for peer.
	known, err := st.Identities.RemoteIdentity(ctx, peer)
	switch {
	case err == nil:
		if known != m.IdentityKey {
			return nil, fmt.Errorf("%w: identity key of %s changed", domain.ErrUntrustedSender, peer)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, storageFailure(err)
	}

	local, err := st.Identities.LocalIdentity(ctx)
	if err != nil {
		return nil, storageFailure(err)
	}
	defer local.Wipe()

	spk, err := st.PreKeys.LoadSignedPreKey(ctx, m.SignedPreKeyID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown signed pre-key %s", domain.ErrDecryptionFailed, m.SignedPreKeyID)
	}
	if err != nil {
		return nil, storageFailure(err)
	}
	defer memzero.Zero(spk.Priv[:])

	var opk *domain.X25519Private
	if m.OneTimePreKeyID != "" {
		pair, err := st.PreKeys.LoadOneTimePreKey(ctx, m.OneTimePreKeyID)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown or used one-time pre-key %s",
				domain.ErrDecryptionFailed, m.OneTimePreKeyID)
		}
		if err != nil {
			return nil, storageFailure(err)
		}
		defer memzero.Zero(pair.Priv[:])
		opk = &pair.Priv
	}

	secrets, err := x3dh.ResponderRoot(local, spk.Priv, opk, m.IdentityKey, m.BaseKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecryptionFailed, err)
	}
	defer secrets.Wipe()

	fresh := ratchet.InitAsResponder(secrets, local.XPub, m.IdentityKey, m.BaseKey)
	defer fresh.Wipe()

	next, pt, err := s.engine.Decrypt(fresh, m.Message)
	if err != nil {
		return nil, err
	}
	defer next.Wipe()

	if opk != nil {
		if err := st.PreKeys.ConsumeOneTimePreKey(ctx, m.OneTimePreKeyID); err != nil {
			return nil, storageFailure(err)
		}
	}
	if err := st.Identities.SaveRemoteIdentity(ctx, peer, m.IdentityKey); err != nil {
		return nil, storageFailure(err)
	}
	if err := st.Sessions.StoreSession(ctx, peer, next); err != nil {
		return nil, storageFailure(err)
	}

	s.log.InfoContext(ctx, "session accepted",
		slog.String("session", peer.String()),
		slog.String("key_id", crypto.KeyID(m.IdentityKey.Slice()).String()),
	)
	return pt, nil
}

// advance decrypts msg on cur and stores the advanced state.
func (s *Service) advance(
	ctx context.Context,
	st domain.Stores,
	peer domain.Address,
	cur domain.SessionState,
	msg domain.RatchetMessage,
) ([]byte, error) {
	next, pt, err := s.engine.Decrypt(cur, msg)
	if err != nil {
		return nil, err
	}
	defer next.Wipe()

	if err := st.Sessions.StoreSession(ctx, peer, next); err != nil {
		memzero.Zero(pt)
		return nil, storageFailure(err)
	}
	return pt, nil
}

// inTx runs fn in a unit of work. A failure of the unit itself, rather than
// of fn, is reported as a storage failure.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context, st domain.Stores) error) error {
	var fnErr error
	err := s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		fnErr = fn(ctx, st)
		return fnErr
	})
	if err != nil && fnErr == nil {
		return storageFailure(err)
	}
	return err
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.Ratchet(op, *err)
	s.metrics.Since(op, start)
}

// load returns the stored session with peer or domain.ErrNoSession.
func load(ctx context.Context, st domain.Stores, peer domain.Address) (domain.SessionState, error) {
	cur, err := st.Sessions.LoadSession(ctx, peer)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SessionState{}, fmt.Errorf("%w: %s", domain.ErrNoSession, peer)
	}
	if err != nil {
		return domain.SessionState{}, storageFailure(err)
	}
	return cur, nil
}

// wrap encodes msg, attaching the pending X3DH parameters of st if any.
func wrap(st domain.SessionState, msg domain.RatchetMessage) (domain.CiphertextMessage, error) {
	if st.Pending == nil {
		b, err := codec.EncodeMessage(msg)
		if err != nil {
			return domain.CiphertextMessage{}, err
		}
		return domain.CiphertextMessage{Type: domain.MessageTypeWhisper, Bytes: b}, nil
	}

	b, err := codec.EncodePreKeyMessage(domain.PreKeyMessage{
		IdentityKey:     st.LocalIdentityKey,
		BaseKey:         st.Pending.BaseKey,
		SignedPreKeyID:  st.Pending.SignedPreKeyID,
		OneTimePreKeyID: st.Pending.OneTimePreKeyID,
		Message:         msg,
	})
	if err != nil {
		return domain.CiphertextMessage{}, err
	}
	return domain.CiphertextMessage{Type: domain.MessageTypePreKey, Bytes: b}, nil
}

func checkIdentity(got domain.X25519Public, want *domain.X25519Public) error {
	if want != nil && got != *want {
		return fmt.Errorf("%w: identity key does not match the session", domain.ErrUntrustedSender)
	}
	return nil
}

// storageFailure marks err as a failure of a store collaborator. Missing
// records keep their own kind.
func storageFailure(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

// Compile-time assertion that Service implements domain.SessionService.
var _ domain.SessionService = (*Service)(nil)
