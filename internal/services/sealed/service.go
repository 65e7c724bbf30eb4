package sealed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"umbra/internal/domain"
	"umbra/internal/observability/metrics"
	"umbra/internal/protocol/certificate"
	"umbra/internal/protocol/sealedsender"
)

// Service seals outgoing messages and unseals incoming envelopes on top of a
// session service.
type Service struct {
	sessions domain.SessionService
	tx       domain.Transactor
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// New returns a sealed-sender service. tx provides the local identity, the
// recipients' identity keys and the trust settings.
func New(
	sessions domain.SessionService,
	tx domain.Transactor,
	m *metrics.Metrics,
	log *slog.Logger,
) *Service {
	return &Service{sessions: sessions, tx: tx, metrics: m, log: log}
}

// SendSealed encrypts plaintext on the session with to and seals the result
// under cert. cert must certify the local identity key.
func (s *Service) SendSealed(
	ctx context.Context,
	cert domain.SenderCertificate,
	to domain.Address,
	plaintext []byte,
) (out []byte, err error) {
	defer func() { s.metrics.Sealed("seal", err) }()

	var (
		local     domain.Identity
		recipient domain.X25519Public
	)
	defer local.Wipe()
	err = s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		var err error
		if local, err = st.Identities.LocalIdentity(ctx); err != nil {
			return storageFailure(err)
		}
		recipient, err = st.Identities.RemoteIdentity(ctx, to)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrNoSession, to)
		}
		if err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// Checked before encrypting so a wrong certificate does not advance the session.
	if cert.IdentityKey != local.XPub {
		return nil, sealedsender.ErrCertificateMismatch
	}

	// Sealed before the session is stored, so a failed seal spends no key.
	var typ domain.MessageType
	err = s.sessions.EncryptWith(ctx, to, plaintext, func(ct domain.CiphertextMessage) error {
		sealed, err := sealedsender.Seal(local, recipient, domain.SealedContent{
			Type:        ct.Type,
			Certificate: cert,
			Content:     ct.Bytes,
		})
		if err != nil {
			return err
		}
		out, typ = sealed, ct.Type
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.DebugContext(ctx, "message sealed",
		slog.String("session", to.String()),
		slog.String("type", typ.String()),
	)
	return out, nil
}

// ReceiveSealed unseals envelope, validates the sender certificate at now and
// decrypts the inner message on the sender's session. The session must belong
// to the certified identity key. Certificate and decryption failures are
// returned as a *domain.KnownSenderError naming the claimed sender.
func (s *Service) ReceiveSealed(
	ctx context.Context,
	envelope []byte,
	now time.Time,
) (out domain.DecryptedMessage, err error) {
	defer func() { s.metrics.Sealed("unseal", err) }()

	var (
		local   domain.Identity
		root    domain.Ed25519Public
		revoked []uint32
	)
	defer local.Wipe()
	err = s.tx.InTx(ctx, func(ctx context.Context, st domain.Stores) error {
		var err error
		if local, err = st.Identities.LocalIdentity(ctx); err != nil {
			return storageFailure(err)
		}
		root, err = st.Trust.TrustRoot(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: no trust root configured", domain.ErrUntrustedSender)
		}
		if err != nil {
			return storageFailure(err)
		}
		if revoked, err = st.Trust.RevokedServerKeyIDs(ctx); err != nil {
			return storageFailure(err)
		}
		return nil
	})
	if err != nil {
		return domain.DecryptedMessage{}, err
	}

	v := certificate.NewValidator(root, certificate.WithRevokedKeyIDs(revoked...))
	content, err := sealedsender.Unseal(local, envelope, v, now)
	if err != nil {
		s.log.WarnContext(ctx, "unseal failed", slog.String("error_kind", domain.ErrorKind(err)))
		return domain.DecryptedMessage{}, err
	}

	sender := content.Certificate.Sender
	pt, err := s.sessions.DecryptFrom(ctx, sender, content.Certificate.IdentityKey, domain.CiphertextMessage{
		Type:  content.Type,
		Bytes: content.Content,
	})
	if err != nil {
		return domain.DecryptedMessage{}, &domain.KnownSenderError{Sender: sender, Err: err}
	}

	s.log.DebugContext(ctx, "message unsealed",
		slog.String("session", sender.String()),
		slog.String("type", content.Type.String()),
	)
	return domain.DecryptedMessage{From: sender, Type: content.Type, Plaintext: pt}, nil
}

// storageFailure marks err as a failure of a store collaborator. Missing
// records keep their own kind.
func storageFailure(err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStorageFailure, err)
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
