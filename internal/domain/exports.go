package domain

import (
	interfaces "umbra/internal/domain/interfaces"
	types "umbra/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Address             = types.Address
	KeyID               = types.KeyID
	SignedPreKeyID      = types.SignedPreKeyID
	OneTimePreKeyID     = types.OneTimePreKeyID
	Identity            = types.Identity
	SignedPreKeyPair    = types.SignedPreKeyPair
	OneTimePreKeyPair   = types.OneTimePreKeyPair
	OneTimePreKeyPublic = types.OneTimePreKeyPublic
	PreKeyBundle        = types.PreKeyBundle
	PreKeyMessage       = types.PreKeyMessage
	RatchetMessage      = types.RatchetMessage
	MessageType         = types.MessageType
	CiphertextMessage   = types.CiphertextMessage
	DecryptedMessage    = types.DecryptedMessage
	SendingChain        = types.SendingChain
	ReceivingChain      = types.ReceivingChain
	SkippedKey          = types.SkippedKey
	PendingPreKey       = types.PendingPreKey
	SessionState        = types.SessionState
	ServerCertificate   = types.ServerCertificate
	SenderCertificate   = types.SenderCertificate
	SealedEnvelope      = types.SealedEnvelope
	SealedContent       = types.SealedContent
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
	SymmetricKey        = types.SymmetricKey
)

// Re-exported constants.
const (
	MessageTypeWhisper    = types.MessageTypeWhisper
	MessageTypePreKey     = types.MessageTypePreKey
	CurrentMessageVersion = types.CurrentMessageVersion
	CurrentSessionVersion = types.CurrentSessionVersion
	CurrentSealedVersion  = types.CurrentSealedVersion
)

// ParseAddress parses the "<uuid>.<device>" form of an Address.
var ParseAddress = types.ParseAddress

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService = interfaces.IdentityService
	PreKeyService   = interfaces.PreKeyService
	SessionService  = interfaces.SessionService
	MessageService  = interfaces.MessageService
	IdentityStore   = interfaces.IdentityStore
	PreKeyStore     = interfaces.PreKeyStore
	SessionStore    = interfaces.SessionStore
	TrustStore      = interfaces.TrustStore
	Stores          = interfaces.Stores
	Transactor      = interfaces.Transactor
)
