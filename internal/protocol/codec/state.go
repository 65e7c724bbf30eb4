package codec

import (
	"umbra/internal/domain"
)

type wireSending struct {
	_              struct{} `cbor:",toarray"`
	RatchetPublic  []byte
	RatchetPrivate []byte
	ChainKey       []byte
	Index          uint32
}

type wireReceiving struct {
	_          struct{} `cbor:",toarray"`
	RatchetKey []byte
	ChainKey   []byte
	Index      uint32
}

type wireSkipped struct {
	_          struct{} `cbor:",toarray"`
	RatchetKey []byte
	Counter    uint32
	MessageKey []byte
}

type wirePending struct {
	_               struct{} `cbor:",toarray"`
	SignedPreKeyID  string
	OneTimePreKeyID string
	BaseKey         []byte
}

type wireState struct {
	_               struct{} `cbor:",toarray"`
	Version         uint32
	LocalIdentity   []byte
	RemoteIdentity  []byte
	RootKey         []byte
	Sending         wireSending
	Receiving       []wireReceiving
	PreviousCounter uint32
	Skipped         []wireSkipped
	Pending         *wirePending
	BaseKey         []byte
}

// EncodeSessionState serialises st in the current state format. The output
// contains secret keys and must be protected like them.
func EncodeSessionState(st domain.SessionState) ([]byte, error) {
	w := wireState{
		Version:        st.Version,
		LocalIdentity:  st.LocalIdentityKey[:],
		RemoteIdentity: st.RemoteIdentityKey[:],
		RootKey:        st.RootKey[:],
		Sending: wireSending{
			RatchetPublic:  st.Sending.RatchetPublic[:],
			RatchetPrivate: st.Sending.RatchetPrivate[:],
			ChainKey:       st.Sending.ChainKey[:],
			Index:          st.Sending.Index,
		},
		Receiving:       make([]wireReceiving, 0, len(st.Receiving)),
		PreviousCounter: st.PreviousCounter,
		Skipped:         make([]wireSkipped, 0, len(st.Skipped)),
		BaseKey:         st.BaseKey[:],
	}
	for _, c := range st.Receiving {
		w.Receiving = append(w.Receiving, wireReceiving{
			RatchetKey: c.RatchetKey[:],
			ChainKey:   c.ChainKey[:],
			Index:      c.Index,
		})
	}
	for _, k := range st.Skipped {
		w.Skipped = append(w.Skipped, wireSkipped{
			RatchetKey: k.RatchetKey[:],
			Counter:    k.Counter,
			MessageKey: k.MessageKey[:],
		})
	}
	if p := st.Pending; p != nil {
		w.Pending = &wirePending{
			SignedPreKeyID:  string(p.SignedPreKeyID),
			OneTimePreKeyID: string(p.OneTimePreKeyID),
			BaseKey:         p.BaseKey[:],
		}
	}
	return encode(stateFormatCBOR, w)
}

// DecodeSessionState parses a stored session. Snapshots in the legacy JSON
// format are accepted and returned upgraded; EncodeSessionState always writes
// the current format.
func DecodeSessionState(data []byte) (domain.SessionState, error) {
	if len(data) > 0 && data[0] == stateFormatLegacyJSON {
		return decodeLegacyState(data[1:])
	}

	var w wireState
	if err := decode(stateFormatCBOR, data, &w, "session state"); err != nil {
		return domain.SessionState{}, err
	}
	if w.Version != domain.CurrentSessionVersion {
		return domain.SessionState{}, malformed("session state: unsupported session version %d", w.Version)
	}

	var (
		st  = domain.SessionState{Version: w.Version, PreviousCounter: w.PreviousCounter}
		err error
	)
	fields := []struct {
		dst  *[keySize]byte
		src  []byte
		what string
	}{
		{(*[keySize]byte)(&st.LocalIdentityKey), w.LocalIdentity, "local identity"},
		{(*[keySize]byte)(&st.RemoteIdentityKey), w.RemoteIdentity, "remote identity"},
		{(*[keySize]byte)(&st.RootKey), w.RootKey, "root key"},
		{(*[keySize]byte)(&st.Sending.RatchetPublic), w.Sending.RatchetPublic, "sending ratchet public"},
		{(*[keySize]byte)(&st.Sending.RatchetPrivate), w.Sending.RatchetPrivate, "sending ratchet private"},
		{(*[keySize]byte)(&st.Sending.ChainKey), w.Sending.ChainKey, "sending chain key"},
		{(*[keySize]byte)(&st.BaseKey), w.BaseKey, "base key"},
	}
	for _, f := range fields {
		if *f.dst, err = key32(f.src, f.what); err != nil {
			return domain.SessionState{}, err
		}
	}
	st.Sending.Index = w.Sending.Index

	for _, c := range w.Receiving {
		var rc domain.ReceivingChain
		if rc.RatchetKey, err = key32(c.RatchetKey, "receiving ratchet key"); err != nil {
			return domain.SessionState{}, err
		}
		if rc.ChainKey, err = key32(c.ChainKey, "receiving chain key"); err != nil {
			return domain.SessionState{}, err
		}
		rc.Index = c.Index
		st.Receiving = append(st.Receiving, rc)
	}
	for _, k := range w.Skipped {
		var sk domain.SkippedKey
		if sk.RatchetKey, err = key32(k.RatchetKey, "skipped ratchet key"); err != nil {
			return domain.SessionState{}, err
		}
		if sk.MessageKey, err = key32(k.MessageKey, "skipped message key"); err != nil {
			return domain.SessionState{}, err
		}
		sk.Counter = k.Counter
		st.Skipped = append(st.Skipped, sk)
	}
	if p := w.Pending; p != nil {
		base, err := key32(p.BaseKey, "pending base key")
		if err != nil {
			return domain.SessionState{}, err
		}
		st.Pending = &domain.PendingPreKey{
			SignedPreKeyID:  domain.SignedPreKeyID(p.SignedPreKeyID),
			OneTimePreKeyID: domain.OneTimePreKeyID(p.OneTimePreKeyID),
			BaseKey:         base,
		}
	}
	return st, nil
}
