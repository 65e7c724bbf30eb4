package codec

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
	"strings"

	"umbra/internal/crypto"
	"umbra/internal/domain"
)

// legacySnapshot is the format-1 session record: a JSON document with
// base64 key fields, a single receiving chain and skipped keys indexed by
// "<ratchet key>:<counter>".
type legacySnapshot struct {
	LocalIdentity  string            `json:"localIdentity"`
	RemoteIdentity string            `json:"remoteIdentity"`
	RootKey        string            `json:"rootKey"`
	SendChain      legacyChain       `json:"sendChain"`
	RecvChain      *legacyChain      `json:"recvChain,omitempty"`
	RatchetPrivate string            `json:"ratchetPrivate"`
	RatchetPublic  string            `json:"ratchetPublic"`
	RemoteRatchet  string            `json:"remoteRatchet,omitempty"`
	PN             uint32            `json:"pn"`
	BaseKey        string            `json:"baseKey"`
	Skipped        map[string]string `json:"skipped,omitempty"`
}

type legacyChain struct {
	Key   string `json:"key"`
	Index uint32 `json:"index"`
}

func decodeLegacyState(data []byte) (domain.SessionState, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var snap legacySnapshot
	if err := dec.Decode(&snap); err != nil {
		return domain.SessionState{}, malformed("legacy session state: %v", err)
	}
	if dec.More() {
		return domain.SessionState{}, malformed("legacy session state: trailing data")
	}

	st := domain.SessionState{
		Version:         domain.CurrentSessionVersion,
		PreviousCounter: snap.PN,
		Sending:         domain.SendingChain{Index: snap.SendChain.Index},
	}
	fields := []struct {
		dst  *[keySize]byte
		src  string
		what string
	}{
		{(*[keySize]byte)(&st.LocalIdentityKey), snap.LocalIdentity, "local identity"},
		{(*[keySize]byte)(&st.RemoteIdentityKey), snap.RemoteIdentity, "remote identity"},
		{(*[keySize]byte)(&st.RootKey), snap.RootKey, "root key"},
		{(*[keySize]byte)(&st.Sending.ChainKey), snap.SendChain.Key, "sending chain key"},
		{(*[keySize]byte)(&st.Sending.RatchetPrivate), snap.RatchetPrivate, "ratchet private"},
		{(*[keySize]byte)(&st.Sending.RatchetPublic), snap.RatchetPublic, "ratchet public"},
		{(*[keySize]byte)(&st.BaseKey), snap.BaseKey, "base key"},
	}
	for _, f := range fields {
		k, err := crypto.Key32FromB64(f.src)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: %s: %v", f.what, err)
		}
		*f.dst = k
	}

	if snap.RecvChain != nil {
		remote, err := crypto.Key32FromB64(snap.RemoteRatchet)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: remote ratchet: %v", err)
		}
		ck, err := crypto.Key32FromB64(snap.RecvChain.Key)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: receiving chain key: %v", err)
		}
		st.Receiving = []domain.ReceivingChain{{RatchetKey: remote, ChainKey: ck, Index: snap.RecvChain.Index}}
	}

	for id, mk := range snap.Skipped {
		b64, ctr, ok := strings.Cut(id, ":")
		if !ok {
			return domain.SessionState{}, malformed("legacy session state: skipped key id %q", id)
		}
		rk, err := crypto.Key32FromB64(b64)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: skipped ratchet key: %v", err)
		}
		n, err := strconv.ParseUint(ctr, 10, 32)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: skipped counter: %v", err)
		}
		key, err := crypto.Key32FromB64(mk)
		if err != nil {
			return domain.SessionState{}, malformed("legacy session state: skipped message key: %v", err)
		}
		st.Skipped = append(st.Skipped, domain.SkippedKey{RatchetKey: rk, Counter: uint32(n), MessageKey: key})
	}
	// Map order is random; counters give the best available age order.
	slices.SortFunc(st.Skipped, func(a, b domain.SkippedKey) int {
		if c := cmp.Compare(a.Counter, b.Counter); c != 0 {
			return c
		}
		return bytes.Compare(a.RatchetKey[:], b.RatchetKey[:])
	})
	return st, nil
}
