package ratchet

import (
	"slices"

	"umbra/internal/domain"
)

// findSkipped returns the index of the cached key for (ratchetKey, counter) or -1.
func findSkipped(keys []domain.SkippedKey, ratchetKey domain.X25519Public, counter uint32) int {
	for i := range keys {
		if keys[i].Counter == counter && keys[i].RatchetKey == ratchetKey {
			return i
		}
	}
	return -1
}

// takeSkipped removes entry i from the cache and returns its message key.
// slices.Delete clears the vacated tail, so no copy of the key stays behind
// in the backing array.
func takeSkipped(st *domain.SessionState, i int) domain.SymmetricKey {
	mk := st.Skipped[i].MessageKey
	st.Skipped[i].MessageKey = domain.SymmetricKey{}
	st.Skipped = slices.Delete(st.Skipped, i, i+1)
	return mk
}

// cacheSkipped appends k, evicting the oldest entries beyond the bound.
func (e *Engine) cacheSkipped(st *domain.SessionState, k domain.SkippedKey) {
	st.Skipped = append(st.Skipped, k)
	if over := len(st.Skipped) - e.limits.MaxSkippedKeys; over > 0 {
		for i := range over {
			st.Skipped[i].MessageKey = domain.SymmetricKey{}
		}
		st.Skipped = slices.Delete(st.Skipped, 0, over)
	}
}

// findChain returns the index of the receiving chain for ratchetKey or -1.
func findChain(chains []domain.ReceivingChain, ratchetKey domain.X25519Public) int {
	for i := range chains {
		if chains[i].RatchetKey == ratchetKey {
			return i
		}
	}
	return -1
}

// pushChain makes c the active receiving chain and archives the previous
// ones, dropping (and wiping) the oldest beyond the bound.
func (e *Engine) pushChain(st *domain.SessionState, c domain.ReceivingChain) {
	st.Receiving = slices.Insert(st.Receiving, 0, c)
	if keep := 1 + e.limits.MaxArchivedChains; len(st.Receiving) > keep {
		for i := keep; i < len(st.Receiving); i++ {
			st.Receiving[i].ChainKey = domain.SymmetricKey{}
		}
		st.Receiving = slices.Delete(st.Receiving, keep, len(st.Receiving))
	}
}
