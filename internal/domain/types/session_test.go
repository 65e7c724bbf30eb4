package types_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"umbra/internal/domain/types"
)

func sampleState() types.SessionState {
	return types.SessionState{
		Version: types.CurrentSessionVersion,
		RootKey: types.SymmetricKey{1},
		Sending: types.SendingChain{
			RatchetPrivate: types.X25519Private{2},
			ChainKey:       types.SymmetricKey{3},
		},
		Receiving: []types.ReceivingChain{{RatchetKey: types.X25519Public{4}, ChainKey: types.SymmetricKey{5}}},
		Skipped:   []types.SkippedKey{{RatchetKey: types.X25519Public{4}, MessageKey: types.SymmetricKey{6}}},
		Pending:   &types.PendingPreKey{SignedPreKeyID: "spk-1"},
	}
}

func TestSessionState_CloneSharesNothing(t *testing.T) {
	st := sampleState()
	c := st.Clone()

	c.Receiving[0].ChainKey = types.SymmetricKey{9}
	c.Skipped[0].MessageKey = types.SymmetricKey{9}
	c.Pending.SignedPreKeyID = "spk-2"

	require.Equal(t, types.SymmetricKey{5}, st.Receiving[0].ChainKey)
	require.Equal(t, types.SymmetricKey{6}, st.Skipped[0].MessageKey)
	require.Equal(t, types.SignedPreKeyID("spk-1"), st.Pending.SignedPreKeyID)
}

func TestSessionState_Wipe(t *testing.T) {
	st := sampleState()
	require.True(t, st.HasSendingChain())
	receiving, skipped := st.Receiving, st.Skipped

	st.Wipe()

	require.True(t, st.RootKey.IsZero())
	require.True(t, st.Sending.ChainKey.IsZero())
	require.False(t, st.HasSendingChain())
	require.Nil(t, st.Receiving)
	require.Nil(t, st.Skipped)
	// The backing arrays were zeroed before being dropped.
	require.True(t, receiving[0].ChainKey.IsZero())
	require.True(t, skipped[0].MessageKey.IsZero())
}
