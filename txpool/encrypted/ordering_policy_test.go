package encrypted

import (
	"testing"

	"github.com/anonployed/namada/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderingEntries(fees ...uint64) []Decrypted {
	out := make([]Decrypted, len(fees))
	for i, fee := range fees {
		out[i] = Decrypted{
			Entry: &Entry{
				Seq:     uint64(i + 1),
				Wrapper: &types.WrapperTx{Fee: types.NewFee(types.NewAmount(fee), types.NativeToken())},
			},
		}
	}
	return out
}

func seqs(entries []Decrypted) []uint64 {
	out := make([]uint64, len(entries))
	for i, e := range entries {
		out[i] = e.Entry.Seq
	}
	return out
}

func TestOrdering_Arrival(t *testing.T) {
	in := orderingEntries(1, 2, 3)
	in[0], in[2] = in[2], in[0]
	out := (&ArrivalOrdering{}).Order(in)
	assert.Equal(t, []uint64{1, 2, 3}, seqs(out))
	assert.Equal(t, []uint64{3, 2, 1}, seqs(in), "input must not be modified")
}

func TestOrdering_FeeBased(t *testing.T) {
	out := (&FeeBasedOrdering{}).Order(orderingEntries(10, 30, 10, 20, 30))
	assert.Equal(t, []uint64{2, 5, 4, 1, 3}, seqs(out))
}

func TestOrdering_Hybrid(t *testing.T) {
	in := orderingEntries(0, 0, 100)

	tests := []struct {
		weight float64
		want   []uint64
	}{
		{0, []uint64{1, 2, 3}},
		{1, []uint64{3, 1, 2}},
		{-5, []uint64{1, 2, 3}},
		{0.7, []uint64{3, 1, 2}},
		{0.3, []uint64{1, 2, 3}},
	}
	for _, tt := range tests {
		out := (&HybridOrdering{FeeWeight: tt.weight}).Order(in)
		assert.Equal(t, tt.want, seqs(out), "weight %v", tt.weight)
	}
	assert.Empty(t, (&HybridOrdering{FeeWeight: 0.5}).Order(nil))
}

func TestOrdering_PolicyByName(t *testing.T) {
	for _, name := range []string{"fee", "arrival", "hybrid"} {
		p, err := PolicyByName(name, 0.5)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}
	p, err := PolicyByName("", 0)
	require.NoError(t, err)
	assert.Equal(t, "fee", p.Name())

	_, err = PolicyByName("gas-price", 0)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
