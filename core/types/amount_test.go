package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	a, b := NewAmount(10), NewAmount(3)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "13", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "7", diff.String())

	_, err = b.Sub(a)
	assert.ErrorIs(t, err, ErrAmountUnderflow)

	max, err := ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	require.NoError(t, err)
	_, err = max.Add(NewAmount(1))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	assert.Equal(t, 1, a.Cmp(b))
	assert.Equal(t, -1, b.Cmp(a))
	assert.True(t, NewAmount(0).IsZero())
}

func TestAmountFromBig(t *testing.T) {
	_, err := AmountFromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrAmountUnderflow)

	_, err = AmountFromBig(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrAmountOverflow)

	a, err := AmountFromBig(big.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, 0, a.Big().Cmp(big.NewInt(42)))
}

func TestAmountEncoding(t *testing.T) {
	a, err := ParseAmount("123456789012345678901234567890")
	require.NoError(t, err)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"123456789012345678901234567890"`, string(b))

	var fromJSON Amount
	require.NoError(t, json.Unmarshal(b, &fromJSON))
	assert.Equal(t, 0, a.Cmp(fromJSON))

	enc, err := rlp.EncodeToBytes(a)
	require.NoError(t, err)
	var fromRLP Amount
	require.NoError(t, rlp.DecodeBytes(enc, &fromRLP))
	assert.Equal(t, 0, a.Cmp(fromRLP))

	_, err = ParseAmount("12x")
	assert.Error(t, err)
}
