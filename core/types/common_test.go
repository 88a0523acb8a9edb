package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashText(t *testing.T) {
	h := Sha256Hash([]byte("abc"))
	const want = "0xba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	assert.Equal(t, want, h.Hex())
	assert.Equal(t, want, h.String())

	b, err := json.Marshal(h)
	require.NoError(t, err)
	assert.Equal(t, `"`+want+`"`, string(b))

	var dec Hash
	require.NoError(t, json.Unmarshal(b, &dec))
	assert.Equal(t, h, dec)

	assert.Error(t, dec.UnmarshalText([]byte("0x1234")), "short hash")
	assert.Error(t, dec.UnmarshalText([]byte(want[2:])), "missing 0x")
}
