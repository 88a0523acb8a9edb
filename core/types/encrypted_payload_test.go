package types

import (
	"encoding/json"
	"testing"

	"github.com/anonployed/namada/crypto/tpke"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secretMsg = []byte("Super secret stuff")

func TestEncryptedPayloadRoundTrip(t *testing.T) {
	ek, dk := tpke.GeneratorKeyPair()
	p, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)
	assert.True(t, p.Validate())
	assert.NotEqual(t, secretMsg, p.Ciphertext())

	out, err := p.Decrypt(dk)
	require.NoError(t, err)
	assert.Equal(t, secretMsg, out)
}

func TestEncryptedPayloadRLP(t *testing.T) {
	ek, dk := tpke.GeneratorKeyPair()
	p, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)

	b, err := p.Bytes()
	require.NoError(t, err)
	dec, err := EncryptedPayloadFromBytes(b)
	require.NoError(t, err)
	assert.True(t, p.Equal(dec))
	assert.True(t, dec.Validate())

	out, err := dec.Decrypt(dk)
	require.NoError(t, err)
	assert.Equal(t, secretMsg, out)
}

func TestEncryptedPayloadJSON(t *testing.T) {
	ek, dk := tpke.GeneratorKeyPair()
	p, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	var blob string
	require.NoError(t, json.Unmarshal(b, &blob))
	assert.Contains(t, blob, "0x")

	var dec EncryptedPayload
	require.NoError(t, json.Unmarshal(b, &dec))
	assert.True(t, p.Equal(&dec))
	out, err := dec.Decrypt(dk)
	require.NoError(t, err)
	assert.Equal(t, secretMsg, out)
}

func TestEncryptedPayloadBadEncoding(t *testing.T) {
	ek, _ := tpke.GeneratorKeyPair()
	p, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)

	bad, err := rlp.EncodeToBytes(&encryptedPayloadRLP{
		Nonce:      make([]byte, 48),
		Ciphertext: p.Ciphertext(),
		AuthTag:    p.ct.TagBytes(),
	})
	require.NoError(t, err)
	_, err = EncryptedPayloadFromBytes(bad)
	assert.ErrorIs(t, err, ErrInvalidPayloadEncoding)

	_, err = EncryptedPayloadFromBytes([]byte{0xc0})
	assert.Error(t, err)

	_, err = new(EncryptedPayload).Bytes()
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestEncryptedPayloadTampered(t *testing.T) {
	ek, _ := tpke.GeneratorKeyPair()
	p, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)

	other, err := EncryptPayload(secretMsg, ek, nil)
	require.NoError(t, err)

	// Splice the tag of one ciphertext onto another.
	b, err := rlp.EncodeToBytes(&encryptedPayloadRLP{
		Nonce:      p.ct.NonceBytes(),
		Ciphertext: p.Ciphertext(),
		AuthTag:    other.ct.TagBytes(),
	})
	require.NoError(t, err)
	spliced, err := EncryptedPayloadFromBytes(b)
	require.NoError(t, err)
	assert.False(t, spliced.Validate())
}
