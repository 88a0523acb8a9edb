package tpke

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secretMsg = []byte("Super secret stuff")

func TestEncryptDecryptGeneratorKeys(t *testing.T) {
	ek, dk := GeneratorKeyPair()
	ct, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)
	assert.NotEqual(t, secretMsg, ct.Payload)

	out, err := Decrypt(ct, dk)
	require.NoError(t, err)
	assert.Equal(t, secretMsg, out)
}

func TestEncryptDecryptFreshKeys(t *testing.T) {
	ek, dk, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	require.True(t, dk.Matches(ek))

	for _, msg := range [][]byte{{}, {0x00}, bytes.Repeat([]byte{0xab}, 1000)} {
		ct, err := Encrypt(msg, ek, nil)
		require.NoError(t, err)
		assert.True(t, ct.Check())
		out, err := Decrypt(ct, dk)
		require.NoError(t, err)
		assert.Equal(t, msg, out)
	}
}

func TestEncryptIsRandomized(t *testing.T) {
	ek, dk := GeneratorKeyPair()
	a, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)
	b, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)

	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.NonceBytes(), b.NonceBytes())

	for _, ct := range []*Ciphertext{a, b} {
		out, err := Decrypt(ct, dk)
		require.NoError(t, err)
		assert.Equal(t, secretMsg, out)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	ek, _ := GeneratorKeyPair()
	_, other, err := GenerateKeyPair(nil)
	require.NoError(t, err)
	assert.False(t, other.Matches(ek))

	ct, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)
	out, err := Decrypt(ct, other)
	require.NoError(t, err)
	assert.NotEqual(t, secretMsg, out)
}

func TestCheckDetectsTampering(t *testing.T) {
	ek, _ := GeneratorKeyPair()
	ct, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)
	require.True(t, ct.Check())

	flipped := *ct
	flipped.Payload = append([]byte(nil), ct.Payload...)
	flipped.Payload[0] ^= 0x01
	assert.False(t, flipped.Check())

	other, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)
	mixed := *ct
	mixed.AuthTag = other.AuthTag
	assert.False(t, mixed.Check())
}

func TestCiphertextFromParts(t *testing.T) {
	ek, dk := GeneratorKeyPair()
	ct, err := Encrypt(secretMsg, ek, nil)
	require.NoError(t, err)

	rebuilt, err := NewCiphertext(ct.NonceBytes(), ct.Payload, ct.TagBytes())
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(ct))
	out, err := Decrypt(rebuilt, dk)
	require.NoError(t, err)
	assert.Equal(t, secretMsg, out)

	_, err = NewCiphertext(ct.NonceBytes()[:10], ct.Payload, ct.TagBytes())
	assert.ErrorIs(t, err, ErrInvalidNonce)

	badTag := ct.TagBytes()
	badTag[5] ^= 0xff
	_, err = NewCiphertext(ct.NonceBytes(), ct.Payload, badTag)
	assert.ErrorIs(t, err, ErrInvalidTag)
}

func TestKeyEncoding(t *testing.T) {
	ek, dk, err := GenerateKeyPair(nil)
	require.NoError(t, err)

	text, err := ek.MarshalText()
	require.NoError(t, err)
	var ek2 EncryptionKey
	require.NoError(t, ek2.UnmarshalText(text))
	assert.True(t, ek.Equal(ek2))

	text, err = dk.MarshalText()
	require.NoError(t, err)
	var dk2 DecryptionKey
	require.NoError(t, dk2.UnmarshalText(text))
	assert.True(t, dk.Equal(dk2))

	_, err = EncryptionKeyFromBytes([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidEncryptionKey)
	_, err = DecryptionKeyFromBytes(ek.Bytes())
	assert.ErrorIs(t, err, ErrInvalidDecryptionKey)
}

func TestEncryptRejectsZeroKey(t *testing.T) {
	_, err := Encrypt(secretMsg, EncryptionKey{}, nil)
	assert.ErrorIs(t, err, ErrZeroKey)
}
