package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allSchemes = []Scheme{Ed25519, Secp256k1, BLS}

func TestSignVerify(t *testing.T) {
	msg := []byte("wrapper tx bytes")
	for _, scheme := range allSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			sk, err := Generate(scheme, nil)
			require.NoError(t, err)
			assert.Equal(t, scheme, sk.Scheme())

			pk := sk.PublicKey()
			require.NoError(t, pk.Validate())

			sig, err := sk.Sign(msg)
			require.NoError(t, err)
			require.NoError(t, Verify(pk, msg, sig))

			err = Verify(pk, []byte("other bytes"), sig)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestVerifyWrongKey(t *testing.T) {
	msg := []byte("payload")
	for _, scheme := range allSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			a, err := Generate(scheme, nil)
			require.NoError(t, err)
			b, err := Generate(scheme, nil)
			require.NoError(t, err)

			sig, err := a.Sign(msg)
			require.NoError(t, err)
			assert.ErrorIs(t, Verify(b.PublicKey(), msg, sig), ErrSignatureInvalid)
		})
	}
}

func TestVerifySchemeMismatch(t *testing.T) {
	ed, err := Generate(Ed25519, nil)
	require.NoError(t, err)
	sec, err := Generate(Secp256k1, nil)
	require.NoError(t, err)

	sig, err := sec.Sign([]byte("x"))
	require.NoError(t, err)
	assert.ErrorIs(t, Verify(ed.PublicKey(), []byte("x"), sig), ErrSchemeMismatch)
}

func TestVerifyMalformedSignature(t *testing.T) {
	for _, scheme := range allSchemes {
		sk, err := Generate(scheme, nil)
		require.NoError(t, err)
		err = Verify(sk.PublicKey(), []byte("x"), Signature{Scheme: scheme, Sig: []byte{1, 2, 3}})
		assert.ErrorIs(t, err, ErrMalformedSig, scheme.String())
	}
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	for _, scheme := range allSchemes {
		t.Run(scheme.String(), func(t *testing.T) {
			sk, err := Generate(scheme, nil)
			require.NoError(t, err)

			restored, err := PrivateKeyFromBytes(scheme, sk.Bytes())
			require.NoError(t, err)
			assert.True(t, sk.PublicKey().Equal(restored.PublicKey()))

			sig, err := restored.Sign([]byte("m"))
			require.NoError(t, err)
			require.NoError(t, Verify(sk.PublicKey(), []byte("m"), sig))
		})
	}
}

func TestPublicKeyText(t *testing.T) {
	for _, scheme := range allSchemes {
		sk, err := Generate(scheme, nil)
		require.NoError(t, err)
		pk := sk.PublicKey()

		text, err := pk.MarshalText()
		require.NoError(t, err)
		var decoded PublicKey
		require.NoError(t, decoded.UnmarshalText(text))
		assert.True(t, pk.Equal(decoded))
	}

	var pk PublicKey
	assert.ErrorIs(t, pk.UnmarshalText([]byte("0x01abcd")), ErrInvalidPublicKey)
	assert.ErrorIs(t, pk.UnmarshalText([]byte("0x09abcd")), ErrUnknownScheme)
}

func TestParseScheme(t *testing.T) {
	for _, scheme := range allSchemes {
		got, err := ParseScheme(scheme.String())
		require.NoError(t, err)
		assert.Equal(t, scheme, got)
	}
	_, err := ParseScheme("rsa")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
