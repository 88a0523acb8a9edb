package keys

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"
)

type ed25519Key struct {
	priv ed25519.PrivateKey
}

func generateEd25519(rng io.Reader) (PrivateKey, error) {
	if rng == nil {
		rng = rand.Reader
	}
	_, priv, err := ed25519.GenerateKey(rng)
	if err != nil {
		return nil, fmt.Errorf("keys: ed25519 keygen: %w", err)
	}
	return &ed25519Key{priv: priv}, nil
}

// ed25519FromBytes accepts either a 32-byte seed or a 64-byte private key.
func ed25519FromBytes(b []byte) (PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return &ed25519Key{priv: ed25519.NewKeyFromSeed(b)}, nil
	case ed25519.PrivateKeySize:
		return &ed25519Key{priv: append(ed25519.PrivateKey(nil), b...)}, nil
	default:
		return nil, ErrInvalidPrivateKey
	}
}

func (k *ed25519Key) Scheme() Scheme { return Ed25519 }

func (k *ed25519Key) PublicKey() PublicKey {
	pub := k.priv.Public().(ed25519.PublicKey)
	return PublicKey{Scheme: Ed25519, Key: append([]byte(nil), pub...)}
}

func (k *ed25519Key) Sign(msg []byte) (Signature, error) {
	return Signature{Scheme: Ed25519, Sig: ed25519.Sign(k.priv, msg)}, nil
}

func (k *ed25519Key) Bytes() []byte {
	return append([]byte(nil), k.priv.Seed()...)
}

func validateEd25519(key []byte) error {
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("%w: ed25519 key must be %d bytes", ErrInvalidPublicKey, ed25519.PublicKeySize)
	}
	return nil
}

func verifyEd25519(key, msg, sig []byte) error {
	if err := validateEd25519(key); err != nil {
		return err
	}
	if len(sig) != ed25519.SignatureSize {
		return ErrMalformedSig
	}
	if !ed25519.Verify(ed25519.PublicKey(key), msg, sig) {
		return ErrSignatureInvalid
	}
	return nil
}
