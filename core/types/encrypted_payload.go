package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/anonployed/namada/crypto/tpke"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	ErrInvalidPayloadEncoding = errors.New("types: invalid encrypted payload encoding")
	ErrEmptyPayload           = errors.New("types: empty encrypted payload")
)

// EncryptedPayload is an opaque ciphertext of an arbitrary byte payload. Its
// content can only be recovered with the decryption key matching the key it
// was encrypted to; without that key only its well-formedness can be checked.
type EncryptedPayload struct {
	ct *tpke.Ciphertext
}

// encryptedPayloadRLP is the canonical binary layout: the compressed nonce,
// the ciphertext and the compressed authentication tag.
type encryptedPayloadRLP struct {
	Nonce      []byte
	Ciphertext []byte
	AuthTag    []byte
}

// EncryptPayload encrypts msg to key. Fresh randomness is drawn from rng on
// every call; a nil rng selects crypto/rand.
func EncryptPayload(msg []byte, key tpke.EncryptionKey, rng io.Reader) (*EncryptedPayload, error) {
	ct, err := tpke.Encrypt(msg, key, rng)
	if err != nil {
		return nil, err
	}
	return &EncryptedPayload{ct: ct}, nil
}

// Decrypt recovers the plaintext bytes.
func (p *EncryptedPayload) Decrypt(key tpke.DecryptionKey) ([]byte, error) {
	if p.ct == nil {
		return nil, ErrEmptyPayload
	}
	return tpke.Decrypt(p.ct, key)
}

// Validate checks that the ciphertext is well formed. It needs no key and
// says nothing about the plaintext or the author.
func (p *EncryptedPayload) Validate() bool {
	return p.ct != nil && p.ct.Check()
}

// Ciphertext returns a copy of the encrypted bytes.
func (p *EncryptedPayload) Ciphertext() []byte {
	if p.ct == nil {
		return nil
	}
	return append([]byte(nil), p.ct.Payload...)
}

// Equal reports whether both payloads hold identical ciphertexts.
func (p *EncryptedPayload) Equal(other *EncryptedPayload) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.ct.Equal(other.ct)
}

// Bytes returns the canonical binary encoding.
func (p *EncryptedPayload) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(p)
}

// EncryptedPayloadFromBytes decodes the canonical binary encoding.
func EncryptedPayloadFromBytes(b []byte) (*EncryptedPayload, error) {
	p := new(EncryptedPayload)
	if err := rlp.DecodeBytes(b, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodeRLP implements rlp.Encoder.
func (p *EncryptedPayload) EncodeRLP(w io.Writer) error {
	if p == nil || p.ct == nil {
		return ErrEmptyPayload
	}
	return rlp.Encode(w, &encryptedPayloadRLP{
		Nonce:      p.ct.NonceBytes(),
		Ciphertext: p.ct.Payload,
		AuthTag:    p.ct.TagBytes(),
	})
}

// DecodeRLP implements rlp.Decoder. Curve points are checked on decode;
// malformed points fail with ErrInvalidPayloadEncoding.
func (p *EncryptedPayload) DecodeRLP(s *rlp.Stream) error {
	var enc encryptedPayloadRLP
	if err := s.Decode(&enc); err != nil {
		return err
	}
	ct, err := tpke.NewCiphertext(enc.Nonce, enc.Ciphertext, enc.AuthTag)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayloadEncoding, err)
	}
	p.ct = ct
	return nil
}

// MarshalJSON encodes the payload as a single hex blob wrapping its
// canonical binary encoding.
func (p *EncryptedPayload) MarshalJSON() ([]byte, error) {
	b, err := p.Bytes()
	if err != nil {
		return nil, err
	}
	return json.Marshal(hexutil.Bytes(b))
}

// UnmarshalJSON decodes the output of MarshalJSON.
func (p *EncryptedPayload) UnmarshalJSON(input []byte) error {
	var blob hexutil.Bytes
	if err := json.Unmarshal(input, &blob); err != nil {
		return err
	}
	decoded, err := EncryptedPayloadFromBytes(blob)
	if err != nil {
		return err
	}
	*p = *decoded
	return nil
}
