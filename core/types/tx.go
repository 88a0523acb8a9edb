package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/anonployed/namada/crypto/keys"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// Tx is the outer transaction envelope that travels through the network:
// code to execute and optional data for it. A signed Tx carries a
// SignedTxData in Data whose signature covers the unsigned envelope.
type Tx struct {
	Code      []byte
	Data      []byte
	Timestamp uint64 // unix nanoseconds
}

// NewTx creates an envelope stamped with the current time. Empty slices are
// normalised to nil so that encoding round trips compare equal.
func NewTx(code, data []byte) *Tx {
	return &Tx{
		Code:      nilIfEmpty(code),
		Data:      nilIfEmpty(data),
		Timestamp: uint64(time.Now().UnixNano()),
	}
}

// Bytes returns the canonical binary encoding. Encoding a Tx cannot fail:
// all of its fields are byte strings and integers.
func (tx *Tx) Bytes() []byte {
	b, err := rlp.EncodeToBytes(tx)
	if err != nil {
		panic(fmt.Sprintf("types: encoding tx: %v", err))
	}
	return b
}

// Hash returns the SHA-256 digest of the canonical encoding.
func (tx *Tx) Hash() Hash {
	return Sha256Hash(tx.Bytes())
}

// TxFromBytes decodes the canonical binary encoding.
func TxFromBytes(b []byte) (*Tx, error) {
	tx := new(Tx)
	if err := rlp.DecodeBytes(b, tx); err != nil {
		return nil, err
	}
	tx.Code = nilIfEmpty(tx.Code)
	tx.Data = nilIfEmpty(tx.Data)
	return tx, nil
}

// Sign signs the canonical encoding of tx and returns a new envelope whose
// Data is the SignedTxData carrying the original data and the signature.
func (tx *Tx) Sign(key keys.PrivateKey) (*Tx, error) {
	sig, err := key.Sign(tx.Bytes())
	if err != nil {
		return nil, err
	}
	signed := SignedTxData{Data: tx.Data, Sig: sig}
	data, err := signed.Bytes()
	if err != nil {
		return nil, err
	}
	return &Tx{
		Code:      tx.Code,
		Data:      data,
		Timestamp: tx.Timestamp,
	}, nil
}

// Equal reports whether two envelopes are identical.
func (tx *Tx) Equal(other *Tx) bool {
	if tx == nil || other == nil {
		return tx == other
	}
	return string(tx.Bytes()) == string(other.Bytes())
}

type txJSON struct {
	Code      hexutil.Bytes  `json:"code"`
	Data      hexutil.Bytes  `json:"data,omitempty"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

// MarshalJSON implements json.Marshaler.
func (tx *Tx) MarshalJSON() ([]byte, error) {
	return json.Marshal(txJSON{Code: tx.Code, Data: tx.Data, Timestamp: hexutil.Uint64(tx.Timestamp)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (tx *Tx) UnmarshalJSON(input []byte) error {
	var dec txJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	tx.Code = nilIfEmpty(dec.Code)
	tx.Data = nilIfEmpty(dec.Data)
	tx.Timestamp = uint64(dec.Timestamp)
	return nil
}

// SignedTxData is the payload of a signed envelope: the original data and a
// signature over the unsigned envelope.
type SignedTxData struct {
	Data []byte
	Sig  keys.Signature
}

// Bytes returns the canonical binary encoding.
func (s *SignedTxData) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(s)
}

// SignedTxDataFromBytes decodes the canonical binary encoding.
func SignedTxDataFromBytes(b []byte) (*SignedTxData, error) {
	s := new(SignedTxData)
	if err := rlp.DecodeBytes(b, s); err != nil {
		return nil, err
	}
	s.Data = nilIfEmpty(s.Data)
	return s, nil
}

// VerifySig checks a signature made by Tx.Sign: tx must be the signed
// envelope with its Data restored to the original data.
func VerifySig(pk keys.PublicKey, tx *Tx, sig keys.Signature) error {
	return keys.Verify(pk, tx.Bytes(), sig)
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
