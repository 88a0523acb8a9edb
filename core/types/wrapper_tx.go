package types

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/anonployed/namada/crypto/keys"
	"github.com/anonployed/namada/crypto/tpke"
	"github.com/ethereum/go-ethereum/rlp"
)

// WrapperTx carries an encrypted inner transaction together with the public
// metadata validators need before it can be decrypted: who pays, how much,
// for how much gas, and in which epoch's key the payload is encrypted.
//
// A WrapperTx on its own is not authenticated. ValidateCiphertext and Decrypt
// only look at the payload and its hash commitment, and both succeed on a
// wrapper whose payload and commitment were consistently replaced. Only the
// signature of the envelope built by Sign, checked by WrapperTxFromTx, binds
// the wrapper to its author.
type WrapperTx struct {
	// Fee paid for including the tx.
	Fee Fee
	// PK determines the implicit account of the fee payer.
	PK keys.PublicKey
	// Epoch in which the tx is submitted. It selects the decryption key.
	Epoch Epoch

	gasLimit GasLimit
	innerTx  *EncryptedPayload
	// txHash is the SHA-256 commitment to the plaintext of innerTx.
	txHash Hash
}

// wrapperTxRLP is the canonical binary field order.
type wrapperTxRLP struct {
	Fee      Fee
	PK       keys.PublicKey
	Epoch    uint64
	GasLimit GasLimit
	InnerTx  *EncryptedPayload
	TxHash   Hash
}

type wrapperTxJSON struct {
	Fee      Fee               `json:"fee"`
	PK       keys.PublicKey    `json:"pk"`
	Epoch    Epoch             `json:"epoch"`
	GasLimit GasLimit          `json:"gas_limit"`
	InnerTx  *EncryptedPayload `json:"inner_tx"`
	TxHash   Hash              `json:"tx_hash"`
}

// NewWrapperTx encrypts tx to the network key of epoch and wraps it with the
// given fee metadata. keypair only identifies the fee payer here; the
// wrapper is signed separately with Sign.
func NewWrapperTx(fee Fee, keypair keys.PrivateKey, epoch Epoch, gasLimit GasLimit, tx *Tx, source EncryptionKeySource) (*WrapperTx, error) {
	key, err := source.EncryptionKey(epoch)
	if err != nil {
		return nil, err
	}
	plain := tx.Bytes()
	inner, err := EncryptPayload(plain, key, nil)
	if err != nil {
		return nil, fmt.Errorf("types: encrypting inner tx: %w", err)
	}
	return &WrapperTx{
		Fee:      fee,
		PK:       keypair.PublicKey(),
		Epoch:    epoch,
		gasLimit: gasLimit,
		innerTx:  inner,
		txHash:   Sha256Hash(plain),
	}, nil
}

// GasLimit returns the declared gas limit.
func (w *WrapperTx) GasLimit() GasLimit { return w.gasLimit }

// InnerTx returns the encrypted payload.
func (w *WrapperTx) InnerTx() *EncryptedPayload { return w.innerTx }

// TxHash returns the commitment to the plaintext inner tx.
func (w *WrapperTx) TxHash() Hash { return w.txHash }

// FeePayer returns the implicit account of the wrapper's public key.
func (w *WrapperTx) FeePayer() Address {
	return ImplicitAddress(w.PK)
}

// ValidateCiphertext checks that the encrypted payload is well formed. It
// does not need the decryption key.
func (w *WrapperTx) ValidateCiphertext() bool {
	return w.innerTx != nil && w.innerTx.Validate()
}

// Decrypt recovers the inner transaction. It fails with ErrDecryptedHash if
// the plaintext does not match the hash commitment, and with ErrInvalidTx if
// the plaintext is not an encoded Tx.
func (w *WrapperTx) Decrypt(key tpke.DecryptionKey) (*Tx, error) {
	if w.innerTx == nil {
		return nil, &DecryptionError{Kind: KindInvalidTx, Err: ErrEmptyPayload}
	}
	plain, err := w.innerTx.Decrypt(key)
	if err != nil {
		return nil, &DecryptionError{Kind: KindInvalidTx, Err: err}
	}
	if Sha256Hash(plain) != w.txHash {
		return nil, ErrDecryptedHash
	}
	tx, err := TxFromBytes(plain)
	if err != nil {
		return nil, &DecryptionError{Kind: KindInvalidTx, Err: err}
	}
	return tx, nil
}

// Bytes returns the canonical binary encoding.
func (w *WrapperTx) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(w)
}

// WrapperTxFromBytes decodes the canonical binary encoding.
func WrapperTxFromBytes(b []byte) (*WrapperTx, error) {
	w := new(WrapperTx)
	if err := rlp.DecodeBytes(b, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Sign embeds the wrapper in a fresh envelope with empty code and signs it.
func (w *WrapperTx) Sign(keypair keys.PrivateKey) (*Tx, error) {
	data, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("types: encoding wrapper tx: %w", err)
	}
	return NewTx(nil, data).Sign(keypair)
}

// WrapperTxFromTx recovers a wrapper from a signed envelope. It succeeds only
// if the envelope data is a SignedTxData with non-empty data (ErrUnsigned),
// that data decodes to a WrapperTx (ErrInvalidWrapperTx), and the signature
// verifies against the unsigned envelope under the wrapper's own public key
// (ErrSigError, wrapping the verifier's error).
func WrapperTxFromTx(tx *Tx) (*WrapperTx, error) {
	if tx == nil || len(tx.Data) == 0 {
		return nil, ErrUnsigned
	}
	signed, err := SignedTxDataFromBytes(tx.Data)
	if err != nil || len(signed.Data) == 0 {
		return nil, ErrUnsigned
	}
	wrapper, err := WrapperTxFromBytes(signed.Data)
	if err != nil {
		return nil, &DecryptionError{Kind: KindInvalidWrapperTx, Err: err}
	}
	unsigned := &Tx{Code: tx.Code, Data: signed.Data, Timestamp: tx.Timestamp}
	if err := VerifySig(wrapper.PK, unsigned, signed.Sig); err != nil {
		return nil, NewSigError(err)
	}
	return wrapper, nil
}

// EncodeRLP implements rlp.Encoder.
func (w *WrapperTx) EncodeRLP(out io.Writer) error {
	return rlp.Encode(out, &wrapperTxRLP{
		Fee:      w.Fee,
		PK:       w.PK,
		Epoch:    uint64(w.Epoch),
		GasLimit: w.gasLimit,
		InnerTx:  w.innerTx,
		TxHash:   w.txHash,
	})
}

// DecodeRLP implements rlp.Decoder.
func (w *WrapperTx) DecodeRLP(s *rlp.Stream) error {
	var dec wrapperTxRLP
	if err := s.Decode(&dec); err != nil {
		return err
	}
	if dec.InnerTx == nil || dec.InnerTx.ct == nil {
		return ErrEmptyPayload
	}
	if err := dec.PK.Validate(); err != nil {
		return err
	}
	*w = WrapperTx{
		Fee:      dec.Fee,
		PK:       dec.PK,
		Epoch:    Epoch(dec.Epoch),
		gasLimit: dec.GasLimit,
		innerTx:  dec.InnerTx,
		txHash:   dec.TxHash,
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (w *WrapperTx) MarshalJSON() ([]byte, error) {
	return json.Marshal(&wrapperTxJSON{
		Fee:      w.Fee,
		PK:       w.PK,
		Epoch:    w.Epoch,
		GasLimit: w.gasLimit,
		InnerTx:  w.innerTx,
		TxHash:   w.txHash,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (w *WrapperTx) UnmarshalJSON(input []byte) error {
	var dec wrapperTxJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	if dec.InnerTx == nil {
		return ErrEmptyPayload
	}
	*w = WrapperTx{
		Fee:      dec.Fee,
		PK:       dec.PK,
		Epoch:    dec.Epoch,
		gasLimit: dec.GasLimit,
		innerTx:  dec.InnerTx,
		txHash:   dec.TxHash,
	}
	return nil
}
