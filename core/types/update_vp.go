package types

import (
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

var ErrEmptyVpCode = errors.New("types: empty validity predicate code")

// UpdateVp is the data of a transaction that replaces the validity
// predicate of an account.
type UpdateVp struct {
	Addr   Address
	VpCode []byte
}

type updateVpJSON struct {
	Addr   Address       `json:"addr"`
	VpCode hexutil.Bytes `json:"vp_code"`
}

// Bytes returns the canonical binary encoding, used as Tx data.
func (u *UpdateVp) Bytes() ([]byte, error) {
	return rlp.EncodeToBytes(u)
}

// UpdateVpFromBytes decodes the canonical binary encoding.
func UpdateVpFromBytes(b []byte) (*UpdateVp, error) {
	u := new(UpdateVp)
	if err := rlp.DecodeBytes(b, u); err != nil {
		return nil, err
	}
	if len(u.VpCode) == 0 {
		return nil, ErrEmptyVpCode
	}
	return u, nil
}

// MarshalJSON implements json.Marshaler.
func (u *UpdateVp) MarshalJSON() ([]byte, error) {
	return json.Marshal(updateVpJSON{Addr: u.Addr, VpCode: u.VpCode})
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *UpdateVp) UnmarshalJSON(input []byte) error {
	var dec updateVpJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	u.Addr = dec.Addr
	u.VpCode = dec.VpCode
	return nil
}
