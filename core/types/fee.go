package types

import "strconv"

// Epoch identifies an era of the ledger. The epoch recorded in a wrapper
// transaction selects the key its payload is encrypted to.
type Epoch uint64

// String implements fmt.Stringer.
func (e Epoch) String() string { return strconv.FormatUint(uint64(e), 10) }

// Fee is an amount of a specified token paid for including a transaction.
type Fee struct {
	Amount Amount  `json:"amount"`
	Token  Address `json:"token"`
}

// NewFee returns a fee of amount units of token.
func NewFee(amount Amount, token Address) Fee {
	return Fee{Amount: amount, Token: token}
}

// Equal reports whether both fees charge the same amount of the same token.
func (f Fee) Equal(other Fee) bool {
	return f.Token == other.Token && f.Amount.Cmp(other.Amount) == 0
}
