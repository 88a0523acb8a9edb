package types

import (
	"encoding/json"
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// GasLimitResolution is the granularity of declared gas limits. Quantizing
// limits to a coarse resolution limits what an observer can infer about the
// hidden inner transaction from its public metadata. The larger the
// resolution, the less is leaked.
const GasLimitResolution uint64 = 1_000_000

// maxGasLimitMultiplier is the largest multiplier whose expanded value fits
// in a uint64.
const maxGasLimitMultiplier = math.MaxUint64 / GasLimitResolution

// GasLimit is a gas budget that is always a multiple of GasLimitResolution.
// Only the multiplier is stored; encodings carry the expanded value.
type GasLimit struct {
	multiplier uint64
}

// GasLimitFromUint64 rounds raw up to the next multiple of GasLimitResolution.
// Values too large to round up without overflowing saturate at the largest
// representable multiple.
func GasLimitFromUint64(raw uint64) GasLimit {
	m := raw / GasLimitResolution
	if m*GasLimitResolution < raw {
		m++
	}
	if m > maxGasLimitMultiplier {
		m = maxGasLimitMultiplier
	}
	return GasLimit{multiplier: m}
}

// GasLimitFromAmount rounds an amount up like GasLimitFromUint64. Amounts
// beyond uint64 saturate.
func GasLimitFromAmount(a Amount) GasLimit {
	u, ok := a.Uint64()
	if !ok {
		u = math.MaxUint64
	}
	return GasLimitFromUint64(u)
}

// Multiplier returns the number of resolution units in the limit.
func (g GasLimit) Multiplier() uint64 { return g.multiplier }

// Uint64 returns the expanded gas limit.
func (g GasLimit) Uint64() uint64 { return g.multiplier * GasLimitResolution }

// Amount returns the expanded gas limit as an Amount.
func (g GasLimit) Amount() Amount { return NewAmount(g.Uint64()) }

// RefundAmount returns the gas refunded after the inner transaction used
// usedGas. Refunds never exceed one resolution unit; an exhausted limit is
// not refunded.
//
// The first threshold, limit minus one resolution unit, saturates at zero,
// so a zero limit never refunds anything.
func (g GasLimit) RefundAmount(usedGas uint64) Amount {
	limit := g.Uint64()
	var threshold uint64
	if limit > GasLimitResolution {
		threshold = limit - GasLimitResolution
	}
	switch {
	case usedGas < threshold:
		return NewAmount(GasLimitResolution)
	case usedGas >= limit:
		return NewAmount(0)
	default:
		return NewAmount(limit - usedGas)
	}
}

// MarshalJSON encodes the limit as its expanded integer value.
func (g GasLimit) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Uint64())
}

// UnmarshalJSON decodes an integer, rounding it up to the resolution.
func (g *GasLimit) UnmarshalJSON(input []byte) error {
	var raw uint64
	if err := json.Unmarshal(input, &raw); err != nil {
		return err
	}
	*g = GasLimitFromUint64(raw)
	return nil
}

// EncodeRLP encodes the limit as its expanded integer value.
func (g GasLimit) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, g.Uint64())
}

// DecodeRLP decodes an integer, rounding it up to the resolution.
func (g *GasLimit) DecodeRLP(s *rlp.Stream) error {
	raw, err := s.Uint64()
	if err != nil {
		return err
	}
	*g = GasLimitFromUint64(raw)
	return nil
}
