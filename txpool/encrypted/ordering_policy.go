package encrypted

import (
	"math/big"
	"sort"
)

// OrderingPolicy defines how transactions are ordered after decryption.
type OrderingPolicy interface {
	// Order returns the given entries sorted according to the policy. The
	// input is in arrival order and must not be modified.
	Order(entries []Decrypted) []Decrypted
	// Name returns the policy name for logging/config.
	Name() string
}

// ArrivalOrdering orders transactions by arrival in the pool
// (first-come-first-served). Fees play no role in the order.
type ArrivalOrdering struct{}

func (o *ArrivalOrdering) Name() string { return "arrival" }

func (o *ArrivalOrdering) Order(entries []Decrypted) []Decrypted {
	sorted := make([]Decrypted, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Entry.Seq < sorted[j].Entry.Seq
	})
	return sorted
}

// FeeBasedOrdering orders transactions by declared fee amount (highest
// first); equal fees keep arrival order. Amounts are compared regardless of
// the fee token.
type FeeBasedOrdering struct{}

func (o *FeeBasedOrdering) Name() string { return "fee" }

func (o *FeeBasedOrdering) Order(entries []Decrypted) []Decrypted {
	sorted := make([]Decrypted, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		c := feeOf(sorted[i]).Cmp(feeOf(sorted[j]))
		if c != 0 {
			return c > 0
		}
		return sorted[i].Entry.Seq < sorted[j].Entry.Seq
	})
	return sorted
}

func feeOf(d Decrypted) *big.Int {
	return d.Entry.Wrapper.Fee.Amount.Big()
}

// HybridOrdering combines arrival priority with fee priority using a
// configurable weight:
//
//	score = (1 - FeeWeight) * arrivalScore + FeeWeight * feeScore
//
// FeeWeight 0 degenerates to ArrivalOrdering and 1 to FeeBasedOrdering.
type HybridOrdering struct {
	FeeWeight float64 // 0.0 to 1.0
}

func (o *HybridOrdering) Name() string { return "hybrid" }

func (o *HybridOrdering) Order(entries []Decrypted) []Decrypted {
	if len(entries) == 0 {
		return entries
	}

	w := o.FeeWeight
	if w < 0 {
		w = 0
	}
	if w > 1 {
		w = 1
	}

	minSeq, maxSeq := entries[0].Entry.Seq, entries[0].Entry.Seq
	minFee := feeOf(entries[0])
	maxFee := new(big.Int).Set(minFee)
	for _, e := range entries[1:] {
		if s := e.Entry.Seq; s < minSeq {
			minSeq = s
		} else if s > maxSeq {
			maxSeq = s
		}
		fee := feeOf(e)
		if fee.Cmp(minFee) < 0 {
			minFee = fee
		}
		if fee.Cmp(maxFee) > 0 {
			maxFee = fee
		}
	}

	seqRange := float64(maxSeq - minSeq)
	feeRange, _ := new(big.Float).SetInt(new(big.Int).Sub(maxFee, minFee)).Float64()

	type scored struct {
		entry Decrypted
		score float64
	}
	scores := make([]scored, len(entries))
	for i, e := range entries {
		// Earliest arrival scores 1, latest 0.
		arrivalScore := 1.0
		if seqRange > 0 {
			arrivalScore = 1.0 - float64(e.Entry.Seq-minSeq)/seqRange
		}
		// Highest fee scores 1, lowest 0.
		feeScore := 1.0
		if feeRange > 0 {
			d, _ := new(big.Float).SetInt(new(big.Int).Sub(feeOf(e), minFee)).Float64()
			feeScore = d / feeRange
		}
		scores[i] = scored{entry: e, score: (1-w)*arrivalScore + w*feeScore}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].entry.Entry.Seq < scores[j].entry.Entry.Seq
	})

	result := make([]Decrypted, len(scores))
	for i, s := range scores {
		result[i] = s.entry
	}
	return result
}
