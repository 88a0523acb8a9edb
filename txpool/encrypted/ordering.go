package encrypted

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownPolicy = errors.New("encrypted: unknown ordering policy")

// sortByArrival orders entries by arrival sequence ascending.
func sortByArrival(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Seq < entries[j].Seq
	})
}

// PolicyByName returns the ordering policy registered under name. feeWeight
// only applies to the hybrid policy.
func PolicyByName(name string, feeWeight float64) (OrderingPolicy, error) {
	switch name {
	case "", "fee":
		return &FeeBasedOrdering{}, nil
	case "arrival":
		return &ArrivalOrdering{}, nil
	case "hybrid":
		return &HybridOrdering{FeeWeight: feeWeight}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}
