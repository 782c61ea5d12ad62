package market

import (
	"sort"

	"switchback-market-lab/internal/domain"
)

// allocate picks which of this period's buyers receive the available units.
// The rule is deterministic by construction: FIFO orders by arrival period
// then population index; valuation-priority orders by valuation descending
// with population index as tie-break. Returns served and unserved in a
// stable order.
func allocate(buyers []*domain.ConsumerState, units int, rule domain.AllocationRule) (served, unserved []*domain.ConsumerState) {
	if units >= len(buyers) {
		return buyers, nil
	}
	if units <= 0 {
		return nil, buyers
	}

	ranked := make([]*domain.ConsumerState, len(buyers))
	copy(ranked, buyers)

	switch rule {
	case domain.AllocationValuation:
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].Valuation != ranked[j].Valuation {
				return ranked[i].Valuation > ranked[j].Valuation
			}
			return ranked[i].Index < ranked[j].Index
		})
	default: // FIFO by arrival order
		sort.SliceStable(ranked, func(i, j int) bool {
			if ranked[i].ArrivalPeriod != ranked[j].ArrivalPeriod {
				return ranked[i].ArrivalPeriod < ranked[j].ArrivalPeriod
			}
			return ranked[i].Index < ranked[j].Index
		})
	}

	return ranked[:units], ranked[units:]
}
