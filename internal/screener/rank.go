package screener

import "sort"

// Rank orders scored candidates by score descending; ties break by tx count
// descending, then liquidity descending, then token address ascending. The
// resulting order is total and independent of input order.
func Rank(batch []*Candidate) []*Candidate {
	ranked := make([]*Candidate, len(batch))
	copy(ranked, batch)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]

		switch {
		case a.Score == nil && b.Score == nil:
			// fall through to tie-breaks
		case a.Score == nil:
			return false
		case b.Score == nil:
			return true
		default:
			if cmp := a.Score.Cmp(*b.Score); cmp != 0 {
				return cmp > 0
			}
		}

		if a.Pair.TxCount24h != b.Pair.TxCount24h {
			return a.Pair.TxCount24h > b.Pair.TxCount24h
		}
		if cmp := a.Pair.LiquidityUSD.Cmp(b.Pair.LiquidityUSD); cmp != 0 {
			return cmp > 0
		}
		return a.Profile.TokenAddress < b.Profile.TokenAddress
	})

	return ranked
}
