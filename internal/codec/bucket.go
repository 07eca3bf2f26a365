package codec

import (
	"sort"

	"stegochat/internal/lm"
)

const (
	// scaleBits is the fixed-point precision of quantized probabilities.
	scaleBits  = 16
	scaleTotal = 1 << scaleBits
)

type (
	// buckets is the shared distribution-bucket primitive: an ordered set
	// of candidate tokens with half-open cumulative intervals quantized to
	// scaleTotal. Given the same candidates and probabilities it always
	// yields the same intervals, which is what makes a coding step taken
	// on one machine invertible on another.
	buckets struct {
		ids []lm.Token // ascending token id
		cum []uint32   // len(ids)+1 boundaries, cum[0]=0, cum[len]=scaleTotal
	}
)

// newBuckets quantizes probabilities for the given candidate tokens into
// integer frequencies summing to exactly scaleTotal, every candidate >= 1.
// ids must be in ascending token-id order; probs is parallel to ids.
// Rounding slack is resolved by largest remainder, ties by lower index, so the
// construction is deterministic.
func newBuckets(ids []lm.Token, probs []float64) buckets {
	n := len(ids)
	if n == 0 || n >= scaleTotal {
		panic("codec: candidate set size out of range")
	}

	var sum float64
	for _, p := range probs {
		if p > 0 {
			sum += p
		}
	}

	spread := uint32(scaleTotal - n) // n counts reserved so every bucket is non-empty
	freqs := make([]uint32, n)
	fracs := make([]float64, n)
	var used uint32
	for i, p := range probs {
		if p < 0 || sum <= 0 {
			p = 0
		} else {
			p /= sum
		}
		exact := p * float64(spread)
		base := uint32(exact)
		freqs[i] = 1 + base
		fracs[i] = exact - float64(base)
		used += base
	}

	// hand the remaining counts to the largest remainders
	rest := spread - used
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if fracs[ia] != fracs[ib] {
			return fracs[ia] > fracs[ib]
		}
		return ia < ib
	})
	for i := uint32(0); i < rest; i++ {
		freqs[order[i%uint32(n)]]++
	}

	cum := make([]uint32, n+1)
	for i, f := range freqs {
		cum[i+1] = cum[i] + f
	}
	return buckets{ids: ids, cum: cum}
}

// locate finds the bucket whose [cum[i], cum[i+1]) interval contains v,
// with v in [0, scaleTotal).
func (b buckets) locate(v uint32) int {
	i := sort.Search(len(b.ids), func(i int) bool { return b.cum[i+1] > v })
	return i
}

// bounds returns the half-open cumulative interval of bucket i.
func (b buckets) bounds(i int) (lo, hi uint32) {
	return b.cum[i], b.cum[i+1]
}

// indexOf finds the bucket holding token id, if it is a candidate at all.
func (b buckets) indexOf(id lm.Token) (int, bool) {
	i := sort.Search(len(b.ids), func(i int) bool { return b.ids[i] >= id })
	if i < len(b.ids) && b.ids[i] == id {
		return i, true
	}
	return 0, false
}
