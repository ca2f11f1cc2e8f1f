package sampling

import (
	"math/rand"
	"strings"

	"ecostim/domain/product"
	"ecostim/internal/pools"
)

// Sample draws one item from pool whose name is used fewer than maxRepeats
// times, preferring Danish items. ok is false when the pool is exhausted
// under the current counts; that is a soft failure for the caller to handle.
func Sample(rng *rand.Rand, pool pools.Pool, counts UsageCounts, maxRepeats int) (product.Item, bool) {
	if len(pool) == 0 {
		return product.Item{}, false
	}
	idxs := rng.Perm(len(pool))

	for _, i := range idxs {
		it := pool[i]
		name := strings.TrimSpace(it.Name)
		if name == "" || counts.Count(name) >= maxRepeats {
			continue
		}
		if it.LanguageMatch {
			return it, true
		}
	}

	for _, i := range idxs {
		it := pool[i]
		name := strings.TrimSpace(it.Name)
		if name != "" && counts.Count(name) < maxRepeats {
			return it, true
		}
	}
	return product.Item{}, false
}
