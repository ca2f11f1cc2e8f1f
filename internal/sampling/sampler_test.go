package sampling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/product"
	"ecostim/internal/pools"
)

func TestSample_PrefersLanguageMatch(t *testing.T) {
	pool := pools.Pool{
		{Name: "Apple Juice"},
		{Name: "Æblemost", LanguageMatch: true},
		{Name: "Orange Juice"},
	}
	for seed := int64(0); seed < 20; seed++ {
		it, ok := Sample(NewStream(seed), pool, NewNameUsage(), 5)
		require.True(t, ok)
		assert.Equal(t, "Æblemost", it.Name, "seed %d", seed)
	}
}

func TestSample_FallsBackWhenDanishCapped(t *testing.T) {
	pool := pools.Pool{
		{Name: "Æblemost", LanguageMatch: true},
		{Name: "Apple Juice"},
	}
	usage := NewNameUsage()
	usage.Increment("Æblemost")
	usage.Increment("Æblemost")

	it, ok := Sample(NewStream(1), pool, usage, 2)
	require.True(t, ok)
	assert.Equal(t, "Apple Juice", it.Name)
}

func TestSample_Exhausted(t *testing.T) {
	pool := pools.Pool{{Name: "Skyr"}, {Name: "  "}}
	usage := NewNameUsage()
	usage.Increment("Skyr")

	_, ok := Sample(NewStream(1), pool, usage, 1)
	assert.False(t, ok)

	_, ok = Sample(NewStream(1), nil, usage, 1)
	assert.False(t, ok)
}

func TestSample_Deterministic(t *testing.T) {
	var pool pools.Pool
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		pool = append(pool, product.Item{Name: n})
	}
	a, _ := Sample(NewStream(99), pool, NewNameUsage(), 5)
	b, _ := Sample(NewStream(99), pool, NewNameUsage(), 5)
	assert.Equal(t, a, b)
}

func TestNameUsage(t *testing.T) {
	u := NewNameUsage()
	u.Increment(" Skyr ")
	u.Increment("Skyr")
	u.Increment("")
	assert.Equal(t, 2, u.Count("Skyr"))
	assert.Equal(t, 1, u.Len())
	assert.Equal(t, 2, u.Max())

	p := withPending{base: u, name: "Skyr "}
	assert.Equal(t, 3, p.Count("Skyr"))
	assert.Equal(t, 0, p.Count("Ost"))
}

func TestDeriveCellSeed(t *testing.T) {
	assert.Equal(t, int64(637+7919), DeriveCellSeed(637, product.CellNonEcoNoLabel))
	assert.Equal(t, int64(637+4*7919), DeriveCellSeed(637, product.CellEcoLabel))
}
