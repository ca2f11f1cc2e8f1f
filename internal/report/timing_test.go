package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func secs(vals ...float64) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

func TestProfileTimes(t *testing.T) {
	p, err := ProfileTimes(secs(0.1, 1, 1.1, 1.2, 1.3, 10))
	require.NoError(t, err)

	assert.Equal(t, 6, p.N)
	assert.InDelta(t, 1.15, p.Median, 1e-9)
	assert.InDelta(t, 1.0, p.Q25, 1e-9)
	assert.InDelta(t, 1.3, p.Q75, 1e-9)
	assert.Equal(t, 2, p.Outliers)
	assert.Equal(t, 1, p.TooFast)
	assert.Greater(t, p.Skewness, 0.0)
}

func TestProfileTimes_SmallInputs(t *testing.T) {
	p, err := ProfileTimes(nil)
	require.NoError(t, err)
	assert.Equal(t, TimingProfile{}, p)

	p, err = ProfileTimes(secs(2, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Skewness)
	assert.Equal(t, 0, p.Outliers)
}
