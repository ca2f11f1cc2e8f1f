package report

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// FastResponse is the floor below which a rating is treated as not read.
const FastResponse = 300 * time.Millisecond

// TimingProfile describes the response-time distribution of a response set
type TimingProfile struct {
	N        int     `json:"n"`
	Median   float64 `json:"median_seconds"`
	Q25      float64 `json:"q25_seconds"`
	Q75      float64 `json:"q75_seconds"`
	Skewness float64 `json:"skewness"`
	// Outliers fall outside 1.5 IQR of the quartiles.
	Outliers int `json:"outliers"`
	// TooFast counts responses under FastResponse.
	TooFast int `json:"too_fast"`
}

// ProfileTimes summarizes response times in seconds. Empty input yields a zero profile.
func ProfileTimes(rts []time.Duration) (TimingProfile, error) {
	p := TimingProfile{N: len(rts)}
	if len(rts) == 0 {
		return p, nil
	}
	data := make([]float64, len(rts))
	for i, rt := range rts {
		data[i] = rt.Seconds()
		if rt < FastResponse {
			p.TooFast++
		}
	}

	var err error
	if p.Median, err = stats.Median(data); err != nil {
		return p, err
	}
	if p.Q25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return p, err
	}
	if p.Q75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return p, err
	}
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviation(data)
	p.Skewness = skewness(data, mean, sd)
	p.Outliers = outliers(data, p.Q25, p.Q75)
	return p, nil
}

// skewness is the adjusted Fisher-Pearson coefficient; 0 below three points or with no spread.
func skewness(data []float64, mean, sd float64) float64 {
	if len(data) < 3 || sd == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / sd
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

func outliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lo, hi := q25-1.5*iqr, q75+1.5*iqr
	count := 0
	for _, x := range data {
		if x < lo || x > hi {
			count++
		}
	}
	return count
}
