package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/stimulus"
)

func resp(badge, eco bool, sal stimulus.Salience, rating int) stimulus.Response {
	return stimulus.Response{
		Stimulus:     stimulus.Stimulus{OrganicBadge: badge, EcoSignal: eco, Salience: sal},
		Rating:       rating,
		ResponseTime: 1500 * time.Millisecond,
	}
}

func TestSummarize(t *testing.T) {
	rows := []Participant{
		{ID: "p1", Response: resp(true, true, stimulus.SalienceHigh, 7)},
		{ID: "p2", Response: resp(true, true, stimulus.SalienceHigh, 5)},
		{ID: "p2", Response: resp(true, true, stimulus.SalienceHigh, 6)},
		{ID: "p1", Response: resp(false, false, stimulus.SalienceLow, 2)},
	}
	s, err := Summarize(rows)
	require.NoError(t, err)

	assert.Equal(t, 4, s.Responses)
	assert.Equal(t, 2, s.Participants)
	require.Len(t, s.Cells, 2)

	first := s.Cells[0]
	assert.False(t, first.Key.OrganicBadge)
	assert.Equal(t, 1, first.N)
	assert.Equal(t, 2.0, first.Mean)
	assert.Equal(t, 0.0, first.StdDev)

	last := s.Cells[1]
	assert.Equal(t, 3, last.N)
	assert.InDelta(t, 6.0, last.Mean, 1e-9)
	assert.InDelta(t, 6.0, last.Median, 1e-9)
	assert.InDelta(t, 1.0, last.StdDev, 1e-9)
	assert.InDelta(t, 1.5, last.MeanRT, 1e-9)
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize(nil)
	require.NoError(t, err)
	assert.Empty(t, s.Cells)
}

func TestRender(t *testing.T) {
	s, err := Summarize([]Participant{{ID: "p", Response: resp(true, false, stimulus.SalienceLow, 4)}})
	require.NoError(t, err)

	md := s.Markdown()
	assert.Contains(t, md, "| 1 | 0 | low | 1 | 4.00 | 4.00 | 0.00 | 1.500 |")

	out := s.HTML()
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "4.00")
}
