package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
)

func TestConsent(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "x\nja\n": true, "n\n": false, "q\n": false, "": false} {
		p := NewPresenter(strings.NewReader(in), &bytes.Buffer{})
		got, err := p.Consent(context.Background())
		require.NoError(t, err, in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestPresent_ReadsRatingAndTime(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPresenter(strings.NewReader("9\nabc\n5\n"), out)
	ticks := []time.Time{time.Unix(100, 0), time.Unix(102, 0)}
	p.now = func() time.Time {
		t0 := ticks[0]
		ticks = ticks[1:]
		return t0
	}

	r, rt, err := p.Present(context.Background(), stimulus.Stimulus{Name: "Skyr", OrganicBadge: true, Salience: stimulus.SalienceHigh})
	require.NoError(t, err)
	assert.Equal(t, 5, r)
	assert.Equal(t, 2*time.Second, rt)
	assert.Contains(t, out.String(), "ØKOLOGISK")
}

func TestPresent_Abort(t *testing.T) {
	p := NewPresenter(strings.NewReader("escape\n"), &bytes.Buffer{})
	_, _, err := p.Present(context.Background(), stimulus.Stimulus{Name: "Skyr"})
	assert.True(t, errors.Is(err, core.ErrAborted))
}

func TestBlockHeader_LastMarker(t *testing.T) {
	out := &bytes.Buffer{}
	p := NewPresenter(strings.NewReader("\n\n"), out)
	require.NoError(t, p.BlockHeader(context.Background(), "blok 3 / 4", false))
	assert.NotContains(t, out.String(), "sidste blok")
	require.NoError(t, p.BlockHeader(context.Background(), "blok 4 / 4", true))
	assert.Contains(t, out.String(), "(sidste blok)")
}

func TestRender_LowSalience(t *testing.T) {
	assert.Contains(t, Render(stimulus.Stimulus{Name: "Mælk", OrganicBadge: true, Salience: stimulus.SalienceLow}), "(økologisk)")
	assert.NotContains(t, Render(stimulus.Stimulus{Name: "Mælk"}), "økologisk")
}

func TestPresent_CancelledWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	p := NewPresenter(pr, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := p.Present(ctx, stimulus.Stimulus{Name: "Skyr", Salience: stimulus.SalienceLow})
	assert.True(t, errors.Is(err, context.Canceled))
}
