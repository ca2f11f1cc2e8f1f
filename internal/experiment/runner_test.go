package experiment

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal/sampling"
	"ecostim/internal/testkit"
	"ecostim/ports"
)

type scriptedPresenter struct {
	consent   bool
	abortAt   int // abort on the nth Present call, 0 = never
	cancelAt  int // cancel the session ctx on the nth Present call
	cancel    context.CancelFunc
	presented int
	headers   []string
	lastFlags []bool
	finished  *bool
}

func (p *scriptedPresenter) Consent(context.Context) (bool, error) { return p.consent, nil }
func (p *scriptedPresenter) Instructions(context.Context) error    { return nil }
func (p *scriptedPresenter) BlockHeader(_ context.Context, progress string, last bool) error {
	p.headers = append(p.headers, progress)
	p.lastFlags = append(p.lastFlags, last)
	return nil
}
func (p *scriptedPresenter) Present(ctx context.Context, s stimulus.Stimulus) (int, time.Duration, error) {
	p.presented++
	if p.abortAt > 0 && p.presented == p.abortAt {
		return 0, 0, core.ErrAborted
	}
	if p.cancelAt > 0 && p.presented == p.cancelAt {
		p.cancel()
		return 0, 0, ctx.Err()
	}
	return 1 + s.ItemID%7, 250 * time.Millisecond, nil
}
func (p *scriptedPresenter) Finish(_ context.Context, completed bool) error {
	p.finished = &completed
	return nil
}

type memArchive struct {
	calls     int
	responses []stimulus.Response
	who       stimulus.Participant
}

func (a *memArchive) Archive(ctx context.Context, p stimulus.Participant, stamp string, rs []stimulus.Response) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	a.calls++
	a.responses = rs
	a.who = p
	return p.ID + "_" + stamp + ".csv", nil
}

type memSessions struct {
	created   []ports.SessionRecord
	completed []core.SessionID
}

func (m *memSessions) CreateSession(_ context.Context, s ports.SessionRecord) error {
	m.created = append(m.created, s)
	return nil
}
func (m *memSessions) GetSession(context.Context, core.SessionID) (*ports.SessionRecord, error) {
	return nil, core.ErrSessionNotFound
}
func (m *memSessions) MarkCompleted(_ context.Context, id core.SessionID) error {
	m.completed = append(m.completed, id)
	return nil
}

func stimuli(t *testing.T) []stimulus.Stimulus {
	t.Helper()
	items := testkit.NewCatalogGenerator(testkit.Uniform(20, 3)).Items()
	stims, err := sampling.BuildStimuli(items, sampling.StimulusParams{PerCell: 8, Seed: 3})
	require.NoError(t, err)
	return stims
}

func TestRun_Completed(t *testing.T) {
	pres := &scriptedPresenter{consent: true}
	archive := &memArchive{}
	sessions := &memSessions{}
	r := NewRunner(pres, archive, sessions, nil, nil)

	res, err := r.Run(context.Background(), core.NewRunID(), stimuli(t), stimulus.Participant{ID: " "}, 4, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Len(t, res.Responses, 32)
	assert.Equal(t, "anon", res.Participant.ID)
	assert.True(t, res.Participant.Consent)

	assert.Equal(t, []string{"blok 1 / 4", "blok 2 / 4", "blok 3 / 4", "blok 4 / 4"}, pres.headers)
	assert.Equal(t, []bool{false, false, false, true}, pres.lastFlags)
	require.NotNil(t, pres.finished)
	assert.True(t, *pres.finished)

	for i, resp := range res.Responses {
		assert.Equal(t, i/8+1, resp.BlockShown)
		assert.True(t, stimulus.ValidRating(resp.Rating))
	}
	assert.Equal(t, 1, archive.calls)
	assert.Len(t, sessions.created, 1)
	assert.Equal(t, []core.SessionID{res.SessionID}, sessions.completed)
}

func TestRun_ConsentDeclinedSavesNothing(t *testing.T) {
	archive := &memArchive{}
	sessions := &memSessions{}
	r := NewRunner(&scriptedPresenter{consent: false}, archive, sessions, nil, nil)

	res, err := r.Run(context.Background(), core.NewRunID(), stimuli(t), stimulus.Participant{ID: "p1"}, 4, rand.New(rand.NewSource(1)))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, core.ErrConsentDeclined))
	assert.Zero(t, archive.calls)
	assert.Empty(t, sessions.created)
}

func TestRun_AbortSavesPartial(t *testing.T) {
	pres := &scriptedPresenter{consent: true, abortAt: 11}
	archive := &memArchive{}
	sessions := &memSessions{}
	r := NewRunner(pres, archive, sessions, nil, nil)

	res, err := r.Run(context.Background(), core.NewRunID(), stimuli(t), stimulus.Participant{ID: "p2"}, 4, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Len(t, res.Responses, 10)
	assert.Equal(t, 1, archive.calls)
	assert.Len(t, archive.responses, 10)
	assert.Empty(t, sessions.completed)
	require.NotNil(t, pres.finished)
	assert.False(t, *pres.finished)
}

func TestPlan_EmptySet(t *testing.T) {
	_, err := Plan(nil, 4, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, core.ErrNoItems))
}

func TestRun_CancelledContextSavesPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pres := &scriptedPresenter{consent: true, cancelAt: 6, cancel: cancel}
	archive := &memArchive{}
	sessions := &memSessions{}
	r := NewRunner(pres, archive, sessions, nil, nil)

	res, err := r.Run(ctx, core.NewRunID(), stimuli(t), stimulus.Participant{ID: "p3"}, 4, rand.New(rand.NewSource(4)))
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Len(t, res.Responses, 5)
	assert.Equal(t, 1, archive.calls)
	assert.Len(t, archive.responses, 5)
	assert.Equal(t, "p3_", res.Path[:3])
	assert.Empty(t, sessions.completed)
}
