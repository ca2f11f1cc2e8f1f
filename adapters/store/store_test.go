package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecostim/domain/core"
	"ecostim/domain/product"
	"ecostim/domain/run"
	"ecostim/domain/stimulus"
	"ecostim/ports"
)

func newTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepositories(db)
}

func sampleStimuli() []stimulus.Stimulus {
	return []stimulus.Stimulus{
		{ItemID: 1, Name: "Økomælk", OrganicBadge: true, EcoSignal: true, EcoScore: product.EcoScoreA, Salience: stimulus.SalienceLow, Category: "dairies", LanguageMatch: true},
		{ItemID: 2, Name: "Chips", EcoScore: product.EcoScoreD, Salience: stimulus.SalienceHigh, Category: "snacks"},
	}
}

func saveRun(t *testing.T, repos *Repositories) run.Manifest {
	t.Helper()
	m := run.NewManifest(run.KindStimuli, 637, map[string]interface{}{"per_cell": 1}, 2)
	m.Built = 2
	require.NoError(t, repos.Runs.SaveRun(context.Background(), *m))
	return *m
}

func TestRunRepository(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	m := saveRun(t, repos)

	got, err := repos.Runs.GetRun(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, m.Fingerprint, got.Fingerprint)
	assert.Equal(t, int64(637), got.Seed)
	assert.Equal(t, 2, got.Built)

	list, err := repos.Runs.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repos.Runs.GetRun(ctx, core.NewRunID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestStimulusRepository_RoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	m := saveRun(t, repos)

	require.NoError(t, repos.Stimuli.SaveStimuli(ctx, m.RunID, sampleStimuli()))
	// saving again replaces
	require.NoError(t, repos.Stimuli.SaveStimuli(ctx, m.RunID, sampleStimuli()))

	got, err := repos.Stimuli.GetStimuli(ctx, m.RunID)
	require.NoError(t, err)
	assert.Equal(t, sampleStimuli(), got)
}

func TestSessionAndResponses(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	m := saveRun(t, repos)
	require.NoError(t, repos.Stimuli.SaveStimuli(ctx, m.RunID, sampleStimuli()))

	age := 24
	rec := ports.SessionRecord{
		ID:          core.NewSessionID(),
		RunID:       m.RunID,
		Participant: stimulus.Participant{ID: "p7", Age: &age, Consent: true},
		StartedAt:   core.Now(),
	}
	require.NoError(t, repos.Sessions.CreateSession(ctx, rec))

	stims := sampleStimuli()
	require.NoError(t, repos.Responses.SaveResponses(ctx, rec.ID, []stimulus.Response{
		{Stimulus: stims[1], Rating: 2, ResponseTime: 1500 * time.Millisecond, BlockShown: 1},
	}))
	require.NoError(t, repos.Responses.SaveResponses(ctx, rec.ID, []stimulus.Response{
		{Stimulus: stims[0], Rating: 7, ResponseTime: 800 * time.Millisecond, BlockShown: 2},
	}))

	got, err := repos.Responses.ListResponses(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Chips", got[0].Name)
	assert.Equal(t, 1500*time.Millisecond, got[0].ResponseTime)
	assert.Equal(t, 7, got[1].Rating)
	assert.True(t, got[1].OrganicBadge)

	byRun, err := repos.Responses.ListRunResponses(ctx, m.RunID)
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	require.NoError(t, repos.Sessions.MarkCompleted(ctx, rec.ID))
	sess, err := repos.Sessions.GetSession(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, sess.Completed)
	require.NotNil(t, sess.Participant.Age)
	assert.Equal(t, 24, *sess.Participant.Age)
}

func TestSaveResponses_RejectsInvalidRating(t *testing.T) {
	repos := newTestRepos(t)
	err := repos.Responses.SaveResponses(context.Background(), core.NewSessionID(), []stimulus.Response{{Rating: 8}})
	assert.True(t, errors.Is(err, core.ErrInvalidRating))
}

func TestMarkCompleted_Unknown(t *testing.T) {
	repos := newTestRepos(t)
	err := repos.Sessions.MarkCompleted(context.Background(), core.NewSessionID())
	assert.True(t, core.IsNotFoundError(err))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
