package ports

import (
	"context"

	"ecostim/domain/core"
	"ecostim/domain/run"
	"ecostim/domain/stimulus"
)

// RunRepository records construction runs and their fingerprints
type RunRepository interface {
	SaveRun(ctx context.Context, m run.Manifest) error
	GetRun(ctx context.Context, id core.RunID) (*run.Manifest, error)
	ListRuns(ctx context.Context, limit int) ([]run.Manifest, error)
}

// StimulusRepository stores the stimulus set produced by a run
type StimulusRepository interface {
	SaveStimuli(ctx context.Context, runID core.RunID, stims []stimulus.Stimulus) error
	GetStimuli(ctx context.Context, runID core.RunID) ([]stimulus.Stimulus, error)
}

// SessionRecord is one delivery session of one participant
type SessionRecord struct {
	ID          core.SessionID
	RunID       core.RunID
	Participant stimulus.Participant
	StartedAt   core.Timestamp
	Completed   bool
}

// SessionRepository tracks delivery sessions
type SessionRepository interface {
	CreateSession(ctx context.Context, s SessionRecord) error
	GetSession(ctx context.Context, id core.SessionID) (*SessionRecord, error)
	MarkCompleted(ctx context.Context, id core.SessionID) error
}

// ResponseRepository appends participant ratings
type ResponseRepository interface {
	SaveResponses(ctx context.Context, sessionID core.SessionID, responses []stimulus.Response) error
	ListResponses(ctx context.Context, sessionID core.SessionID) ([]stimulus.Response, error)
	ListRunResponses(ctx context.Context, runID core.RunID) ([]stimulus.Response, error)
}
