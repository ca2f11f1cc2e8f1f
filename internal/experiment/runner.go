package experiment

import (
	"context"
	"errors"
	"math/rand"

	"ecostim/domain/core"
	"ecostim/domain/stimulus"
	"ecostim/internal"
	"ecostim/internal/blocks"
	"ecostim/ports"
)

// Runner delivers a stimulus set to one participant through a Presenter
type Runner struct {
	presenter ports.Presenter
	archive   ports.ResponseArchive
	sessions  ports.SessionRepository
	responses ports.ResponseRepository
	logger    *internal.Logger
	now       func() core.Timestamp
}

// NewRunner wires a runner. archive, sessions and responses may be nil.
func NewRunner(presenter ports.Presenter, archive ports.ResponseArchive, sessions ports.SessionRepository, responses ports.ResponseRepository, logger *internal.Logger) *Runner {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &Runner{
		presenter: presenter,
		archive:   archive,
		sessions:  sessions,
		responses: responses,
		logger:    logger,
		now:       core.Now,
	}
}

// Result is the outcome of one delivery session
type Result struct {
	SessionID   core.SessionID
	Participant stimulus.Participant
	Responses   []stimulus.Response
	Completed   bool
	Path        string
}

// Run executes consent, instructions and every block in randomized order.
// Declining consent returns core.ErrConsentDeclined and saves nothing. An
// abort or a cancelled ctx after consent saves what was rated so far and
// returns the partial result.
func (r *Runner) Run(ctx context.Context, runID core.RunID, stims []stimulus.Stimulus, p stimulus.Participant, nBlocks int, rng *rand.Rand) (*Result, error) {
	p = stimulus.NormalizeParticipant(p)
	p.Consent = false

	plan, err := Plan(stims, nBlocks, rng)
	if err != nil {
		return nil, err
	}

	ok, err := r.presenter.Consent(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.logger.Info("participant %s declined consent; nothing saved", p.ID)
		return nil, core.ErrConsentDeclined
	}
	p.Consent = true

	started := r.now()
	res := &Result{SessionID: core.NewSessionID(), Participant: p}
	if r.sessions != nil {
		rec := ports.SessionRecord{ID: res.SessionID, RunID: runID, Participant: p, StartedAt: started}
		if err := r.sessions.CreateSession(ctx, rec); err != nil {
			return nil, err
		}
	}

	deliverErr := r.deliver(ctx, plan, res)
	aborted := interrupted(deliverErr)
	if deliverErr != nil && !aborted {
		return nil, deliverErr
	}
	res.Completed = !aborted

	// partial data must survive the cancellation that ended the session
	saveCtx := context.WithoutCancel(ctx)
	if err := r.presenter.Finish(saveCtx, res.Completed); err != nil {
		r.logger.Warn("finish screen failed: %v", err)
	}

	if err := r.save(saveCtx, res, started); err != nil {
		return res, err
	}
	if aborted {
		r.logger.Warn("session %s aborted after %d responses; partial data saved to %s", res.SessionID, len(res.Responses), res.Path)
	} else {
		r.logger.Info("session %s completed with %d responses", res.SessionID, len(res.Responses))
	}
	return res, nil
}

// interrupted reports whether delivery stopped early on participant request
// or because the session context ended.
func interrupted(err error) bool {
	return errors.Is(err, core.ErrAborted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (r *Runner) deliver(ctx context.Context, plan []blocks.Delivery, res *Result) error {
	if err := r.presenter.Instructions(ctx); err != nil {
		return err
	}
	for _, d := range plan {
		if err := r.presenter.BlockHeader(ctx, d.Progress(), d.Last()); err != nil {
			return err
		}
		for _, s := range d.Block.Stimuli {
			rating, rt, err := r.presenter.Present(ctx, s)
			if err != nil {
				return err
			}
			res.Responses = append(res.Responses, stimulus.Response{
				Stimulus:     s,
				Rating:       rating,
				ResponseTime: rt,
				BlockShown:   d.Position,
			})
		}
	}
	return nil
}

func (r *Runner) save(ctx context.Context, res *Result, started core.Timestamp) error {
	if r.archive != nil {
		path, err := r.archive.Archive(ctx, res.Participant, started.FileStamp(), res.Responses)
		if err != nil {
			return err
		}
		res.Path = path
	}
	if r.responses != nil && len(res.Responses) > 0 {
		if err := r.responses.SaveResponses(ctx, res.SessionID, res.Responses); err != nil {
			return err
		}
	}
	if r.sessions != nil && res.Completed {
		return r.sessions.MarkCompleted(ctx, res.SessionID)
	}
	return nil
}
