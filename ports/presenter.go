package ports

import (
	"context"
	"time"

	"ecostim/domain/stimulus"
)

// Presenter is the delivery surface a participant interacts with.
// Present blocks until the participant rates the stimulus or aborts;
// an abort is reported as core.ErrAborted.
type Presenter interface {
	Consent(ctx context.Context) (bool, error)
	Instructions(ctx context.Context) error
	BlockHeader(ctx context.Context, progress string, last bool) error
	Present(ctx context.Context, s stimulus.Stimulus) (rating int, rt time.Duration, err error)
	Finish(ctx context.Context, completed bool) error
}
