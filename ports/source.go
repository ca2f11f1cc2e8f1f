package ports

import (
	"context"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
)

// RowSource streams raw product rows from a dump. Absent columns are simply
// missing from the row; sources never fail on them.
type RowSource interface {
	Each(ctx context.Context, fn func(product.RawAttributes) error) error
}

// RowSink writes cleaned or flagged rows with a fixed header.
type RowSink interface {
	WriteRows(ctx context.Context, header []string, rows []product.RawAttributes) error
}

// StimulusWriter persists the tabular stimulus and trial artifacts.
type StimulusWriter interface {
	WriteStimuli(ctx context.Context, stims []stimulus.Stimulus) error
	WriteTrials(ctx context.Context, trials []stimulus.Trial) error
}

// StimulusReader loads a previously written stimulus file.
type StimulusReader interface {
	ReadStimuli(ctx context.Context) ([]stimulus.Stimulus, error)
}

// ResponseArchive saves one participant's session as a standalone file
// and returns where it went.
type ResponseArchive interface {
	Archive(ctx context.Context, p stimulus.Participant, stamp string, responses []stimulus.Response) (string, error)
}
