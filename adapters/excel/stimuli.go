package excel

import (
	"context"
	"fmt"
	"strings"

	"ecostim/domain/product"
	"ecostim/domain/stimulus"
	"ecostim/ports"
)

var _ ports.StimulusReader = (*DataReader)(nil)

// ReadStimuli loads a stimulus file, requiring RequiredStimulusColumns.
func (r *DataReader) ReadStimuli(ctx context.Context) ([]stimulus.Stimulus, error) {
	headers, err := r.Headers()
	if err != nil {
		return nil, err
	}
	if missing := MissingColumns(headers, RequiredStimulusColumns); len(missing) > 0 {
		return nil, fmt.Errorf("stimulus file %s is missing columns: %s", r.filePath, strings.Join(missing, ", "))
	}
	var out []stimulus.Stimulus
	err = r.Each(ctx, func(row product.RawAttributes) error {
		s, err := ParseStimulus(row)
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

// ReadTrials loads a trial file written by WriteTrials.
func (r *DataReader) ReadTrials(ctx context.Context) ([]stimulus.Trial, error) {
	headers, err := r.Headers()
	if err != nil {
		return nil, err
	}
	if missing := MissingColumns(headers, TrialColumns); len(missing) > 0 {
		return nil, fmt.Errorf("trial file %s is missing columns: %s", r.filePath, strings.Join(missing, ", "))
	}
	var out []stimulus.Trial
	err = r.Each(ctx, func(row product.RawAttributes) error {
		t, err := ParseTrial(row)
		if err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// MissingColumns lists required names absent from headers.
func MissingColumns(headers, required []string) []string {
	have := make(map[string]bool, len(headers))
	for _, h := range headers {
		have[h] = true
	}
	var missing []string
	for _, c := range required {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
