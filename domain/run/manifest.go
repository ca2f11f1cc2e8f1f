package run

import (
	"ecostim/domain/core"
)

// Kind distinguishes the two construction designs.
type Kind string

const (
	KindStimuli Kind = "stimuli"
	KindTrials  Kind = "trials"
)

// Manifest is the replay record of one construction run. Same fingerprint,
// same input hash: same output hash.
type Manifest struct {
	RunID       core.RunID     `json:"run_id" db:"id"`
	Kind        Kind           `json:"kind" db:"kind"`
	Seed        int64          `json:"seed" db:"seed"`
	Requested   int            `json:"requested" db:"requested"`
	Built       int            `json:"built" db:"built"`
	InputHash   core.Hash      `json:"input_hash" db:"input_hash"`
	OutputHash  core.Hash      `json:"output_hash" db:"output_hash"`
	Fingerprint Fingerprint    `json:"fingerprint" db:"fingerprint"`
	CreatedAt   core.Timestamp `json:"created_at" db:"-"`
}

// Fingerprint hashes the parameters that determine a run's output.
type Fingerprint string

// NewFingerprint computes the determinism fingerprint for a parameter set.
func NewFingerprint(kind Kind, seed int64, params map[string]interface{}) Fingerprint {
	all := make(map[string]interface{}, len(params)+2)
	for k, v := range params {
		all[k] = v
	}
	all["kind"] = string(kind)
	all["seed"] = seed
	return Fingerprint(core.ComputeParamsHash(all))
}

// NewManifest creates a manifest with a fresh run ID.
func NewManifest(kind Kind, seed int64, params map[string]interface{}, requested int) *Manifest {
	return &Manifest{
		RunID:       core.NewRunID(),
		Kind:        kind,
		Seed:        seed,
		Requested:   requested,
		Fingerprint: NewFingerprint(kind, seed, params),
		CreatedAt:   core.Now(),
	}
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.Kind != KindStimuli && m.Kind != KindTrials {
		return core.NewValidationError("run_manifest", "unknown kind "+string(m.Kind))
	}
	if m.Fingerprint == "" {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if m.Built > m.Requested {
		return core.NewValidationError("run_manifest", "built exceeds requested")
	}
	return nil
}
