package api

import (
	"time"

	"ecostim/domain/stimulus"
	"ecostim/internal/blocks"
)

// StimulusDTO carries the stimulus record with signals as 0/1
type StimulusDTO struct {
	ItemID       int    `json:"item_id"`
	ProductName  string `json:"product_name"`
	OrganicBadge int    `json:"organic_badge"`
	Salience     string `json:"salience"`
	EcoSignal    int    `json:"eco_signal"`
	EcoScore     string `json:"eco_score"`
	LangDA       int    `json:"lang_da"`
	GreenWords   int    `json:"green_words"`
	Category     string `json:"category"`
}

func toStimulusDTO(s stimulus.Stimulus) StimulusDTO {
	return StimulusDTO{
		ItemID:       s.ItemID,
		ProductName:  s.Name,
		OrganicBadge: stimulus.Bit(s.OrganicBadge),
		Salience:     string(s.Salience),
		EcoSignal:    stimulus.Bit(s.EcoSignal),
		EcoScore:     string(s.EcoScore),
		LangDA:       stimulus.Bit(s.LanguageMatch),
		GreenWords:   stimulus.Bit(s.GreenWords),
		Category:     s.Category,
	}
}

// BlockDTO is one block in delivery order
type BlockDTO struct {
	Position int           `json:"position"`
	Total    int           `json:"total"`
	Last     bool          `json:"last"`
	Progress string        `json:"progress"`
	Stimuli  []StimulusDTO `json:"stimuli"`
}

func toBlockDTOs(plan []blocks.Delivery) []BlockDTO {
	out := make([]BlockDTO, len(plan))
	for i, d := range plan {
		stims := make([]StimulusDTO, len(d.Block.Stimuli))
		for j, s := range d.Block.Stimuli {
			stims[j] = toStimulusDTO(s)
		}
		out[i] = BlockDTO{Position: d.Position, Total: d.Total, Last: d.Last(), Progress: d.Progress(), Stimuli: stims}
	}
	return out
}

// ParticipantDTO is the intake form
type ParticipantDTO struct {
	ID     string `json:"id"`
	Age    *int   `json:"age,omitempty"`
	Gender string `json:"gender"`
	Diet   string `json:"diet"`
}

// CreateSessionRequest opens a session; consent must be true
type CreateSessionRequest struct {
	RunID       string         `json:"run_id"`
	Participant ParticipantDTO `json:"participant"`
	Consent     bool           `json:"consent"`
}

type CreateSessionResponse struct {
	SessionID   string         `json:"session_id"`
	Participant ParticipantDTO `json:"participant"`
	Blocks      []BlockDTO     `json:"blocks"`
}

// ResponseDTO is one rating posted by the front end
type ResponseDTO struct {
	ItemID     int   `json:"item_id"`
	Rating     int   `json:"rating"`
	RTMillis   int64 `json:"rt_ms"`
	BlockShown int   `json:"block_shown"`
}

func (r ResponseDTO) responseTime() time.Duration {
	return time.Duration(r.RTMillis) * time.Millisecond
}

type SessionStatus struct {
	SessionID   string         `json:"session_id"`
	RunID       string         `json:"run_id"`
	Participant ParticipantDTO `json:"participant"`
	Responses   int            `json:"responses"`
	Completed   bool           `json:"completed"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
