package dto

import (
	"time"

	"darwinawards/internal/classifier"
	"darwinawards/internal/display"
	"darwinawards/internal/shared"
)

// DeathSignalRequest is posted by the game integration when the local
// player dies.
type DeathSignalRequest struct {
	Swimming bool        `json:"swimming"`
	Falling  bool        `json:"falling"`
	Freezing bool        `json:"freezing"`
	Hit      *HitRequest `json:"hit" binding:"omitempty"`
}

type HitRequest struct {
	Attacker    *AttackerRequest `json:"attacker" binding:"omitempty"`
	Damage      DamageRequest    `json:"damage"`
	Woodcutting bool             `json:"woodcutting"`
}

type AttackerRequest struct {
	Name string `json:"name" binding:"required"`
	Kind string `json:"kind" binding:"required,oneof=boss player creature"`
}

type DamageRequest struct {
	Blunt     float64 `json:"blunt"`
	Pierce    float64 `json:"pierce"`
	Slash     float64 `json:"slash"`
	Fire      float64 `json:"fire"`
	Frost     float64 `json:"frost"`
	Lightning float64 `json:"lightning"`
	Poison    float64 `json:"poison"`
}

// Signal converts the request into a classifier input.
func (r DeathSignalRequest) Signal() classifier.DeathSignal {
	sig := classifier.DeathSignal{
		Swimming: r.Swimming,
		Falling:  r.Falling,
		Freezing: r.Freezing,
	}
	if r.Hit == nil {
		return sig
	}

	hit := &classifier.Hit{
		Damage: classifier.Damage{
			Blunt:     r.Hit.Damage.Blunt,
			Pierce:    r.Hit.Damage.Pierce,
			Slash:     r.Hit.Damage.Slash,
			Fire:      r.Hit.Damage.Fire,
			Frost:     r.Hit.Damage.Frost,
			Lightning: r.Hit.Damage.Lightning,
			Poison:    r.Hit.Damage.Poison,
		},
		Woodcutting: r.Hit.Woodcutting,
	}
	if a := r.Hit.Attacker; a != nil {
		hit.Attacker = &classifier.Attacker{Name: a.Name, Kind: classifier.AttackerKind(a.Kind)}
	}
	sig.Hit = hit
	return sig
}

// DeathResponse is the message produced for a posted death.
type DeathResponse struct {
	Category shared.Category `json:"category"`
	Text     string          `json:"text"`
}

// DisplayEntryResponse is one visible death.
type DisplayEntryResponse struct {
	Category   shared.Category `json:"category"`
	Text       string          `json:"text"`
	ReceivedAt time.Time       `json:"received_at"`
}

func NewDisplayEntries(entries []display.Entry) []DisplayEntryResponse {
	out := make([]DisplayEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, DisplayEntryResponse{
			Category:   e.Message.Category,
			Text:       e.Message.Text,
			ReceivedAt: e.ReceivedAt,
		})
	}
	return out
}
