package dto

import "darwinawards/internal/settings"

// UpdateSettingsRequest changes a peer's display settings. Omitted fields
// keep their value.
type UpdateSettingsRequest struct {
	NumberOfDeaths *int  `json:"number_of_deaths" binding:"omitempty,min=0,max=25"`
	TimerForDeaths *uint `json:"timer_for_deaths"`
}

func (r UpdateSettingsRequest) Update() settings.Update {
	return settings.Update{NumberOfDeaths: r.NumberOfDeaths, TimerForDeaths: r.TimerForDeaths}
}

// AdminSettingsRequest changes the session-wide settings.
type AdminSettingsRequest struct {
	Locked *bool `json:"locked"`
	UpdateSettingsRequest
}
