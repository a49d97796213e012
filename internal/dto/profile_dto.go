package dto

import (
	"github.com/noah-isme/talent-tree-api/internal/models"
	"github.com/noah-isme/talent-tree-api/internal/progression"
)

// ProfileViewResponse is the current balance of a profile together with its derived progression.
type ProfileViewResponse struct {
	ID              uint     `json:"id"`
	Username        string   `json:"username"`
	DisplayName     string   `json:"display_name"`
	ClassName       string   `json:"class_name"`
	Theme           string   `json:"theme"`
	Balance         int      `json:"balance"`
	Level           int      `json:"level"`
	LevelTitle      string   `json:"level_title"`
	MaxPoints       int      `json:"max_points"`
	GrowthStage     string   `json:"growth_stage"`
	GrowthLabel     string   `json:"growth_label"`
	Scale           float64  `json:"scale"`
	UnlockedThemes  []string `json:"unlocked_themes"`
	ProgressPercent float64  `json:"progress_percent"`
}

// NewProfileViewResponse derives the view from a single profile snapshot so
// the balance and the progression always agree.
func NewProfileViewResponse(profile models.Profile) ProfileViewResponse {
	state := progression.Evaluate(profile.TalentPoint)
	return ProfileViewResponse{
		ID:              profile.ID,
		Username:        profile.Username,
		DisplayName:     profile.DisplayName,
		ClassName:       profile.ClassName,
		Theme:           profile.Theme,
		Balance:         state.Balance,
		Level:           state.Level,
		LevelTitle:      state.LevelTitle,
		MaxPoints:       state.MaxPoints,
		GrowthStage:     state.GrowthStage,
		GrowthLabel:     state.GrowthLabel,
		Scale:           state.Scale,
		UnlockedThemes:  state.UnlockedThemes,
		ProgressPercent: state.ProgressPercent,
	}
}

// ThemeUpdateRequest selects a theme for a profile.
type ThemeUpdateRequest struct {
	Theme string `json:"theme" validate:"required,oneof=default spring summer fall winter"`
}

// ForestRequest filters the forest listing.
type ForestRequest struct {
	ClassName string `query:"class_name"`
}

// ProvisionProfileRequest creates a profile from the provisioning tooling.
type ProvisionProfileRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=150"`
	DisplayName string `json:"display_name" validate:"omitempty,max=255"`
	Role        string `json:"role" validate:"required,oneof=student teacher"`
	ClassName   string `json:"class_name" validate:"omitempty,max=50"`
}
