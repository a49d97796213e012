// Package progression derives the visual progression state of a profile from
// its talent balance. Every function is pure; callers recompute on each read.
package progression

import "slices"

// Theme identifiers.
const (
	ThemeDefault = "default"
	ThemeSpring  = "spring"
	ThemeSummer  = "summer"
	ThemeFall    = "fall"
	ThemeWinter  = "winter"
)

// Level is a coarse progression tier gating theme unlocks.
type Level struct {
	Number    int
	Title     string
	MinPoints int
	MaxPoints int
	Unlocks   []string
}

// GrowthStage is the finer tree-growth tier.
type GrowthStage struct {
	Key       string
	Label     string
	MinPoints int
	Scale     float64
}

// State is the derived progression for a balance.
type State struct {
	Balance         int
	Level           int
	LevelTitle      string
	MaxPoints       int
	GrowthStage     string
	GrowthLabel     string
	Scale           float64
	UnlockedThemes  []string
	ProgressPercent float64
}

// levels are ordered by MinPoints; each level unlocks its themes on top of the previous ones.
var levels = []Level{
	{Number: 1, Title: "sprout", MinPoints: 0, MaxPoints: 30, Unlocks: []string{ThemeDefault}},
	{Number: 2, Title: "flourishing", MinPoints: 30, MaxPoints: 60, Unlocks: []string{ThemeSpring, ThemeSummer}},
	{Number: 3, Title: "forest", MinPoints: 60, MaxPoints: 90, Unlocks: []string{ThemeFall, ThemeWinter}},
}

var stages = []GrowthStage{
	{Key: "seed", Label: "새싹", MinPoints: 0, Scale: 0.5},
	{Key: "sprout", Label: "쑥쑥 자라는 묘목", MinPoints: 5, Scale: 0.7},
	{Key: "sturdy", Label: "든든한 나무", MinPoints: 10, Scale: 0.8},
	{Key: "lush", Label: "울창한 큰 나무", MinPoints: 30, Scale: 1.0},
	{Key: "legendary", Label: "전설의 세계수", MinPoints: 60, Scale: 1.2},
}

// Themes lists every theme in unlock order.
func Themes() []string {
	all := make([]string, 0, 5)
	for _, level := range levels {
		all = append(all, level.Unlocks...)
	}
	return all
}

// IsKnownTheme reports whether theme is one of the defined themes.
func IsKnownTheme(theme string) bool {
	return slices.Contains(Themes(), theme)
}

// LevelFor returns the level reached at balance.
func LevelFor(balance int) Level {
	current := levels[0]
	for _, level := range levels {
		if balance >= level.MinPoints {
			current = level
		}
	}
	return current
}

// StageFor returns the growth stage reached at balance.
func StageFor(balance int) GrowthStage {
	current := stages[0]
	for _, stage := range stages {
		if balance >= stage.MinPoints {
			current = stage
		}
	}
	return current
}

// UnlockedThemes returns the themes available at balance. The set only grows
// with the level.
func UnlockedThemes(balance int) []string {
	reached := LevelFor(balance).Number
	unlocked := make([]string, 0, 5)
	for _, level := range levels {
		if level.Number > reached {
			break
		}
		unlocked = append(unlocked, level.Unlocks...)
	}
	return unlocked
}

// IsUnlocked reports whether theme may be selected at balance.
func IsUnlocked(balance int, theme string) bool {
	return slices.Contains(UnlockedThemes(balance), theme)
}

// Evaluate derives the full progression state for balance. Negative input is
// treated as zero.
func Evaluate(balance int) State {
	if balance < 0 {
		balance = 0
	}

	level := LevelFor(balance)
	stage := StageFor(balance)

	progress := 100 * float64(balance) / float64(level.MaxPoints)
	if progress > 100 {
		progress = 100
	}

	return State{
		Balance:         balance,
		Level:           level.Number,
		LevelTitle:      level.Title,
		MaxPoints:       level.MaxPoints,
		GrowthStage:     stage.Key,
		GrowthLabel:     stage.Label,
		Scale:           stage.Scale,
		UnlockedThemes:  UnlockedThemes(balance),
		ProgressPercent: progress,
	}
}
