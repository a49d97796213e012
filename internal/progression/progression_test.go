package progression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEvaluateLevelBoundaries(t *testing.T) {
	cases := []struct {
		balance int
		level   int
		themes  []string
	}{
		{balance: 0, level: 1, themes: []string{ThemeDefault}},
		{balance: 29, level: 1, themes: []string{ThemeDefault}},
		{balance: 30, level: 2, themes: []string{ThemeDefault, ThemeSpring, ThemeSummer}},
		{balance: 59, level: 2, themes: []string{ThemeDefault, ThemeSpring, ThemeSummer}},
		{balance: 60, level: 3, themes: []string{ThemeDefault, ThemeSpring, ThemeSummer, ThemeFall, ThemeWinter}},
		{balance: 500, level: 3, themes: []string{ThemeDefault, ThemeSpring, ThemeSummer, ThemeFall, ThemeWinter}},
	}

	for _, tc := range cases {
		state := Evaluate(tc.balance)
		require.Equal(t, tc.level, state.Level, "balance %d", tc.balance)
		require.Equal(t, tc.themes, state.UnlockedThemes, "balance %d", tc.balance)
	}
}

func TestEvaluateGrowthStages(t *testing.T) {
	cases := map[int]string{
		0:  "seed",
		4:  "seed",
		5:  "sprout",
		9:  "sprout",
		10: "sturdy",
		29: "sturdy",
		30: "lush",
		59: "lush",
		60: "legendary",
	}

	for balance, stage := range cases {
		require.Equal(t, stage, Evaluate(balance).GrowthStage, "balance %d", balance)
	}
	require.InDelta(t, 1.2, Evaluate(61).Scale, 1e-9)
	require.InDelta(t, 0.5, Evaluate(0).Scale, 1e-9)
}

func TestEvaluateProgressPercent(t *testing.T) {
	require.InDelta(t, 50.0, Evaluate(15).ProgressPercent, 1e-9)
	require.InDelta(t, 50.0, Evaluate(30).ProgressPercent, 1e-9)
	require.Equal(t, 60, Evaluate(30).MaxPoints)
	require.InDelta(t, 100.0*75/90, Evaluate(75).ProgressPercent, 1e-9)
	require.InDelta(t, 100.0, Evaluate(120).ProgressPercent, 1e-9)
}

func TestEvaluateTreatsNegativeAsZero(t *testing.T) {
	state := Evaluate(-4)
	require.Equal(t, 0, state.Balance)
	require.Equal(t, 1, state.Level)
	require.Zero(t, state.ProgressPercent)
}

func TestIsUnlocked(t *testing.T) {
	require.True(t, IsUnlocked(0, ThemeDefault))
	require.False(t, IsUnlocked(29, ThemeSpring))
	require.True(t, IsUnlocked(30, ThemeSummer))
	require.False(t, IsUnlocked(59, ThemeWinter))
	require.True(t, IsUnlocked(60, ThemeFall))
	require.False(t, IsKnownTheme("autumn"))
	require.True(t, IsKnownTheme(ThemeWinter))
}
