package economy

import "time"

// PlayerState is the long-lived progression record for one player. It is
// owned by the persistence collaborator and mutated only through Ledger
// operations.
type PlayerState struct {
	XP                int       `json:"xp"`
	TotalWagered      int       `json:"totalWagered"`
	TotalWon          int       `json:"totalWon"`
	GamesPlayed       int       `json:"gamesPlayed"`
	BiggestWin        int       `json:"biggestWin"`
	BiggestMultiplier float64   `json:"biggestMultiplier"`
	WinStreak         int       `json:"winStreak"`
	CurrentStreak     int       `json:"currentStreak"`
	DailyStreak       int       `json:"dailyStreak"`
	LastPlayDate      time.Time `json:"lastPlayDate"`
	UnlockedCosmetics []string  `json:"unlockedCosmetics"`
	ActiveCosmetic    string    `json:"activeCosmetic"`
	XPBoostMultiplier float64   `json:"xpBoostMultiplier"`
}

// NewPlayerState returns the starting state for a fresh player.
func NewPlayerState(startingXP int) PlayerState {
	return PlayerState{
		XP:                startingXP,
		XPBoostMultiplier: 1.0,
	}
}

func (s *PlayerState) ownsCosmetic(id string) bool {
	for _, c := range s.UnlockedCosmetics {
		if c == id {
			return true
		}
	}
	return false
}

// Store persists player state. Implementations live in the store package;
// failures degrade durability only, never in-memory state.
type Store interface {
	Load(id string) (PlayerState, bool, error)
	Save(id string, state PlayerState) error
}
