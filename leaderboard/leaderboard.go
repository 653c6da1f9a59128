// Package leaderboard ranks player summaries. Storage and retrieval are
// external; this package only merges the local player into a fetched
// ranking and orders it.
package leaderboard

import (
	"context"
	"sort"
)

// Entry is one ranked player summary.
type Entry struct {
	ID                string  `json:"id"`
	DisplayName       string  `json:"displayName"`
	XP                int     `json:"xp"`
	BiggestMultiplier float64 `json:"biggestMultiplier"`
	GamesPlayed       int     `json:"gamesPlayed"`
	Rank              int     `json:"rank"`
	IsCurrentUser     bool    `json:"isCurrentUser,omitempty"`
}

// Store is the external leaderboard boundary.
type Store interface {
	FetchRanking(ctx context.Context, appScope string) ([]Entry, error)
	SubmitEntry(ctx context.Context, appScope string, e Entry) error
}

// Merge combines an externally fetched ranking with the local player's
// summary. If the player is already present that row is marked as the
// current user (and refreshed with the local values); otherwise the
// summary is appended. The result is ordered descending by XP, ties
// broken by biggest multiplier descending, so the same inputs always
// produce the same ranking.
func Merge(entries []Entry, self Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	found := false
	for _, e := range entries {
		e.IsCurrentUser = false
		if e.ID == self.ID {
			e.XP = self.XP
			e.BiggestMultiplier = self.BiggestMultiplier
			e.GamesPlayed = self.GamesPlayed
			e.IsCurrentUser = true
			found = true
		}
		out = append(out, e)
	}
	if !found {
		self.IsCurrentUser = true
		out = append(out, self)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].XP != out[j].XP {
			return out[i].XP > out[j].XP
		}
		return out[i].BiggestMultiplier > out[j].BiggestMultiplier
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
