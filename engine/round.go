package engine

import (
	"time"

	"github.com/pixelrush-games/rocket-crash-server/economy"
)

// Status is the round lifecycle state. CashedOut and Crashed are
// terminal; a fresh Round is created for every play.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusCashedOut
	StatusCrashed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusCashedOut:
		return "cashed_out"
	case StatusCrashed:
		return "crashed"
	}
	return "unknown"
}

// Round holds one play cycle. Owned exclusively by the engine loop.
type Round struct {
	ID                string
	Wager             int
	CrashPoint        float64 // hidden from snapshots until settlement
	Multiplier        float64
	Status            Status
	CashOutMultiplier float64
	Winnings          int
	StartedAt         time.Time
	Seq               uint64
}

// Snapshot is a read-only view of the current round for clients.
// CrashPoint is zero while the round is still running.
type Snapshot struct {
	RoundID    string    `json:"roundId"`
	Seq        uint64    `json:"seq"`
	Status     string    `json:"status"`
	Wager      int       `json:"wager"`
	Multiplier float64   `json:"multiplier"`
	CrashPoint float64   `json:"crashPoint,omitempty"`
	CashOutAt  float64   `json:"cashOutMultiplier,omitempty"`
	Winnings   int       `json:"winnings"`
	History    []float64 `json:"history"`
	StartedAt  time.Time `json:"startedAt,omitempty"`
}

// Outcome describes one settled round.
type Outcome struct {
	RoundID           string          `json:"roundId"`
	Seq               uint64          `json:"seq"`
	Wager             int             `json:"wager"`
	CrashPoint        float64         `json:"crashPoint"`
	CashedOut         bool            `json:"cashedOut"`
	CashOutMultiplier float64         `json:"cashOutMultiplier,omitempty"`
	Winnings          int             `json:"winnings"`
	FinalMultiplier   float64         `json:"finalMultiplier"`
	BoxReward         *economy.Reward `json:"-"`
	SettledAt         time.Time       `json:"settledAt"`
}

// Win reports whether the player kept anything from the round.
func (o Outcome) Win() bool { return o.CashedOut }

// NoticeKind tags retention-mechanic notifications. They are display-only
// side effects, never state transitions.
type NoticeKind int

const (
	NoticeNearMiss NoticeKind = iota
	NoticeSecondChance
	NoticeMysteryBox
	// NoticeServiceFailure reports a degraded external service (failed
	// save or leaderboard submit); gameplay is unaffected.
	NoticeServiceFailure
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeNearMiss:
		return "near_miss"
	case NoticeSecondChance:
		return "second_chance"
	case NoticeMysteryBox:
		return "mystery_box"
	case NoticeServiceFailure:
		return "service_failure"
	}
	return "unknown"
}

// Notice is a notification-only event emitted at settlement.
type Notice struct {
	Kind    NoticeKind
	RoundID string
	Message string
}

// history is a most-recent-first list of final multipliers, bounded at
// cap; the oldest entry is evicted when full.
type history struct {
	entries []float64
	cap     int
}

func newHistory(cap int) *history {
	if cap <= 0 {
		cap = 10
	}
	return &history{cap: cap}
}

func (h *history) push(m float64) {
	h.entries = append([]float64{m}, h.entries...)
	if len(h.entries) > h.cap {
		h.entries = h.entries[:h.cap]
	}
}

func (h *history) list() []float64 {
	return append([]float64(nil), h.entries...)
}
