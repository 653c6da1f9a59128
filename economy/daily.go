package economy

import (
	"time"

	"go.uber.org/zap"
)

// sameDay reports whether a and b fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// RefreshDailyStreak evaluates the daily streak against the previous play
// date: same day is a no-op, exactly the next calendar day increments,
// any larger gap resets to 1. Every dailyMilestoneEvery-th day grants a
// scaled XP bonus; the bonus granted (0 if none) is returned.
func (l *Ledger) RefreshDailyStreak() (bonusXP int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	last := l.state.LastPlayDate
	switch {
	case last.IsZero():
		l.state.DailyStreak = 1
	case sameDay(now, last):
		return 0
	case sameDay(now, last.AddDate(0, 0, 1)):
		l.state.DailyStreak++
	default:
		l.state.DailyStreak = 1
	}
	l.state.LastPlayDate = now
	if l.state.DailyStreak%l.dailyMilestoneEvery == 0 {
		bonusXP = l.dailyBonusPerStreak * l.state.DailyStreak
		l.state.XP += bonusXP
		l.log.Info("daily streak milestone",
			zap.Int("streak", l.state.DailyStreak),
			zap.Int("bonus", bonusXP))
	}
	l.persistLocked()
	return bonusXP
}

// RecordReferralEvent credits the referral bonus probabilistically per
// tracked event. This simulates "friend played N games" rather than
// verifying it; a known simplification, not safe for real-money use.
func (l *Ledger) RecordReferralEvent() (credited bool, xp int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rng.Float64() >= l.referralChance {
		return false, 0
	}
	l.state.XP += l.referralXP
	l.persistLocked()
	return true, l.referralXP
}
