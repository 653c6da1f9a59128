package economy

import (
	"errors"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/crash"
)

var (
	ErrInsufficientXP  = errors.New("insufficient xp")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownBoost    = errors.New("unknown boost id")
	ErrUnknownCosmetic = errors.New("cosmetic not unlocked")
)

// ChargeStatus is the payment processor's verdict. Anything other than
// ChargeSucceeded leaves the economy untouched.
type ChargeStatus int

const (
	ChargeSucceeded ChargeStatus = iota
	ChargeFailed
	ChargePending
)

func (s ChargeStatus) String() string {
	switch s {
	case ChargeSucceeded:
		return "succeeded"
	case ChargeFailed:
		return "failed"
	case ChargePending:
		return "pending"
	}
	return "unknown"
}

// Charger is the payment-processor boundary. Only boost and premium
// cosmetic purchases cross it.
type Charger interface {
	Charge(amountCents int, description string) (ChargeStatus, error)
}

// LedgerConfig wires a Ledger. Zero values fall back to sane defaults;
// an empty PlayerID runs the ledger in guest mode (no persistence).
type LedgerConfig struct {
	PlayerID string
	Store    Store
	Table    *Table
	Payment  Charger
	RNG      crash.Source
	Logger   *zap.Logger

	// Notify surfaces external-service failures (failed saves) to the
	// player. Optional; failures are always logged regardless.
	Notify func(message string)

	StartingXP int

	// Tunables (0 = default).
	StreakBoxEvery      int     // mystery box every Nth consecutive win
	DailyMilestoneEvery int     // XP bonus every Nth daily-streak day
	DailyBonusPerStreak int     // bonus = this * streak length
	ReferralChance      float64 // probability a referral event credits
	ReferralXP          int

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Ledger owns one player's economy state. All mutations go through it,
// under one mutex, so xp can never be driven negative.
type Ledger struct {
	mu    sync.Mutex
	state PlayerState

	playerID string
	store    Store
	table    *Table
	payment  Charger
	rng      crash.Source
	log      *zap.Logger
	notify   func(string)
	now      func() time.Time

	saveCh   chan PlayerState
	saveStop chan struct{}
	saveOnce sync.Once
	saveWG   sync.WaitGroup

	streakBoxEvery      int
	dailyMilestoneEvery int
	dailyBonusPerStreak int
	referralChance      float64
	referralXP          int

	boostGen   int
	boostTimer *time.Timer
}

func NewLedger(cfg LedgerConfig) *Ledger {
	l := &Ledger{
		playerID:            cfg.PlayerID,
		store:               cfg.Store,
		table:               cfg.Table,
		payment:             cfg.Payment,
		rng:                 cfg.RNG,
		log:                 cfg.Logger,
		notify:              cfg.Notify,
		now:                 cfg.Now,
		streakBoxEvery:      cfg.StreakBoxEvery,
		dailyMilestoneEvery: cfg.DailyMilestoneEvery,
		dailyBonusPerStreak: cfg.DailyBonusPerStreak,
		referralChance:      cfg.ReferralChance,
		referralXP:          cfg.ReferralXP,
	}
	if l.table == nil {
		l.table = DefaultTable()
	}
	if l.rng == nil {
		l.rng = crash.DefaultSource()
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.streakBoxEvery <= 0 {
		l.streakBoxEvery = 5
	}
	if l.dailyMilestoneEvery <= 0 {
		l.dailyMilestoneEvery = 3
	}
	if l.dailyBonusPerStreak <= 0 {
		l.dailyBonusPerStreak = 100
	}
	if l.referralChance <= 0 {
		l.referralChance = 0.5
	}
	if l.referralXP <= 0 {
		l.referralXP = 250
	}

	l.state = NewPlayerState(cfg.StartingXP)
	if l.playerID != "" && l.store != nil {
		if st, ok, err := l.store.Load(l.playerID); err != nil {
			l.log.Warn("load player state", zap.String("player", l.playerID), zap.Error(err))
		} else if ok {
			l.state = st
		}
	}
	if l.state.XPBoostMultiplier < 1.0 {
		l.state.XPBoostMultiplier = 1.0
	}
	if l.playerID != "" && l.store != nil {
		l.saveCh = make(chan PlayerState, 1)
		l.saveStop = make(chan struct{})
		l.saveWG.Add(1)
		go l.saveLoop()
	}
	return l
}

// Close cancels the pending boost-expiry timer and stops the save
// worker. Idempotent.
func (l *Ledger) Close() {
	l.mu.Lock()
	l.boostGen++
	if l.boostTimer != nil {
		l.boostTimer.Stop()
		l.boostTimer = nil
	}
	l.mu.Unlock()
	if l.saveCh != nil {
		l.saveOnce.Do(func() { close(l.saveStop) })
		l.saveWG.Wait()
	}
}

// Snapshot returns a copy of the current player state.
func (l *Ledger) Snapshot() PlayerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state
	s.UnlockedCosmetics = append([]string(nil), l.state.UnlockedCosmetics...)
	return s
}

// BoostMultiplier returns the active XP boost factor (1.0 when none).
func (l *Ledger) BoostMultiplier() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.XPBoostMultiplier
}

// Debit escrows a wager: xp is reduced immediately and is at risk until
// settlement. Rejected with no mutation if it would drive xp negative.
func (l *Ledger) Debit(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount > l.state.XP {
		return ErrInsufficientXP
	}
	l.state.XP -= amount
	l.persistLocked()
	return nil
}

// SettleWin applies a cash-out: winnings = floor(wager * multiplier *
// boost) credited to xp, aggregates and the win streak updated. Every
// streakBoxEvery-th consecutive win also draws a mystery box; the applied
// bonus reward is returned alongside the winnings.
func (l *Ledger) SettleWin(wager int, multiplier float64) (winnings int, bonus *Reward) {
	l.mu.Lock()
	defer l.mu.Unlock()
	winnings = int(math.Floor(float64(wager) * multiplier * l.state.XPBoostMultiplier))
	l.state.XP += winnings
	l.state.TotalWon += winnings
	l.state.GamesPlayed++
	if winnings > l.state.BiggestWin {
		l.state.BiggestWin = winnings
	}
	if multiplier > l.state.BiggestMultiplier {
		l.state.BiggestMultiplier = multiplier
	}
	l.state.CurrentStreak++
	if l.state.CurrentStreak > l.state.WinStreak {
		l.state.WinStreak = l.state.CurrentStreak
	}
	if l.state.CurrentStreak%l.streakBoxEvery == 0 {
		if r, ok := l.drawBoxLocked(); ok {
			bonus = &r
		}
	}
	l.persistLocked()
	return winnings, bonus
}

// SettleLoss applies a crash with no cash-out: the wager (already
// escrowed) is forfeit, aggregates updated, win streak reset.
func (l *Ledger) SettleLoss(wager int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.TotalWagered += wager
	l.state.GamesPlayed++
	l.state.CurrentStreak = 0
	l.persistLocked()
}

// OpenMysteryBox draws one reward from the weighted table and applies it.
func (l *Ledger) OpenMysteryBox() (Reward, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.drawBoxLocked()
	if !ok {
		return Reward{}, errors.New("mystery box table is empty")
	}
	l.persistLocked()
	return r, nil
}

// drawBoxLocked draws and applies a reward. Returns the reward as
// actually applied (a duplicate cosmetic becomes the XP consolation).
func (l *Ledger) drawBoxLocked() (Reward, bool) {
	r, ok := l.table.Draw(l.rng)
	if !ok {
		return Reward{}, false
	}
	switch r.Kind {
	case RewardXP:
		l.state.XP += r.Amount
	case RewardCosmetic:
		if l.state.ownsCosmetic(r.CosmeticID) {
			r = Reward{Kind: RewardXP, Amount: l.table.ConsolationXP, Rarity: r.Rarity}
			l.state.XP += r.Amount
		} else {
			l.state.UnlockedCosmetics = append(l.state.UnlockedCosmetics, r.CosmeticID)
		}
	case RewardBoost:
		l.grantBoostLocked(r.BoostValue, r.BoostDuration)
	}
	l.log.Info("mystery box",
		zap.String("kind", r.Kind.String()),
		zap.String("rarity", r.Rarity))
	return r, true
}

// grantBoostLocked activates an XP boost and schedules its expiry. A new
// boost supersedes the previous one; the stale timer is disarmed via the
// generation counter.
func (l *Ledger) grantBoostLocked(value float64, d time.Duration) {
	if value < 1.0 || d <= 0 {
		l.log.Warn("ignoring invalid boost", zap.Float64("value", value), zap.Duration("duration", d))
		return
	}
	l.state.XPBoostMultiplier = value
	l.boostGen++
	gen := l.boostGen
	if l.boostTimer != nil {
		l.boostTimer.Stop()
	}
	l.boostTimer = time.AfterFunc(d, func() { l.expireBoost(gen) })
}

func (l *Ledger) expireBoost(gen int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.boostGen {
		return // superseded or closed
	}
	l.state.XPBoostMultiplier = 1.0
	l.boostTimer = nil
	l.persistLocked()
	l.log.Info("xp boost expired", zap.String("player", l.playerID))
}

// PurchaseBoost charges the payment processor for a catalog boost and
// activates it on success. Any non-succeeded charge is a no-op.
func (l *Ledger) PurchaseBoost(id string) (ChargeStatus, error) {
	product, ok := l.table.Boost(id)
	if !ok {
		l.log.Warn("boost purchase for unknown id", zap.String("id", id))
		return ChargeFailed, ErrUnknownBoost
	}
	if l.payment == nil {
		return ChargeFailed, errors.New("no payment processor configured")
	}
	status, err := l.payment.Charge(product.PriceCents, "xp boost "+product.ID)
	if err != nil {
		return ChargeFailed, err
	}
	if status != ChargeSucceeded {
		l.log.Info("boost charge not completed", zap.String("id", id), zap.String("status", status.String()))
		return status, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.grantBoostLocked(product.Value, product.Duration())
	l.persistLocked()
	return ChargeSucceeded, nil
}

// SetActiveCosmetic equips an unlocked cosmetic.
func (l *Ledger) SetActiveCosmetic(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.ownsCosmetic(id) {
		return ErrUnknownCosmetic
	}
	l.state.ActiveCosmetic = id
	l.persistLocked()
	return nil
}

// persistLocked hands a copy of the current state to the save worker, so
// settlement never waits on disk or network. The channel holds the latest
// snapshot only; a rapid burst of mutations coalesces into one write and
// an older state can never overwrite a newer one. Failures degrade
// durability only; in-memory state stays authoritative until the next
// successful save.
func (l *Ledger) persistLocked() {
	if l.saveCh == nil {
		return // guest mode
	}
	st := l.state
	st.UnlockedCosmetics = append([]string(nil), l.state.UnlockedCosmetics...)
	for {
		select {
		case l.saveCh <- st:
			return
		default:
		}
		select {
		case <-l.saveCh: // stale pending snapshot, supersede it
		default:
		}
	}
}

// saveLoop is the single persistence worker; one writer means saves land
// in mutation order.
func (l *Ledger) saveLoop() {
	defer l.saveWG.Done()
	for {
		select {
		case <-l.saveStop:
			return
		case st := <-l.saveCh:
			if err := l.store.Save(l.playerID, st); err != nil {
				l.log.Warn("save player state", zap.String("player", l.playerID), zap.Error(err))
				if l.notify != nil {
					l.notify("progress could not be saved, will retry on the next update")
				}
			}
		}
	}
}
