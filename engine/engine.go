package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/crash"
	"github.com/pixelrush-games/rocket-crash-server/economy"
)

// Recorder appends settled outcomes to an audit ledger. Calls are
// fire-and-forget from the engine's perspective.
type Recorder interface {
	Record(o Outcome) error
}

// Config wires an Engine. Zero values fall back to defaults.
type Config struct {
	Ledger   *economy.Ledger
	RNG      crash.Source
	Logger   *zap.Logger
	Recorder Recorder

	TickInterval time.Duration // default 10ms
	HistorySize  int           // default 10
	MinWager     int           // default 10
	WagerStep    int           // default 10

	// Retention-mechanic tunables.
	NearMissWindow     float64 // default 0.10
	SecondChanceChance float64 // default 0.30

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Engine owns the round state machine. Every mutation is funneled
// through one command loop, so tick processing and cash-out handling
// can never interleave.
type Engine struct {
	ledger   *economy.Ledger
	rng      crash.Source
	log      *zap.Logger
	recorder Recorder
	now      func() time.Time

	tick               time.Duration
	minWager           int
	wagerStep          int
	nearMissWindow     float64
	secondChanceChance float64

	cmds     chan func()
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	// Owned by the run loop.
	round *Round
	seq   uint64
	hist  *history

	onTick    []func(Snapshot)
	onSettled []func(Outcome)
	onNotice  []func(Notice)
}

func New(cfg Config) *Engine {
	e := &Engine{
		ledger:             cfg.Ledger,
		rng:                cfg.RNG,
		log:                cfg.Logger,
		recorder:           cfg.Recorder,
		now:                cfg.Now,
		tick:               cfg.TickInterval,
		minWager:           cfg.MinWager,
		wagerStep:          cfg.WagerStep,
		nearMissWindow:     cfg.NearMissWindow,
		secondChanceChance: cfg.SecondChanceChance,
		cmds:               make(chan func()),
		done:               make(chan struct{}),
		hist:               newHistory(cfg.HistorySize),
	}
	if e.rng == nil {
		e.rng = crash.DefaultSource()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.tick <= 0 {
		e.tick = 10 * time.Millisecond
	}
	if e.minWager <= 0 {
		e.minWager = 10
	}
	if e.wagerStep <= 0 {
		e.wagerStep = 10
	}
	if e.nearMissWindow <= 0 {
		e.nearMissWindow = 0.10
	}
	if e.secondChanceChance <= 0 {
		e.secondChanceChance = 0.30
	}
	return e
}

// OnTick registers a per-tick subscriber. Register before Start;
// callbacks run on the engine loop and must not block or call back in.
func (e *Engine) OnTick(fn func(Snapshot)) { e.onTick = append(e.onTick, fn) }

// OnSettled registers a settlement subscriber. Same rules as OnTick.
func (e *Engine) OnSettled(fn func(Outcome)) { e.onSettled = append(e.onSettled, fn) }

// OnNotice registers a notification subscriber. Same rules as OnTick.
func (e *Engine) OnNotice(fn func(Notice)) { e.onNotice = append(e.onNotice, fn) }

// Start launches the command loop.
func (e *Engine) Start() {
	e.wg.Add(1)
	go e.run()
}

// Stop shuts the loop down. Idempotent; after Stop no further round
// mutation occurs and all commands return ErrStopped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

func (e *Engine) run() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()
	for {
		select {
		case <-e.done:
			return
		case cmd := <-e.cmds:
			cmd()
		case <-ticker.C:
			e.handleTick()
		}
	}
}

// do runs fn on the engine loop and waits for it.
func (e *Engine) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case e.cmds <- func() { fn(); close(ran) }:
	case <-e.done:
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-e.done:
		return ErrStopped
	}
}

// PlaceWager escrows the wager and starts the climb. Valid only while no
// round is running; rejected wagers leave all state untouched.
func (e *Engine) PlaceWager(amount int) (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if doErr := e.do(func() {
		err = e.placeWager(amount)
		snap = e.snapshot()
	}); doErr != nil {
		return Snapshot{}, doErr
	}
	return snap, err
}

func (e *Engine) placeWager(amount int) error {
	if e.round != nil && e.round.Status == StatusRunning {
		return ErrRoundInProgress
	}
	if amount < e.minWager {
		return ErrWagerTooSmall
	}
	if amount%e.wagerStep != 0 {
		return ErrWagerNotStep
	}
	if err := e.ledger.Debit(amount); err != nil {
		return err
	}
	e.seq++
	e.round = &Round{
		ID:         uuid.NewString(),
		Wager:      amount,
		CrashPoint: crash.Generate(e.rng),
		Multiplier: 1.00,
		Status:     StatusRunning,
		StartedAt:  e.now(),
		Seq:        e.seq,
	}
	e.log.Info("round started",
		zap.String("round", e.round.ID),
		zap.Int("wager", amount))
	return nil
}

// CashOut locks in the multiplier at the instant the command is
// processed. If the crash point was already reached by then, the crash
// wins the race and the cash-out is not honored.
func (e *Engine) CashOut() (Snapshot, error) {
	var (
		snap Snapshot
		err  error
	)
	if doErr := e.do(func() {
		err = e.cashOut()
		snap = e.snapshot()
	}); doErr != nil {
		return Snapshot{}, doErr
	}
	return snap, err
}

func (e *Engine) cashOut() error {
	r := e.round
	if r == nil || r.Status != StatusRunning {
		return ErrNoActiveRound
	}
	m := crash.MultiplierAt(e.now().Sub(r.StartedAt))
	if m >= r.CrashPoint {
		e.settleCrash()
		return ErrCrashed
	}
	r.Status = StatusCashedOut
	r.CashOutMultiplier = m
	r.Multiplier = m
	winnings, bonus := e.ledger.SettleWin(r.Wager, m)
	r.Winnings = winnings
	e.finishRound(bonus)
	return nil
}

// handleTick recomputes the multiplier from wall-clock elapsed time. The
// round-status check makes a tick that fires after settlement a no-op.
func (e *Engine) handleTick() {
	r := e.round
	if r == nil || r.Status != StatusRunning {
		return
	}
	m := crash.MultiplierAt(e.now().Sub(r.StartedAt))
	if m >= r.CrashPoint {
		e.settleCrash()
		return
	}
	r.Multiplier = m
	snap := e.snapshot()
	for _, fn := range e.onTick {
		fn(snap)
	}
}

func (e *Engine) settleCrash() {
	r := e.round
	r.Status = StatusCrashed
	r.Multiplier = r.CrashPoint // clamp
	e.ledger.SettleLoss(r.Wager)
	e.finishRound(nil)
}

func (e *Engine) finishRound(bonus *economy.Reward) {
	r := e.round
	final := r.CrashPoint
	if r.Status == StatusCashedOut {
		final = r.CashOutMultiplier
	}
	e.hist.push(final)

	o := Outcome{
		RoundID:           r.ID,
		Seq:               r.Seq,
		Wager:             r.Wager,
		CrashPoint:        r.CrashPoint,
		CashedOut:         r.Status == StatusCashedOut,
		CashOutMultiplier: r.CashOutMultiplier,
		Winnings:          r.Winnings,
		FinalMultiplier:   final,
		BoxReward:         bonus,
		SettledAt:         e.now(),
	}

	if o.CashedOut && r.CrashPoint-r.CashOutMultiplier < e.nearMissWindow {
		e.emitNotice(Notice{
			Kind:    NoticeNearMiss,
			RoundID: r.ID,
			Message: fmt.Sprintf("cashed out at %.2fx, crashed at %.2fx", r.CashOutMultiplier, r.CrashPoint),
		})
	}
	if !o.CashedOut && e.rng.Float64() < e.secondChanceChance {
		e.emitNotice(Notice{
			Kind:    NoticeSecondChance,
			RoundID: r.ID,
			Message: "second chance offer",
		})
	}
	if bonus != nil {
		e.emitNotice(Notice{
			Kind:    NoticeMysteryBox,
			RoundID: r.ID,
			Message: "win streak mystery box: " + bonus.Rarity + " " + bonus.Kind.String(),
		})
	}

	// Settlement is complete locally; the audit write must not stall the
	// climb timer of the next round.
	if e.recorder != nil {
		go func() {
			if err := e.recorder.Record(o); err != nil {
				e.log.Warn("record round result", zap.String("round", o.RoundID), zap.Error(err))
			}
		}()
	}

	e.log.Info("round settled",
		zap.String("round", r.ID),
		zap.String("status", r.Status.String()),
		zap.Float64("crashPoint", r.CrashPoint),
		zap.Float64("final", final),
		zap.Int("winnings", r.Winnings))

	for _, fn := range e.onSettled {
		fn(o)
	}
}

func (e *Engine) emitNotice(n Notice) {
	e.log.Info("notice", zap.String("kind", n.Kind.String()), zap.String("round", n.RoundID))
	for _, fn := range e.onNotice {
		fn(n)
	}
}

// Snapshot returns the current round view. The crash point stays hidden
// until the round settles.
func (e *Engine) Snapshot() (Snapshot, error) {
	var snap Snapshot
	if err := e.do(func() { snap = e.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (e *Engine) snapshot() Snapshot {
	s := Snapshot{
		Status:  StatusWaiting.String(),
		History: e.hist.list(),
	}
	r := e.round
	if r == nil {
		return s
	}
	s.RoundID = r.ID
	s.Seq = r.Seq
	s.Status = r.Status.String()
	s.Wager = r.Wager
	s.Multiplier = r.Multiplier
	s.CashOutAt = r.CashOutMultiplier
	s.Winnings = r.Winnings
	s.StartedAt = r.StartedAt
	if r.Status != StatusRunning {
		s.CrashPoint = r.CrashPoint
	}
	return s
}
