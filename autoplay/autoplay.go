// Package autoplay drives the round engine through repeated rounds
// without manual cash-out timing. It subscribes to engine events and
// issues wager/cash-out commands from its own goroutine, so the engine's
// serialization guarantees are untouched.
package autoplay

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/economy"
	"github.com/pixelrush-games/rocket-crash-server/engine"
)

var (
	ErrAlreadyRunning = errors.New("autoplay already running")
	ErrBadConfig      = errors.New("invalid autoplay config")
)

// Config holds one auto-play session's rules.
type Config struct {
	WagerAmount     int           `json:"wagerAmount"`
	CashOutAt       float64       `json:"cashOutAt"` // > 1.0
	StopOnWin       bool          `json:"stopOnWin"`
	StopOnLoss      bool          `json:"stopOnLoss"`
	MaxRounds       int           `json:"maxRounds"`
	InterRoundDelay time.Duration `json:"-"`
}

func (c Config) validate() error {
	if c.WagerAmount < 10 || c.CashOutAt <= 1.0 || c.MaxRounds <= 0 {
		return ErrBadConfig
	}
	return nil
}

// State is a read-only view of the controller.
type State struct {
	Enabled      bool   `json:"enabled"`
	CurrentRound int    `json:"currentRound"`
	Config       Config `json:"config"`
}

// Controller owns one ephemeral auto-play session at a time. The session
// state is discarded whenever play stops, for any reason.
type Controller struct {
	eng    *engine.Engine
	ledger *economy.Ledger
	log    *zap.Logger

	ticks   chan engine.Snapshot
	settled chan engine.Outcome

	mu           sync.Mutex
	cfg          Config
	enabled      bool
	currentRound int
	stopCh       chan struct{}
	wg           sync.WaitGroup
}

// New wires a controller to the engine's event stream. Must be called
// before eng.Start so the subscriptions are registered in time.
func New(eng *engine.Engine, ledger *economy.Ledger, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{
		eng:     eng,
		ledger:  ledger,
		log:     log,
		ticks:   make(chan engine.Snapshot, 1),
		settled: make(chan engine.Outcome, 4),
	}
	// Non-blocking forwards: the engine loop must never wait on us. A
	// dropped tick only delays auto cash-out by one 10ms tick.
	eng.OnTick(func(s engine.Snapshot) {
		select {
		case c.ticks <- s:
		default:
		}
	})
	eng.OnSettled(func(o engine.Outcome) {
		select {
		case c.settled <- o:
		default:
		}
	})
	return c
}

// Start begins an auto-play session. Rejected if one is already running.
func (c *Controller) Start(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	c.mu.Lock()
	if c.enabled {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if cfg.InterRoundDelay <= 0 {
		cfg.InterRoundDelay = time.Second
	}
	c.cfg = cfg
	c.enabled = true
	c.currentRound = 0
	c.stopCh = make(chan struct{})
	stop := c.stopCh
	c.mu.Unlock()

	c.log.Info("autoplay started",
		zap.Int("wager", cfg.WagerAmount),
		zap.Float64("cashOutAt", cfg.CashOutAt),
		zap.Int("maxRounds", cfg.MaxRounds))
	c.wg.Add(1)
	go c.run(cfg, stop)
	return nil
}

// Stop ends the session. Idempotent; currentRound always resets to 0 and
// no wager is placed after Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.enabled {
		c.enabled = false
		close(c.stopCh)
	}
	c.currentRound = 0
	c.mu.Unlock()
	c.wg.Wait()
}

// State returns the controller's current view.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Enabled: c.enabled, CurrentRound: c.currentRound, Config: c.cfg}
}

// finish is the internal stop path used by the run goroutine itself.
func (c *Controller) finish(reason string) {
	c.mu.Lock()
	if c.enabled {
		c.enabled = false
		close(c.stopCh)
	}
	c.currentRound = 0
	c.mu.Unlock()
	c.log.Info("autoplay stopped", zap.String("reason", reason))
}

func (c *Controller) run(cfg Config, stop <-chan struct{}) {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		if !c.enabled {
			c.mu.Unlock()
			return
		}
		if c.currentRound >= cfg.MaxRounds {
			c.mu.Unlock()
			c.finish("max rounds reached")
			return
		}
		c.currentRound++
		round := c.currentRound
		c.mu.Unlock()

		if c.ledger.Snapshot().XP < cfg.WagerAmount {
			c.finish("insufficient xp")
			return
		}
		snap, err := c.eng.PlaceWager(cfg.WagerAmount)
		if err != nil {
			c.log.Warn("autoplay wager rejected", zap.Int("round", round), zap.Error(err))
			c.finish("wager rejected")
			return
		}

		outcome, ok := c.playRound(cfg, snap.Seq, stop)
		if !ok {
			return // stopped mid-round; session state already reset
		}
		if cfg.StopOnWin && outcome.Win() {
			c.finish("stop on win")
			return
		}
		if cfg.StopOnLoss && !outcome.Win() {
			c.finish("stop on loss")
			return
		}

		select {
		case <-stop:
			return
		case <-time.After(cfg.InterRoundDelay):
		}
	}
}

// settlePollInterval backstops the settled-event channel: if the round's
// own outcome was dropped from the full buffer, a snapshot poll still
// observes the terminal state and the session cannot hang.
const settlePollInterval = 50 * time.Millisecond

// playRound watches the running round: cashes out once the multiplier
// reaches the target, and returns the settlement outcome. Events from
// earlier rounds are discarded by sequence number.
func (c *Controller) playRound(cfg Config, seq uint64, stop <-chan struct{}) (engine.Outcome, bool) {
	cashedOut := false
	poll := time.NewTicker(settlePollInterval)
	defer poll.Stop()
	for {
		select {
		case <-stop:
			return engine.Outcome{}, false
		case o := <-c.settled:
			if o.Seq != seq {
				continue
			}
			return o, true
		case s := <-c.ticks:
			if s.Seq != seq {
				continue
			}
			if !cashedOut && s.Multiplier >= cfg.CashOutAt {
				cashedOut = true
				if _, err := c.eng.CashOut(); err != nil &&
					!errors.Is(err, engine.ErrCrashed) && !errors.Is(err, engine.ErrNoActiveRound) {
					c.log.Warn("autoplay cash-out failed", zap.Error(err))
				}
			}
		case <-poll.C:
			snap, err := c.eng.Snapshot()
			if err != nil {
				return engine.Outcome{}, false // engine stopped
			}
			if snap.Seq != seq || snap.Status == engine.StatusRunning.String() {
				continue
			}
			won := snap.Status == engine.StatusCashedOut.String()
			return engine.Outcome{
				RoundID:           snap.RoundID,
				Seq:               snap.Seq,
				Wager:             snap.Wager,
				CrashPoint:        snap.CrashPoint,
				CashedOut:         won,
				CashOutMultiplier: snap.CashOutAt,
				Winnings:          snap.Winnings,
				FinalMultiplier:   snap.Multiplier,
			}, true
		}
	}
}
