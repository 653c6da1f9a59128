package autoplay

import (
	"sync"
	"testing"
	"time"

	"github.com/pixelrush-games/rocket-crash-server/economy"
	"github.com/pixelrush-games/rocket-crash-server/engine"
)

// fixedSource cycles a fixed list of draws.
type fixedSource struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func (s *fixedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

// autoClock advances by a fixed step on every read, so climb curves that
// take seconds of wall time play out in milliseconds of test time.
type autoClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newAutoClock(step time.Duration) *autoClock {
	return &autoClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *autoClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func newRig(t *testing.T, xp int, src *fixedSource) (*Controller, *economy.Ledger, *engine.Engine) {
	t.Helper()
	ledger := economy.NewLedger(economy.LedgerConfig{StartingXP: xp})
	eng := engine.New(engine.Config{
		Ledger:       ledger,
		RNG:          src,
		TickInterval: time.Millisecond,
		Now:          newAutoClock(100 * time.Millisecond).now,
	})
	ctl := New(eng, ledger, nil)
	eng.Start()
	t.Cleanup(eng.Stop)
	t.Cleanup(ctl.Stop)
	return ctl, ledger, eng
}

func waitStopped(t *testing.T, ctl *Controller) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for ctl.State().Enabled {
		if time.Now().After(deadline) {
			t.Fatal("autoplay never stopped")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestMaxRounds(t *testing.T) {
	// High crash point every round: the 1.2x auto cash-out always wins.
	ctl, ledger, _ := newRig(t, 1000, &fixedSource{vals: []float64{0.99, 0.5}})
	err := ctl.Start(Config{
		WagerAmount:     10,
		CashOutAt:       1.2,
		MaxRounds:       5,
		InterRoundDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStopped(t, ctl)

	st := ctl.State()
	if st.CurrentRound != 0 {
		t.Errorf("currentRound = %d want 0 after stop", st.CurrentRound)
	}
	if got := ledger.Snapshot().GamesPlayed; got != 5 {
		t.Errorf("gamesPlayed = %d want exactly 5", got)
	}
}

func TestStopOnLoss(t *testing.T) {
	// Crash point 1.01 every round; the 2.0x target is never reached.
	ctl, ledger, _ := newRig(t, 1000, &fixedSource{vals: []float64{0.0, 0.0}})
	err := ctl.Start(Config{
		WagerAmount:     10,
		CashOutAt:       2.0,
		StopOnLoss:      true,
		MaxRounds:       50,
		InterRoundDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStopped(t, ctl)

	if got := ledger.Snapshot().GamesPlayed; got != 1 {
		t.Errorf("gamesPlayed = %d want 1 (stopped on first loss)", got)
	}
	if st := ctl.State(); st.CurrentRound != 0 {
		t.Errorf("currentRound = %d want 0", st.CurrentRound)
	}
}

func TestStopOnWin(t *testing.T) {
	ctl, ledger, _ := newRig(t, 1000, &fixedSource{vals: []float64{0.99, 0.5}})
	err := ctl.Start(Config{
		WagerAmount:     10,
		CashOutAt:       1.1,
		StopOnWin:       true,
		MaxRounds:       50,
		InterRoundDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStopped(t, ctl)

	st := ledger.Snapshot()
	if st.GamesPlayed != 1 {
		t.Errorf("gamesPlayed = %d want 1 (stopped on first win)", st.GamesPlayed)
	}
	if st.CurrentStreak != 1 {
		t.Errorf("streak = %d want 1", st.CurrentStreak)
	}
}

func TestInsufficientXPStops(t *testing.T) {
	// 15 XP: one 10 XP losing round leaves 5, below the wager.
	ctl, ledger, _ := newRig(t, 15, &fixedSource{vals: []float64{0.0, 0.0}})
	err := ctl.Start(Config{
		WagerAmount:     10,
		CashOutAt:       2.0,
		MaxRounds:       50,
		InterRoundDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitStopped(t, ctl)

	st := ledger.Snapshot()
	if st.GamesPlayed != 1 {
		t.Errorf("gamesPlayed = %d want 1", st.GamesPlayed)
	}
	if st.XP != 5 {
		t.Errorf("xp = %d want 5", st.XP)
	}
}

func TestStartWhileRunningRejected(t *testing.T) {
	ctl, _, _ := newRig(t, 100_000, &fixedSource{vals: []float64{0.99, 0.5}})
	cfg := Config{WagerAmount: 10, CashOutAt: 1.2, MaxRounds: 10_000, InterRoundDelay: 50 * time.Millisecond}
	if err := ctl.Start(cfg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := ctl.Start(cfg); err != ErrAlreadyRunning {
		t.Errorf("second Start err = %v want ErrAlreadyRunning", err)
	}
	ctl.Stop()
}

func TestStop_IdempotentAndFinal(t *testing.T) {
	ctl, ledger, eng := newRig(t, 100_000, &fixedSource{vals: []float64{0.99, 0.5}})
	err := ctl.Start(Config{
		WagerAmount:     10,
		CashOutAt:       1.2,
		MaxRounds:       10_000,
		InterRoundDelay: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	ctl.Stop()
	ctl.Stop() // second stop is a no-op

	// A round left in flight at Stop still settles on its own; wait for
	// the engine to go idle before sampling.
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := eng.Snapshot()
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.Status != "running" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("orphaned round never settled")
		}
		time.Sleep(2 * time.Millisecond)
	}
	played := ledger.Snapshot().GamesPlayed
	time.Sleep(100 * time.Millisecond)
	if got := ledger.Snapshot().GamesPlayed; got != played {
		t.Errorf("rounds kept playing after stop: %d -> %d", played, got)
	}
	if st := ctl.State(); st.Enabled || st.CurrentRound != 0 {
		t.Errorf("state after stop = %+v", st)
	}
}

func TestConfigValidation(t *testing.T) {
	ctl, _, _ := newRig(t, 1000, &fixedSource{vals: []float64{0.99, 0.5}})
	bad := []Config{
		{WagerAmount: 5, CashOutAt: 2, MaxRounds: 5},
		{WagerAmount: 10, CashOutAt: 1.0, MaxRounds: 5},
		{WagerAmount: 10, CashOutAt: 2, MaxRounds: 0},
	}
	for i, cfg := range bad {
		if err := ctl.Start(cfg); err != ErrBadConfig {
			t.Errorf("case %d: err = %v want ErrBadConfig", i, err)
		}
	}
}

func TestDroppedSettlementRecoveredByPoll(t *testing.T) {
	ctl, _, eng := newRig(t, 1000, &fixedSource{vals: []float64{0.0, 0.0}}) // crash at 1.01

	snap, err := eng.PlaceWager(10)
	if err != nil {
		t.Fatalf("PlaceWager: %v", err)
	}
	// Fill the buffer with stale outcomes so the round's own settlement
	// event gets dropped by the non-blocking forward.
	for i := 0; i < cap(ctl.settled); i++ {
		ctl.settled <- engine.Outcome{Seq: snap.Seq + 1000}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := eng.Snapshot()
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if s.Status != engine.StatusRunning.String() {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("round never settled")
		}
		time.Sleep(time.Millisecond)
	}

	stop := make(chan struct{})
	outcome, ok := ctl.playRound(Config{WagerAmount: 10, CashOutAt: 5.0, MaxRounds: 1}, snap.Seq, stop)
	if !ok {
		t.Fatal("playRound returned without an outcome")
	}
	if outcome.Seq != snap.Seq {
		t.Errorf("outcome seq = %d want %d", outcome.Seq, snap.Seq)
	}
	if outcome.Win() {
		t.Errorf("outcome = %+v want crash loss", outcome)
	}
}
