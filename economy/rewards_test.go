package economy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixelrush-games/rocket-crash-server/crash"
)

func TestDraw_EmptyTable(t *testing.T) {
	var tbl *Table
	if _, ok := tbl.Draw(nil); ok {
		t.Fatal("nil table should not draw")
	}
	tbl = &Table{}
	if _, ok := tbl.Draw(nil); ok {
		t.Fatal("empty table should not draw")
	}
	tbl = &Table{Rewards: []Reward{{Kind: RewardXP, Amount: 10, Weight: 0}}}
	if _, ok := tbl.Draw(nil); ok {
		t.Fatal("all-zero weights should not draw")
	}
}

func TestDraw_Distribution(t *testing.T) {
	tbl := DefaultTable() // weights 5 / 2 / 2 / 1, total 10
	src := crash.NewSeededSource(7)
	const rounds = 100_000
	counts := make([]int, len(tbl.Rewards))
	for i := 0; i < rounds; i++ {
		r, ok := tbl.Draw(src)
		if !ok {
			t.Fatal("draw failed")
		}
		for j, e := range tbl.Rewards {
			if e.Kind == r.Kind && e.Amount == r.Amount && e.CosmeticID == r.CosmeticID && e.BoostValue == r.BoostValue {
				counts[j]++
				break
			}
		}
	}
	want := []float64{0.5, 0.2, 0.2, 0.1}
	for i, w := range want {
		p := float64(counts[i]) / rounds
		if p < w-0.02 || p > w+0.02 {
			t.Errorf("entry %d proportion %.4f want ~%.2f (tol ±2%%)", i, p, w)
		}
	}
}

// boundarySource returns a value at or past the upper edge so the walk
// falls through; the first entry must win as the fallback.
type boundarySource struct{}

func (boundarySource) Float64() float64 { return 1.0 }

func TestDraw_FallbackFirstEntry(t *testing.T) {
	tbl := DefaultTable()
	r, ok := tbl.Draw(boundarySource{})
	if !ok {
		t.Fatal("draw failed")
	}
	first := tbl.Rewards[0]
	if r.Kind != first.Kind || r.Amount != first.Amount {
		t.Errorf("fallback drew %+v want first entry %+v", r, first)
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rewards.yaml")
	content := `
mystery_box:
  consolation_xp: 75
  rewards:
    - kind: xp
      amount: 100
      weight: 5
      rarity: common
    - kind: cosmetic
      cosmetic: neon_trail
      weight: 1
      rarity: epic
    - kind: boost
      value: 2.0
      duration_seconds: 600
      weight: 2
      rarity: rare
boosts:
  - id: boost_2x_1h
    value: 2.0
    duration_seconds: 3600
    price_cents: 199
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	tbl, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if tbl.ConsolationXP != 75 {
		t.Errorf("consolation = %d want 75", tbl.ConsolationXP)
	}
	if len(tbl.Rewards) != 3 {
		t.Fatalf("rewards = %d want 3", len(tbl.Rewards))
	}
	if tbl.Rewards[1].Kind != RewardCosmetic || tbl.Rewards[1].CosmeticID != "neon_trail" {
		t.Errorf("cosmetic entry = %+v", tbl.Rewards[1])
	}
	if tbl.Rewards[2].BoostDuration != 10*time.Minute {
		t.Errorf("boost duration = %v want 10m", tbl.Rewards[2].BoostDuration)
	}
	b, ok := tbl.Boost("boost_2x_1h")
	if !ok || b.Duration() != time.Hour || b.PriceCents != 199 {
		t.Errorf("boost catalog entry = %+v ok=%v", b, ok)
	}
	if _, ok := tbl.Boost("nope"); ok {
		t.Error("unknown boost id should not resolve")
	}
}

func TestLoadTable_UnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rewards.yaml")
	content := `
mystery_box:
  rewards:
    - kind: jackpot
      amount: 9999
      weight: 1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("unknown reward kind must be rejected")
	}
}
