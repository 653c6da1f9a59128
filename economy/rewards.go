package economy

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pixelrush-games/rocket-crash-server/crash"
)

// RewardKind enumerates the closed set of mystery-box reward variants.
type RewardKind int

const (
	RewardXP RewardKind = iota
	RewardCosmetic
	RewardBoost
)

func (k RewardKind) String() string {
	switch k {
	case RewardXP:
		return "xp"
	case RewardCosmetic:
		return "cosmetic"
	case RewardBoost:
		return "boost"
	}
	return "unknown"
}

// Reward is one mystery-box table entry. Rarity is a display label only.
type Reward struct {
	Kind          RewardKind
	Amount        int           // RewardXP
	CosmeticID    string        // RewardCosmetic
	BoostValue    float64       // RewardBoost
	BoostDuration time.Duration // RewardBoost
	Weight        int
	Rarity        string
}

// BoostProduct is a purchasable boost from the catalog (crosses the
// payment boundary, unlike box-drawn boosts).
type BoostProduct struct {
	ID              string  `yaml:"id"`
	Value           float64 `yaml:"value"`
	DurationSeconds int     `yaml:"duration_seconds"`
	PriceCents      int     `yaml:"price_cents"`
}

// Duration returns the boost lifetime.
func (b BoostProduct) Duration() time.Duration {
	return time.Duration(b.DurationSeconds) * time.Second
}

// Table holds the mystery-box reward list and the boost catalog.
type Table struct {
	Rewards       []Reward
	ConsolationXP int // substituted when a drawn cosmetic is already owned
	Boosts        []BoostProduct
}

// Draw picks a reward by weighted sampling: r in [0, totalWeight), walk
// the list accumulating weight, first entry whose span contains r wins.
// The first entry is the fallback if no span matches.
func (t *Table) Draw(src crash.Source) (Reward, bool) {
	if t == nil || len(t.Rewards) == 0 {
		return Reward{}, false
	}
	total := 0
	for _, r := range t.Rewards {
		if r.Weight > 0 {
			total += r.Weight
		}
	}
	if total <= 0 {
		return Reward{}, false
	}
	if src == nil {
		src = crash.DefaultSource()
	}
	pick := src.Float64() * float64(total)
	cum := 0.0
	for _, r := range t.Rewards {
		if r.Weight <= 0 {
			continue
		}
		cum += float64(r.Weight)
		if pick < cum {
			return r, true
		}
	}
	return t.Rewards[0], true
}

// Boost returns the catalog entry for id, or false if unknown.
func (t *Table) Boost(id string) (BoostProduct, bool) {
	if t == nil {
		return BoostProduct{}, false
	}
	for _, b := range t.Boosts {
		if b.ID == id {
			return b, true
		}
	}
	return BoostProduct{}, false
}

// rewardsFile is the on-disk YAML shape of rewards.yaml.
type rewardsFile struct {
	MysteryBox struct {
		ConsolationXP int `yaml:"consolation_xp"`
		Rewards       []struct {
			Kind            string  `yaml:"kind"`
			Amount          int     `yaml:"amount"`
			Cosmetic        string  `yaml:"cosmetic"`
			Value           float64 `yaml:"value"`
			DurationSeconds int     `yaml:"duration_seconds"`
			Weight          int     `yaml:"weight"`
			Rarity          string  `yaml:"rarity"`
		} `yaml:"rewards"`
	} `yaml:"mystery_box"`
	Boosts []BoostProduct `yaml:"boosts"`
}

// LoadTable reads a rewards.yaml file. Entries with an unknown kind are
// rejected so a typo cannot silently skew the draw weights.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f rewardsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	t := &Table{ConsolationXP: f.MysteryBox.ConsolationXP, Boosts: f.Boosts}
	if t.ConsolationXP <= 0 {
		t.ConsolationXP = defaultConsolationXP
	}
	for _, e := range f.MysteryBox.Rewards {
		r := Reward{Weight: e.Weight, Rarity: e.Rarity}
		switch e.Kind {
		case "xp":
			r.Kind = RewardXP
			r.Amount = e.Amount
		case "cosmetic":
			r.Kind = RewardCosmetic
			r.CosmeticID = e.Cosmetic
		case "boost":
			r.Kind = RewardBoost
			r.BoostValue = e.Value
			r.BoostDuration = time.Duration(e.DurationSeconds) * time.Second
		default:
			return nil, fmt.Errorf("rewards: unknown kind %q", e.Kind)
		}
		t.Rewards = append(t.Rewards, r)
	}
	if len(t.Rewards) == 0 {
		return nil, fmt.Errorf("rewards: empty mystery box table in %s", path)
	}
	return t, nil
}

const defaultConsolationXP = 50

// DefaultTable is used when no rewards.yaml is configured. Weights match
// the shipped table: XP-common 5, XP-rare 2, Boost-rare 2, Cosmetic-epic 1.
func DefaultTable() *Table {
	return &Table{
		ConsolationXP: defaultConsolationXP,
		Rewards: []Reward{
			{Kind: RewardXP, Amount: 100, Weight: 5, Rarity: "common"},
			{Kind: RewardXP, Amount: 500, Weight: 2, Rarity: "rare"},
			{Kind: RewardBoost, BoostValue: 2.0, BoostDuration: 10 * time.Minute, Weight: 2, Rarity: "rare"},
			{Kind: RewardCosmetic, CosmeticID: "golden_rocket", Weight: 1, Rarity: "epic"},
		},
		Boosts: []BoostProduct{
			{ID: "boost_2x_1h", Value: 2.0, DurationSeconds: 3600, PriceCents: 199},
			{ID: "boost_3x_30m", Value: 3.0, DurationSeconds: 1800, PriceCents: 299},
		},
	}
}
