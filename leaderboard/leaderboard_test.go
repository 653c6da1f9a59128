package leaderboard

import (
	"reflect"
	"testing"
)

func TestMerge_AppendsAbsentPlayer(t *testing.T) {
	fetched := []Entry{
		{ID: "a", DisplayName: "Alice", XP: 5000, BiggestMultiplier: 12.5},
		{ID: "b", DisplayName: "Bob", XP: 3000, BiggestMultiplier: 4.0},
	}
	self := Entry{ID: "me", DisplayName: "Rookie", XP: 4000, BiggestMultiplier: 2.1}

	out := Merge(fetched, self)
	if len(out) != 3 {
		t.Fatalf("len = %d want 3", len(out))
	}
	if out[1].ID != "me" || !out[1].IsCurrentUser || out[1].Rank != 2 {
		t.Errorf("self row = %+v want rank 2, isCurrentUser", out[1])
	}
	if out[0].ID != "a" || out[2].ID != "b" {
		t.Errorf("order = %s,%s,%s", out[0].ID, out[1].ID, out[2].ID)
	}
}

func TestMerge_RefreshesPresentPlayer(t *testing.T) {
	fetched := []Entry{
		{ID: "a", XP: 5000},
		{ID: "me", DisplayName: "Rookie", XP: 100, BiggestMultiplier: 1.2, GamesPlayed: 3},
	}
	self := Entry{ID: "me", XP: 9000, BiggestMultiplier: 30.0, GamesPlayed: 40}

	out := Merge(fetched, self)
	if len(out) != 2 {
		t.Fatalf("len = %d want 2 (no duplicate row)", len(out))
	}
	top := out[0]
	if top.ID != "me" || top.XP != 9000 || top.GamesPlayed != 40 || !top.IsCurrentUser {
		t.Errorf("refreshed row = %+v", top)
	}
	if top.Rank != 1 || out[1].Rank != 2 {
		t.Errorf("ranks = %d,%d", top.Rank, out[1].Rank)
	}
}

func TestMerge_TieBrokenByBiggestMultiplier(t *testing.T) {
	fetched := []Entry{
		{ID: "low", XP: 1000, BiggestMultiplier: 1.5},
		{ID: "high", XP: 1000, BiggestMultiplier: 8.0},
	}
	out := Merge(fetched, Entry{ID: "me", XP: 500})
	if out[0].ID != "high" || out[1].ID != "low" {
		t.Errorf("tie order = %s,%s want high,low", out[0].ID, out[1].ID)
	}
}

func TestMerge_Deterministic(t *testing.T) {
	fetched := []Entry{
		{ID: "a", XP: 100, BiggestMultiplier: 2.0},
		{ID: "b", XP: 100, BiggestMultiplier: 2.0},
		{ID: "c", XP: 300},
	}
	self := Entry{ID: "me", XP: 100, BiggestMultiplier: 2.0}
	first := Merge(fetched, self)
	for i := 0; i < 10; i++ {
		if got := Merge(fetched, self); !reflect.DeepEqual(got, first) {
			t.Fatalf("merge not deterministic: run %d differs", i)
		}
	}
}

func TestMerge_EmptyFetch(t *testing.T) {
	out := Merge(nil, Entry{ID: "me", XP: 10})
	if len(out) != 1 || out[0].Rank != 1 || !out[0].IsCurrentUser {
		t.Errorf("out = %+v", out)
	}
}
