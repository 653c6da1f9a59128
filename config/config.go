package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        int
	DataDir     string
	RewardsPath string // rewards.yaml; empty = built-in table

	PlatformURL   string
	PlatformToken string
	AppScope      string // leaderboard scope

	// Fixed identity for single-tenant deployments; empty = resolve via
	// the platform session endpoint (and guest mode on failure). Guest
	// forces guest mode without touching the platform.
	Guest      bool
	PlayerID   string
	PlayerName string
	StartingXP int

	TickInterval       time.Duration
	InterRoundDelay    time.Duration
	HistorySize        int
	MinWager           int
	NearMissWindow     float64
	SecondChanceChance float64

	Dev bool // human-readable logs
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	port := 8081
	// Prefer PORT (Render, Fly.io, Railway, etc.) then GAME_PORT
	if p := os.Getenv("PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	} else if p := os.Getenv("GAME_PORT"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			port = v
		}
	}
	return &Config{
		Port:        port,
		DataDir:     envStr("GAME_DATA_DIR", "data"),
		RewardsPath: envStr("REWARDS_FILE", "rewards.yaml"),

		PlatformURL:   envStr("PLATFORM_URL", "http://localhost:3000"),
		PlatformToken: os.Getenv("PLATFORM_TOKEN"),
		AppScope:      envStr("APP_SCOPE", "rocket-crash"),

		Guest:      os.Getenv("GUEST") != "",
		PlayerID:   os.Getenv("PLAYER_ID"),
		PlayerName: envStr("PLAYER_NAME", "Player"),
		StartingXP: envInt("STARTING_XP", 1000),

		TickInterval:       time.Duration(envInt("TICK_MS", 10)) * time.Millisecond,
		InterRoundDelay:    time.Duration(envInt("AUTOPLAY_DELAY_MS", 1000)) * time.Millisecond,
		HistorySize:        envInt("HISTORY_SIZE", 10),
		MinWager:           envInt("MIN_WAGER", 10),
		NearMissWindow:     envFloat("NEAR_MISS_WINDOW", 0.10),
		SecondChanceChance: envFloat("SECOND_CHANCE_CHANCE", 0.30),

		Dev: os.Getenv("DEV") != "",
	}
}
