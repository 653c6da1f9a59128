package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	rcdb "github.com/pixelrush-games/rocket-crash-server"
	"github.com/pixelrush-games/rocket-crash-server/economy"
)

// PGStore keeps player states in a Postgres players table, one jsonb
// state blob per player. Used when DATABASE_URL is configured.
type PGStore struct {
	db *sql.DB
}

func NewPGStore() (*PGStore, error) {
	db, err := rcdb.GetDB()
	if err != nil {
		return nil, err
	}
	if db == nil {
		return nil, errors.New("no database configured")
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		state JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return nil, fmt.Errorf("ensure players table: %w", err)
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Load(id string) (economy.PlayerState, bool, error) {
	var raw []byte
	err := s.db.QueryRow(`SELECT state FROM players WHERE id = $1`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.PlayerState{}, false, nil
	}
	if err != nil {
		return economy.PlayerState{}, false, err
	}
	var st economy.PlayerState
	if err := json.Unmarshal(raw, &st); err != nil {
		return economy.PlayerState{}, false, err
	}
	return st, true, nil
}

func (s *PGStore) Save(id string, state economy.PlayerState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO players (id, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, updated_at = now()`,
		id, raw)
	return err
}
