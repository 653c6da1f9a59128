// Package store persists player economy state and the settled-round
// audit ledger. The file stores keep the whole dataset in memory and
// rewrite data/*.json on every mutation, same as the platform ledgers.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pixelrush-games/rocket-crash-server/economy"
)

// FileStore keeps player states in data/players.json.
type FileStore struct {
	mu      sync.Mutex
	players map[string]economy.PlayerState
	dataDir string
}

func NewFileStore(dataDir string) *FileStore {
	if dataDir == "" {
		dataDir = "data"
	}
	s := &FileStore{
		players: make(map[string]economy.PlayerState),
		dataDir: dataDir,
	}
	s.load()
	return s
}

func (s *FileStore) path() string {
	return filepath.Join(s.dataDir, "players.json")
}

func (s *FileStore) ensureDir() error {
	return os.MkdirAll(s.dataDir, 0755)
}

func (s *FileStore) load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path())
	if err != nil {
		return
	}
	var m map[string]economy.PlayerState
	if err := json.Unmarshal(data, &m); err != nil {
		return
	}
	for id, st := range m {
		if id != "" {
			s.players[id] = st
		}
	}
}

func (s *FileStore) saveLocked() error {
	data, err := json.MarshalIndent(s.players, "", "  ")
	if err != nil {
		return err
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	return os.WriteFile(s.path(), data, 0644)
}

// Load returns the stored state for id, or ok=false for a new player.
func (s *FileStore) Load(id string) (economy.PlayerState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.players[id]
	return st, ok, nil
}

// Save writes the player's state through to disk.
func (s *FileStore) Save(id string, state economy.PlayerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[id] = state
	return s.saveLocked()
}
