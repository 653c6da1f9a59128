package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pixelrush-games/rocket-crash-server/engine"
)

// ResultsLedger appends settled rounds to data/round_results.json for
// audit. It implements engine.Recorder; the engine calls it off the tick
// path, fire-and-forget.
type ResultsLedger struct {
	mu      sync.Mutex
	dataDir string
}

func NewResultsLedger(dataDir string) *ResultsLedger {
	if dataDir == "" {
		dataDir = "data"
	}
	return &ResultsLedger{dataDir: dataDir}
}

func (rs *ResultsLedger) path() string {
	return filepath.Join(rs.dataDir, "round_results.json")
}

func (rs *ResultsLedger) ensureDir() error {
	return os.MkdirAll(rs.dataDir, 0755)
}

// Record appends one settled round to the JSON array on disk.
func (rs *ResultsLedger) Record(o engine.Outcome) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if err := rs.ensureDir(); err != nil {
		return err
	}
	path := rs.path()
	var list []engine.Outcome
	data, err := os.ReadFile(path)
	if err == nil {
		_ = json.Unmarshal(data, &list)
	}
	if list == nil {
		list = []engine.Outcome{}
	}
	list = append(list, o)
	data, err = json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetByRoundID returns a recorded outcome by round ID, if present.
func (rs *ResultsLedger) GetByRoundID(roundID string) (*engine.Outcome, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	data, err := os.ReadFile(rs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var list []engine.Outcome
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].RoundID == roundID {
			return &list[i], nil
		}
	}
	return nil, nil
}
