package platform

import (
	"encoding/json"
	"io"
	"net/http"
)

// Player identifies the session's player.
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// Identity resolves the current player. An absent player puts the engine
// in guest mode: rounds play, economy writes are suppressed.
type Identity interface {
	CurrentPlayer() (Player, bool)
}

// StaticIdentity is a fixed player, typically from env config.
type StaticIdentity struct {
	Player Player
}

func (s StaticIdentity) CurrentPlayer() (Player, bool) {
	return s.Player, s.Player.ID != ""
}

// GuestIdentity always reports no player.
type GuestIdentity struct{}

func (GuestIdentity) CurrentPlayer() (Player, bool) { return Player{}, false }

// CurrentPlayer resolves the player from the platform session endpoint.
// Any failure (network, auth, missing session) means guest mode.
func (c *Client) CurrentPlayer() (Player, bool) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/me", nil)
	if err != nil {
		return Player{}, false
	}
	req.Header.Set("Authorization", c.authHeader())
	resp, err := c.http.Do(req)
	if err != nil {
		return Player{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Player{}, false
	}
	body, _ := io.ReadAll(resp.Body)
	var p Player
	if err := json.Unmarshal(body, &p); err != nil || p.ID == "" {
		return Player{}, false
	}
	return p, true
}
