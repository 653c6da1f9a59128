package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/autoplay"
	"github.com/pixelrush-games/rocket-crash-server/economy"
	"github.com/pixelrush-games/rocket-crash-server/engine"
	"github.com/pixelrush-games/rocket-crash-server/leaderboard"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWager(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
		return
	}
	snap, err := s.eng.PlaceWager(req.Amount)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, engine.ErrRoundInProgress):
		writeError(w, http.StatusConflict, err.Error(), "ROUND_IN_PROGRESS")
	case errors.Is(err, economy.ErrInsufficientXP):
		writeError(w, http.StatusBadRequest, err.Error(), "INSUFFICIENT_XP")
	case errors.Is(err, engine.ErrWagerTooSmall), errors.Is(err, engine.ErrWagerNotStep),
		errors.Is(err, economy.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_WAGER")
	case errors.Is(err, engine.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_STOPPED")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

func (s *Server) handleCashOut(w http.ResponseWriter, r *http.Request) {
	snap, err := s.eng.CashOut()
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, engine.ErrCrashed):
		// The crash won the race; settlement happened, just not in the
		// player's favor. The snapshot carries the crashed round.
		writeJSON(w, http.StatusOK, snap)
	case errors.Is(err, engine.ErrNoActiveRound):
		writeError(w, http.StatusConflict, err.Error(), "NO_ACTIVE_ROUND")
	case errors.Is(err, engine.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_STOPPED")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

func (s *Server) handleRoundState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.eng.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error(), "ENGINE_STOPPED")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAutoplayStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WagerAmount int     `json:"wagerAmount"`
		CashOutAt   float64 `json:"cashOutAt"`
		StopOnWin   bool    `json:"stopOnWin"`
		StopOnLoss  bool    `json:"stopOnLoss"`
		MaxRounds   int     `json:"maxRounds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
		return
	}
	err := s.auto.Start(autoplay.Config{
		WagerAmount:     req.WagerAmount,
		CashOutAt:       req.CashOutAt,
		StopOnWin:       req.StopOnWin,
		StopOnLoss:      req.StopOnLoss,
		MaxRounds:       req.MaxRounds,
		InterRoundDelay: s.cfg.InterRoundDelay,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.auto.State())
	case errors.Is(err, autoplay.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error(), "AUTOPLAY_RUNNING")
	case errors.Is(err, autoplay.ErrBadConfig):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_CONFIG")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "INTERNAL")
	}
}

func (s *Server) handleAutoplayStop(w http.ResponseWriter, _ *http.Request) {
	s.auto.Stop()
	writeJSON(w, http.StatusOK, s.auto.State())
}

func (s *Server) handleAutoplayState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.auto.State())
}

func (s *Server) handlePlayer(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player": s.player,
		"guest":  s.guest,
		"state":  s.ledger.Snapshot(),
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, _ *http.Request) {
	if s.guest {
		writeError(w, http.StatusForbidden, "guest session", "GUEST")
		return
	}
	bonus := s.ledger.RefreshDailyStreak()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bonusXP": bonus,
		"state":   s.ledger.Snapshot(),
	})
}

func (s *Server) handleReferral(w http.ResponseWriter, _ *http.Request) {
	if s.guest {
		writeError(w, http.StatusForbidden, "guest session", "GUEST")
		return
	}
	credited, xp := s.ledger.RecordReferralEvent()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"credited": credited,
		"xp":       xp,
	})
}

// rewardView is the wire shape of an applied mystery-box reward.
type rewardView struct {
	Kind            string  `json:"kind"`
	Rarity          string  `json:"rarity"`
	Amount          int     `json:"amount,omitempty"`
	CosmeticID      string  `json:"cosmeticId,omitempty"`
	BoostValue      float64 `json:"boostValue,omitempty"`
	DurationSeconds int     `json:"durationSeconds,omitempty"`
}

func viewReward(r economy.Reward) rewardView {
	return rewardView{
		Kind:            r.Kind.String(),
		Rarity:          r.Rarity,
		Amount:          r.Amount,
		CosmeticID:      r.CosmeticID,
		BoostValue:      r.BoostValue,
		DurationSeconds: int(r.BoostDuration / time.Second),
	}
}

func (s *Server) handleOpenBox(w http.ResponseWriter, _ *http.Request) {
	reward, err := s.ledger.OpenMysteryBox()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), "BOX_UNAVAILABLE")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reward": viewReward(reward),
		"state":  s.ledger.Snapshot(),
	})
}

func (s *Server) handleBuyBoost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
		return
	}
	status, err := s.ledger.PurchaseBoost(req.ID)
	switch {
	case errors.Is(err, economy.ErrUnknownBoost):
		writeError(w, http.StatusBadRequest, err.Error(), "UNKNOWN_BOOST")
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error(), "PAYMENT_FAILED")
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": status.String(),
			"state":  s.ledger.Snapshot(),
		})
	}
}

func (s *Server) handleActivateCosmetic(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
		return
	}
	if err := s.ledger.SetActiveCosmetic(req.ID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "COSMETIC_LOCKED")
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.lb.FetchRanking(r.Context(), s.cfg.AppScope)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error(), "LEADERBOARD_UNAVAILABLE")
		return
	}
	merged := leaderboard.Merge(entries, s.selfEntry())
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": merged})
}

func (s *Server) handleNotices(w http.ResponseWriter, _ *http.Request) {
	notices := s.drainNotices()
	out := make([]map[string]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, map[string]string{
			"kind":    n.Kind.String(),
			"roundId": n.RoundID,
			"message": n.Message,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notices": out})
}

func (s *Server) selfEntry() leaderboard.Entry {
	st := s.ledger.Snapshot()
	return leaderboard.Entry{
		ID:                s.player.ID,
		DisplayName:       s.player.DisplayName,
		XP:                st.XP,
		BiggestMultiplier: st.BiggestMultiplier,
		GamesPlayed:       st.GamesPlayed,
	}
}

// submitScore pushes the player's summary after each settlement. Runs off
// the engine loop; a failed submit is logged and the round is unaffected.
func (s *Server) submitScore(engine.Outcome) {
	entry := s.selfEntry()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.lb.SubmitEntry(ctx, s.cfg.AppScope, entry); err != nil {
			s.log.Warn("leaderboard submit", zap.Error(err))
			s.serviceNotice("leaderboard update could not be submitted")
		}
	}()
}
