package server

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/autoplay"
	"github.com/pixelrush-games/rocket-crash-server/config"
	"github.com/pixelrush-games/rocket-crash-server/economy"
	"github.com/pixelrush-games/rocket-crash-server/engine"
	"github.com/pixelrush-games/rocket-crash-server/leaderboard"
	"github.com/pixelrush-games/rocket-crash-server/platform"
	"github.com/pixelrush-games/rocket-crash-server/store"
)

const maxNotices = 20

type Server struct {
	cfg    *config.Config
	log    *zap.Logger
	eng    *engine.Engine
	ledger *economy.Ledger
	auto   *autoplay.Controller
	lb     leaderboard.Store
	player platform.Player
	guest  bool

	noticeMu sync.Mutex
	notices  []engine.Notice
}

// New wires the whole game: identity, store, ledger, engine, autoplay,
// platform clients. An unresolved identity runs the engine in guest mode.
func New(cfg *config.Config, log *zap.Logger) (*Server, error) {
	client := platform.NewClient(cfg.PlatformURL, cfg.PlatformToken)

	var identity platform.Identity = client
	switch {
	case cfg.Guest:
		identity = platform.GuestIdentity{}
	case cfg.PlayerID != "":
		identity = platform.StaticIdentity{Player: platform.Player{
			ID:          cfg.PlayerID,
			DisplayName: cfg.PlayerName,
			Role:        "player",
		}}
	}
	player, ok := identity.CurrentPlayer()
	if !ok {
		log.Info("no player identity, running in guest mode")
	}

	// Postgres when DATABASE_URL is set, JSON files otherwise.
	var st economy.Store
	if pg, err := store.NewPGStore(); err == nil {
		st = pg
		log.Info("using postgres player store")
	} else {
		st = store.NewFileStore(cfg.DataDir)
		log.Info("using file player store", zap.String("dir", cfg.DataDir), zap.NamedError("pg", err))
	}

	table, err := economy.LoadTable(cfg.RewardsPath)
	if err != nil {
		log.Warn("rewards table unavailable, using built-in defaults",
			zap.String("path", cfg.RewardsPath), zap.Error(err))
		table = economy.DefaultTable()
	}

	playerID := ""
	if ok {
		playerID = player.ID
	}
	s := &Server{
		cfg:    cfg,
		log:    log,
		lb:     client,
		player: player,
		guest:  !ok,
	}
	ledger := economy.NewLedger(economy.LedgerConfig{
		PlayerID:   playerID,
		Store:      st,
		Table:      table,
		Payment:    client,
		Logger:     log.Named("economy"),
		Notify:     s.serviceNotice,
		StartingXP: cfg.StartingXP,
	})

	eng := engine.New(engine.Config{
		Ledger:             ledger,
		Logger:             log.Named("engine"),
		Recorder:           store.NewResultsLedger(cfg.DataDir),
		TickInterval:       cfg.TickInterval,
		HistorySize:        cfg.HistorySize,
		MinWager:           cfg.MinWager,
		NearMissWindow:     cfg.NearMissWindow,
		SecondChanceChance: cfg.SecondChanceChance,
	})
	s.eng = eng
	s.ledger = ledger
	s.auto = autoplay.New(eng, ledger, log.Named("autoplay"))

	// Subscriptions must land before the loop starts.
	eng.OnNotice(s.collectNotice)
	if !s.guest {
		eng.OnSettled(s.submitScore)
	}
	eng.Start()

	if !s.guest {
		if bonus := ledger.RefreshDailyStreak(); bonus > 0 {
			log.Info("daily streak bonus granted", zap.Int("xp", bonus))
		}
	}
	return s, nil
}

// collectNotice keeps the most recent retention notices for the client
// to poll. Runs on the engine loop; just an append under a mutex.
func (s *Server) collectNotice(n engine.Notice) {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()
	s.notices = append(s.notices, n)
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// serviceNotice queues a degraded-external-service notice for the client
// to poll. Failures here are never fatal to gameplay.
func (s *Server) serviceNotice(message string) {
	s.collectNotice(engine.Notice{Kind: engine.NoticeServiceFailure, Message: message})
}

func (s *Server) drainNotices() []engine.Notice {
	s.noticeMu.Lock()
	defer s.noticeMu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/round", func(rr chi.Router) {
		rr.Post("/wager", s.handleWager)
		rr.Post("/cashout", s.handleCashOut)
		rr.Get("/state", s.handleRoundState)
	})
	r.Route("/autoplay", func(rr chi.Router) {
		rr.Post("/start", s.handleAutoplayStart)
		rr.Post("/stop", s.handleAutoplayStop)
		rr.Get("/", s.handleAutoplayState)
	})
	r.Get("/player", s.handlePlayer)
	r.Post("/player/daily", s.handleDaily)
	r.Post("/player/referral", s.handleReferral)
	r.Post("/box/open", s.handleOpenBox)
	r.Post("/boost/buy", s.handleBuyBoost)
	r.Post("/cosmetic/activate", s.handleActivateCosmetic)
	r.Get("/leaderboard", s.handleLeaderboard)
	r.Get("/notices", s.handleNotices)
	return r
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.log.Info("listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Router())
}

// Close shuts down the engine loop, autoplay and all pending timers.
func (s *Server) Close() {
	s.auto.Stop()
	s.eng.Stop()
	s.ledger.Close()
}
