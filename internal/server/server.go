package server

import (
	"context"
	"fmt"
	"sync"

	"crashround/internal/broadcast"
	"crashround/internal/config"
	"crashround/internal/db"
	"crashround/internal/display"
	"crashround/internal/economy"
	"crashround/internal/events"
	"crashround/internal/history"
	"crashround/internal/round"
	"crashround/internal/stats"
	"crashround/internal/wshub"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Server owns the durable stores shared across reloads and the current
// round engine.
type Server struct {
	Log         *zap.Logger
	DB          *db.DB        // nil if no database configured
	Redis       *redis.Client // nil if no redis configured
	History     *history.Store
	Stats       *stats.Ledger
	Economy     *economy.Gateway
	Bus         *events.Bus
	Broadcaster *broadcast.Broadcaster
	Display     *display.Renderer
	Hub         *wshub.Hub

	// LoadConfig re-reads configuration on reload.
	LoadConfig func() config.Config

	mu     sync.RWMutex
	cfg    config.Config
	engine *round.Engine
	runCtx context.Context
}

// New connects the optional database and redis, opens the configured
// history and stats backends and builds the first engine. Nothing is
// started.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	s := &Server{Log: log, cfg: cfg, LoadConfig: loadConfig}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, log.Named("db"))
		if err != nil {
			log.Warn("database unavailable, running without it", zap.Error(err))
		} else if err := database.Migrate(ctx); err != nil {
			log.Warn("migration failed, running without database", zap.Error(err))
			database.Close()
		} else {
			s.DB = database
		}
	} else {
		log.Info("DATABASE_URL not set, running without database")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, running without it", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			rdb.Close()
		} else {
			s.Redis = rdb
		}
	}

	historyBackend, err := s.historyBackend(cfg)
	if err != nil {
		return nil, err
	}
	s.History = history.NewStore(historyBackend, cfg.CrashHistorySize, log.Named("history"))

	statsBackend, err := s.statsBackend(cfg)
	if err != nil {
		return nil, err
	}
	s.Stats = stats.NewLedger(statsBackend, log.Named("stats"))

	var ledger economy.Ledger = economy.NewMemoryLedger(cfg.Economy.StartingBalance)
	if s.DB != nil {
		ledger = s.DB.Wallets(cfg.Economy.StartingBalance)
	}
	s.Economy = economy.NewGateway(cfg.Economy.Enabled, ledger, cfg.Economy.LedgerTimeout, log.Named("economy"))

	s.Bus = events.NewBus()
	s.Broadcaster = broadcast.NewBroadcaster(s.Bus)
	s.Display = display.NewRenderer(cfg.Display.Lines, s.Broadcaster, log.Named("display"))
	s.Hub = wshub.NewHub(nil, s.Economy, cfg.Messages, log.Named("wshub"))

	s.engine = s.newEngine(cfg)
	s.Hub.SetGame(s.engine, cfg.Messages)
	return s, nil
}

func (s *Server) historyBackend(cfg config.Config) (history.Backend, error) {
	switch cfg.HistoryBackend {
	case "redis":
		if s.Redis != nil {
			return history.NewRedisBackend(s.Redis, ""), nil
		}
		s.Log.Warn("redis history requested without redis, using file backend")
	case "postgres":
		if s.DB != nil {
			return s.DB.Crashes(), nil
		}
		s.Log.Warn("postgres history requested without database, using file backend")
	}
	fb, err := history.NewFileBackend(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening history file: %w", err)
	}
	return fb, nil
}

func (s *Server) statsBackend(cfg config.Config) (stats.Backend, error) {
	if cfg.StatsBackend == "postgres" {
		if s.DB != nil {
			return s.DB.Stats(), nil
		}
		s.Log.Warn("postgres stats requested without database, using file backend")
	}
	fb, err := stats.NewFileBackend(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening stats file: %w", err)
	}
	return fb, nil
}

func (s *Server) newEngine(cfg config.Config) *round.Engine {
	return round.New(engineConfig(cfg), round.Deps{
		Economy:  s.Economy,
		History:  s.History,
		Stats:    s.Stats,
		Sink:     s.Display,
		Notifier: s.Hub,
		Events:   s.Bus,
		Log:      s.Log.Named("round"),
	})
}

func engineConfig(cfg config.Config) round.Config {
	g := cfg.Game
	return round.Config{
		Interval:        g.Interval,
		StartDelay:      g.StartDelay,
		TickInterval:    g.TickInterval,
		StartMultiplier: g.StartMultiplier,
		GrowthPerSecond: g.GrowthPerSecond,
		CrashVariance:   g.CrashVariance,
		MinCrash:        g.MinCrash,
		MaxCrash:        g.MaxCrash,
		MinBet:          g.MinBet,
		MaxBet:          g.MaxBet,
		AllowLateJoin:   g.AllowLateJoin,
		ActionRateLimit: g.ActionRateLimit,
		DisplayRefresh:  cfg.Display.Refresh,
		MarkerText:      cfg.Display.MarkerText,
		MarkerLifespan:  cfg.Display.MarkerLifespan,
		TrailWidth:      30,
	}
}

// Engine returns the current round engine.
func (s *Server) Engine() *round.Engine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Server) Config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Start runs the engine until ctx is done. Engines built by Reload run
// under the same ctx.
func (s *Server) Start(ctx context.Context) {
	s.mu.Lock()
	s.runCtx = ctx
	engine := s.engine
	s.mu.Unlock()
	engine.Start(ctx)
}

// Reload swaps in a fresh engine built from re-read configuration, then
// stops the old one, dropping its live bets without refunds. Durable stores
// carry over.
func (s *Server) Reload() config.Config {
	cfg := s.LoadConfig()
	s.History.SetMaxSize(cfg.CrashHistorySize)
	next := s.newEngine(cfg)

	s.mu.Lock()
	old, ctx := s.engine, s.runCtx
	s.cfg = cfg
	s.engine = next
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	s.Hub.SetGame(next, cfg.Messages)
	old.Stop()
	next.Start(ctx)
	s.Log.Info("config reloaded", zap.Duration("interval", cfg.Game.Interval))
	return cfg
}

// Close stops the engine and releases connections.
func (s *Server) Close() {
	s.Engine().Stop()
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}

func loadConfig() config.Config {
	cfg := config.Load()
	msgs, err := config.LoadMessages(cfg.MessagesFile)
	if err != nil {
		zap.L().Warn("using default messages", zap.Error(err))
	}
	cfg.Messages = msgs
	return cfg
}
