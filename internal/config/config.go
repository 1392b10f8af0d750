package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	AppEnv      string
	DatabaseURL string
	RedisAddr   string
	DataDir     string
	AdminToken  string

	HistoryBackend string // file, redis or postgres
	StatsBackend   string // file or postgres

	Game    Game
	Economy Economy
	Display Display

	CrashHistorySize      int
	LastGamesDisplayCount int

	MessagesFile string
	Messages     Messages
}

// Game holds the round tuning knobs.
type Game struct {
	Interval        time.Duration
	StartDelay      time.Duration
	TickInterval    time.Duration
	StartMultiplier float64
	GrowthPerSecond float64
	CrashVariance   float64
	MinCrash        float64
	MaxCrash        float64
	MinBet          float64
	MaxBet          float64
	AllowLateJoin   bool
	ActionRateLimit time.Duration
}

type Economy struct {
	Enabled         bool
	StartingBalance float64
	LedgerTimeout   time.Duration
}

type Display struct {
	Refresh        time.Duration
	Lines          []string
	MarkerText     string
	MarkerLifespan time.Duration
}

// Messages are the participant-facing texts. Placeholders are filled by the caller.
type Messages struct {
	Reloaded          string `yaml:"reloaded"`
	BetPlaced         string `yaml:"betPlaced"`
	BetUpdated        string `yaml:"betUpdated"`
	BetCancelled      string `yaml:"betCancelled"`
	BetTooLow         string `yaml:"betTooLow"`
	BetTooHigh        string `yaml:"betTooHigh"`
	NotWaiting        string `yaml:"notWaiting"`
	NotRunning        string `yaml:"notRunning"`
	NoBet             string `yaml:"noBet"`
	CashoutSuccess    string `yaml:"cashoutSuccess"`
	Loss              string `yaml:"loss"`
	InsufficientFunds string `yaml:"insufficientFunds"`
	LedgerUnavailable string `yaml:"ledgerUnavailable"`
	InvalidAmount     string `yaml:"invalidAmount"`
	RateLimited       string `yaml:"rateLimited"`
	RigSet            string `yaml:"rigSet"`
	RigTooLate        string `yaml:"rigTooLate"`
	RigTooLow         string `yaml:"rigTooLow"`
	NoPermission      string `yaml:"noPermission"`
}

func DefaultMessages() Messages {
	return Messages{
		Reloaded:          "Crash config reloaded.",
		BetPlaced:         "Bet placed: {amount}",
		BetUpdated:        "Bet updated: {amount}",
		BetCancelled:      "Bet cancelled, refunded {amount}",
		BetTooLow:         "Minimum bet is {min}",
		BetTooHigh:        "Maximum bet is {max}",
		NotWaiting:        "Round already running.",
		NotRunning:        "No round running.",
		NoBet:             "You are not in this round.",
		CashoutSuccess:    "Cashed out at {multiplier}x for {payout}",
		Loss:              "Crashed at {multiplier}x. You lost {amount}",
		InsufficientFunds: "You cannot afford that bet.",
		LedgerUnavailable: "Economy is unavailable, try again.",
		InvalidAmount:     "Invalid amount.",
		RateLimited:       "Slow down.",
		RigSet:            "Next crash rigged at {multiplier}x",
		RigTooLate:        "Too late to rig.",
		RigTooLow:         "Too low.",
		NoPermission:      "No permission.",
	}
}

func DefaultLines() []string {
	return []string{
		"CRASH - {state}",
		"{timer}",
		"Multiplier: {multiplier}x",
		"Pot: {pot} ({players_total} players)",
		"{players}",
	}
}

func Load() Config {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		AppEnv:         getEnv("APP_ENV", "production"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		DataDir:        getEnv("DATA_DIR", "data"),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", "file")),
		StatsBackend:   strings.ToLower(getEnv("STATS_BACKEND", "file")),
		Game: Game{
			Interval:        getEnvPositiveDuration("ROUND_INTERVAL", 30*time.Second),
			StartDelay:      max(0, getEnvDuration("START_DELAY", 5*time.Second)),
			TickInterval:    getEnvPositiveDuration("TICK_INTERVAL", 100*time.Millisecond),
			StartMultiplier: getEnvPositiveFloat("START_MULTIPLIER", 1.0),
			GrowthPerSecond: getEnvPositiveFloat("GROWTH_PER_SECOND", 0.08),
			CrashVariance:   getEnvPositiveFloat("CRASH_VARIANCE", 1.6),
			MinCrash:        getEnvPositiveFloat("MIN_CRASH", 1.01),
			MaxCrash:        getEnvPositiveFloat("MAX_CRASH", 1000),
			MinBet:          getEnvFloat("MIN_BET", 10),
			MaxBet:          getEnvFloat("MAX_BET", 20_000_000),
			AllowLateJoin:   getEnvBool("ALLOW_LATE_JOIN", false),
			ActionRateLimit: getEnvDuration("ACTION_RATE_LIMIT", 200*time.Millisecond),
		},
		Economy: Economy{
			Enabled:         getEnvBool("ECONOMY_ENABLED", true),
			StartingBalance: getEnvFloat("STARTING_BALANCE", 10_000),
			LedgerTimeout:   getEnvDuration("LEDGER_TIMEOUT", 2*time.Second),
		},
		Display: Display{
			Refresh:        getEnvPositiveDuration("DISPLAY_REFRESH", 150*time.Millisecond),
			Lines:          DefaultLines(),
			MarkerText:     getEnv("CRASH_MARKER_TEXT", "BOOM at {multiplier}x"),
			MarkerLifespan: getEnvDuration("CRASH_MARKER_LIFESPAN", 8*time.Second),
		},
		CrashHistorySize:      max(1, getEnvInt("CRASH_HISTORY_SIZE", 20)),
		LastGamesDisplayCount: max(1, getEnvInt("LASTGAMES_DISPLAY_COUNT", 5)),
		MessagesFile:          os.Getenv("MESSAGES_FILE"),
		Messages:              DefaultMessages(),
	}
	if cfg.Game.MinCrash < 1 || cfg.Game.MaxCrash < cfg.Game.MinCrash {
		cfg.Game.MinCrash, cfg.Game.MaxCrash = 1.01, 1000
	}
	return cfg
}

// LoadMessages overlays the YAML file at path onto the defaults. Keys absent
// from the file keep their default text.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return msgs, fmt.Errorf("reading messages file: %w", err)
	}
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return DefaultMessages(), fmt.Errorf("parsing messages file: %w", err)
	}
	return msgs, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvPositiveFloat falls back for zero, negative and NaN values.
func getEnvPositiveFloat(key string, fallback float64) float64 {
	if f := getEnvFloat(key, fallback); f > 0 {
		return f
	}
	return fallback
}

func getEnvPositiveDuration(key string, fallback time.Duration) time.Duration {
	if d := getEnvDuration(key, fallback); d > 0 {
		return d
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("250ms", "30s") or a bare
// integer number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	return fallback
}
