package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Files    FilesConfig
	Dispatch DispatchConfig
	Login    LoginConfig
	Status   StatusConfig
	Telegram TelegramConfig
}

type FilesConfig struct {
	Profiles   string
	Recipients string
	Messages   string
	Log        string
	SessionDir string
}

type DispatchConfig struct {
	PacingMin       time.Duration
	PacingMax       time.Duration
	MaxFailures     int
	MaxPasses       int
	RateLimitWait   time.Duration
	HistorySyncWait time.Duration
}

type LoginConfig struct {
	Method string
}

type StatusConfig struct {
	Enabled   bool
	Address   string
	JWTSecret string
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   int64
}

func LoadAll() (*Config, error) {
	var errs []error
	intVar := func(key string, def int) int {
		v, err := getEnvInt(key, def)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	cfg := &Config{
		Files: FilesConfig{
			Profiles:   getEnv("PROFILES_FILE", "profiles.json"),
			Recipients: getEnv("RECIPIENTS_FILE", "recipients.csv"),
			Messages:   getEnv("MESSAGES_FILE", "messages.txt"),
			Log:        getEnv("LOG_FILE", "greeter.log"),
			SessionDir: getEnv("SESSION_DIR", "sessions"),
		},
		Dispatch: DispatchConfig{
			PacingMin:       time.Duration(intVar("PACING_MIN_MS", 1000)) * time.Millisecond,
			PacingMax:       time.Duration(intVar("PACING_MAX_MS", 3000)) * time.Millisecond,
			MaxFailures:     intVar("MAX_FAILURES", 5),
			MaxPasses:       intVar("MAX_PASSES", 3),
			RateLimitWait:   time.Duration(intVar("RATE_LIMIT_WAIT_SECONDS", 60)) * time.Second,
			HistorySyncWait: time.Duration(intVar("HISTORY_SYNC_WAIT_SECONDS", 60)) * time.Second,
		},
		Login: LoginConfig{
			Method: getEnv("LOGIN_METHOD", "code"),
		},
		Status: loadStatusConfig(),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	telegram, err := loadTelegramConfig()
	if err != nil {
		return nil, err
	}
	cfg.Telegram = telegram

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadStatusConfig() StatusConfig {
	addr := os.Getenv("STATUS_ADDR")
	if addr == "" {
		return StatusConfig{Enabled: false}
	}
	return StatusConfig{
		Enabled:   true,
		Address:   addr,
		JWTSecret: os.Getenv("STATUS_JWT_SECRET"),
	}
}

func loadTelegramConfig() (TelegramConfig, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return TelegramConfig{Enabled: false}, nil
	}
	raw := os.Getenv("TELEGRAM_CHAT_ID")
	if raw == "" {
		return TelegramConfig{}, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return TelegramConfig{}, fmt.Errorf("invalid int for env TELEGRAM_CHAT_ID: %s", raw)
	}
	return TelegramConfig{Enabled: true, BotToken: token, ChatID: chatID}, nil
}

func validate(cfg *Config) error {
	d := cfg.Dispatch
	if d.PacingMin < 0 {
		return fmt.Errorf("PACING_MIN_MS must be >= 0")
	}
	if d.PacingMax < d.PacingMin {
		return fmt.Errorf("PACING_MAX_MS must be >= PACING_MIN_MS")
	}
	if d.MaxFailures <= 0 {
		return fmt.Errorf("MAX_FAILURES must be > 0")
	}
	if d.MaxPasses <= 0 {
		return fmt.Errorf("MAX_PASSES must be > 0")
	}
	if d.RateLimitWait < 0 {
		return fmt.Errorf("RATE_LIMIT_WAIT_SECONDS must be >= 0")
	}
	if d.HistorySyncWait < 0 {
		return fmt.Errorf("HISTORY_SYNC_WAIT_SECONDS must be >= 0")
	}
	switch cfg.Login.Method {
	case "code", "qr":
	default:
		return fmt.Errorf("LOGIN_METHOD must be \"code\" or \"qr\", got %q", cfg.Login.Method)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
