package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"project_greeter/internal/config"
	"project_greeter/internal/entities"
	"project_greeter/internal/infrastructure"
	"project_greeter/internal/interfaces"
	"project_greeter/internal/interfaces/http"
	"project_greeter/internal/repository"
	"project_greeter/internal/usecases"
)

func main() {
	os.Exit(run())
}

func run() int {
	console := infrastructure.NewConsole()

	// .env is optional, the environment wins either way
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		console.Printf("red", "❌ Error loading .env file: %v", err)
		return 1
	}

	cfg, err := config.LoadAll()
	if err != nil {
		console.Printf("red", "❌ Invalid configuration: %v", err)
		return 1
	}

	// "greeter token [subject]" prints a bearer token for the status server
	if len(os.Args) > 1 && os.Args[1] == "token" {
		return issueToken(cfg.Status, os.Args[2:])
	}

	logger, closeLog, err := infrastructure.NewFileLogger(cfg.Files.Log, zerolog.InfoLevel)
	if err != nil {
		console.Printf("red", "❌ %v", err)
		return 1
	}
	defer closeLog()

	console.Banner()

	pool, err := repository.LoadMessagePool(cfg.Files.Messages)
	if err != nil {
		logger.Error().Err(err).Str("file", cfg.Files.Messages).Msg("failed to load messages")
		console.Printf("red", "❌ No messages found in the file. Exiting.")
		return 1
	}

	profiles, err := repository.LoadProfiles(cfg.Files.Profiles)
	if err != nil {
		logger.Error().Err(err).Str("file", cfg.Files.Profiles).Msg("failed to load profiles")
		console.Printf("red", "❌ %v", err)
		return 1
	}

	store := repository.NewRecipientRepository(cfg.Files.Recipients)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waManager := infrastructure.NewWhatsAppManager(cfg.Files.SessionDir, cfg.Login.Method, cfg.Dispatch.RateLimitWait, cfg.Dispatch.HistorySyncWait, logger)
	defer waManager.DisconnectAll()

	loginSessions := infrastructure.NewLoginSessionManager(console, cfg.Files.SessionDir, logger)
	limiter := infrastructure.NewMessageRateLimiter()

	var sessions []*usecases.AccountSession
	for _, profile := range profiles {
		color := infrastructure.ResolveColor(profile.Color)
		profile.Color = color
		loginSessions.SetColor(profile.Name, color)
		limiter.Configure(profile.Name, profile.MaxPerMinute)

		client, err := waManager.GetOrCreateClient(ctx, profile)
		if err != nil {
			logger.Error().Err(err).Str("account", profile.Name).Msg("failed to open session")
			console.Printf(color, "⚠️ Failed to start client for %s. Error: %v", profile.Phone, err)
			continue
		}

		session := usecases.NewAccountSession(profile, client, console, usecases.AccountSessionOptions{
			MaxFailures: cfg.Dispatch.MaxFailures,
			Throttle:    limiter,
			Logger:      logger,
		})
		sessions = append(sessions, session)
	}

	dispatch := usecases.NewDispatchUsecase(sessions, store, pool, console, usecases.DispatchOptions{
		PacingMin: cfg.Dispatch.PacingMin,
		PacingMax: cfg.Dispatch.PacingMax,
		MaxPasses: cfg.Dispatch.MaxPasses,
		Notifier:  newNotifier(cfg.Telegram, console, logger),
		Logger:    logger,
	})

	if cfg.Status.Enabled {
		srv := startStatusServer(cfg.Status, usecases.NewDashboardUsecase(dispatch, loginSessions, limiter), console, logger)
		defer shutdownStatusServer(srv, 5*time.Second, logger)
	}

	// No point pairing devices for an empty queue
	pending, err := dispatch.Pending()
	if err != nil {
		logger.Error().Err(err).Str("file", cfg.Files.Recipients).Msg("failed to load recipients")
		console.Printf("red", "❌ %v", err)
		return 1
	}
	if pending == 0 {
		console.Printf("red", "❌ No users to process.")
		return 0
	}

	ready := dispatch.AuthenticateAll(ctx, loginSessions)
	if ctx.Err() != nil {
		console.Printf("red", "❌ Program interrupted. Exiting gracefully...")
		return 0
	}
	if ready == 0 {
		return 0
	}

	summary, err := dispatch.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("dispatch failed")
		console.Printf("red", "❌ %v", err)
		return 1
	}
	if summary.Reason == entities.StopInterrupted {
		console.Printf("red", "❌ Program interrupted. Exiting gracefully...")
	}
	return 0
}

func issueToken(cfg config.StatusConfig, args []string) int {
	subject := "operator"
	if len(args) > 0 {
		subject = args[0]
	}
	token, err := usecases.NewAuthUsecase(cfg.JWTSecret).IssueToken(subject, usecases.DefaultTokenTTL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		return 1
	}
	fmt.Println(token)
	return 0
}

func newNotifier(cfg config.TelegramConfig, console *infrastructure.Console, logger zerolog.Logger) interfaces.Notifier {
	if !cfg.Enabled {
		return infrastructure.NopNotifier{}
	}
	notifier, err := infrastructure.NewTelegramNotifier(cfg.BotToken, cfg.ChatID)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram notifications disabled")
		console.Printf("yellow", "⚠️ Telegram disabled: %v", err)
		return infrastructure.NopNotifier{}
	}
	return notifier
}

func startStatusServer(cfg config.StatusConfig, dashboard *usecases.DashboardUsecase, console *infrastructure.Console, logger zerolog.Logger) *nethttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := http.NewRouter(dashboard, http.NewMiddleware(cfg.JWTSecret))

	srv := &nethttp.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", cfg.Address).Msg("status server failed")
			console.Printf("red", "⚠️ Status server stopped: %v", err)
		}
	}()
	console.Printf("cyan", "📡 Status server listening on %s", cfg.Address)
	return srv
}

func shutdownStatusServer(srv *nethttp.Server, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("status server shutdown failed")
	}
}
