package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/auth"
	"github.com/chatsync/internal/config"
	"github.com/chatsync/internal/handler"
	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/middleware"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/startup"
	"github.com/chatsync/internal/storage"
	memorystorage "github.com/chatsync/internal/storage/memory"
	"github.com/chatsync/internal/ws"
	"github.com/chatsync/migrations"
)

func main() {
	logger.SetPrefix("api")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	dev := flag.Bool("dev", false, "start with embedded PostgreSQL and the in-memory typing store (no external services required)")
	flag.Parse()

	logger.Info("starting API service")
	cfg := config.Load()

	var embeddedDB *embeddedpostgres.EmbeddedPostgres
	if *dev {
		var err error
		embeddedDB, err = startEmbeddedPostgres(cfg)
		if err != nil {
			logger.Errorf("embedded postgres: %v", err)
			os.Exit(1)
		}
		defer func() {
			logger.Info("stopping embedded postgres...")
			if err := embeddedDB.Stop(); err != nil {
				logger.Errorf("embedded postgres stop: %v", err)
			}
		}()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConnections())
	poolCfg.MinConns = 4

	pool := startup.ConnectDBWithRetry(poolCfg, 60*time.Second)
	defer pool.Close()

	runMigrations(pool)
	if *migrate && !*dev {
		return
	}

	// No client can be connected to a server that just started.
	resetCtx, resetCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if _, err := pool.Exec(resetCtx, "UPDATE users SET is_online = false"); err != nil {
		logger.Errorf("reset online status: %v", err)
	}
	resetCancel()
	logger.Info("database connected, migrations applied")

	var typingStore storage.TypingStore
	if *dev {
		typingStore = memorystorage.New()
		logger.Info("using in-memory typing store")
	} else {
		typingStore = startup.ConnectRedisWithRetry(cfg.Redis.URL, 60*time.Second)
	}
	defer typingStore.Close()

	secret := cfg.AuthTokenSecret
	if secret == "" {
		secret = "chatsync-dev-secret"
		logger.Errorf("AUTH_TOKEN_SECRET not set, using the development secret")
	}
	tokens := auth.NewTokenManager(secret, 24*time.Hour)

	userRepo := repository.NewUserRepository(pool)
	convRepo := repository.NewConversationRepository(pool)
	msgRepo := repository.NewMessageRepository(pool)
	receiptRepo := repository.NewReadReceiptRepository(pool)

	hubCtx, hubCancel := context.WithCancel(context.Background())
	hub := ws.NewHub(convRepo, msgRepo, userRepo, receiptRepo, typingStore, cfg.MaxWSConnections)

	var hubWg sync.WaitGroup
	hubWg.Add(1)
	go func() {
		defer hubWg.Done()
		hub.Run(hubCtx)
	}()

	if cfg.PresenceStaleAfter > 0 {
		go runPresenceSweeper(hubCtx, userRepo, cfg.PresenceStaleAfter)
	}

	userH := handler.NewUserHandler(userRepo, hub)
	convH := handler.NewConversationHandler(convRepo, hub)
	msgH := handler.NewMessageHandler(msgRepo, convRepo, receiptRepo, typingStore, hub)
	typingH := handler.NewTypingHandler(typingStore, convRepo, hub)
	wsH := handler.NewWSHandler(hub, cfg.CORSAllowedOrigins)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	// Do not compress WebSocket upgrades: the wrapped ResponseWriter would
	// not implement http.Hijacker and the upgrade would fail with a 500.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {
				next.ServeHTTP(w, req)
				return
			}
			chimw.Compress(5)(next).ServeHTTP(w, req)
		})
	})
	r.Use(middleware.RequestLog)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.RateLimitAPI)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSAllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK); w.Write([]byte("ok")) })

	r.Group(func(r chi.Router) {
		r.Use(middleware.TokenAuth(tokens))

		r.Post("/api/users/sync", userH.SyncUser)
		r.Put("/api/users/me/status", userH.UpdateStatus)
		r.Get("/api/users", userH.GetUsers)
		r.Post("/api/users/batch", userH.BatchUsers)
		r.Get("/api/users/{externalId}", userH.GetUser)

		r.Get("/api/conversations", convH.GetConversations)
		r.Post("/api/conversations/direct", convH.CreateDirect)
		r.Post("/api/conversations/group", convH.CreateGroup)
		r.Post("/api/conversations/last-messages", msgH.GetLastMessages)
		r.Get("/api/conversations/{id}", convH.GetConversation)
		r.Get("/api/conversations/{id}/messages", msgH.GetMessages)
		r.Post("/api/conversations/{id}/messages", msgH.SendMessage)
		r.Post("/api/conversations/{id}/read", msgH.MarkAsRead)
		r.Get("/api/conversations/{id}/unread", msgH.GetUnreadCount)
		r.Get("/api/conversations/{id}/typing", typingH.GetTyping)
		r.Put("/api/conversations/{id}/typing", typingH.SetTyping)

		r.Get("/api/unread", msgH.GetAllUnreadCounts)

		r.Delete("/api/messages/{id}", msgH.DeleteMessage)
		r.Post("/api/messages/{id}/reactions", msgH.ToggleReaction)

		r.Get("/ws", wsH.ServeWS)
	})

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	var srvWg sync.WaitGroup
	errCh := make(chan error, 1)
	srvWg.Add(1)
	go func() {
		defer srvWg.Done()
		logger.Infof("server listening on %s", cfg.ServerAddr)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	logger.Info("server stopped accepting connections")
	hubCancel()
	hubWg.Wait()
	logger.Info("hub stopped")
	srvWg.Wait()
	logger.Info("server goroutine exited")
}

// runPresenceSweeper flips users offline whose last heartbeat is older than
// staleAfter. Off by default; the socket disconnect path handles the common
// case, this catches clients that vanished without a teardown signal.
func runPresenceSweeper(ctx context.Context, userRepo *repository.UserRepository, staleAfter time.Duration) {
	ticker := time.NewTicker(staleAfter)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			n, err := userRepo.MarkStaleOffline(sweepCtx, staleAfter)
			cancel()
			if err != nil {
				logger.Errorf("presence sweep: %v", err)
				continue
			}
			if n > 0 {
				logger.Infof("presence sweep: marked %d stale users offline", n)
			}
		}
	}
}

func runMigrations(pool *pgxpool.Pool) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := fs.Glob(migrations.Files, "*.sql")
	if err != nil {
		logger.Errorf("list migrations: %v", err)
		os.Exit(1)
	}
	sort.Strings(entries)
	for _, name := range entries {
		data, err := migrations.Files.ReadFile(name)
		if err != nil {
			logger.Errorf("read migration %s: %v", name, err)
			os.Exit(1)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			logger.Errorf("run migration %s: %v", name, err)
			os.Exit(1)
		}
	}
	logger.Info("migrations applied")
}

func startEmbeddedPostgres(cfg *config.Config) (*embeddedpostgres.EmbeddedPostgres, error) {
	const (
		port     = 5432
		user     = "chatsync"
		password = "chatsync_secret"
		database = "chatsync"
	)

	dataDir := filepath.Join(".", ".pgdata")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create pgdata dir: %w", err)
	}

	db := embeddedpostgres.NewDatabase(
		embeddedpostgres.DefaultConfig().
			Port(port).
			Username(user).
			Password(password).
			Database(database).
			DataPath(dataDir).
			RuntimePath(filepath.Join(os.TempDir(), "embedded-pg-runtime")),
	)

	logger.Info("starting embedded PostgreSQL...")
	if err := db.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	cfg.Database.URL = fmt.Sprintf(
		"postgres://%s:%s@localhost:%d/%s?sslmode=disable",
		user, password, port, database,
	)
	logger.Infof("embedded PostgreSQL running on port %d", port)
	return db, nil
}
