package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-manager/backend/internal/audit"
	auditproducer "asset-manager/backend/internal/audit/producer"
	auditrepo "asset-manager/backend/internal/audit/repository"
	authhandler "asset-manager/backend/internal/auth/handler"
	authservice "asset-manager/backend/internal/auth/service"
	"asset-manager/backend/internal/config"
	"asset-manager/backend/internal/db"
	healthhandler "asset-manager/backend/internal/health/handler"
	"asset-manager/backend/internal/platform/rbac"
	ratelimitrepo "asset-manager/backend/internal/ratelimit/repository"
	ratelimitservice "asset-manager/backend/internal/ratelimit/service"
	"asset-manager/backend/internal/security"
	"asset-manager/backend/internal/server"
	sessionrepo "asset-manager/backend/internal/session/repository"
	sessionservice "asset-manager/backend/internal/session/service"
	"asset-manager/backend/internal/telemetry/otel"
	userhandler "asset-manager/backend/internal/user/handler"
	userrepo "asset-manager/backend/internal/user/repository"
)

const serviceName = "asset-manager-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	limits := ratelimitrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)

	producer, err := auditproducer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	auditLogger := audit.NewLogger(audits, producer)

	hasher := security.NewPasswordHasher(cfg.ScryptN, cfg.ScryptR, cfg.ScryptP)
	sessionManager := sessionservice.NewManager(sessions, cfg.SessionTTLDuration(), cfg.TouchIntervalDuration())
	limiter := ratelimitservice.NewLimiter(limits, cfg.LoginMaxAttempts, cfg.LoginWindowDuration(), cfg.LoginBlockDurationValue())
	authService := authservice.NewAuthService(users, sessionManager, limiter, hasher, auditLogger, cfg.AuthBootstrapSecret)

	guard := rbac.NewGuard(sessionManager, users)

	router := server.NewRouter(
		server.Options{
			ServiceName:    serviceName,
			AllowedOrigins: cfg.CORSAllowedOriginsList(),
			Production:     cfg.IsProduction(),
		},
		authhandler.NewAuthHandler(authService, cfg.IsProduction()),
		userhandler.NewUserHandler(users, hasher, auditLogger),
		healthhandler.NewHealthHandler(conn),
		guard,
	)

	srv := server.New(cfg.HTTPAddr, router)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				if n, err := sessionManager.PurgeExpired(janitorCtx); err != nil {
					log.Printf("session purge: %v", err)
				} else if n > 0 {
					log.Printf("session purge: removed %d expired sessions", n)
				}
			}
		}
	}()

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	if err := server.Shutdown(srv, 15*time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Printf("kafka close: %v", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
