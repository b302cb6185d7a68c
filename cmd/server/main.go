package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewdesk/internal/audit"
	auditrepo "crewdesk/internal/audit/repository"
	"crewdesk/internal/config"
	"crewdesk/internal/db"
	identityhandler "crewdesk/internal/identity/handler"
	identityrepo "crewdesk/internal/identity/repository"
	identityservice "crewdesk/internal/identity/service"
	rolerepo "crewdesk/internal/role/repository"
	roleservice "crewdesk/internal/role/service"
	"crewdesk/internal/security"
	"crewdesk/internal/server"
	sessionhandler "crewdesk/internal/session/handler"
	sessionrepo "crewdesk/internal/session/repository"
	sessionservice "crewdesk/internal/session/service"
	"crewdesk/internal/telemetry"
	"crewdesk/internal/telemetry/otel"
	"crewdesk/internal/telemetry/producer"
)

const serviceName = "crewdesk-auth"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.RequireSigningKeys(); err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	privateKey, publicKey, err := security.ParseKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("signing keys: %v", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}

	kafkaEvents, err := producer.NewKafkaProducer(cfg.AuthEventsBrokerList(), cfg.AuthEventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	// Auth events always land in the OTel log pipeline; Kafka is added when
	// brokers are configured.
	events := telemetry.Multi(otel.NewEventEmitter(providers.LoggerProvider), kafkaEvents)

	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience)
	hasher := security.NewHasher(cfg.BcryptCost)
	refreshSource := security.NewRefreshTokenSource(cfg.SessionLifetime())

	identities := identityrepo.NewPostgresRepository(conn)
	roles := rolerepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn))

	registry := sessionservice.NewRegistry(sessions, nil)
	resolver := roleservice.NewResolver(roles)
	guard := roleservice.NewGuard(identities, resolver)
	auth := identityservice.NewAuthService(
		identities, resolver, registry,
		hasher, tokens, refreshSource,
		cfg.AccessTTL(), nil,
	)

	secureCookies := cfg.Env == "production"
	srv, err := server.New(server.Deps{
		Addr:     cfg.HTTPAddr,
		Tokens:   tokens,
		Auth:     identityhandler.New(auth, auditLogger, events, secureCookies),
		Sessions: sessionhandler.New(registry, guard, auditLogger, events),
		Guard:    guard,
		Version:  serviceName,
	})
	if err != nil {
		log.Fatalf("server: %v", err)
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.Run(); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits finish before tearing providers down.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaEvents != nil {
		_ = kafkaEvents.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
