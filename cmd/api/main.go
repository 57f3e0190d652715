package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"finsense.io/compliance/internal/auth"
	"finsense.io/compliance/internal/compliance"
	"finsense.io/compliance/internal/config"
	"finsense.io/compliance/internal/httpapi"
	"finsense.io/compliance/internal/obs"
	"finsense.io/compliance/internal/resource"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	log.SetFlags(0)
	configPath := flag.String("config", "", "Path to YAML config (optional)")
	flag.Parse()

	// .env is a local development convenience; absence is fine.
	_ = godotenv.Load()

	cfg := config.MustLoad(*configPath)

	obs.Init()
	obs.InitBuildInfo(version, commit)

	verifier, err := auth.NewTokenVerifier(cfg.Auth.JWTSecret,
		auth.WithIssuer(cfg.Auth.Issuer),
		auth.WithTokenTTL(cfg.Auth.TokenTTL),
	)
	if err != nil {
		log.Fatalf("token verifier: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store      auth.Store
		apiOpts    []httpapi.Option
		documents  resource.Store[*compliance.Document]
		violations resource.Store[*compliance.Violation]
		needsSweep = true
	)

	if cfg.DB.DatabaseURL != "" {
		pg, err := auth.OpenPG(ctx, cfg.DB.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pg.Close()
		store = pg
		documents = compliance.NewPGDocuments(pg.DB())
		violations = compliance.NewPGViolations(pg.DB())
		apiOpts = append(apiOpts, httpapi.WithDB(pg.DB()))
	} else {
		log.Println(`{"level":"warn","msg":"no DATABASE_URL, using in-memory stores"}`)
		store = auth.NewMemoryStore()
		documents = resource.NewMemoryStore[*compliance.Document](compliance.CloneDocument)
		violations = resource.NewMemoryStore[*compliance.Violation](compliance.CloneViolation)
	}

	if cfg.Redis.RedisURL != "" {
		revocations, err := auth.OpenRedisRevocations(ctx, cfg.Redis.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer revocations.Close()
		store = auth.OverrideRevocations(store, revocations)
		// Redis expires entries natively.
		needsSweep = false
	}

	svc := auth.NewService(store, verifier)
	if err := svc.EnsureBuiltins(ctx); err != nil {
		log.Fatalf("seed permissions: %v", err)
	}
	if needsSweep {
		go svc.SweepRevocations(ctx, cfg.Auth.SweepInterval)
	}

	docGate := resource.NewGate[*compliance.Document](auth.ResourceDocuments, documents, store.Audit())
	violGate := resource.NewGate[*compliance.Violation](auth.ResourceViolations, violations, store.Audit())

	apiOpts = append(apiOpts, httpapi.WithBuildInfo(version, commit))
	api := httpapi.New(svc, docGate, violGate, apiOpts...)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           api.Handler(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf(`{"level":"info","msg":"listening","addr":%q,"env":%q}`, srv.Addr, cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Fatalf("http server: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf(`{"level":"error","msg":"shutdown","err":%q}`, err.Error())
	}
	log.Println(`{"level":"info","msg":"stopped"}`)
}
