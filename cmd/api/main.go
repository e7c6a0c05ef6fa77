package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/contact"
	contactrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/repo"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-contact-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/config"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/mailer"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	sugar := lg.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}
	sugar.Infow("starting contactbook", "addr", cfg.Addr, "bulk_workers", cfg.BulkWorkers)

	db, err := database.ConnectX(database.ConfigFromEnv())
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users := userrepo.NewUserRepo(db)
	contacts := contactrepo.NewContactRepo(db)
	if err := users.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure users table: %v", err)
	}
	if err := contacts.EnsureTable(ctx); err != nil {
		sugar.Fatalf("ensure contacts table: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	userSvc := user.NewUserService(db, users, user.Options{
		Tokens:  tokens,
		Mail:    mailer.New(cfg.SMTP, sugar),
		BaseURL: cfg.PublicBaseURL,
		Logger:  sugar,
	})
	bulkSvc := bulk.NewService(contacts, bulk.Config{
		Timeout: cfg.BulkTimeout,
		Workers: cfg.BulkWorkers,
	}, sugar)

	handler, err := router.RegisterRoutes(router.Deps{
		Logger:         sugar,
		DB:             db,
		Tokens:         tokens,
		Users:          user.NewHandler(userSvc, sugar),
		Contacts:       contact.NewHandler(contact.NewService(db, contacts, sugar), sugar),
		Bulk:           bulk.NewHandler(bulkSvc, sugar, cfg.MaxUploadBytes),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:      cfg.RateLimit,
		LimiterStore:   router.NewLimiterStore(cfg.RedisURL, sugar),
	})
	if err != nil {
		sugar.Fatalf("routes: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Info("service is running; press Ctrl+C to stop")

	<-ctx.Done()
	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}
	sugar.Info("goodbye")
}
