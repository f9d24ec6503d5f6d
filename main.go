package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"soapnotes-app/config"
	"soapnotes-app/database"
	authapi "soapnotes-app/internal/api/auth"
	routes "soapnotes-app/internal/app/http"
	"soapnotes-app/internal/app/http/middleware"
	"soapnotes-app/internal/app/logging"
	"soapnotes-app/internal/domain/plans"
	"soapnotes-app/internal/domain/profiles"
	firebaseinfra "soapnotes-app/internal/infra/firebase"
	"soapnotes-app/internal/infra/payments"
	"soapnotes-app/internal/store"
	fsstore "soapnotes-app/internal/store/firestore"
	"soapnotes-app/internal/store/gormstore"
	"soapnotes-app/internal/store/memstore"
)

type backend interface {
	store.Profiles
	store.Notes
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	ctx := context.Background()

	var fbApp *firebase.App
	if cfg.UsesFirebase() {
		app, err := firebaseinfra.NewApp(ctx, firebaseinfra.Credentials{
			ProjectID:             cfg.FirebaseProjectID,
			CredentialsFile:       cfg.GoogleCredentialsFile,
			ServiceAccountJSONB64: cfg.FirebaseServiceAccountB64,
		}, logger)
		if err != nil {
			return err
		}
		fbApp = app
	}

	st, closeStore, err := openStore(ctx, cfg, fbApp, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	deps := routes.Deps{
		Profiles:      st,
		Notes:         st,
		Payments:      payments.NewStripeGateway(cfg.StripeSecretKey, cfg.AppEnv),
		Prices:        plans.NewPriceTable(cfg.StripePriceIndividual, cfg.StripePriceTeam),
		WebhookSecret: cfg.StripeWebhookSecret,
		AppURL:        cfg.AppURL,
		FreeNoteLimit: cfg.FreeNoteLimit,
		NotesPageSize: cfg.NotesPageSize,
		Log:           logger,
	}

	switch cfg.AuthProvider {
	case config.AuthFirebase:
		authClient, err := fbApp.Auth(ctx)
		if err != nil {
			return fmt.Errorf("firebase auth client: %w", err)
		}
		deps.Verifier = middleware.NewFirebaseVerifier(authClient)
		deps.OnAuthenticated = routes.ProvisionProfile(st, profiles.ProviderFirebase, logger)
	default:
		jwtVerifier := middleware.NewJWTVerifier(cfg.JWTSecret, 24*time.Hour)
		deps.Verifier = jwtVerifier
		deps.Tokens = jwtVerifier
		if cfg.GoogleSignInEnabled() {
			deps.Google = authapi.NewGoogleSignIn(
				cfg.GoogleClientID,
				cfg.GoogleClientSecret,
				cfg.GoogleRedirectURL,
				cfg.GoogleFrontendRedirect,
				!cfg.IsDevelopment(),
			)
		}
	}

	r := routes.NewRouter(deps,
		logging.RequestLogger(logger),
		cors.New(cors.Config{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreBackend), zap.String("auth", cfg.AuthProvider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, fbApp *firebase.App, logger *zap.Logger) (backend, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := fbApp.Firestore(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}
		s := fsstore.New(client)
		return s, func() { _ = s.Close() }, nil

	case config.BackendMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), func() {}, nil

	default:
		db, err := database.Open(cfg.DBURL)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return gormstore.New(db), closeDB, nil
	}
}
