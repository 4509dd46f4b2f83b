// Command gatehouse runs the authentication core for the site's
// administrative panel: the identity exchange endpoints, the signup-code
// gate, and the guarded routes.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lumera-studio/gatehouse/internal/api"
	"github.com/lumera-studio/gatehouse/internal/auth"
	"github.com/lumera-studio/gatehouse/internal/config"
	"github.com/lumera-studio/gatehouse/internal/csrf"
	"github.com/lumera-studio/gatehouse/internal/logger"
	"github.com/lumera-studio/gatehouse/internal/provider"
	"github.com/lumera-studio/gatehouse/internal/session"
	"github.com/lumera-studio/gatehouse/internal/token"
	"github.com/lumera-studio/gatehouse/internal/user"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("gatehouse: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer zlog.Sync() //nolint:errcheck // best-effort flush on shutdown

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	users := user.NewSQLiteRepository(db)
	if err := users.Migrate(ctx); err != nil {
		return err
	}

	codec, err := token.NewCodec(token.Config{
		Secret: []byte(cfg.Token.Secret),
		Issuer: cfg.Token.Issuer,
	})
	if err != nil {
		return err
	}

	csrfSvc, err := csrf.NewService([]byte(cfg.CSRF.Secret))
	if err != nil {
		return err
	}

	svc := auth.NewService(auth.Config{
		AccessTTL:        token.ParseTTL(cfg.Token.AccessTTL),
		RefreshTTL:       token.ParseTTL(cfg.Token.RefreshTTL),
		SignupSessionTTL: token.ParseTTL(cfg.Signup.SessionTTL),
	}, codec, csrfSvc, session.NewStore(rdb, cfg.Redis.Prefix), users, zlog)

	idp, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	signupCodes, err := provider.NewSignupCodeChecker([]byte(cfg.Signup.CodeSecret), cfg.Signup.CodeDigest)
	if err != nil {
		return fmt.Errorf("configuring signup code gate: %w", err)
	}

	cookies := auth.NewCookieWriter(!cfg.IsDevelopment(), token.ParseTTL(cfg.Cookies.MaxAge))

	handlers := api.NewHandlers(api.Config{
		FrontendBaseURL:  cfg.Frontend.BaseURL,
		SignupSessionTTL: token.ParseTTL(cfg.Signup.SessionTTL),
	}, svc, idp, signupCodes, cookies, zlog)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func buildProvider(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.OAuth.Provider {
	case "google":
		return provider.NewGoogleProvider(ctx, cfg.OAuth.ClientID, cfg.OAuth.ClientSecret, cfg.OAuth.RedirectURL)
	default:
		return nil, fmt.Errorf("unknown oauth provider %q", cfg.OAuth.Provider)
	}
}
