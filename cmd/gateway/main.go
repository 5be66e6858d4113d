package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sipproxy-client/internal/audit"
	"sipproxy-client/internal/auth"
	"sipproxy-client/internal/config"
	"sipproxy-client/internal/httpapi"
	"sipproxy-client/internal/sipproxy"
	"sipproxy-client/pkg/logger"
	"sipproxy-client/pkg/rpcclient"
	"sipproxy-client/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	conn, err := dialSIPProxy(rootCtx, cfg, log)
	if err != nil {
		log.Error("sip proxy dial failed", "endpoint", cfg.SIPProxy.Endpoint, "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	h := httpapi.Handlers{Providers: sipproxy.NewProviderClient(conn)}

	var db *sql.DB
	if cfg.AuditDBEnabled() {
		db, err = utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()

		repo, err := audit.NewPostgresRepo(db)
		if err != nil {
			log.Error("audit repo init failed", "err", err)
			os.Exit(1)
		}
		h.Audit = audit.NewService(repo)
	} else {
		log.Warn("DB_HOST not set; audit events kept in memory")
		h.Audit = audit.NewService(audit.NewMemoryRepo())
	}

	var rdb *redis.Client
	if cfg.RedisEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()

		limiter, err := utils.NewConcurrencyCap(rdb, cfg.Redis.MutationLimit, cfg.Redis.MutationTTL)
		if err != nil {
			log.Error("mutation cap init failed", "err", err)
			os.Exit(1)
		}
		h.Limiter = limiter
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerPublicRoutes(r, db, rdb)
	registerProviderRoutes(r, auth.RequireAccessToken(authManager), h)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env, "sipproxy", conn.Target())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

func dialSIPProxy(ctx context.Context, cfg config.Config, log *slog.Logger) (*rpcclient.Conn, error) {
	opts := rpcclient.Options{
		Endpoint:       cfg.SIPProxy.Endpoint,
		Insecure:       cfg.SIPProxy.Insecure,
		AccessKeyID:    cfg.SIPProxy.AccessKeyID,
		Logger:         log,
		WaitReady:      cfg.SIPProxy.WaitReady,
		ConnectTimeout: cfg.SIPProxy.ConnectTimeout,
	}
	if cfg.SIPProxy.AccessKeySecret != "" {
		signer, err := auth.NewAccessKeySigner(cfg.SIPProxy.AccessKeyID, cfg.SIPProxy.AccessKeySecret, cfg.SIPProxy.TokenTTL)
		if err != nil {
			return nil, err
		}
		opts.Credentials = signer
	}
	return rpcclient.Dial(ctx, opts)
}
