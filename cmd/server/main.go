package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quizwire/moves-backend/internal/gateway"
	"github.com/quizwire/moves-backend/internal/httpapi"
	"github.com/quizwire/moves-backend/internal/hub"
	"github.com/quizwire/moves-backend/internal/ledger"
	"github.com/quizwire/moves-backend/internal/ledger/postgres"
)

type config struct {
	addr        string
	databaseURL string
	defaultTTL  time.Duration
	autoApprove bool
	devLog      bool
}

func loadConfig() config {
	_ = godotenv.Load()

	cfg := config{
		addr:        envOr("MOVES_ADDR", ":8080"),
		databaseURL: os.Getenv("MOVES_DATABASE_URL"),
		defaultTTL:  gateway.DefaultTTL,
		autoApprove: true,
	}
	if raw := os.Getenv("MOVES_DEFAULT_TTL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.defaultTTL = d
		}
	}
	if raw := os.Getenv("MOVES_AUTO_APPROVE"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.autoApprove = v
		}
	}
	if raw := os.Getenv("MOVES_DEV_LOG"); raw != "" {
		cfg.devLog, _ = strconv.ParseBool(raw)
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func main() {
	cfg := loadConfig()

	log, err := newLogger(cfg.devLog)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store ledger.Store
	if cfg.databaseURL != "" {
		pg, err := postgres.Open(cfg.databaseURL)
		if err != nil {
			log.Fatal("open postgres store", zap.Error(err))
		}
		store = pg
		log.Info("using postgres store")
	} else {
		store = ledger.NewMemstore()
		log.Info("using in-memory store")
	}

	h := hub.NewHub(ctx)
	g := gateway.New(store, h, log, gateway.Options{
		DefaultTTL:  cfg.defaultTTL,
		AutoApprove: cfg.autoApprove,
	})

	srv := &http.Server{
		Addr:              cfg.addr,
		Handler:           httpapi.SetupRoutes(g, h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	grp.Go(func() error {
		<-grpCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.Inbox() <- hub.ShutdownHub{}
		return srv.Shutdown(shutdownCtx)
	})

	if err := grp.Wait(); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
