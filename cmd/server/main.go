package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-entry-service/internal/config"
	"github.com/iliyamo/venue-entry-service/internal/database"
	"github.com/iliyamo/venue-entry-service/internal/handler"
	"github.com/iliyamo/venue-entry-service/internal/qr"
	"github.com/iliyamo/venue-entry-service/internal/queue"
	"github.com/iliyamo/venue-entry-service/internal/router"
	"github.com/iliyamo/venue-entry-service/internal/scheduler"
	"github.com/iliyamo/venue-entry-service/internal/service"
	"github.com/iliyamo/venue-entry-service/internal/store"
	"github.com/iliyamo/venue-entry-service/internal/store/jsonfile"
	mysqlstore "github.com/iliyamo/venue-entry-service/internal/store/mysql"
	"github.com/iliyamo/venue-entry-service/internal/token"
)

func main() {
	cfg := config.Load()

	// Durable stores: MySQL for the normal deployment, JSON files for
	// single-machine setups.
	var (
		keys     store.KeyRegistry
		sessions store.SessionStore
		ledger   store.Ledger
	)
	switch cfg.StoreBackend {
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("open database: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := mysqlstore.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("ensure schema: %v", err)
		}
		cancel()
		keys = mysqlstore.NewKeyRegistry(db)
		sessions = mysqlstore.NewSessionStore(db)
		ledger = mysqlstore.NewLedger(db)
	case "file":
		fs, err := jsonfile.Open(cfg.DataDir)
		if err != nil {
			log.Fatalf("open file store: %v", err)
		}
		keys, sessions, ledger = fs, fs, fs
	}

	// Token codec with the process-wide secret.
	secret, err := token.LoadOrCreateKey(cfg.TokenKeyFile)
	if err != nil {
		log.Fatalf("load token key: %v", err)
	}
	codec, err := token.NewCodec(secret)
	if err != nil {
		log.Fatalf("build codec: %v", err)
	}

	renderer, err := qr.NewRenderer(cfg.QRDir)
	if err != nil {
		log.Fatalf("qr output dir: %v", err)
	}

	sink := service.NewAMQPSink()

	// Scheduler: rebuild timers for sessions that were live before the
	// last shutdown, then keep driving them.
	sched := scheduler.New(sessions, sink, time.Duration(cfg.WarningOffsetMin)*time.Minute)
	defer sched.Stop()
	if err := sched.Recover(context.Background()); err != nil {
		log.Fatalf("recover sessions: %v", err)
	}

	// Delivery worker for participant notifications.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	authHandler, err := handler.NewAuthHandler(cfg)
	if err != nil {
		log.Fatalf("auth handler: %v", err)
	}
	issuer := service.NewIssuer(codec, keys, ledger, renderer, sink, cfg.PublicBaseURL)
	verifier := service.NewVerifier(codec, keys)

	e := echo.New()
	router.Register(e, cfg, router.Handlers{
		Auth:    authHandler,
		Entry:   handler.NewEntryHandler(issuer),
		Gate:    handler.NewGateHandler(verifier, sessions),
		Session: handler.NewSessionHandler(sched, sessions),
		Stats:   handler.NewStatsHandler(ledger),
	}, config.NewRedisClient())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreBackend)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
