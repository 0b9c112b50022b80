package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	clientDir := flag.String("client", "", "Path to client directory (default: ../client)")
	dbPath := flag.String("db", "", "SQLite path, \"none\" disables persistence (overrides config)")
	flag.Parse()

	// .env is optional; real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WithError(err).Warn("could not read .env")
	}
	if *configPath == "" {
		*configPath = os.Getenv("BEDWARS_CONFIG")
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *clientDir != "" {
		cfg.Server.ClientDir = *clientDir
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}
	if cfg.Server.ClientDir == "" {
		exe, _ := os.Executable()
		cfg.Server.ClientDir = filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(cfg.Server.ClientDir); os.IsNotExist(err) {
			cfg.Server.ClientDir = "../client"
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid config")
	}
	initLogger(cfg.Log)
	log := logger.WithField("component", "main")

	var (
		db        *DB
		auth      *Auth
		analytics *Analytics
	)
	if cfg.Server.DBPath != "none" {
		db, err = OpenDB(cfg.Server.DBPath)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		defer db.Close()
		if auth, err = NewAuth(db); err != nil {
			log.WithError(err).Fatal("init auth")
		}
		analytics = NewAnalytics(db)
	}

	game := NewGame(cfg.Rules, nil, &SequenceIDs{})
	if analytics != nil {
		game.SetTracker(analytics)
	}
	var recorder *Recorder
	if db != nil {
		recorder = NewRecorder(db, analytics, func(u Unlock) {
			game.NotifyAccount(u.AccountID, Envelope{T: MsgAchievement, Data: AchievementMsg{
				ID:          u.Achievement.ID,
				Name:        u.Achievement.Name,
				Description: u.Achievement.Description,
			}})
		})
		game.SetResultSink(recorder)
	}
	go game.Run()

	hub := NewHub(game, cfg.Server, db, auth, analytics)
	go hub.Run()

	mux := SetupRoutes(hub)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: cfg.Server.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server starting")
		log.WithField("dir", cfg.Server.ClientDir).Info("serving client files")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Fatal("ListenAndServe")
		}
	}()

	<-stop
	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
	game.Stop()
	hub.Stop()
	if recorder != nil {
		recorder.Stop()
	}
	if analytics != nil {
		analytics.Stop()
	}
}
