package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/evenlyhq/evenly/internal/auth"
	"github.com/evenlyhq/evenly/internal/config"
	"github.com/evenlyhq/evenly/internal/engine"
	"github.com/evenlyhq/evenly/internal/server"
	"github.com/evenlyhq/evenly/internal/storage/sqlite"
	"github.com/evenlyhq/evenly/pkg/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: config.yaml in working directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Log.Level)

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.TokenDuration())
	identity := auth.NewPasswordIdentity(store, store)
	eng := engine.New(store)

	srv := server.New(eng, store, identity, jwtManager)
	router := srv.Router(cfg.Server.Mode)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	slog.Info("Server starting", "address", addr, "currency", cfg.Ledger.CurrencyCode)
	if err := router.Run(addr); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
