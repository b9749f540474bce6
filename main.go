package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/ZeldaFan0225/expense-flow/internal/config"
	"github.com/ZeldaFan0225/expense-flow/internal/database"
	"github.com/ZeldaFan0225/expense-flow/internal/ratelimit"
	"github.com/ZeldaFan0225/expense-flow/internal/router"
	"github.com/ZeldaFan0225/expense-flow/internal/store"
	"github.com/ZeldaFan0225/expense-flow/internal/util"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml)")
	flag.Parse()

	// .env is optional; real env vars win either way.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	setupLogging(cfg.Log)

	db, err := database.Init(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("init database")
	}
	if err := database.AutoMigrate(db); err != nil {
		logrus.WithError(err).Fatal("migrate database")
	}

	keys, err := cfg.Security.KeyRegistry()
	if err != nil {
		logrus.WithError(err).Fatal("parse encryption keys")
	}
	codec, err := util.NewCodec(keys, cfg.Security.ActiveKeyVersion)
	if err != nil {
		logrus.WithError(err).Fatal("init encryption")
	}

	limiter := ratelimit.New(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second)

	r := router.New(router.Deps{
		Config:  cfg,
		Stores:  store.New(db),
		Codec:   codec,
		Limiter: limiter,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	logrus.WithFields(logrus.Fields{
		"addr":           addr,
		"key_version":    codec.ActiveVersion(),
		"rate_limit":     cfg.RateLimit.Requests,
		"window_seconds": cfg.RateLimit.WindowSeconds,
	}).Info("starting expense-flow")

	if err := r.Run(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
