package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"qiming/impl/core"
	"qiming/internal/config"
	"qiming/internal/database"
	"qiming/internal/database/mysql"
	"qiming/internal/http-server/api"
	"qiming/internal/namegen"
	"qiming/internal/notify"
	"qiming/internal/ratelimit"
	"qiming/internal/token"
	"qiming/lib/logger"
	"qiming/lib/sl"
)

const logFileName = "qiming.log"

func main() {
	configPath := flag.String("conf", "config.yml", "path to config file")
	logPath := flag.String("log", "/var/log/", "path to log file directory")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, filepath.Join(*logPath, logFileName))

	if conf.Telegram.Enabled {
		notifier, err := notify.New(conf.Telegram.ApiKey, conf.Telegram.ChatId, lg)
		if err != nil {
			lg.Error("telegram notifier init failed", sl.Err(err))
		} else {
			lg = slog.New(logger.NewTelegramHandler(lg.Handler(), notifier, slog.LevelWarn))
		}
	}
	lg.Info("starting qiming", slog.String("config", *configPath), slog.String("env", conf.Env))

	var db core.Database
	switch conf.Storage {
	case "mysql":
		client, err := mysql.NewSQLClient(conf)
		if err != nil {
			log.Fatal("mysql connect: ", err)
		}
		defer client.Close()
		db = client
	default:
		mongoDb := database.NewMongoClient(conf)
		if err := mongoDb.EnsureIndexes(); err != nil {
			lg.Error("index setup failed", sl.Err(err))
		}
		db = mongoDb
	}

	var store ratelimit.Store
	if conf.RedisUrl != "" {
		client, err := ratelimit.Connect(conf.RedisUrl)
		if err != nil {
			lg.Error("redis connect failed, falling back to memory store", sl.Err(err))
			store = ratelimit.NewMemoryStore()
		} else {
			store = ratelimit.NewRedisStore(client)
		}
	} else {
		store = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(store, time.Duration(conf.RateLimit.CooldownSeconds)*time.Second, lg)

	generator := namegen.NewClient(namegen.Config{
		Url:         conf.Ai.Url,
		Model:       conf.Ai.Model,
		Key:         conf.Ai.Key,
		Timeout:     time.Duration(conf.Ai.TimeoutSeconds) * time.Second,
		Temperature: conf.Ai.Temperature,
		MaxTokens:   conf.Ai.MaxTokens,
		TopP:        conf.Ai.TopP,
		PromptFile:  conf.Ai.PromptFile,
	}, lg)

	tokens, err := token.New(token.Config{
		Secret:      conf.Jwt.Secret,
		ExpiresDays: conf.Jwt.ExpiresDays,
	})
	if err != nil {
		log.Fatal("token service: ", err)
	}

	handler := core.New(db, generator, limiter, tokens, lg)
	server := api.New(conf, lg, handler)

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-done
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err = server.Shutdown(ctx); err != nil {
			lg.Error("shutdown failed", sl.Err(err))
		}
	}()

	if err = server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Error("server stopped with error", sl.Err(err))
		os.Exit(1)
	}
	lg.Info("server stopped")
}
