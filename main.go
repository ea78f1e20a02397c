package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bharatcrest/hrmatcher/internal/api"
	"github.com/bharatcrest/hrmatcher/internal/cache"
	"github.com/bharatcrest/hrmatcher/internal/config"
	"github.com/bharatcrest/hrmatcher/internal/ingestion"
	"github.com/bharatcrest/hrmatcher/internal/llm"
	"github.com/bharatcrest/hrmatcher/internal/mailbox"
	"github.com/bharatcrest/hrmatcher/internal/pipeline"
	"github.com/bharatcrest/hrmatcher/internal/resume"
	"github.com/bharatcrest/hrmatcher/internal/retention"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	store := ingestion.NewStore(cfg.Resumes.Dir, log)
	docs := ingestion.NewExtractor(log)
	fetcher := mailbox.NewFetcher(store, log)

	var attrs resume.Extractor = resume.NewRuleBased()
	if cfg.Gemini.APIKey != "" {
		client, err := llm.NewGeminiClient(context.Background(), cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn("Gemini client unavailable, using rule-based extraction only", zap.Error(err))
		} else {
			defer client.Close()
			attrs = resume.NewAssisted(client, attrs, log)
		}
	}

	var resultCache cache.ResultCache = cache.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		resultCache = cache.NewRedisCache(rdb)
		log.Info("using Redis result cache", zap.String("addr", cfg.Redis.Addr))
	}

	p := pipeline.New(fetcher, docs, attrs, store, resultCache, cfg.Resumes.FetchLimit, log)

	sweeper := retention.New(store, cfg.Resumes.RetentionDays, log)
	if err := sweeper.Start(); err != nil {
		log.Fatal("failed to start retention scheduler", zap.Error(err))
	}
	defer sweeper.Stop()

	server := api.NewServer(p, resultCache, cfg.MailboxConfig(), log)

	addr := ":" + cfg.Server.Port
	log.Info("starting HR matcher", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}
