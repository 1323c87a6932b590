package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"FinPredict/internal/di"
	"FinPredict/pkg/config"
)

// Offline batch trainer: pulls history from ClickHouse, trains every horizon
// for each requested symbol, and installs artifacts into the registry. The
// serving process picks up new artifacts on the next model-cache miss.
func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: training.symbols, or all known)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	l, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	chClient, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse init failed: %v", err)
	}
	defer chClient.Close()

	bars, err := di.ProvideBarStore(chClient, l)
	if err != nil {
		log.Fatalf("bar store init failed: %v", err)
	}

	reg, err := di.ProvideRegistry(cfg)
	if err != nil {
		log.Fatalf("registry init failed: %v", err)
	}

	redisCache, err := di.ProvideCache(cfg)
	if err != nil {
		log.Fatalf("redis init failed: %v", err)
	}
	defer redisCache.Close()

	events, err := di.ProvideEventPublisher(cfg)
	if err != nil {
		log.Fatalf("event publisher init failed: %v", err)
	}
	defer events.Close()

	trainer := di.ProvideTrainer(cfg, bars, reg, events, di.ProvideMetrics(), di.ProvideCacheService(redisCache), l)

	ctx := context.Background()

	symbols := cfg.Training.Symbols
	if *symbolsFlag != "" {
		symbols = strings.Split(*symbolsFlag, ",")
	}
	if len(symbols) == 0 {
		symbols, err = bars.Symbols(ctx)
		if err != nil {
			log.Fatalf("list symbols failed: %v", err)
		}
	}
	if len(symbols) == 0 {
		log.Fatal("no symbols to train")
	}

	log.Printf("training %d symbols: %s", len(symbols), strings.Join(symbols, ","))

	results := trainer.TrainAll(ctx, symbols, reg)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Printf("FAIL %s: %v", r.Symbol, r.Err)
		} else {
			log.Printf("OK   %s", r.Symbol)
		}
	}
	log.Printf("done: %d trained, %d failed", len(results)-failed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}
