package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/rkeller/salespipe/internal/config"
	"github.com/rkeller/salespipe/internal/db"
	"github.com/rkeller/salespipe/internal/domain"
	"github.com/rkeller/salespipe/internal/ingest"
	"github.com/rkeller/salespipe/internal/pipeline"
	"github.com/rkeller/salespipe/internal/rates"
	"github.com/rkeller/salespipe/internal/repository"

	"github.com/shopspring/decimal"
)

// Exit codes observable by the caller.
const (
	exitCommitted          = 0
	exitFatal              = 1
	exitAborted            = 2
	exitPersistenceFailure = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	salesPath := flag.String("sales", "", "sales input file (.csv or .xlsx), overrides config")
	referencePath := flag.String("reference", "", "product reference file (.csv or .xlsx), overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return exitFatal
	}
	if *salesPath != "" {
		cfg.SalesPath = *salesPath
	}
	if *referencePath != "" {
		cfg.ReferencePath = *referencePath
	}
	if cfg.SalesPath == "" || cfg.ReferencePath == "" {
		log.Printf("Both a sales file and a reference file are required")
		return exitFatal
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sales, err := readSales(cfg.SalesPath)
	if err != nil {
		log.Printf("Failed to load sales input: %v", err)
		return exitFatal
	}
	reference, err := readReference(cfg.ReferencePath)
	if err != nil {
		log.Printf("Failed to load reference input: %v", err)
		return exitFatal
	}

	conn, err := db.NewConnection(ctx, cfg.DB)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		return exitFatal
	}
	defer conn.Close()

	if err := db.RunMigrations(ctx, conn.Pool, "./migrations"); err != nil {
		log.Printf("Failed to run migrations: %v", err)
		return exitFatal
	}

	fallback := make(domain.RateTable, len(cfg.FallbackRates))
	for currency, rate := range cfg.FallbackRates {
		fallback[currency] = decimal.NewFromFloat(rate)
	}
	provider := rates.NewHTTPProvider(cfg.RatesEndpoint, cfg.RatesTimeout, fallback)
	store := repository.NewResultRepository(conn)

	p := pipeline.New(provider, store, pipeline.Options{
		TargetCurrency: cfg.TargetCurrency,
		FailureCeiling: cfg.FailureCeiling,
		Workers:        cfg.Workers,
	})

	start := time.Now()
	result, err := p.Run(ctx, sales, reference)
	log.Printf("Run %s finished in %s: outcome=%s total=%d accepted=%d rejected=%d ratio=%.4f",
		result.RunID, time.Since(start), result.Outcome, result.Total, result.Accepted, result.Rejected, result.FailureRatio)

	if err != nil {
		var threshold *domain.ThresholdExceededError
		var persistence *domain.PersistenceError
		switch {
		case errors.As(err, &threshold):
			return exitAborted
		case errors.As(err, &persistence):
			return exitPersistenceFailure
		default:
			log.Printf("Run failed: %v", err)
			return exitFatal
		}
	}

	return exitCommitted
}

func readSales(path string) ([]domain.SaleRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadSales(path, f)
}

func readReference(path string) ([]domain.ProductReference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadReference(path, f)
}
