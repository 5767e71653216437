package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rkeller/salespipe/internal/db"

	"github.com/spf13/viper"
)

// Config is the full configuration surface of one pipeline run. Nothing in
// the core logic is hardcoded; every knob here can come from config.yaml or
// the environment.
type Config struct {
	DB db.Config

	TargetCurrency string
	FailureCeiling float64
	FallbackRates  map[string]float64

	RatesEndpoint string
	RatesTimeout  time.Duration

	Workers       int
	SalesPath     string
	ReferencePath string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DB:             db.DefaultConfig(),
		TargetCurrency: "USD",
		FailureCeiling: 0.05,
		FallbackRates: map[string]float64{
			"USD": 1.0,
			"EUR": 1.1,
			"GBP": 1.3,
		},
		RatesTimeout: 10 * time.Second,
		Workers:      1,
	}
}

// Load reads config.yaml from configPath and applies environment overrides.
func Load(configPath string) (Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AutomaticEnv()            // allow environment overrides
	v.SetEnvPrefix("SALESPIPE") // map env vars like SALESPIPE_PIPELINE_WORKERS

	// Map nested keys to flat env vars
	v.BindEnv("database.host")
	v.BindEnv("database.port")
	v.BindEnv("database.user")
	v.BindEnv("database.password")
	v.BindEnv("database.dbname")
	v.BindEnv("database.sslmode")
	v.BindEnv("pipeline.target_currency")
	v.BindEnv("pipeline.failure_ceiling")
	v.BindEnv("pipeline.workers")
	v.BindEnv("pipeline.sales_path")
	v.BindEnv("pipeline.reference_path")
	v.BindEnv("rates.endpoint")
	v.BindEnv("rates.timeout")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found? Just log it, use defaults + env
		fmt.Println("No config.yaml found, using defaults and env vars")
	} else {
		fmt.Println("Loaded config.yaml")
	}

	if v.IsSet("database.host") {
		cfg.DB.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.DB.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.DB.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.DB.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.DB.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.DB.SSLMode = v.GetString("database.sslmode")
	}

	if v.IsSet("pipeline.target_currency") {
		cfg.TargetCurrency = v.GetString("pipeline.target_currency")
	}
	if v.IsSet("pipeline.failure_ceiling") {
		cfg.FailureCeiling = v.GetFloat64("pipeline.failure_ceiling")
	}
	if v.IsSet("pipeline.workers") {
		cfg.Workers = v.GetInt("pipeline.workers")
	}
	if v.IsSet("pipeline.sales_path") {
		cfg.SalesPath = v.GetString("pipeline.sales_path")
	}
	if v.IsSet("pipeline.reference_path") {
		cfg.ReferencePath = v.GetString("pipeline.reference_path")
	}

	if v.IsSet("rates.endpoint") {
		cfg.RatesEndpoint = v.GetString("rates.endpoint")
	}
	if v.IsSet("rates.timeout") {
		cfg.RatesTimeout = v.GetDuration("rates.timeout")
	}
	if v.IsSet("rates.fallback") {
		// Viper lowercases map keys; currency codes are upper-cased back.
		fallback := make(map[string]float64)
		for currency := range v.GetStringMap("rates.fallback") {
			fallback[strings.ToUpper(currency)] = v.GetFloat64("rates.fallback." + currency)
		}
		cfg.FallbackRates = fallback
	}

	return cfg, nil
}
