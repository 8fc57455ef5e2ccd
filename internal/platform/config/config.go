package config

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret string
	JWTIssuer string

	// RateLimit is an ulule/limiter formatted rate, e.g. "100-M".
	RateLimit string

	// SnowflakeNodeID distinguishes transaction number generators across
	// instances (0-1023).
	SnowflakeNodeID int64

	// Consumption engine tuning. BatchSize rows are locked per page and at
	// most MaxBatches pages are scanned before a consumption fails closed.
	ConsumeBatchSize  int
	ConsumeMaxBatches int

	// Welcome bonus for newly registered users.
	InitialCreditsEnabled     bool
	InitialCreditsAmount      int64
	InitialCreditsValidDays   int
	InitialCreditsDescription string

	// ExpirySweepSchedule is a cron spec (with seconds) for the grant
	// expiry sweeper.
	ExpirySweepSchedule string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "credit-ledger-app")
	viper.SetDefault("RATE_LIMIT", "120-M")
	viper.SetDefault("SNOWFLAKE_NODE_ID", 1)
	viper.SetDefault("CONSUME_BATCH_SIZE", 1000)
	viper.SetDefault("CONSUME_MAX_BATCHES", 10)
	viper.SetDefault("INITIAL_CREDITS_ENABLED", false)
	viper.SetDefault("INITIAL_CREDITS_AMOUNT", 0)
	viper.SetDefault("INITIAL_CREDITS_VALID_DAYS", 0)
	viper.SetDefault("INITIAL_CREDITS_DESCRIPTION", "Welcome bonus")
	viper.SetDefault("EXPIRY_SWEEP_SCHEDULE", "0 10 * * * *")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET not set. Using default insecure key.")
	}
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.SnowflakeNodeID = viper.GetInt64("SNOWFLAKE_NODE_ID")

	cfg.ConsumeBatchSize = viper.GetInt("CONSUME_BATCH_SIZE")
	if cfg.ConsumeBatchSize <= 0 {
		cfg.ConsumeBatchSize = 1000
		log.Printf("Warning: Invalid CONSUME_BATCH_SIZE. Defaulting to %d.\n", cfg.ConsumeBatchSize)
	}
	cfg.ConsumeMaxBatches = viper.GetInt("CONSUME_MAX_BATCHES")
	if cfg.ConsumeMaxBatches <= 0 {
		cfg.ConsumeMaxBatches = 10
		log.Printf("Warning: Invalid CONSUME_MAX_BATCHES. Defaulting to %d.\n", cfg.ConsumeMaxBatches)
	}

	cfg.InitialCreditsEnabled = viper.GetBool("INITIAL_CREDITS_ENABLED")
	cfg.InitialCreditsAmount = viper.GetInt64("INITIAL_CREDITS_AMOUNT")
	cfg.InitialCreditsValidDays = viper.GetInt("INITIAL_CREDITS_VALID_DAYS")
	cfg.InitialCreditsDescription = viper.GetString("INITIAL_CREDITS_DESCRIPTION")

	cfg.ExpirySweepSchedule = viper.GetString("EXPIRY_SWEEP_SCHEDULE")

	return cfg, nil
}
