// internal/config/config.go
package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Forecast ForecastConfig
	Pricing  PricingConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled                bool
	RedisURL               string
	RedisHost              string
	RedisPort              string
	RedisPassword          string
	RedisDB                int
	CompetitorTTLSeconds   int
	DemandScoreTTLSeconds  int
	PriceHistoryTTLSeconds int
}

// ForecastConfig holds the knobs of the demand forecasting and inventory
// models. Defaults mirror a 90-day observation window, a 30-day horizon and
// a 95% service level (Z=1.65).
type ForecastConfig struct {
	WindowDays            int
	HorizonDays           int
	LeadTimeDays          int
	ServiceZ              float64
	OrderCost             float64
	HoldingCostRate       float64
	WorkerCount           int
	ProviderTimeoutMillis int
	RetryAttempts         int
	// MonthFactors overrides the built-in annual seasonality curve when set
	// to 12 comma-separated multipliers (Jan..Dec).
	MonthFactors []float64
}

type PricingConfig struct {
	MinMargin       float64
	MaxMargin       float64
	Elasticity      float64
	DefaultCostRate float64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "demandcast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_COMPETITOR_TTL_SECONDS", 30*60)
		viper.SetDefault("CACHE_DEMAND_SCORE_TTL_SECONDS", 10*60)
		viper.SetDefault("CACHE_PRICE_HISTORY_TTL_SECONDS", 6*60*60)
		viper.SetDefault("FORECAST_WINDOW_DAYS", 90)
		viper.SetDefault("FORECAST_HORIZON_DAYS", 30)
		viper.SetDefault("FORECAST_LEAD_TIME_DAYS", 7)
		viper.SetDefault("FORECAST_SERVICE_Z", 1.65)
		viper.SetDefault("FORECAST_ORDER_COST", 50.0)
		viper.SetDefault("FORECAST_HOLDING_COST_RATE", 0.25)
		viper.SetDefault("FORECAST_WORKER_COUNT", 8)
		viper.SetDefault("FORECAST_PROVIDER_TIMEOUT_MS", 5000)
		viper.SetDefault("FORECAST_RETRY_ATTEMPTS", 2)
		viper.SetDefault("FORECAST_MONTH_FACTORS", "")
		viper.SetDefault("PRICING_MIN_MARGIN", 0.10)
		viper.SetDefault("PRICING_MAX_MARGIN", 0.50)
		viper.SetDefault("PRICING_ELASTICITY", -1.5)
		viper.SetDefault("PRICING_DEFAULT_COST_RATE", 0.60)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:                viper.GetBool("CACHE_ENABLED"),
				RedisURL:               viper.GetString("REDIS_URL"),
				RedisHost:              viper.GetString("REDIS_HOST"),
				RedisPort:              viper.GetString("REDIS_PORT"),
				RedisPassword:          viper.GetString("REDIS_PASSWORD"),
				RedisDB:                viper.GetInt("REDIS_DB"),
				CompetitorTTLSeconds:   viper.GetInt("CACHE_COMPETITOR_TTL_SECONDS"),
				DemandScoreTTLSeconds:  viper.GetInt("CACHE_DEMAND_SCORE_TTL_SECONDS"),
				PriceHistoryTTLSeconds: viper.GetInt("CACHE_PRICE_HISTORY_TTL_SECONDS"),
			},
			Forecast: ForecastConfig{
				WindowDays:            viper.GetInt("FORECAST_WINDOW_DAYS"),
				HorizonDays:           viper.GetInt("FORECAST_HORIZON_DAYS"),
				LeadTimeDays:          viper.GetInt("FORECAST_LEAD_TIME_DAYS"),
				ServiceZ:              viper.GetFloat64("FORECAST_SERVICE_Z"),
				OrderCost:             viper.GetFloat64("FORECAST_ORDER_COST"),
				HoldingCostRate:       viper.GetFloat64("FORECAST_HOLDING_COST_RATE"),
				WorkerCount:           viper.GetInt("FORECAST_WORKER_COUNT"),
				ProviderTimeoutMillis: viper.GetInt("FORECAST_PROVIDER_TIMEOUT_MS"),
				RetryAttempts:         viper.GetInt("FORECAST_RETRY_ATTEMPTS"),
				MonthFactors:          parseMonthFactors(viper.GetString("FORECAST_MONTH_FACTORS")),
			},
			Pricing: PricingConfig{
				MinMargin:       viper.GetFloat64("PRICING_MIN_MARGIN"),
				MaxMargin:       viper.GetFloat64("PRICING_MAX_MARGIN"),
				Elasticity:      viper.GetFloat64("PRICING_ELASTICITY"),
				DefaultCostRate: viper.GetFloat64("PRICING_DEFAULT_COST_RATE"),
			},
		}
	})

	return instance
}

// parseMonthFactors parses 12 comma-separated multipliers; anything else
// returns nil, which keeps the built-in curve.
func parseMonthFactors(raw string) []float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 12 {
		return nil
	}

	factors := make([]float64, 0, 12)
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || v <= 0 {
			return nil
		}
		factors = append(factors, v)
	}
	return factors
}
