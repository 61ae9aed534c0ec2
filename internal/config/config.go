package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Pricing  Pricing  `mapstructure:"pricing"`
	Trading  Trading  `mapstructure:"trading"`
	Auth     Auth     `mapstructure:"auth"`
}

// Server holds the configuration for the HTTP API server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Pricing holds the configuration for the external price sources.
type Pricing struct {
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	GoldAPIKey     string  `mapstructure:"gold_api_key"`
}

// Timeframe describes one tradable expiry and its payout economics.
// TargetMovePercent drives the displayed target; SettleMovePercent drives
// the settlement move. The two tables intentionally differ for some
// timeframes and are kept as separate columns.
type Timeframe struct {
	Seconds           int     `mapstructure:"seconds"`
	MinAmount         float64 `mapstructure:"min_amount"`
	TargetMovePercent float64 `mapstructure:"target_move_percent"`
	SettleMovePercent float64 `mapstructure:"settle_move_percent"`
}

// Trading holds the configuration for the trade lifecycle.
type Trading struct {
	StartingBalance       float64     `mapstructure:"starting_balance"`
	WinProbability        float64     `mapstructure:"win_probability"`
	SweepInterval         int         `mapstructure:"sweep_interval"`          // seconds
	RefreshInterval       int         `mapstructure:"refresh_interval"`        // seconds
	MarketRefreshInterval int         `mapstructure:"market_refresh_interval"` // seconds
	Timeframes            []Timeframe `mapstructure:"timeframes"`
}

// Auth holds the configuration for account bootstrap.
type Auth struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// DefaultTimeframes returns the built-in timeframe table, used when the
// config file does not override it.
func DefaultTimeframes() []Timeframe {
	return []Timeframe{
		{Seconds: 60, MinAmount: 500, TargetMovePercent: 13, SettleMovePercent: 14},
		{Seconds: 90, MinAmount: 5000, TargetMovePercent: 13.5, SettleMovePercent: 13.5},
		{Seconds: 120, MinAmount: 10000, TargetMovePercent: 17.5, SettleMovePercent: 17.5},
		{Seconds: 180, MinAmount: 30000, TargetMovePercent: 22.5, SettleMovePercent: 22.5},
		{Seconds: 360, MinAmount: 50000, TargetMovePercent: 27.5, SettleMovePercent: 28},
	}
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "demo-trading.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("pricing.rate_limit", 10) // requests per second
	viper.SetDefault("pricing.rate_limit_burst", 5)
	viper.SetDefault("pricing.timeout_seconds", 8)
	viper.SetDefault("trading.starting_balance", 95000)
	viper.SetDefault("trading.win_probability", 0.6)
	viper.SetDefault("trading.sweep_interval", 1)
	viper.SetDefault("trading.refresh_interval", 3)
	viper.SetDefault("trading.market_refresh_interval", 60)
	viper.SetDefault("auth.admin_email", "admin@app.com")
	viper.SetDefault("auth.admin_password", "admin123")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if len(config.Trading.Timeframes) == 0 {
		config.Trading.Timeframes = DefaultTimeframes()
	}
	return
}

// FindTimeframe returns the timeframe entry for the given duration in
// seconds, or false when it is not a recognized timeframe.
func (t Trading) FindTimeframe(seconds int) (Timeframe, bool) {
	for _, tf := range t.Timeframes {
		if tf.Seconds == seconds {
			return tf, true
		}
	}
	return Timeframe{}, false
}
