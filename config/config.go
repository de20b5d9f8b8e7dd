package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type LedgerConfig struct {
	DepositLimitRatio decimal.Decimal
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Ledger      LedgerConfig
	SeedOnStart bool
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Flags registers the command-line overrides. Flag names match the env keys
// lower-cased with dashes.
func Flags(fs *pflag.FlagSet) {
	fs.Int("port", 0, "HTTP server port (HTTP_PORT)")
	fs.String("db", "", "database DSN or SQLite path (DB_DSN)")
	fs.String("db-driver", "", "sqlite or postgres (DB_DRIVER)")
	fs.Bool("seed", false, "load the demo dataset on start (SEED_ON_START)")
}

// Load reads env vars, an optional app.env file and the parsed flags.
// Flags win over env, env wins over the file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	if fs != nil {
		bind(v, fs, "HTTP_PORT", "port")
		bind(v, fs, "DB_DSN", "db")
		bind(v, fs, "DB_DRIVER", "db-driver")
		bind(v, fs, "SEED_ON_START", "seed")
	}

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:               v.GetString("HTTP_HOST"),
			Port:               v.GetInt("HTTP_PORT"),
			CORSAllowedOrigins: parseList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Driver:          strings.ToLower(v.GetString("DB_DRIVER")),
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		SeedOnStart: v.GetBool("SEED_ON_START"),
	}

	ratio := strings.TrimSpace(v.GetString("DEPOSIT_LIMIT_RATIO"))
	if ratio != "" {
		d, err := decimal.NewFromString(ratio)
		if err != nil {
			return nil, fmt.Errorf("DEPOSIT_LIMIT_RATIO: %w", err)
		}
		cfg.Ledger.DepositLimitRatio = d
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bind(v *viper.Viper, fs *pflag.FlagSet, key, flag string) {
	if f := fs.Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3001
	}
	if len(cfg.HTTP.CORSAllowedOrigins) == 0 {
		cfg.HTTP.CORSAllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if cfg.DB.Driver == "" {
		cfg.DB.Driver = DriverSQLite
	}
	if cfg.DB.DSN == "" && cfg.DB.Driver == DriverSQLite {
		cfg.DB.DSN = "marketplace.db"
	}
	if cfg.Ledger.DepositLimitRatio.IsZero() {
		cfg.Ledger.DepositLimitRatio = decimal.RequireFromString("1.25")
	}
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, cfg.DB.Driver)
	}
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if !cfg.Ledger.DepositLimitRatio.IsPositive() {
		return fmt.Errorf("DEPOSIT_LIMIT_RATIO must be positive")
	}
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", cfg.HTTP.Port)
	}
	return nil
}

func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	items := strings.Split(raw, ",")
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}
