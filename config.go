package bankadmin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver           string `mapstructure:"driver"`
	ConnectionString string `mapstructure:"conn_str"`
	Path             string `mapstructure:"path"`
	Migrate          bool   `mapstructure:"migrate"`
}

type AuthConfig struct {
	Secret        string        `mapstructure:"secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// LimitsConfig caps in-flight service calls per operation group.
type LimitsConfig struct {
	Mutation       int64         `mapstructure:"mutation"`
	Distribution   int64         `mapstructure:"distribution"`
	Read           int64         `mapstructure:"read"`
	Statement      int64         `mapstructure:"statement"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `mapstructure:"max_requests"`
	Interval            time.Duration `mapstructure:"interval"`
	Timeout             time.Duration `mapstructure:"timeout"`
	ConsecutiveFailures uint32        `mapstructure:"consecutive_failures"`
}

// Settings trips a breaker after ConsecutiveFailures storage failures in a row.
func (b BreakerConfig) Settings() gobreaker.Settings {
	threshold := b.ConsecutiveFailures
	return gobreaker.Settings{
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	}
}

type SnowflakeConfig struct {
	Node int64 `mapstructure:"node"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Issuer    string          `mapstructure:"issuer"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Snowflake SnowflakeConfig `mapstructure:"snowflake"`
	Log       LogConfig       `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("issuer", defaultIssuer)
	v.SetDefault("server.address", ":3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.conn_str", "")
	v.SetDefault("database.path", "data/bank.db")
	v.SetDefault("database.migrate", true)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.session_ttl", 8*time.Hour)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("limits.mutation", 16)
	v.SetDefault("limits.distribution", 1)
	v.SetDefault("limits.read", 64)
	v.SetDefault("limits.statement", 4)
	v.SetDefault("limits.acquire_timeout", 2*time.Second)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", time.Minute)
	v.SetDefault("breaker.timeout", 30*time.Second)
	v.SetDefault("breaker.consecutive_failures", 5)
	v.SetDefault("snowflake.node", 1)
	v.SetDefault("log.level", "info")
}

// LoadConfig reads the YAML file at path, if any, over the defaults.
// Every key can be overridden from the environment, e.g.
// BANKADMIN_DATABASE_CONN_STR or BANKADMIN_AUTH_SECRET.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BANKADMIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.ConnectionString == "" {
			return errors.New("database.conn_str is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Snowflake.Node < 0 || c.Snowflake.Node > 1023 {
		return fmt.Errorf("snowflake.node %d out of range [0, 1023]", c.Snowflake.Node)
	}
	if c.Limits.Mutation <= 0 || c.Limits.Distribution <= 0 || c.Limits.Read <= 0 || c.Limits.Statement <= 0 {
		return errors.New("limits must be positive")
	}
	return nil
}
