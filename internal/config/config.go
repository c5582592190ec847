package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	StoreMongo = "mongo"
	StoreMySQL = "mysql"

	CacheMemory = "memory"
	CacheRedis  = "redis"
)

type Config struct {
	AppEnv    string `mapstructure:"app_env"`
	Port      int    `mapstructure:"port"`
	BackendID string `mapstructure:"backend_id"`

	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	StoreDriver   string `mapstructure:"store_driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	MySQLDSN      string `mapstructure:"mysql_dsn"`

	CacheDriver string        `mapstructure:"cache_driver"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	CacheSize   int           `mapstructure:"cache_size"`
	RedisAddr   string        `mapstructure:"redis_addr"`

	KafkaBrokers string `mapstructure:"kafka_brokers"`
	KafkaTopic   string `mapstructure:"kafka_topic"`
	KafkaGroupID string `mapstructure:"kafka_group_id"`

	FilesDir    string `mapstructure:"files_dir"`
	FilesBucket string `mapstructure:"files_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`

	StaticDir string `mapstructure:"static_dir"`
	LogDir    string `mapstructure:"log_dir"`
	LogLevel  string `mapstructure:"log_level"`

	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

var defaults = map[string]any{
	"app_env":        EnvDevelopment,
	"port":           5000,
	"backend_id":     "unknown",
	"jwt_secret":     "",
	"token_ttl":      30 * 24 * time.Hour,
	"store_driver":   StoreMongo,
	"mongo_uri":      "",
	"mongo_database": "shop",
	"mysql_dsn":      "",
	"cache_driver":   CacheMemory,
	"cache_ttl":      60 * time.Second,
	"cache_size":     1024,
	"redis_addr":     "",
	"kafka_brokers":  "",
	"kafka_topic":    "product-events",
	"kafka_group_id": "",
	"files_dir":      "./files",
	"files_bucket":   "",
	"s3_region":      "us-east-1",
	"s3_endpoint":    "",
	"s3_access_key":  "",
	"s3_secret_key":  "",
	"static_dir":     "",
	"log_dir":        "./logs",
	"log_level":      "info",
	"rate_limit":     20.0,
	"rate_burst":     40,
}

// Load reads configuration from defaults, an optional config file, the
// environment (after loading .env files) and command line flags, in
// increasing order of precedence.
func Load(flags *pflag.FlagSet, configFile string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../.env"}
	}
	for _, f := range envFiles {
		// missing .env files are fine
		_ = godotenv.Load(f)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// NODE_ENV is honoured for deployments that still set it.
	if c.AppEnv == EnvDevelopment && v.GetString("node_env") != "" {
		c.AppEnv = v.GetString("node_env")
	}

	return &c, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

func (c *Config) KafkaEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}

// Validate checks that the settings required by the selected drivers are present.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is not defined"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Port))
	}

	switch c.StoreDriver {
	case StoreMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is not defined"))
		}
	case StoreMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is not defined"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}

	switch c.CacheDriver {
	case CacheMemory:
	case CacheRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is not defined"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.CacheDriver))
	}

	if c.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid cache ttl %s", c.CacheTTL))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, fmt.Errorf("invalid token ttl %s", c.TokenTTL))
	}

	return errors.Join(errs...)
}
