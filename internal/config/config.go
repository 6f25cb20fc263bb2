package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	MediaDriverS3     = "s3"
	MediaDriverStatic = "static"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	Env        string `mapstructure:"ENV"`

	StorageDriver string `mapstructure:"STORAGE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBHost        string `mapstructure:"DB_HOST"`
	DBPort        string `mapstructure:"DB_PORT"`
	DBUser        string `mapstructure:"DB_USER"`
	DBPassword    string `mapstructure:"DB_PASSWORD"`
	DBName        string `mapstructure:"DB_NAME"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret string        `mapstructure:"JWT_SECRET"`
	JWTTTL    time.Duration `mapstructure:"JWT_TTL"`

	RateLimitPerMinute int    `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	MediaDriver  string `mapstructure:"MEDIA_DRIVER"`
	MediaBaseURL string `mapstructure:"MEDIA_BASE_URL"`
	S3Bucket     string `mapstructure:"S3_BUCKET"`
	AWSRegion    string `mapstructure:"AWS_REGION"`
}

var defaults = map[string]any{
	"SERVER_PORT":           "8080",
	"ENV":                   "development",
	"STORAGE_DRIVER":        StorageDriverPostgres,
	"DATABASE_URL":          "",
	"DB_HOST":               "localhost",
	"DB_PORT":               "5432",
	"DB_USER":               "matrimony",
	"DB_PASSWORD":           "matrimony_dev_password",
	"DB_NAME":               "matrimony",
	"DB_MAX_CONNS":          0,
	"REDIS_URL":             "",
	"JWT_SECRET":            "dev-secret-change-me",
	"JWT_TTL":               "24h",
	"RATE_LIMIT_PER_MINUTE": 30,
	"CORS_ALLOWED_ORIGINS":  "http://localhost:3000",
	"MEDIA_DRIVER":          MediaDriverStatic,
	"MEDIA_BASE_URL":        "http://localhost:8080/media",
	"S3_BUCKET":             "",
	"AWS_REGION":            "us-east-1",
}

// Load reads configuration from the environment, with an optional .env file
// at path underneath it. An empty path skips the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	switch c.MediaDriver {
	case MediaDriverStatic:
	case MediaDriverS3:
		if c.S3Bucket == "" {
			return errors.New("S3_BUCKET is required when MEDIA_DRIVER=s3")
		}
	default:
		return fmt.Errorf("unknown MEDIA_DRIVER %q", c.MediaDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	return nil
}

// DSN returns DATABASE_URL when set and otherwise builds one from DB_*.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
