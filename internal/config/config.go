package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type AppConfig struct {
	ServiceName string     `mapstructure:"service_name"`
	Env         string     `mapstructure:"env"`
	LogLevel    string     `mapstructure:"log_level"`
	MetricsPath string     `mapstructure:"metrics_path"`
	HTTP        HTTPConfig `mapstructure:"http"`
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MailConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	BaseURL   string
}

type AvatarConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	PublicURL string
}

type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	Prefix string
}

type Config struct {
	App             AppConfig
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EmailTokenTTL   time.Duration
	SessionCacheTTL time.Duration
	DB              DBConfig
	Redis           RedisConfig
	Mail            MailConfig
	Avatar          AvatarConfig
	RateLimit       RateLimitConfig
	CORSOrigins     []string
	BannedIPs       []string
}

func Load() (*Config, error) {
	appCfg, err := loadApp(os.Getenv("CONTACTS_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:             *appCfg,
		JWTSecret:       envString("CONTACTS_JWT_SECRET", ""),
		AccessTokenTTL:  envDuration("CONTACTS_ACCESS_TOKEN_TTL", 24*time.Hour),
		RefreshTokenTTL: envDuration("CONTACTS_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		EmailTokenTTL:   envDuration("CONTACTS_EMAIL_TOKEN_TTL", 24*time.Hour),
		SessionCacheTTL: envDuration("CONTACTS_SESSION_CACHE_TTL", 900*time.Second),
		DB: DBConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Name:     envString("POSTGRES_DB", "rolodex"),
			User:     envString("POSTGRES_USER", "rolodex"),
			Password: envString("POSTGRES_PASSWORD", "rolodex"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     envString("REDIS_ADDR", "localhost:6379"),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Mail: MailConfig{
			APIKey:    envString("CONTACTS_MAIL_API_KEY", ""),
			FromEmail: envString("CONTACTS_MAIL_FROM", "noreply@rolodex.local"),
			FromName:  envString("CONTACTS_MAIL_FROM_NAME", "Rolodex"),
			BaseURL:   envString("CONTACTS_BASE_URL", "http://localhost:8080"),
		},
		Avatar: AvatarConfig{
			Bucket:    envString("CONTACTS_AVATAR_BUCKET", "rolodex-avatars"),
			Region:    envString("CONTACTS_AVATAR_REGION", "us-east-1"),
			Endpoint:  envString("CONTACTS_AVATAR_ENDPOINT", ""),
			AccessKey: envString("CONTACTS_AVATAR_ACCESS_KEY", ""),
			SecretKey: envString("CONTACTS_AVATAR_SECRET_KEY", ""),
			PublicURL: envString("CONTACTS_AVATAR_PUBLIC_URL", ""),
		},
		RateLimit: RateLimitConfig{
			Limit:  envInt("CONTACTS_RATE_LIMIT", 2),
			Window: envDuration("CONTACTS_RATE_WINDOW", 5*time.Second),
			Prefix: envString("CONTACTS_RATE_PREFIX", "rolodex:rl:"),
		},
		CORSOrigins: envList("CONTACTS_CORS_ORIGINS", []string{"http://localhost:3000"}),
		BannedIPs:   envList("CONTACTS_BANNED_IPS", nil),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("CONTACTS_JWT_SECRET must be set")
	}

	return cfg, nil
}

func loadApp(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("CONTACTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path == "" {
		path = "config.yaml"
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "rolodex")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
