package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	YouTube     YouTubeConfig     `mapstructure:"youtube"`
	Entitlement EntitlementConfig `mapstructure:"entitlement"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Chat        ChatConfig        `mapstructure:"chat"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Backfill    BackfillConfig    `mapstructure:"backfill"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
	// AnalysisPath is a format string taking the video id, e.g. "/video/%s/analysis".
	AnalysisPath string `mapstructure:"analysis_path"`
	// AdminUserIDs may trigger backfills over HTTP.
	AdminUserIDs []string `mapstructure:"admin_user_ids"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
	return c.Path
}

type StorageConfig struct {
	Type       string        `mapstructure:"type"` // r2, s3, s3compatible; empty auto-detects
	Endpoint   string        `mapstructure:"endpoint"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	Bucket     string        `mapstructure:"bucket"`
	Region     string        `mapstructure:"region"`
	PublicURL  string        `mapstructure:"public_url"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ChatModel    string `mapstructure:"chat_model"`
	TitleModel   string `mapstructure:"title_model"`
	ImageModel   string `mapstructure:"image_model"`
	ImageSize    string `mapstructure:"image_size"`
	ImageQuality string `mapstructure:"image_quality"`
	ImageStyle   string `mapstructure:"image_style"`
}

type YouTubeConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	TranscriptBaseURL string `mapstructure:"transcript_base_url"`
	Language          string `mapstructure:"language"`
}

type EntitlementConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	ImageFeature string `mapstructure:"image_feature"`
	ImageEvent   string `mapstructure:"image_event"`
}

type AuthConfig struct {
	IssuerURL    string `mapstructure:"issuer_url"`
	Audience     string `mapstructure:"audience"`
	HMACSecret   string `mapstructure:"hmac_secret"`
	PublicKeyPEM string `mapstructure:"public_key_pem"`
}

type ChatConfig struct {
	MaxSteps          int           `mapstructure:"max_steps"`
	MaxDuration       time.Duration `mapstructure:"max_duration"`
	TruncateThreshold int           `mapstructure:"truncate_threshold"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BackfillConfig struct {
	Workers int `mapstructure:"workers"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials are usually injected through the environment
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.bucket", "STORAGE_BUCKET")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("youtube.api_key", "YOUTUBE_API_KEY")
	v.BindEnv("entitlement.api_key", "ENTITLEMENT_API_KEY")
	v.BindEnv("entitlement.base_url", "ENTITLEMENT_BASE_URL")
	v.BindEnv("auth.issuer_url", "AUTH_ISSUER_URL")
	v.BindEnv("auth.hmac_secret", "AUTH_HMAC_SECRET")
	v.BindEnv("auth.public_key_pem", "AUTH_PUBLIC_KEY_PEM")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.analysis_path", "/video/%s/analysis")
	v.SetDefault("server.admin_user_ids", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/creatorkit.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "creatorkit")
	v.SetDefault("storage.presign_ttl", 15*time.Minute)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o")
	v.SetDefault("openai.title_model", "gpt-4o-mini")
	v.SetDefault("openai.image_model", "dall-e-3")
	v.SetDefault("openai.image_size", "1792x1024")
	v.SetDefault("openai.image_quality", "standard")
	v.SetDefault("openai.image_style", "vivid")

	v.SetDefault("youtube.base_url", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("youtube.transcript_base_url", "https://www.youtube.com/api/timedtext")
	v.SetDefault("youtube.language", "en")

	v.SetDefault("entitlement.base_url", "https://api.schematichq.com")
	v.SetDefault("entitlement.image_feature", "image-generation")
	v.SetDefault("entitlement.image_event", "generate-image")

	v.SetDefault("chat.max_steps", 5)
	v.SetDefault("chat.max_duration", 30*time.Second)
	v.SetDefault("chat.truncate_threshold", 5000)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 20)
	v.SetDefault("ratelimit.burst", 5)

	v.SetDefault("backfill.workers", 4)
}

// Validate fails fast when a credential the server cannot run without is missing.
func (c *Config) Validate() error {
	var errs []error
	required := []struct {
		name  string
		value string
	}{
		{"storage.endpoint", c.Storage.Endpoint},
		{"storage.access_key", c.Storage.AccessKey},
		{"storage.secret_key", c.Storage.SecretKey},
		{"openai.api_key", c.OpenAI.APIKey},
		{"youtube.api_key", c.YouTube.APIKey},
		{"entitlement.api_key", c.Entitlement.APIKey},
		{"auth.issuer_url", c.Auth.IssuerURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}
	if c.Auth.HMACSecret == "" && c.Auth.PublicKeyPEM == "" {
		errs = append(errs, errors.New("auth.hmac_secret or auth.public_key_pem is required"))
	}
	if c.Chat.MaxSteps <= 0 {
		errs = append(errs, errors.New("chat.max_steps must be positive"))
	}
	if !strings.Contains(c.Server.AnalysisPath, "%s") {
		errs = append(errs, errors.New("server.analysis_path must contain %s"))
	}
	return errors.Join(errs...)
}
