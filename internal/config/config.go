package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultPath = "./config/.env"

type Config struct {
	HTTPPort    int    `env:"HTTP_PORT" env-default:"8080"`
	StaticDir   string `env:"STATIC_DIR" env-default:"web"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `env:"LOG_FORMAT" env-default:"json"`
	ActivityLog string `env:"ACTIVITY_LOG" env-default:"logs/activity.log"`

	Storage StorageConfig
	Limits  LimitsConfig
	Mail    MailConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
}

type StorageConfig struct {
	DataDir   string `env:"DATA_DIR" env-default:"data"`
	UploadDir string `env:"UPLOAD_DIR" env-default:"uploads"`
}

type LimitsConfig struct {
	MaxFileSize         int64         `env:"MAX_FILE_SIZE" env-default:"10485760"`
	MaxRequestSize      int64         `env:"MAX_REQUEST_SIZE" env-default:"52428800"`
	AllowedExtensions   []string      `env:"ALLOWED_EXTENSIONS" env-default:"pdf,doc,docx,jpg,jpeg,png"`
	MinAge              int           `env:"MIN_AGE" env-default:"16"`
	MaxNameLength       int           `env:"MAX_NAME_LENGTH" env-default:"50"`
	MinMotivationLength int           `env:"MIN_MOTIVATION_LENGTH" env-default:"50"`
	MaxMotivationLength int           `env:"MAX_MOTIVATION_LENGTH" env-default:"2000"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"0s"`
}

type MailConfig struct {
	AdminEmail   string        `env:"ADMIN_EMAIL" env-default:"admin@example.com"`
	FromEmail    string        `env:"FROM_EMAIL" env-default:"noreply@example.com"`
	FromName     string        `env:"FROM_NAME" env-default:"Registration Portal"`
	ReplyTo      string        `env:"REPLY_TO"`
	SMTPHost     string        `env:"SMTP_HOST"`
	SMTPPort     int           `env:"SMTP_PORT" env-default:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	Workers      int           `env:"NOTIFY_WORKERS" env-default:"2"`
	QueueSize    int           `env:"NOTIFY_QUEUE_SIZE" env-default:"100"`
	Retries      int           `env:"MAIL_RETRIES" env-default:"3"`
	RetryDelay   time.Duration `env:"MAIL_RETRY_DELAY" env-default:"500ms"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC" env-default:"registration-submissions"`
	GroupID string   `env:"KAFKA_GROUP_ID" env-default:"registration-notifier"`
}

type RedisConfig struct {
	URL      string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" env-default:"10m"`
}

func New() (*Config, error) {
	return Load(defaultPath)
}

// Load reads path when it exists and falls back to the process environment.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReplyAddress is the Reply-To used on outgoing mail.
func (m MailConfig) ReplyAddress() string {
	if m.ReplyTo != "" {
		return m.ReplyTo
	}
	return m.AdminEmail
}

func (c *Config) validate() error {
	switch {
	case c.Limits.MaxFileSize <= 0:
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	case len(c.Limits.AllowedExtensions) == 0:
		return fmt.Errorf("ALLOWED_EXTENSIONS must not be empty")
	case c.Limits.MinMotivationLength > c.Limits.MaxMotivationLength:
		return fmt.Errorf("MIN_MOTIVATION_LENGTH exceeds MAX_MOTIVATION_LENGTH")
	case c.Limits.MaxNameLength < 2:
		return fmt.Errorf("MAX_NAME_LENGTH must be at least 2")
	case c.Mail.AdminEmail == "":
		return fmt.Errorf("ADMIN_EMAIL is required")
	case c.Mail.Workers < 1:
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}
	if c.Limits.MaxRequestSize < c.Limits.MaxFileSize {
		c.Limits.MaxRequestSize = c.Limits.MaxFileSize
	}
	return nil
}
