package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Email    EmailConfig
	OTP      OTPConfig
	Auth     AuthConfig
	Store    StoreConfig
}

type AppConfig struct {
	Name            string
	Port            string `validate:"required"`
	Debug           bool
	LogPath         string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host           string
	Port           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	MaxConns       int32
	MigrateOnStart bool
}

type RedisConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	Secret    string        `validate:"required,min=16"`
	AccessTTL time.Duration `validate:"gt=0"`
}

type EmailConfig struct {
	Driver   string `validate:"oneof=console smtp"`
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type OTPConfig struct {
	// TestCode, when set, replaces random codes. Never set it in production.
	TestCode string
}

type AuthConfig struct {
	AdminEmail    string
	WebhookSecret string
	AttemptStore  string `validate:"oneof=postgres redis"`
}

type StoreConfig struct {
	Driver string `validate:"oneof=postgres memory"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject variables directly.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("APP_NAME", "otp-auth")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_PATH", "logs/")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("EMAIL_DRIVER", "console")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("ATTEMPT_STORE", "postgres")
	v.SetDefault("STORE_DRIVER", "postgres")

	config := &Config{
		App: AppConfig{
			Name:            v.GetString("APP_NAME"),
			Port:            v.GetString("PORT"),
			Debug:           v.GetBool("DEBUG"),
			LogPath:         v.GetString("LOG_PATH"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			Name:           v.GetString("DB_NAME"),
			User:           v.GetString("DB_USER"),
			Password:       v.GetString("DB_PASS"),
			SSLMode:        v.GetString("DB_SSLMODE"),
			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			MigrateOnStart: v.GetBool("DB_MIGRATE"),
		},
		Redis: RedisConfig{
			URL:     v.GetString("REDIS_URL"),
			Enabled: v.GetBool("REDIS_ENABLED"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("JWT_SECRET"),
			AccessTTL: v.GetDuration("JWT_ACCESS_TTL"),
		},
		Email: EmailConfig{
			Driver:   v.GetString("EMAIL_DRIVER"),
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("EMAIL_FROM"),
		},
		OTP: OTPConfig{
			TestCode: v.GetString("TEST_OTP"),
		},
		Auth: AuthConfig{
			AdminEmail:    v.GetString("ADMIN_EMAIL"),
			WebhookSecret: v.GetString("USER_WEBHOOK_SECRET"),
			AttemptStore:  v.GetString("ATTEMPT_STORE"),
		},
		Store: StoreConfig{
			Driver: v.GetString("STORE_DRIVER"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks field rules and the combinations viper cannot express.
func (c *Config) Validate() error {
	if errs := ValidateStruct(c); len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", FormatValidationErrors(errs))
	}
	if c.Auth.AttemptStore == "redis" && c.Redis.URL == "" {
		return fmt.Errorf("invalid config: REDIS_URL is required when ATTEMPT_STORE=redis")
	}
	if c.Email.Driver == "smtp" && (c.Email.Host == "" || c.Email.From == "") {
		return fmt.Errorf("invalid config: SMTP_HOST and EMAIL_FROM are required when EMAIL_DRIVER=smtp")
	}
	if c.Store.Driver == "postgres" && c.Database.Name == "" {
		return fmt.Errorf("invalid config: DB_NAME is required when STORE_DRIVER=postgres")
	}
	return nil
}
