package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all the configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Tokens    TokensConfig    `mapstructure:"tokens"`
	OAuth     OAuthConfig     `mapstructure:"oauth"`
	Google    GoogleConfig    `mapstructure:"google"`
	Apple     AppleConfig     `mapstructure:"apple"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	App       AppConfig       `mapstructure:"app"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the Redis configuration.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig holds the signing secrets and lifetimes of access and refresh tokens.
// The two secrets must differ so a leaked access key cannot mint refresh tokens.
type AuthConfig struct {
	AccessSecret  string        `mapstructure:"accesssecret"`
	RefreshSecret string        `mapstructure:"refreshsecret"`
	AccessTTL     time.Duration `mapstructure:"accessttl"`
	RefreshTTL    time.Duration `mapstructure:"refreshttl"`
	Issuer        string        `mapstructure:"issuer"`
	CookieDomain  string        `mapstructure:"cookiedomain"`
	CookieSecure  bool          `mapstructure:"cookiesecure"`
}

// TokensConfig controls the lifetime of single-use tokens.
type TokensConfig struct {
	PasswordResetTTL time.Duration `mapstructure:"passwordresetttl"`
	EmailVerifyTTL   time.Duration `mapstructure:"emailverifyttl"`
}

// OAuthConfig holds provider-independent identity linking settings.
type OAuthConfig struct {
	// AllowEmailLinking permits attaching a provider identity to an existing account
	// with the same email. Only provider-verified emails are ever linked.
	AllowEmailLinking bool `mapstructure:"allowemaillinking"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"clientid"`
	ClientSecret string `mapstructure:"clientsecret"`
	RedirectURL  string `mapstructure:"redirecturl"`
}

type AppleConfig struct {
	ClientID    string `mapstructure:"clientid"`
	TeamID      string `mapstructure:"teamid"`
	KeyID       string `mapstructure:"keyid"`
	PrivateKey  string `mapstructure:"privatekey"`
	RedirectURL string `mapstructure:"redirecturl"`
}

type SMTPConfig struct {
	From     string `mapstructure:"from"`
	Password string `mapstructure:"password"`
	Username string `mapstructure:"username"`
	Port     int    `mapstructure:"port"`
	Host     string `mapstructure:"host"`
}

// AppConfig holds settings about the browser client.
type AppConfig struct {
	FrontendURL string `mapstructure:"frontendurl"`
}

// RateLimitConfig holds the per-action budgets.
type RateLimitConfig struct {
	// Backend is "redis" or "memory".
	Backend           string        `mapstructure:"backend"`
	InterestLimit     int           `mapstructure:"interestlimit"`
	InterestWindow    time.Duration `mapstructure:"interestwindow"`
	ProfileViewLimit  int           `mapstructure:"profileviewlimit"`
	ProfileViewWindow time.Duration `mapstructure:"profileviewwindow"`
}

var envBindings = map[string]string{
	"server.port":                 "SERVER_PORT",
	"server.env":                  "SERVER_ENV",
	"database.url":                "DATABASE_URL",
	"redis.url":                   "REDIS_URL",
	"auth.accesssecret":           "JWT_ACCESS_SECRET",
	"auth.refreshsecret":          "JWT_REFRESH_SECRET",
	"auth.accessttl":              "JWT_ACCESS_TTL",
	"auth.refreshttl":             "JWT_REFRESH_TTL",
	"auth.issuer":                 "JWT_ISSUER",
	"auth.cookiedomain":           "AUTH_COOKIE_DOMAIN",
	"auth.cookiesecure":           "AUTH_COOKIE_SECURE",
	"tokens.passwordresetttl":     "PASSWORD_RESET_TTL",
	"tokens.emailverifyttl":       "EMAIL_VERIFY_TTL",
	"oauth.allowemaillinking":     "OAUTH_ALLOW_EMAIL_LINKING",
	"google.clientid":             "GOOGLE_CLIENT_ID",
	"google.clientsecret":         "GOOGLE_CLIENT_SECRET",
	"google.redirecturl":          "GOOGLE_REDIRECT_URL",
	"apple.clientid":              "APPLE_CLIENT_ID",
	"apple.teamid":                "APPLE_TEAM_ID",
	"apple.keyid":                 "APPLE_KEY_ID",
	"apple.privatekey":            "APPLE_PRIVATE_KEY",
	"apple.redirecturl":           "APPLE_REDIRECT_URL",
	"smtp.from":                   "SMTP_FROM",
	"smtp.password":               "SMTP_PASSWORD",
	"smtp.username":               "SMTP_USERNAME",
	"smtp.port":                   "SMTP_PORT",
	"smtp.host":                   "SMTP_HOST",
	"app.frontendurl":             "FRONTEND_URL",
	"ratelimit.backend":           "RATE_LIMIT_BACKEND",
	"ratelimit.interestlimit":     "RATE_LIMIT_INTEREST_LIMIT",
	"ratelimit.interestwindow":    "RATE_LIMIT_INTEREST_WINDOW",
	"ratelimit.profileviewlimit":  "RATE_LIMIT_PROFILE_VIEW_LIMIT",
	"ratelimit.profileviewwindow": "RATE_LIMIT_PROFILE_VIEW_WINDOW",
}

// Load creates a new Config object from the .env file and environment variables.
func Load() *Config {
	// Load .env into process environment for BindEnv to work with file-based envs
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ godotenv could not load .env: %v", err)
	} else {
		log.Printf("ℹ️ .env loaded into process environment via godotenv")
	}

	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("oauth.allowemaillinking", true)
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		// We can still proceed if all config is set via environment variables.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Fatalf("❌ Error reading config file: %s", err)
		}
		log.Printf("⚠️ .env file not found, relying on environment variables")
	} else {
		log.Printf("ℹ️ Using config file: %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("❌ Unable to decode config into struct: %v", err)
	}
	cfg.applyDefaults()

	log.Printf("🔎 Config after Unmarshal: Server.Port=%q Server.Env=%q RateLimit.Backend=%q AccessSecretEmpty=%t RefreshSecretEmpty=%t",
		cfg.Server.Port,
		cfg.Server.Env,
		cfg.RateLimit.Backend,
		cfg.Auth.AccessSecret == "",
		cfg.Auth.RefreshSecret == "",
	)

	log.Println("✅ Configuration loaded successfully")
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Auth.AccessTTL <= 0 {
		c.Auth.AccessTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTTL <= 0 {
		c.Auth.RefreshTTL = 30 * 24 * time.Hour
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "matrimony-api"
	}
	if c.Tokens.PasswordResetTTL <= 0 {
		c.Tokens.PasswordResetTTL = time.Hour
	}
	if c.Tokens.EmailVerifyTTL <= 0 {
		c.Tokens.EmailVerifyTTL = 24 * time.Hour
	}
	if c.App.FrontendURL == "" {
		c.App.FrontendURL = "http://localhost:3000"
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "redis"
	}
	if c.RateLimit.InterestLimit <= 0 {
		c.RateLimit.InterestLimit = 10
	}
	if c.RateLimit.InterestWindow <= 0 {
		c.RateLimit.InterestWindow = 24 * time.Hour
	}
	if c.RateLimit.ProfileViewLimit <= 0 {
		c.RateLimit.ProfileViewLimit = 10
	}
	if c.RateLimit.ProfileViewWindow <= 0 {
		c.RateLimit.ProfileViewWindow = time.Minute
	}
}

// Validate reports configuration that would make the auth core unsafe to run.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET is required"))
	}
	if c.Auth.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET is required"))
	}
	if c.Auth.AccessSecret != "" && c.Auth.AccessSecret == c.Auth.RefreshSecret {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RateLimit.Backend != "redis" && c.RateLimit.Backend != "memory" {
		errs = append(errs, errors.New("RATE_LIMIT_BACKEND must be redis or memory"))
	}
	if c.RateLimit.Backend == "redis" && c.Redis.URL == "" {
		errs = append(errs, errors.New("REDIS_URL is required for the redis rate limit backend"))
	}
	return errors.Join(errs...)
}
