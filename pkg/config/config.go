package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StoreDriverFirestore = "firestore"
	StoreDriverMemory    = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Firebase FirebaseConfig
	Admin    AdminConfig
	Session  SessionConfig
	Gate     GateConfig
	Cache    CacheConfig
	Audit    AuditConfig
	Web      WebConfig
	CORS     CORSConfig
	Log      LogConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// FirebaseConfig selects the document store backend and its credentials.
type FirebaseConfig struct {
	Driver          string
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// AdminConfig holds the single super admin credential pair.
type AdminConfig struct {
	Email        string
	Password     string
	PasswordHash string
	SessionTTL   time.Duration
}

// SessionConfig tunes the student session token and its cookies.
type SessionConfig struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	PendingTTL   time.Duration
	CookieSecure bool
	CookieDomain string
}

// GateConfig controls the page request gate.
type GateConfig struct {
	MaxRedirects int
}

// CacheConfig governs the student lookup cache.
type CacheConfig struct {
	RedisEnabled bool
	StudentTTL   time.Duration
}

// AuditConfig toggles the Postgres audit trail.
type AuditConfig struct {
	Enabled bool
}

// WebConfig points at the built frontend served behind the gate.
type WebConfig struct {
	StaticDir string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Firebase = FirebaseConfig{
		Driver:          strings.ToLower(v.GetString("STORE_DRIVER")),
		ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		CredentialsFile: v.GetString("FIREBASE_CREDENTIALS_FILE"),
		CredentialsJSON: v.GetString("FIREBASE_CREDENTIALS_JSON"),
	}

	cfg.Admin = AdminConfig{
		Email:        v.GetString("ADMIN_EMAIL"),
		Password:     v.GetString("ADMIN_PASSWORD"),
		PasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		SessionTTL:   parseDuration(v.GetString("ADMIN_SESSION_TTL"), 30*24*time.Hour),
	}

	cfg.Session = SessionConfig{
		Secret:       v.GetString("SESSION_SECRET"),
		Issuer:       v.GetString("SESSION_ISSUER"),
		TTL:          parseDuration(v.GetString("SESSION_TTL"), 30*24*time.Hour),
		PendingTTL:   parseDuration(v.GetString("PENDING_SELECTION_TTL"), 10*time.Minute),
		CookieSecure: v.GetBool("SESSION_COOKIE_SECURE"),
		CookieDomain: v.GetString("SESSION_COOKIE_DOMAIN"),
	}

	cfg.Gate = GateConfig{MaxRedirects: v.GetInt("GATE_MAX_REDIRECTS")}

	cfg.Cache = CacheConfig{
		RedisEnabled: v.GetBool("ENABLE_REDIS_CACHE"),
		StudentTTL:   parseDuration(v.GetString("STUDENT_CACHE_TTL"), 30*time.Minute),
	}

	cfg.Audit = AuditConfig{Enabled: v.GetBool("ENABLE_AUDIT")}
	cfg.Web = WebConfig{StaticDir: v.GetString("WEB_STATIC_DIR")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "daksh_audit")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("STORE_DRIVER", StoreDriverFirestore)
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_JSON", "")

	v.SetDefault("ADMIN_EMAIL", "admin@example.com")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_SESSION_TTL", "720h")

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_ISSUER", "daksh-api")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("PENDING_SELECTION_TTL", "10m")
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("SESSION_COOKIE_DOMAIN", "")

	v.SetDefault("GATE_MAX_REDIRECTS", 3)

	v.SetDefault("ENABLE_REDIS_CACHE", false)
	v.SetDefault("STUDENT_CACHE_TTL", "30m")
	v.SetDefault("ENABLE_AUDIT", false)
	v.SetDefault("WEB_STATIC_DIR", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// isMissingFile treats an absent .env as "use environment only".
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
