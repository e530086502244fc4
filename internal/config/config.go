package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from env; a local .env file is loaded first when present.
// No business logic should depend on raw environment variables.
type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	Auth    AuthConfig
	Storage StorageConfig
	Ingest  IngestConfig
	Report  ReportConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// AutoMigrate applies the embedded schema on start-up.
	AutoMigrate bool
}

type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig configures verification of operator (head office / sysadmin) access tokens.
// Tokens are minted by the session layer that shares JWT_SECRET.
type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

// StorageConfig points at an S3-compatible bucket for call recordings.
// All of Bucket, AccessKeyID, SecretAccessKey and PublicURL must be set for
// uploads to be enabled; otherwise the process runs with recordings disabled.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
}

func (s StorageConfig) Enabled() bool {
	return s.Bucket != "" && s.AccessKeyID != "" && s.SecretAccessKey != "" && s.PublicURL != ""
}

type IngestConfig struct {
	// MaxRecordingBytes caps a single uploaded recording.
	MaxRecordingBytes int64
	// MaxConcurrentUploads caps in-flight uploads per device.
	MaxConcurrentUploads int
}

type ReportConfig struct {
	// Location is used for "today" and "this month" boundaries.
	Location *time.Location
	// DashboardCacheTTL of zero disables the dashboard cache.
	DashboardCacheTTL time.Duration
}

func Load() (Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	c.DB.AutoMigrate = optionalBool("DB_AUTO_MIGRATE")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	c.Storage.Endpoint = strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT"))
	c.Storage.Region = strings.TrimSpace(os.Getenv("STORAGE_REGION"))
	c.Storage.Bucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))
	c.Storage.AccessKeyID = strings.TrimSpace(os.Getenv("STORAGE_ACCESS_KEY_ID"))
	c.Storage.SecretAccessKey = os.Getenv("STORAGE_SECRET_ACCESS_KEY")
	c.Storage.PublicURL = strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_URL"))

	{
		n, err := optionalInt("UPLOAD_MAX_BYTES")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Ingest.MaxRecordingBytes = int64(n)
	}
	{
		n, err := optionalInt("UPLOAD_MAX_CONCURRENT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Ingest.MaxConcurrentUploads = n
	}

	if tz := strings.TrimSpace(os.Getenv("REPORT_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			parseErrs = append(parseErrs, fmt.Errorf("REPORT_TIMEZONE must be an IANA zone, got %q", tz))
		}
		c.Report.Location = loc
	}
	c.Report.DashboardCacheTTL = mustDuration("DASHBOARD_CACHE_TTL")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}

	if c.Storage.Region == "" {
		c.Storage.Region = "auto"
	}
	if c.IsProduction() && !c.Storage.Enabled() {
		errs = append(errs, errors.New("STORAGE_BUCKET, STORAGE_ACCESS_KEY_ID, STORAGE_SECRET_ACCESS_KEY and STORAGE_PUBLIC_URL are required in production"))
	}

	if c.Ingest.MaxRecordingBytes < 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Ingest.MaxRecordingBytes))
	} else if c.Ingest.MaxRecordingBytes == 0 {
		c.Ingest.MaxRecordingBytes = 50 << 20
	}
	if c.Ingest.MaxConcurrentUploads < 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_CONCURRENT must be positive, got %d", c.Ingest.MaxConcurrentUploads))
	} else if c.Ingest.MaxConcurrentUploads == 0 {
		c.Ingest.MaxConcurrentUploads = 2
	}

	if c.Report.Location == nil {
		c.Report.Location = time.Local
	}
	if c.Report.DashboardCacheTTL < 0 {
		c.Report.DashboardCacheTTL = 0
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && b
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
