// Package config provides configuration management for dsearchd.
// It supports loading configuration from environment variables, files (YAML/JSON),
// and defaults, with a clear precedence order: env > file > defaults.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dsearch/dsearchd/internal/validation"
	"gopkg.in/yaml.v3"
)

// Config represents the complete dsearchd configuration.
type Config struct {
	Server        ServerConfig        `json:"server" yaml:"server"`
	Database      DatabaseConfig      `json:"database" yaml:"database"`
	Ingest        IngestConfig        `json:"ingest" yaml:"ingest"`
	Embedding     EmbeddingConfig     `json:"embedding" yaml:"embedding"`
	Logging       LoggingConfig       `json:"logging" yaml:"logging"`
	Auth          AuthConfig          `json:"auth" yaml:"auth"`
	Security      SecurityConfig      `json:"security" yaml:"security"`
	CORS          CORSConfig          `json:"cors" yaml:"cors"`
	TLS           TLSConfig           `json:"tls" yaml:"tls"`
	RateLimit     RateLimitConfig     `json:"rate_limit" yaml:"rate_limit"`
	Observability ObservabilityConfig `json:"observability" yaml:"observability"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// DatabaseConfig holds the paths to the daemon's SQLite-backed stores.
type DatabaseConfig struct {
	ChunkStorePath string `json:"chunk_store_path" yaml:"chunk_store_path"`
	LedgerPath     string `json:"ledger_path" yaml:"ledger_path"`
	RegistryPath   string `json:"registry_path" yaml:"registry_path"`
	AuthPath       string `json:"auth_path" yaml:"auth_path"`
	LexIndexPath   string `json:"lex_index_path" yaml:"lex_index_path"`
}

// IngestConfig holds the directory ingest pipeline's tuning knobs. Unlike
// the directory set itself (registered dynamically via the API), these
// apply uniformly across every registered directory.
type IngestConfig struct {
	ChunkSize    int      `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int      `json:"chunk_overlap" yaml:"chunk_overlap"`
	MaxFileSize  int64    `json:"max_file_size" yaml:"max_file_size"`
	Concurrency  int      `json:"concurrency" yaml:"concurrency"`
	SkipPatterns []string `json:"skip_patterns" yaml:"skip_patterns"`

	// EmbedTimeoutSeconds bounds each embed batch call during ingest.
	EmbedTimeoutSeconds int `json:"embed_timeout_seconds" yaml:"embed_timeout_seconds"`

	// DegradedMode, when true, downgrades a batch to keyword-only indexing
	// instead of failing the whole directory task when the embedder fails.
	DegradedMode bool `json:"degraded_mode" yaml:"degraded_mode"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider   string                 `json:"provider" yaml:"provider"`
	Model      string                 `json:"model" yaml:"model"`
	Dimensions int                    `json:"dimensions" yaml:"dimensions"`
	Config     map[string]interface{} `json:"config" yaml:"config"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// AuthConfig holds auth gate configuration: the optional JWT exchange used
// by /api/v1/auth/login, and the process-wide admin key required by the
// key-lifecycle routes.
type AuthConfig struct {
	JWTEnabled  bool   `json:"jwt_enabled" yaml:"jwt_enabled"`
	Issuer      string `json:"issuer" yaml:"issuer"`
	Audience    string `json:"audience" yaml:"audience"`
	PublicKey   string `json:"public_key" yaml:"public_key"`
	PrivateKey  string `json:"private_key" yaml:"private_key"`
	TokenExpiry int    `json:"token_expiry" yaml:"token_expiry"` // in minutes
	AdminKey    string `json:"admin_key" yaml:"admin_key"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
	Sentry  SentryConfig  `json:"sentry" yaml:"sentry"`
	Audit   AuditConfig   `json:"audit" yaml:"audit"`
}

// AuditConfig holds audit-log configuration for administrative operations
// (API key issuance/revocation, directory registration/removal).
type AuditConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	FilePath string `json:"file_path" yaml:"file_path"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Endpoint   string  `json:"endpoint" yaml:"endpoint"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// SentryConfig holds Sentry error monitoring configuration.
type SentryConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	DSN         string  `json:"dsn" yaml:"dsn"`
	Environment string  `json:"environment" yaml:"environment"`
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`
	Release     string  `json:"release" yaml:"release"`
}

// SecurityConfig holds security headers configuration.
type SecurityConfig struct {
	CSP                 CSPConfig  `json:"csp" yaml:"csp"`
	HSTS                HSTSConfig `json:"hsts" yaml:"hsts"`
	XFrameOptions       string     `json:"x_frame_options" yaml:"x_frame_options"`
	XContentTypeOptions string     `json:"x_content_type_options" yaml:"x_content_type_options"`
	ReferrerPolicy      string     `json:"referrer_policy" yaml:"referrer_policy"`
	PermissionsPolicy   string     `json:"permissions_policy" yaml:"permissions_policy"`
}

// CSPConfig holds Content Security Policy configuration.
type CSPConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled"`
	Default []string `json:"default" yaml:"default"`
	Script  []string `json:"script" yaml:"script"`
	Style   []string `json:"style" yaml:"style"`
	Image   []string `json:"image" yaml:"image"`
	Font    []string `json:"font" yaml:"font"`
	Connect []string `json:"connect" yaml:"connect"`
	Media   []string `json:"media" yaml:"media"`
	Object  []string `json:"object" yaml:"object"`
	Frame   []string `json:"frame" yaml:"frame"`
	Report  string   `json:"report" yaml:"report"`
}

// HSTSConfig holds HTTP Strict Transport Security configuration.
type HSTSConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	MaxAge            int  `json:"max_age" yaml:"max_age"`
	IncludeSubdomains bool `json:"include_subdomains" yaml:"include_subdomains"`
	Preload           bool `json:"preload" yaml:"preload"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Enabled          bool     `json:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `json:"max_age" yaml:"max_age"`
}

// TLSConfig holds TLS/HTTPS configuration. dsearchd runs as a local
// daemon, so this is a thin pass-through to crypto/tls rather than the
// full ACME auto-cert surface a public-facing server would need.
type TLSConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	MinVersion string `json:"min_version" yaml:"min_version"`
}

// RateLimitConfig holds rate limiting configuration, keyed by route class
// rather than by individual endpoint: Global, Search, and Index.
type RateLimitConfig struct {
	Enabled         bool                 `json:"enabled" yaml:"enabled"`
	Algorithm       string               `json:"algorithm" yaml:"algorithm"`
	Redis           RateLimitRedisConfig `json:"redis" yaml:"redis"`
	Global          RateLimitRuleConfig  `json:"global" yaml:"global"`
	Search          RateLimitRuleConfig  `json:"search" yaml:"search"`
	Index           RateLimitRuleConfig  `json:"index" yaml:"index"`
	BurstMultiplier float64              `json:"burst_multiplier" yaml:"burst_multiplier"`
	CleanupInterval time.Duration        `json:"cleanup_interval" yaml:"cleanup_interval"`
	SkipPaths       []string             `json:"skip_paths" yaml:"skip_paths"`
	SkipIPs         []string             `json:"skip_ips" yaml:"skip_ips"`
	TrustedProxies  []string             `json:"trusted_proxies" yaml:"trusted_proxies"`
}

// RateLimitRedisConfig holds Redis configuration for rate limiting.
type RateLimitRedisConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RateLimitRuleConfig holds rate limit configuration for a specific route class.
type RateLimitRuleConfig struct {
	Requests int           `json:"requests" yaml:"requests"`
	Window   time.Duration `json:"window" yaml:"window"`
}

// Default values
const (
	DefaultHost                 = "127.0.0.1"
	DefaultPort                 = 8420
	DefaultChunkStorePath       = "./data/chunks.db"
	DefaultLedgerPath           = "./data/ledger.db"
	DefaultRegistryPath         = "./data/registry.db"
	DefaultAuthPath             = "./data/auth.db"
	DefaultLexIndexPath         = "./data/lexindex.gob"
	DefaultChunkSize            = 512
	DefaultChunkOverlap         = 50
	DefaultMaxFileSize          = 50 * 1024 * 1024
	DefaultIngestConcurrency    = 5
	DefaultEmbedTimeoutSeconds  = 15
	DefaultIngestDegradedMode   = false
	DefaultEmbeddingProvider    = "mock"
	DefaultEmbeddingModel       = "mock-768"
	DefaultEmbeddingDimensions  = 768
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultAuthJWTEnabled       = false
	DefaultAuthIssuer           = "dsearchd"
	DefaultAuthAudience         = "dsearchd-api"
	DefaultAuthTokenExpiry      = 30 // minutes; matches the login-issued token lifetime
	DefaultSecurityCSPEnabled   = true
	DefaultSecurityHSTSEnabled  = false
	DefaultSecurityHSTSMaxAge   = 31536000 // 1 year
	DefaultCORSEnabled          = false
	DefaultCORSMaxAge           = 86400 // 24 hours
	DefaultTLSEnabled           = false
	DefaultTLSMinVersion        = "1.2"
	DefaultMetricsEnabled       = false
	DefaultMetricsPort          = 9091
	DefaultMetricsPath          = "/metrics"
	DefaultTracingEnabled       = false
	DefaultTracingEndpoint      = "http://localhost:4318"
	DefaultSampleRate           = 0.1
	DefaultSentryEnabled        = false
	DefaultSentryDSN            = ""
	DefaultSentryEnv            = "development"
	DefaultSentrySampleRate     = 1.0
	DefaultSentryRelease        = "0.1.0"
	DefaultRateLimitEnabled     = true
	DefaultRateLimitAlgorithm   = "sliding_window"
	DefaultRateLimitGlobalReqs  = 100
	DefaultRateLimitSearchReqs  = 50
	DefaultRateLimitIndexReqs   = 10
	DefaultRateLimitBurstMult   = 1.5
	DefaultRateLimitCleanupSecs = 60
	DefaultAuditEnabled         = false
	DefaultAuditFilePath        = "./data/audit.log"
)

// Valid values for validation
var (
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"json", "text"}
)

// Load loads configuration from environment variables and optional config file.
// Precedence: env vars > config file > defaults.
func Load(ctx context.Context) (*Config, error) {
	cfg := defaults()

	if configFile := os.Getenv("DSEARCHD_CONFIG_FILE"); configFile != "" {
		validatedPath, err := validation.ValidateConfigPath(configFile)
		if err != nil {
			return nil, fmt.Errorf("config file path validation failed: %w", err)
		}

		fileCfg, err := loadFile(validatedPath)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		cfg = merge(cfg, fileCfg)
	}

	cfg = loadEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config with all default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Database: DatabaseConfig{
			ChunkStorePath: DefaultChunkStorePath,
			LedgerPath:     DefaultLedgerPath,
			RegistryPath:   DefaultRegistryPath,
			AuthPath:       DefaultAuthPath,
			LexIndexPath:   DefaultLexIndexPath,
		},
		Ingest: IngestConfig{
			ChunkSize:           DefaultChunkSize,
			ChunkOverlap:        DefaultChunkOverlap,
			MaxFileSize:         DefaultMaxFileSize,
			Concurrency:         DefaultIngestConcurrency,
			EmbedTimeoutSeconds: DefaultEmbedTimeoutSeconds,
			DegradedMode:        DefaultIngestDegradedMode,
		},
		Embedding: EmbeddingConfig{
			Provider:   DefaultEmbeddingProvider,
			Model:      DefaultEmbeddingModel,
			Dimensions: DefaultEmbeddingDimensions,
			Config:     make(map[string]interface{}),
		},
		Logging: LoggingConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Auth: AuthConfig{
			JWTEnabled:  DefaultAuthJWTEnabled,
			Issuer:      DefaultAuthIssuer,
			Audience:    DefaultAuthAudience,
			TokenExpiry: DefaultAuthTokenExpiry,
		},
		Security: SecurityConfig{
			CSP: CSPConfig{
				Enabled: DefaultSecurityCSPEnabled,
				Default: []string{"'none'"},
				Script:  []string{"'self'"},
				Style:   []string{"'self'"},
				Image:   []string{"'self'"},
				Font:    []string{"'self'"},
				Connect: []string{"'self'"},
				Media:   []string{"'none'"},
				Object:  []string{"'none'"},
				Frame:   []string{"'none'"},
			},
			HSTS: HSTSConfig{
				Enabled:           DefaultSecurityHSTSEnabled,
				MaxAge:            DefaultSecurityHSTSMaxAge,
				IncludeSubdomains: true,
				Preload:           false,
			},
			XFrameOptions:       "DENY",
			XContentTypeOptions: "nosniff",
			ReferrerPolicy:      "strict-origin-when-cross-origin",
			PermissionsPolicy:   "camera=(), microphone=(), geolocation=(), payment=()",
		},
		CORS: CORSConfig{
			Enabled:          DefaultCORSEnabled,
			AllowedOrigins:   []string{},
			AllowedMethods:   []string{"GET", "POST", "DELETE"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-API-Key", "X-Admin-Key"},
			ExposedHeaders:   []string{},
			AllowCredentials: false,
			MaxAge:           DefaultCORSMaxAge,
		},
		TLS: TLSConfig{
			Enabled:    DefaultTLSEnabled,
			MinVersion: DefaultTLSMinVersion,
		},
		RateLimit: RateLimitConfig{
			Enabled:         DefaultRateLimitEnabled,
			Algorithm:       DefaultRateLimitAlgorithm,
			Global:          RateLimitRuleConfig{Requests: DefaultRateLimitGlobalReqs, Window: time.Minute},
			Search:          RateLimitRuleConfig{Requests: DefaultRateLimitSearchReqs, Window: time.Minute},
			Index:           RateLimitRuleConfig{Requests: DefaultRateLimitIndexReqs, Window: time.Minute},
			BurstMultiplier: DefaultRateLimitBurstMult,
			CleanupInterval: DefaultRateLimitCleanupSecs * time.Second,
			SkipPaths:       []string{"/health", "/api/info"},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: DefaultMetricsEnabled,
				Port:    DefaultMetricsPort,
				Path:    DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				Enabled:    DefaultTracingEnabled,
				Endpoint:   DefaultTracingEndpoint,
				SampleRate: DefaultSampleRate,
			},
			Sentry: SentryConfig{
				Enabled:     DefaultSentryEnabled,
				DSN:         DefaultSentryDSN,
				Environment: DefaultSentryEnv,
				SampleRate:  DefaultSentrySampleRate,
				Release:     DefaultSentryRelease,
			},
			Audit: AuditConfig{
				Enabled:  DefaultAuditEnabled,
				FilePath: DefaultAuditFilePath,
			},
		},
	}
}

// loadFile loads configuration from a YAML or JSON file.
func loadFile(path string) (*Config, error) {
	safePath := filepath.Clean(path)

	data, err := os.ReadFile(safePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	cfg := &Config{}
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}

	return cfg, nil
}

// loadEnv loads configuration from environment variables.
// Only overrides non-zero values from the provided config.
func loadEnv(cfg *Config) *Config {
	if host := os.Getenv("DSEARCHD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("DSEARCHD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if path := os.Getenv("DSEARCHD_CHUNK_STORE_PATH"); path != "" {
		cfg.Database.ChunkStorePath = path
	}
	if path := os.Getenv("DSEARCHD_LEDGER_PATH"); path != "" {
		cfg.Database.LedgerPath = path
	}
	if path := os.Getenv("DSEARCHD_REGISTRY_PATH"); path != "" {
		cfg.Database.RegistryPath = path
	}
	if path := os.Getenv("DSEARCHD_AUTH_PATH"); path != "" {
		cfg.Database.AuthPath = path
	}
	if path := os.Getenv("DSEARCHD_LEX_INDEX_PATH"); path != "" {
		cfg.Database.LexIndexPath = path
	}

	if chunkSize := os.Getenv("DSEARCHD_CHUNK_SIZE"); chunkSize != "" {
		if cs, err := strconv.Atoi(chunkSize); err == nil {
			cfg.Ingest.ChunkSize = cs
		}
	}
	if chunkOverlap := os.Getenv("DSEARCHD_CHUNK_OVERLAP"); chunkOverlap != "" {
		if co, err := strconv.Atoi(chunkOverlap); err == nil {
			cfg.Ingest.ChunkOverlap = co
		}
	}
	if maxFileSize := os.Getenv("DSEARCHD_MAX_FILE_SIZE"); maxFileSize != "" {
		if mfs, err := strconv.ParseInt(maxFileSize, 10, 64); err == nil {
			cfg.Ingest.MaxFileSize = mfs
		}
	}
	if concurrency := os.Getenv("DSEARCHD_INGEST_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			cfg.Ingest.Concurrency = c
		}
	}
	if skipPatterns := os.Getenv("DSEARCHD_SKIP_PATTERNS"); skipPatterns != "" {
		cfg.Ingest.SkipPatterns = splitCSV(skipPatterns)
	}
	if embedTimeout := os.Getenv("DSEARCHD_EMBED_TIMEOUT_SECONDS"); embedTimeout != "" {
		if et, err := strconv.Atoi(embedTimeout); err == nil {
			cfg.Ingest.EmbedTimeoutSeconds = et
		}
	}
	if degradedMode := os.Getenv("DSEARCHD_INGEST_DEGRADED_MODE"); degradedMode != "" {
		if dm, err := strconv.ParseBool(degradedMode); err == nil {
			cfg.Ingest.DegradedMode = dm
		}
	}

	if provider := os.Getenv("DSEARCHD_EMBEDDING_PROVIDER"); provider != "" {
		cfg.Embedding.Provider = provider
	}
	if model := os.Getenv("DSEARCHD_EMBEDDING_MODEL"); model != "" {
		cfg.Embedding.Model = model
	}
	if dimensions := os.Getenv("DSEARCHD_EMBEDDING_DIMENSIONS"); dimensions != "" {
		if dim, err := strconv.Atoi(dimensions); err == nil {
			cfg.Embedding.Dimensions = dim
		}
	}
	if apiKey := os.Getenv("DSEARCHD_EMBEDDING_API_KEY"); apiKey != "" {
		cfg.Embedding.Config["api_key"] = apiKey
	}

	if logLevel := os.Getenv("DSEARCHD_LOG_LEVEL"); logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("DSEARCHD_LOG_FORMAT"); logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	if metricsEnabled := os.Getenv("DSEARCHD_METRICS_ENABLED"); metricsEnabled != "" {
		if enabled, err := strconv.ParseBool(metricsEnabled); err == nil {
			cfg.Observability.Metrics.Enabled = enabled
		}
	}
	if metricsPort := os.Getenv("DSEARCHD_METRICS_PORT"); metricsPort != "" {
		if port, err := strconv.Atoi(metricsPort); err == nil {
			cfg.Observability.Metrics.Port = port
		}
	}
	if metricsPath := os.Getenv("DSEARCHD_METRICS_PATH"); metricsPath != "" {
		cfg.Observability.Metrics.Path = metricsPath
	}

	if tracingEnabled := os.Getenv("DSEARCHD_TRACING_ENABLED"); tracingEnabled != "" {
		if enabled, err := strconv.ParseBool(tracingEnabled); err == nil {
			cfg.Observability.Tracing.Enabled = enabled
		}
	}
	if tracingEndpoint := os.Getenv("DSEARCHD_TRACING_ENDPOINT"); tracingEndpoint != "" {
		cfg.Observability.Tracing.Endpoint = tracingEndpoint
	}
	if sampleRate := os.Getenv("DSEARCHD_TRACING_SAMPLE_RATE"); sampleRate != "" {
		if rate, err := strconv.ParseFloat(sampleRate, 64); err == nil {
			cfg.Observability.Tracing.SampleRate = rate
		}
	}

	if sentryEnabled := os.Getenv("DSEARCHD_SENTRY_ENABLED"); sentryEnabled != "" {
		if enabled, err := strconv.ParseBool(sentryEnabled); err == nil {
			cfg.Observability.Sentry.Enabled = enabled
		}
	}
	if sentryDSN := os.Getenv("DSEARCHD_SENTRY_DSN"); sentryDSN != "" {
		cfg.Observability.Sentry.DSN = sentryDSN
	}
	if sentryEnv := os.Getenv("DSEARCHD_SENTRY_ENVIRONMENT"); sentryEnv != "" {
		cfg.Observability.Sentry.Environment = sentryEnv
	}
	if sentrySampleRate := os.Getenv("DSEARCHD_SENTRY_SAMPLE_RATE"); sentrySampleRate != "" {
		if rate, err := strconv.ParseFloat(sentrySampleRate, 64); err == nil {
			cfg.Observability.Sentry.SampleRate = rate
		}
	}
	if sentryRelease := os.Getenv("DSEARCHD_SENTRY_RELEASE"); sentryRelease != "" {
		cfg.Observability.Sentry.Release = sentryRelease
	}

	if auditEnabled := os.Getenv("DSEARCHD_AUDIT_ENABLED"); auditEnabled != "" {
		if enabled, err := strconv.ParseBool(auditEnabled); err == nil {
			cfg.Observability.Audit.Enabled = enabled
		}
	}
	if auditPath := os.Getenv("DSEARCHD_AUDIT_FILE_PATH"); auditPath != "" {
		cfg.Observability.Audit.FilePath = auditPath
	}

	if authEnabled := os.Getenv("DSEARCHD_AUTH_JWT_ENABLED"); authEnabled != "" {
		if enabled, err := strconv.ParseBool(authEnabled); err == nil {
			cfg.Auth.JWTEnabled = enabled
		}
	}
	if authIssuer := os.Getenv("DSEARCHD_AUTH_ISSUER"); authIssuer != "" {
		cfg.Auth.Issuer = authIssuer
	}
	if authAudience := os.Getenv("DSEARCHD_AUTH_AUDIENCE"); authAudience != "" {
		cfg.Auth.Audience = authAudience
	}
	if authPublicKey := os.Getenv("DSEARCHD_AUTH_PUBLIC_KEY"); authPublicKey != "" {
		cfg.Auth.PublicKey = authPublicKey
	}
	if authPrivateKey := os.Getenv("DSEARCHD_AUTH_PRIVATE_KEY"); authPrivateKey != "" {
		cfg.Auth.PrivateKey = authPrivateKey
	}
	if authTokenExpiry := os.Getenv("DSEARCHD_AUTH_TOKEN_EXPIRY"); authTokenExpiry != "" {
		if expiry, err := strconv.Atoi(authTokenExpiry); err == nil {
			cfg.Auth.TokenExpiry = expiry
		}
	}
	if adminKey := os.Getenv("DSEARCHD_ADMIN_KEY"); adminKey != "" {
		cfg.Auth.AdminKey = adminKey
	}

	if securityCSPEnabled := os.Getenv("DSEARCHD_SECURITY_CSP_ENABLED"); securityCSPEnabled != "" {
		if enabled, err := strconv.ParseBool(securityCSPEnabled); err == nil {
			cfg.Security.CSP.Enabled = enabled
		}
	}
	if securityHSTSEnabled := os.Getenv("DSEARCHD_SECURITY_HSTS_ENABLED"); securityHSTSEnabled != "" {
		if enabled, err := strconv.ParseBool(securityHSTSEnabled); err == nil {
			cfg.Security.HSTS.Enabled = enabled
		}
	}
	if securityXFrameOptions := os.Getenv("DSEARCHD_SECURITY_X_FRAME_OPTIONS"); securityXFrameOptions != "" {
		cfg.Security.XFrameOptions = securityXFrameOptions
	}
	if securityReferrerPolicy := os.Getenv("DSEARCHD_SECURITY_REFERRER_POLICY"); securityReferrerPolicy != "" {
		cfg.Security.ReferrerPolicy = securityReferrerPolicy
	}

	if corsEnabled := os.Getenv("DSEARCHD_CORS_ENABLED"); corsEnabled != "" {
		if enabled, err := strconv.ParseBool(corsEnabled); err == nil {
			cfg.CORS.Enabled = enabled
		}
	}
	if corsAllowedOrigins := os.Getenv("DSEARCHD_CORS_ALLOWED_ORIGINS"); corsAllowedOrigins != "" {
		cfg.CORS.AllowedOrigins = splitCSV(corsAllowedOrigins)
	}
	if corsAllowedMethods := os.Getenv("DSEARCHD_CORS_ALLOWED_METHODS"); corsAllowedMethods != "" {
		cfg.CORS.AllowedMethods = splitCSV(corsAllowedMethods)
	}
	if corsAllowedHeaders := os.Getenv("DSEARCHD_CORS_ALLOWED_HEADERS"); corsAllowedHeaders != "" {
		cfg.CORS.AllowedHeaders = splitCSV(corsAllowedHeaders)
	}
	if corsAllowCredentials := os.Getenv("DSEARCHD_CORS_ALLOW_CREDENTIALS"); corsAllowCredentials != "" {
		if allow, err := strconv.ParseBool(corsAllowCredentials); err == nil {
			cfg.CORS.AllowCredentials = allow
		}
	}

	if tlsEnabled := os.Getenv("DSEARCHD_TLS_ENABLED"); tlsEnabled != "" {
		if enabled, err := strconv.ParseBool(tlsEnabled); err == nil {
			cfg.TLS.Enabled = enabled
		}
	}
	if tlsCertFile := os.Getenv("DSEARCHD_TLS_CERT_FILE"); tlsCertFile != "" {
		cfg.TLS.CertFile = tlsCertFile
	}
	if tlsKeyFile := os.Getenv("DSEARCHD_TLS_KEY_FILE"); tlsKeyFile != "" {
		cfg.TLS.KeyFile = tlsKeyFile
	}
	if tlsMinVersion := os.Getenv("DSEARCHD_TLS_MIN_VERSION"); tlsMinVersion != "" {
		cfg.TLS.MinVersion = tlsMinVersion
	}

	if rateLimitEnabled := os.Getenv("DSEARCHD_RATE_LIMIT_ENABLED"); rateLimitEnabled != "" {
		if enabled, err := strconv.ParseBool(rateLimitEnabled); err == nil {
			cfg.RateLimit.Enabled = enabled
		}
	}
	if rateLimitAlgorithm := os.Getenv("DSEARCHD_RATE_LIMIT_ALGORITHM"); rateLimitAlgorithm != "" {
		cfg.RateLimit.Algorithm = rateLimitAlgorithm
	}
	if redisEnabled := os.Getenv("DSEARCHD_RATE_LIMIT_REDIS_ENABLED"); redisEnabled != "" {
		if enabled, err := strconv.ParseBool(redisEnabled); err == nil {
			cfg.RateLimit.Redis.Enabled = enabled
		}
	}
	if redisAddr := os.Getenv("DSEARCHD_RATE_LIMIT_REDIS_ADDR"); redisAddr != "" {
		cfg.RateLimit.Redis.Addr = redisAddr
	}
	if redisPassword := os.Getenv("DSEARCHD_RATE_LIMIT_REDIS_PASSWORD"); redisPassword != "" {
		cfg.RateLimit.Redis.Password = redisPassword
	}
	if redisDB := os.Getenv("DSEARCHD_RATE_LIMIT_REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.RateLimit.Redis.DB = db
		}
	}
	if globalReqs := os.Getenv("DSEARCHD_RATE_LIMIT_GLOBAL_REQUESTS"); globalReqs != "" {
		if requests, err := strconv.Atoi(globalReqs); err == nil {
			cfg.RateLimit.Global.Requests = requests
		}
	}
	if globalWindow := os.Getenv("DSEARCHD_RATE_LIMIT_GLOBAL_WINDOW"); globalWindow != "" {
		if window, err := time.ParseDuration(globalWindow); err == nil {
			cfg.RateLimit.Global.Window = window
		}
	}
	if searchReqs := os.Getenv("DSEARCHD_RATE_LIMIT_SEARCH_REQUESTS"); searchReqs != "" {
		if requests, err := strconv.Atoi(searchReqs); err == nil {
			cfg.RateLimit.Search.Requests = requests
		}
	}
	if searchWindow := os.Getenv("DSEARCHD_RATE_LIMIT_SEARCH_WINDOW"); searchWindow != "" {
		if window, err := time.ParseDuration(searchWindow); err == nil {
			cfg.RateLimit.Search.Window = window
		}
	}
	if indexReqs := os.Getenv("DSEARCHD_RATE_LIMIT_INDEX_REQUESTS"); indexReqs != "" {
		if requests, err := strconv.Atoi(indexReqs); err == nil {
			cfg.RateLimit.Index.Requests = requests
		}
	}
	if indexWindow := os.Getenv("DSEARCHD_RATE_LIMIT_INDEX_WINDOW"); indexWindow != "" {
		if window, err := time.ParseDuration(indexWindow); err == nil {
			cfg.RateLimit.Index.Window = window
		}
	}
	if burstMultiplier := os.Getenv("DSEARCHD_RATE_LIMIT_BURST_MULTIPLIER"); burstMultiplier != "" {
		if multiplier, err := strconv.ParseFloat(burstMultiplier, 64); err == nil {
			cfg.RateLimit.BurstMultiplier = multiplier
		}
	}
	if cleanupInterval := os.Getenv("DSEARCHD_RATE_LIMIT_CLEANUP_INTERVAL"); cleanupInterval != "" {
		if interval, err := time.ParseDuration(cleanupInterval); err == nil {
			cfg.RateLimit.CleanupInterval = interval
		}
	}
	if skipPaths := os.Getenv("DSEARCHD_RATE_LIMIT_SKIP_PATHS"); skipPaths != "" {
		cfg.RateLimit.SkipPaths = splitCSV(skipPaths)
	}
	if trustedProxies := os.Getenv("DSEARCHD_RATE_LIMIT_TRUSTED_PROXIES"); trustedProxies != "" {
		cfg.RateLimit.TrustedProxies = splitCSV(trustedProxies)
	}

	return cfg
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// merge merges two configs, preferring values from 'override' when non-zero.
func merge(base, override *Config) *Config {
	result := *base

	if override.Server.Host != "" {
		result.Server.Host = override.Server.Host
	}
	if override.Server.Port != 0 {
		result.Server.Port = override.Server.Port
	}

	if override.Database.ChunkStorePath != "" {
		result.Database.ChunkStorePath = override.Database.ChunkStorePath
	}
	if override.Database.LedgerPath != "" {
		result.Database.LedgerPath = override.Database.LedgerPath
	}
	if override.Database.RegistryPath != "" {
		result.Database.RegistryPath = override.Database.RegistryPath
	}
	if override.Database.AuthPath != "" {
		result.Database.AuthPath = override.Database.AuthPath
	}
	if override.Database.LexIndexPath != "" {
		result.Database.LexIndexPath = override.Database.LexIndexPath
	}

	if override.Ingest.ChunkSize != 0 {
		result.Ingest.ChunkSize = override.Ingest.ChunkSize
	}
	if override.Ingest.ChunkOverlap != 0 {
		result.Ingest.ChunkOverlap = override.Ingest.ChunkOverlap
	}
	if override.Ingest.MaxFileSize != 0 {
		result.Ingest.MaxFileSize = override.Ingest.MaxFileSize
	}
	if override.Ingest.Concurrency != 0 {
		result.Ingest.Concurrency = override.Ingest.Concurrency
	}
	if len(override.Ingest.SkipPatterns) > 0 {
		result.Ingest.SkipPatterns = override.Ingest.SkipPatterns
	}
	if override.Ingest.EmbedTimeoutSeconds != 0 {
		result.Ingest.EmbedTimeoutSeconds = override.Ingest.EmbedTimeoutSeconds
	}
	if override.Ingest.DegradedMode {
		result.Ingest.DegradedMode = override.Ingest.DegradedMode
	}

	if override.Embedding.Provider != "" {
		result.Embedding.Provider = override.Embedding.Provider
	}
	if override.Embedding.Model != "" {
		result.Embedding.Model = override.Embedding.Model
	}
	if override.Embedding.Dimensions != 0 {
		result.Embedding.Dimensions = override.Embedding.Dimensions
	}
	if override.Embedding.Config != nil {
		result.Embedding.Config = override.Embedding.Config
	}

	if override.Logging.Level != "" {
		result.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		result.Logging.Format = override.Logging.Format
	}

	if override.Observability.Metrics.Enabled != DefaultMetricsEnabled {
		result.Observability.Metrics.Enabled = override.Observability.Metrics.Enabled
	}
	if override.Observability.Metrics.Port != 0 {
		result.Observability.Metrics.Port = override.Observability.Metrics.Port
	}
	if override.Observability.Metrics.Path != "" {
		result.Observability.Metrics.Path = override.Observability.Metrics.Path
	}

	if override.Observability.Tracing.Enabled != DefaultTracingEnabled {
		result.Observability.Tracing.Enabled = override.Observability.Tracing.Enabled
	}
	if override.Observability.Tracing.Endpoint != "" {
		result.Observability.Tracing.Endpoint = override.Observability.Tracing.Endpoint
	}
	if override.Observability.Tracing.SampleRate != 0 {
		result.Observability.Tracing.SampleRate = override.Observability.Tracing.SampleRate
	}

	if override.Observability.Sentry.Enabled != DefaultSentryEnabled {
		result.Observability.Sentry.Enabled = override.Observability.Sentry.Enabled
	}
	if override.Observability.Sentry.DSN != "" {
		result.Observability.Sentry.DSN = override.Observability.Sentry.DSN
	}
	if override.Observability.Sentry.Environment != "" {
		result.Observability.Sentry.Environment = override.Observability.Sentry.Environment
	}
	if override.Observability.Sentry.SampleRate != 0 {
		result.Observability.Sentry.SampleRate = override.Observability.Sentry.SampleRate
	}
	if override.Observability.Sentry.Release != "" {
		result.Observability.Sentry.Release = override.Observability.Sentry.Release
	}

	if override.Observability.Audit.Enabled != DefaultAuditEnabled {
		result.Observability.Audit.Enabled = override.Observability.Audit.Enabled
	}
	if override.Observability.Audit.FilePath != "" {
		result.Observability.Audit.FilePath = override.Observability.Audit.FilePath
	}

	if override.Auth.JWTEnabled != DefaultAuthJWTEnabled {
		result.Auth.JWTEnabled = override.Auth.JWTEnabled
	}
	if override.Auth.Issuer != "" {
		result.Auth.Issuer = override.Auth.Issuer
	}
	if override.Auth.Audience != "" {
		result.Auth.Audience = override.Auth.Audience
	}
	if override.Auth.PublicKey != "" {
		result.Auth.PublicKey = override.Auth.PublicKey
	}
	if override.Auth.PrivateKey != "" {
		result.Auth.PrivateKey = override.Auth.PrivateKey
	}
	if override.Auth.TokenExpiry != 0 {
		result.Auth.TokenExpiry = override.Auth.TokenExpiry
	}
	if override.Auth.AdminKey != "" {
		result.Auth.AdminKey = override.Auth.AdminKey
	}

	if override.Security.CSP.Enabled != DefaultSecurityCSPEnabled {
		result.Security.CSP.Enabled = override.Security.CSP.Enabled
	}
	if len(override.Security.CSP.Default) > 0 {
		result.Security.CSP.Default = override.Security.CSP.Default
	}
	if override.Security.HSTS.Enabled != DefaultSecurityHSTSEnabled {
		result.Security.HSTS.Enabled = override.Security.HSTS.Enabled
	}
	if override.Security.HSTS.MaxAge != 0 {
		result.Security.HSTS.MaxAge = override.Security.HSTS.MaxAge
	}
	if override.Security.XFrameOptions != "" {
		result.Security.XFrameOptions = override.Security.XFrameOptions
	}
	if override.Security.XContentTypeOptions != "" {
		result.Security.XContentTypeOptions = override.Security.XContentTypeOptions
	}
	if override.Security.ReferrerPolicy != "" {
		result.Security.ReferrerPolicy = override.Security.ReferrerPolicy
	}
	if override.Security.PermissionsPolicy != "" {
		result.Security.PermissionsPolicy = override.Security.PermissionsPolicy
	}

	if override.CORS.Enabled != DefaultCORSEnabled {
		result.CORS.Enabled = override.CORS.Enabled
	}
	if len(override.CORS.AllowedOrigins) > 0 {
		result.CORS.AllowedOrigins = override.CORS.AllowedOrigins
	}
	if len(override.CORS.AllowedMethods) > 0 {
		result.CORS.AllowedMethods = override.CORS.AllowedMethods
	}
	if len(override.CORS.AllowedHeaders) > 0 {
		result.CORS.AllowedHeaders = override.CORS.AllowedHeaders
	}
	if override.CORS.AllowCredentials {
		result.CORS.AllowCredentials = override.CORS.AllowCredentials
	}
	if override.CORS.MaxAge != 0 {
		result.CORS.MaxAge = override.CORS.MaxAge
	}

	if override.TLS.Enabled != DefaultTLSEnabled {
		result.TLS.Enabled = override.TLS.Enabled
	}
	if override.TLS.CertFile != "" {
		result.TLS.CertFile = override.TLS.CertFile
	}
	if override.TLS.KeyFile != "" {
		result.TLS.KeyFile = override.TLS.KeyFile
	}
	if override.TLS.MinVersion != "" {
		result.TLS.MinVersion = override.TLS.MinVersion
	}

	if override.RateLimit.Enabled != DefaultRateLimitEnabled {
		result.RateLimit.Enabled = override.RateLimit.Enabled
	}
	if override.RateLimit.Algorithm != "" {
		result.RateLimit.Algorithm = override.RateLimit.Algorithm
	}
	if override.RateLimit.Redis.Enabled {
		result.RateLimit.Redis.Enabled = override.RateLimit.Redis.Enabled
	}
	if override.RateLimit.Redis.Addr != "" {
		result.RateLimit.Redis.Addr = override.RateLimit.Redis.Addr
	}
	if override.RateLimit.Global.Requests != 0 {
		result.RateLimit.Global.Requests = override.RateLimit.Global.Requests
	}
	if override.RateLimit.Global.Window != 0 {
		result.RateLimit.Global.Window = override.RateLimit.Global.Window
	}
	if override.RateLimit.Search.Requests != 0 {
		result.RateLimit.Search.Requests = override.RateLimit.Search.Requests
	}
	if override.RateLimit.Search.Window != 0 {
		result.RateLimit.Search.Window = override.RateLimit.Search.Window
	}
	if override.RateLimit.Index.Requests != 0 {
		result.RateLimit.Index.Requests = override.RateLimit.Index.Requests
	}
	if override.RateLimit.Index.Window != 0 {
		result.RateLimit.Index.Window = override.RateLimit.Index.Window
	}
	if override.RateLimit.BurstMultiplier != 0 {
		result.RateLimit.BurstMultiplier = override.RateLimit.BurstMultiplier
	}
	if override.RateLimit.CleanupInterval != 0 {
		result.RateLimit.CleanupInterval = override.RateLimit.CleanupInterval
	}
	if len(override.RateLimit.SkipPaths) > 0 {
		result.RateLimit.SkipPaths = override.RateLimit.SkipPaths
	}
	if len(override.RateLimit.SkipIPs) > 0 {
		result.RateLimit.SkipIPs = override.RateLimit.SkipIPs
	}
	if len(override.RateLimit.TrustedProxies) > 0 {
		result.RateLimit.TrustedProxies = override.RateLimit.TrustedProxies
	}

	return &result
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Database.ChunkStorePath == "" {
		return fmt.Errorf("chunk store path cannot be empty")
	}
	if c.Database.LedgerPath == "" {
		return fmt.Errorf("ledger path cannot be empty")
	}
	if c.Database.RegistryPath == "" {
		return fmt.Errorf("registry path cannot be empty")
	}
	if c.Database.AuthPath == "" {
		return fmt.Errorf("auth path cannot be empty")
	}
	if c.Database.LexIndexPath == "" {
		return fmt.Errorf("lex index path cannot be empty")
	}

	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive: %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative: %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest concurrency must be positive: %d", c.Ingest.Concurrency)
	}
	if c.Ingest.EmbedTimeoutSeconds < 1 {
		return fmt.Errorf("ingest embed timeout must be positive: %d", c.Ingest.EmbedTimeoutSeconds)
	}

	if !contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if !contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s (valid: %v)", c.Logging.Format, ValidLogFormats)
	}

	if c.Observability.Metrics.Enabled {
		if c.Observability.Metrics.Port < 1 || c.Observability.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d (must be 1-65535)", c.Observability.Metrics.Port)
		}
		if c.Observability.Metrics.Path == "" {
			return fmt.Errorf("metrics path cannot be empty when metrics enabled")
		}
	}

	if c.Observability.Tracing.Enabled {
		if c.Observability.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint cannot be empty when tracing enabled")
		}
		if c.Observability.Tracing.SampleRate < 0 || c.Observability.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing sample rate must be between 0 and 1: %f", c.Observability.Tracing.SampleRate)
		}
	}

	if c.Observability.Sentry.Enabled {
		if c.Observability.Sentry.DSN == "" {
			return fmt.Errorf("sentry DSN cannot be empty when sentry enabled")
		}
		if c.Observability.Sentry.SampleRate < 0 || c.Observability.Sentry.SampleRate > 1 {
			return fmt.Errorf("sentry sample rate must be between 0 and 1: %f", c.Observability.Sentry.SampleRate)
		}
	}

	if c.Observability.Audit.Enabled {
		if c.Observability.Audit.FilePath == "" {
			return fmt.Errorf("audit file path cannot be empty when audit enabled")
		}
	}

	if c.Auth.JWTEnabled {
		if c.Auth.Issuer == "" {
			return fmt.Errorf("auth issuer cannot be empty when jwt enabled")
		}
		if c.Auth.Audience == "" {
			return fmt.Errorf("auth audience cannot be empty when jwt enabled")
		}
		if c.Auth.PublicKey == "" {
			return fmt.Errorf("auth public key cannot be empty when jwt enabled")
		}
		if c.Auth.PrivateKey == "" {
			return fmt.Errorf("auth private key cannot be empty when jwt enabled")
		}
		if c.Auth.TokenExpiry <= 0 {
			return fmt.Errorf("auth token expiry must be positive: %d", c.Auth.TokenExpiry)
		}
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert file cannot be empty when TLS enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key file cannot be empty when TLS enabled")
		}
		validTLSVersions := []string{"1.0", "1.1", "1.2", "1.3"}
		if c.TLS.MinVersion != "" && !contains(validTLSVersions, c.TLS.MinVersion) {
			return fmt.Errorf("invalid TLS min version: %s (valid: %v)", c.TLS.MinVersion, validTLSVersions)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Global.Requests < 1 {
			return fmt.Errorf("rate limit global requests must be positive: %d", c.RateLimit.Global.Requests)
		}
		if c.RateLimit.Search.Requests < 1 {
			return fmt.Errorf("rate limit search requests must be positive: %d", c.RateLimit.Search.Requests)
		}
		if c.RateLimit.Index.Requests < 1 {
			return fmt.Errorf("rate limit index requests must be positive: %d", c.RateLimit.Index.Requests)
		}
	}

	return nil
}

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// Default returns a default configuration for testing and documentation.
func Default() *Config {
	return defaults()
}
