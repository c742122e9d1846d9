package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	History    HistoryConfig
	Export     ExportConfig
	Regression RegressionConfig
	Ingest     IngestConfig
	Redis      RedisConfig
	NATS       NATSConfig
	S3         S3Config
	Dynamo     DynamoConfig
	CloudWatch CloudWatchConfig
	Security   SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// HistoryConfig управляет retention истории прогонов.
type HistoryConfig struct {
	MaxRunsPerSuite int
	MaxAge          time.Duration
	TrimInterval    time.Duration
}

// ExportConfig описывает параметры генерируемого data-файла.
type ExportConfig struct {
	RepoURL        string
	XAxis          string
	OneChartGroups []string
	MaxRuns        int
}

// RegressionConfig задает пороги детектора регрессий.
// Порог - отношение предыдущего значения к текущему (для rate-метрик).
type RegressionConfig struct {
	WarningRatio  float64
	CriticalRatio float64
}

type IngestConfig struct {
	MaxPayloadBytes    int64
	RateLimitPerMinute int
}

type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type DynamoConfig struct {
	Enabled         bool
	TableSnapshots  string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
}

type CloudWatchConfig struct {
	MetricsEnabled           bool
	LogsEnabled              bool
	Region                   string
	Endpoint                 string
	AccessKeyID              string
	SecretAccessKey          string
	MetricsNamespace         string
	MetricsDimensions        map[string]string
	MetricsBufferSize        int
	MetricsFlushInterval     time.Duration
	MetricsStorageResolution int32
	LogGroupName             string
	LogStreamName            string
	LogsBufferSize           int
	LogsFlushInterval        time.Duration
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	maxRuns, err := strconv.Atoi(getEnv("HISTORY_MAX_RUNS_PER_SUITE", "200"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_MAX_RUNS_PER_SUITE: %w", err)
	}

	maxAge, err := parseDuration(getEnv("HISTORY_MAX_AGE", "8760h"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_MAX_AGE: %w", err)
	}

	trimInterval, err := parseDuration(getEnv("HISTORY_TRIM_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid HISTORY_TRIM_INTERVAL: %w", err)
	}

	exportMaxRuns, err := strconv.Atoi(getEnv("EXPORT_MAX_RUNS", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid EXPORT_MAX_RUNS: %w", err)
	}

	warningRatio, err := strconv.ParseFloat(getEnv("REGRESSION_WARNING_RATIO", "1.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REGRESSION_WARNING_RATIO: %w", err)
	}

	criticalRatio, err := strconv.ParseFloat(getEnv("REGRESSION_CRITICAL_RATIO", "2.0"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REGRESSION_CRITICAL_RATIO: %w", err)
	}

	if warningRatio <= 1.0 || criticalRatio < warningRatio {
		return nil, fmt.Errorf("regression ratios must satisfy 1.0 < warning <= critical")
	}

	maxPayloadMB, err := strconv.Atoi(getEnv("INGEST_MAX_PAYLOAD_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_MAX_PAYLOAD_MB: %w", err)
	}

	rateLimitPerMinute, err := strconv.Atoi(getEnv("INGEST_RATE_LIMIT_PER_MINUTE", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid INGEST_RATE_LIMIT_PER_MINUTE: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisTTL, err := parseDuration(getEnv("REDIS_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_TTL: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	cwMetricsFlush, err := parseDuration(getEnv("CW_METRICS_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CW_METRICS_FLUSH_INTERVAL: %w", err)
	}

	cwLogsFlush, err := parseDuration(getEnv("CW_LOGS_FLUSH_INTERVAL", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CW_LOGS_FLUSH_INTERVAL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "benchhistory"),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		},
		History: HistoryConfig{
			MaxRunsPerSuite: maxRuns,
			MaxAge:          maxAge,
			TrimInterval:    trimInterval,
		},
		Export: ExportConfig{
			RepoURL:        getEnv("EXPORT_REPO_URL", ""),
			XAxis:          getEnv("EXPORT_X_AXIS", "id"),
			OneChartGroups: splitCSV(getEnv("EXPORT_ONE_CHART_GROUPS", "")),
			MaxRuns:        exportMaxRuns,
		},
		Regression: RegressionConfig{
			WarningRatio:  warningRatio,
			CriticalRatio: criticalRatio,
		},
		Ingest: IngestConfig{
			MaxPayloadBytes:    int64(maxPayloadMB) * 1024 * 1024,
			RateLimitPerMinute: rateLimitPerMinute,
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			TTL:          redisTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		NATS: NATSConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
		},
		S3: S3Config{
			Enabled:         getEnvBool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "ru-central1"),
			Endpoint:        getEnv("S3_ENDPOINT", "https://storage.yandexcloud.net"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "benchdata"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    presignedTTL,
		},
		Dynamo: DynamoConfig{
			Enabled:         getEnvBool("DYNAMO_ENABLED", false),
			TableSnapshots:  getEnv("DYNAMO_TABLE_SNAPSHOTS", "bench_snapshots"),
			Region:          getEnv("DYNAMO_REGION", "us-east-1"),
			Endpoint:        getEnv("DYNAMO_ENDPOINT", ""),
			AccessKeyID:     getEnv("DYNAMO_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("DYNAMO_SECRET_ACCESS_KEY", ""),
			StrongReads:     getEnvBool("DYNAMO_STRONG_READS", false),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:           getEnvBool("CW_METRICS_ENABLED", false),
			LogsEnabled:              getEnvBool("CW_LOGS_ENABLED", false),
			Region:                   getEnv("CW_REGION", "us-east-1"),
			Endpoint:                 getEnv("CW_ENDPOINT", ""),
			AccessKeyID:              getEnv("CW_ACCESS_KEY_ID", ""),
			SecretAccessKey:          getEnv("CW_SECRET_ACCESS_KEY", ""),
			MetricsNamespace:         getEnv("CW_METRICS_NAMESPACE", "BenchHistory/Ingest"),
			MetricsDimensions:        map[string]string{"Service": "bench-history-api"},
			MetricsBufferSize:        100,
			MetricsFlushInterval:     cwMetricsFlush,
			MetricsStorageResolution: 60,
			LogGroupName:             getEnv("CW_LOG_GROUP", "/bench-history/api"),
			LogStreamName:            getEnv("CW_LOG_STREAM", "api"),
			LogsBufferSize:           50,
			LogsFlushInterval:        cwLogsFlush,
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    getEnvBool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}

	return cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Database)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
