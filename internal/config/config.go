package config

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	AuthSecret         string
	TokenTTL           time.Duration
	EnableRegistration bool

	CORSOrigins []string

	LogLevel  string // debug|info|warn|error
	LogFormat string // text|json

	BlobDriver   string // fs|s3
	BlobBasePath string // fs root
	S3Bucket     string
	S3Region     string
	S3Endpoint   string // optional, e.g. minio
	S3AccessKey  string
	S3SecretKey  string

	// AI quiz generation (OpenAI-compatible chat completions)
	OpenAIKey        string
	OpenAIBaseURL    string
	OpenAIModel      string
	GeneratorTimeout time.Duration

	ImportMaxBytes int64
}

// FromEnv loads an optional .env file and reads the process environment.
func FromEnv() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded, using process environment")
	}

	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	defOrigins := "http://localhost:3000"
	if mode == ModeOnline {
		defOrigins = "https://quiz.mindengage.ai"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		AuthSecret: envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		TokenTTL:   envDuration("TOKEN_TTL", 8*time.Hour),

		EnableRegistration: envBool("ENABLE_REGISTRATION", true),

		CORSOrigins: csvOr("CORS_ORIGINS", defOrigins),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		BlobDriver:   envOr("BLOB_DRIVER", "fs"),
		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),
		S3Bucket:     os.Getenv("S3_BUCKET"),
		S3Region:     envOr("S3_REGION", "eu-west-2"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		S3AccessKey:  os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:  os.Getenv("AWS_SECRET_ACCESS_KEY"),

		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:      envOr("OPENAI_MODEL", "gpt-3.5-turbo"),
		GeneratorTimeout: envDuration("GENERATOR_TIMEOUT", 60*time.Second),

		ImportMaxBytes: int64(envInt("IMPORT_MAX_BYTES", 5<<20)),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(k)))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
