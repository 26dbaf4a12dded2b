package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	AIAPIKey     string
	GenModel     string
	Port         string

	// Pipeline tuning.
	RasterDPI            int
	InferenceTimeoutSecs int
	StoreTimeoutSecs     int
	MaxRetries           int
	RetryBaseDelaySecs   int

	// When false, a failed page commit aborts the rest of the run instead
	// of marking the page as not-stored and continuing.
	ContinueOnStoreError bool
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		AwsAccessKey:         getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:         getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:            getEnv("AWS_REGION", "us-east-2"),
		BucketName:           getEnv("BUCKET_NAME", "crimedigest-reports"),
		AIAPIKey:             getEnv("GEMINI_API_KEY", ""),
		GenModel:             getEnv("GEN_MODEL", "gemini-2.5-flash"),
		Port:                 getEnv("PORT", "8080"),
		RasterDPI:            getEnvInt("RASTER_DPI", 300),
		InferenceTimeoutSecs: getEnvInt("INFERENCE_TIMEOUT_SECS", 90),
		StoreTimeoutSecs:     getEnvInt("STORE_TIMEOUT_SECS", 30),
		MaxRetries:           getEnvInt("INFERENCE_MAX_RETRIES", 3),
		RetryBaseDelaySecs:   getEnvInt("INFERENCE_RETRY_BASE_SECS", 2),
		ContinueOnStoreError: getEnvBool("CONTINUE_ON_STORE_ERROR", true),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.AIAPIKey == "" {
		log.Println("WARN: GEMINI_API_KEY not set; extraction requests will fail")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}
