package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Port            string
	MongoURI        string
	DBName          string
	BooksCollection string
	AuditCollection string
	JWTSecret       string
	UserId          string
	UserName        string
	UserPassword    string
	Page            int
	PageSize        int
	QueryTimeout    time.Duration
	ExportDir       string
	ExportInterval  time.Duration
}

// LoadConfig reads .env (if present) and then the process environment.
// Unset values fall back to the defaults of the bookstore walkthrough.
func LoadConfig() (Config, error) {
	// a missing .env is fine, the environment is used as is
	_ = godotenv.Load()

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "plp_bookstore"),
		BooksCollection: getEnv("BOOKS_COLLECTION", "books"),
		AuditCollection: getEnv("AUDIT_COLLECTION", "audit_logs"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		UserId:          os.Getenv("HARD_CODED_USER_ID"),
		UserName:        os.Getenv("HARD_CODED_USER_NAME"),
		UserPassword:    os.Getenv("HARD_CODED_USER_PASSWORD"),
		ExportDir:       getEnv("EXPORT_DIR", "exports"),
	}

	var err error
	if cfg.Page, err = getInt("PAGE", 2); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = getInt("PAGE_SIZE", 5); err != nil {
		return Config{}, err
	}
	if cfg.QueryTimeout, err = getDuration("QUERY_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ExportInterval, err = getDuration("EXPORT_INTERVAL", 30*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.Page < 1 || cfg.PageSize < 1 {
		return Config{}, fmt.Errorf("%w: PAGE and PAGE_SIZE must be at least 1", ErrInvalidConfig)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, val, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, val, err)
	}
	return d, nil
}
