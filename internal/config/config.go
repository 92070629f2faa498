package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr         string
	AppEnv             string
	RepoBackend        string
	DataPath           string
	SQLitePath         string
	BlobDir            string
	CanvasSize         int
	AnalysisSize       int
	HistogramMaxColors int
	PaletteMethod      string
	JPEGQuality        int
	CollageQuality     int
	StyleSeed          int64
	WorkerCount        int
	WorkerQueue        int
	MaxUploadSizeBytes int64
	DefaultLocale      string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:         getEnv("LISTEN_ADDR", ":8080"),
		AppEnv:             getEnv("APP_ENV", "production"),
		RepoBackend:        strings.ToLower(getEnv("REPO_BACKEND", "json")),
		DataPath:           getEnv("DATA_PATH", "./data/collections.json"),
		SQLitePath:         getEnv("SQLITE_PATH", "./data/collections.db"),
		BlobDir:            getEnv("BLOB_DIR", "./data/blobs"),
		CanvasSize:         getEnvInt("CANVAS_SIZE", 512),
		AnalysisSize:       getEnvInt("ANALYSIS_SIZE", 100),
		HistogramMaxColors: getEnvInt("HISTOGRAM_MAX_COLORS", 10000),
		PaletteMethod:      strings.ToLower(getEnv("PALETTE_METHOD", "histogram")),
		JPEGQuality:        getEnvInt("JPEG_QUALITY", 85),
		CollageQuality:     getEnvInt("COLLAGE_QUALITY", 95),
		StyleSeed:          getEnvInt64("STYLE_SEED", 0),
		WorkerCount:        getEnvInt("WORKER_COUNT", 2),
		WorkerQueue:        getEnvInt("WORKER_QUEUE", 16),
		MaxUploadSizeBytes: getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 8*1024*1024),
		DefaultLocale:      getEnv("DEFAULT_LOCALE", "en"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.RepoBackend {
	case "json", "sqlite":
	default:
		return errors.New("repo backend must be json or sqlite")
	}
	switch c.PaletteMethod {
	case "histogram", "dominant", "kmeans":
	default:
		return errors.New("palette method must be histogram, dominant or kmeans")
	}
	if c.CanvasSize <= 0 {
		return errors.New("canvas size must be > 0")
	}
	if c.AnalysisSize <= 0 {
		return errors.New("analysis size must be > 0")
	}
	if c.HistogramMaxColors <= 0 {
		return errors.New("histogram max colors must be > 0")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.New("jpeg quality must be in [1,100]")
	}
	if c.CollageQuality < 1 || c.CollageQuality > 100 {
		return errors.New("collage quality must be in [1,100]")
	}
	if c.WorkerCount <= 0 {
		return errors.New("worker count must be > 0")
	}
	if c.WorkerQueue <= 0 {
		return errors.New("worker queue must be > 0")
	}
	if c.MaxUploadSizeBytes <= 0 {
		return errors.New("max upload size must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
