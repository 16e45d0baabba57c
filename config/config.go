package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

type Settings struct {
	Port   string
	Env    string
	AppURL string

	DatabaseDriver string
	DatabaseURL    string

	JWTSecret string

	StorageDriver     string
	GCSProjectID      string
	GCSBucketName     string
	UploadPath        string
	LocalStorageDir   string
	StorageSignedURLs bool

	AdminPIN  string
	RedisAddr string

	MaxUploadBytes    int64
	ImageMaxDimension int
	OrphanGrace       time.Duration

	LogFile string
}

// LoadEnv reads .env into the process environment. A missing file is not an error.
func LoadEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Config returns the value of envVar, or an error when it is not set.
func Config(envVar string) (string, error) {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return "", fmt.Errorf("%s not set", envVar)
	}
	return v, nil
}

func Load() (*Settings, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	var errs []error
	required := func(name string) string {
		v, err := Config(name)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	maxUploadMB, err := Int("MAX_UPLOAD_MB", 10)
	check(err)
	maxDim, err := Int("IMAGE_MAX_DIMENSION", 2048)
	check(err)
	signedURLs, err := Bool("STORAGE_SIGNED_URLS", false)
	check(err)
	grace, err := Duration("ORPHAN_GRACE", 24*time.Hour)
	check(err)

	s := &Settings{
		Port:              String("PORT", "3000"),
		Env:               String("APP_ENV", "development"),
		AppURL:            strings.TrimRight(String("APP_URL", "http://localhost:3000"), "/"),
		DatabaseDriver:    strings.ToLower(String("DATABASE_DRIVER", "postgres")),
		DatabaseURL:       required("DATABASE_URL"),
		JWTSecret:         required("JWT_SECRET"),
		StorageDriver:     strings.ToLower(String("STORAGE_DRIVER", "gcs")),
		GCSProjectID:      String("GCS_PROJECT_ID", ""),
		GCSBucketName:     String("GCS_BUCKET_NAME", ""),
		UploadPath:        String("STORAGE_UPLOAD_PATH", "plant-images/"),
		LocalStorageDir:   String("STORAGE_LOCAL_DIR", "./uploads"),
		StorageSignedURLs: signedURLs,
		AdminPIN:          String("ADMIN_PIN", ""),
		RedisAddr:         String("REDIS_ADDR", ""),
		MaxUploadBytes:    int64(maxUploadMB) << 20,
		ImageMaxDimension: maxDim,
		OrphanGrace:       grace,
		LogFile:           String("LOG_FILE", ""),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.DatabaseURL == "" {
		return errors.New("DATABASE_URL not set")
	}
	if s.JWTSecret == "" {
		return errors.New("JWT_SECRET not set")
	}
	switch s.StorageDriver {
	case "gcs":
		if s.GCSBucketName == "" {
			return errors.New("GCS_BUCKET_NAME not set")
		}
	case "local":
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", s.StorageDriver)
	}
	if s.AdminPIN != "" && utf8.RuneCountInString(s.AdminPIN) != 4 {
		return errors.New("ADMIN_PIN must be 4 characters")
	}
	if s.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_MB must be positive")
	}
	return nil
}

func (s *Settings) IsProduction() bool {
	return s.Env == "prod" || s.Env == "production"
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

// Int, Bool and Duration return def when name is unset and an error when it is set but malformed.
func Int(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not an integer", name, v)
	}
	return i, nil
}

func Bool(name string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a boolean", name, v)
	}
	return b, nil
}

func Duration(name string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %q is not a duration", name, v)
	}
	return d, nil
}
