package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/labwise-dev/labwise-go/internal/platform/env"
)

type Config struct {
	Mode      string
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	LocalRoot string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("LABWISE_S3_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Mode:      strings.ToLower(env.String("LABWISE_STORAGE_MODE", ModeS3)),
		Endpoint:  env.String("LABWISE_S3_ENDPOINT", "localhost:9000"),
		AccessKey: env.String("LABWISE_S3_ACCESS_KEY", "labwise"),
		SecretKey: env.String("LABWISE_S3_SECRET_KEY", "labwiseminio"),
		Region:    env.String("LABWISE_S3_REGION", "ap-northeast-1"),
		UseSSL:    useSSL,
		Bucket:    env.String("LABWISE_S3_BUCKET", "labwise-dev-artifacts"),
		LocalRoot: env.String("LABWISE_LOCAL_STORAGE_PATH", "/data/storage"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeS3:
		if strings.TrimSpace(c.Endpoint) == "" {
			return errors.New("s3 endpoint is required")
		}
		if strings.Contains(c.Endpoint, "://") {
			return fmt.Errorf("s3 endpoint must not include scheme: %q", c.Endpoint)
		}
		if strings.TrimSpace(c.AccessKey) == "" {
			return errors.New("s3 access key is required")
		}
		if strings.TrimSpace(c.SecretKey) == "" {
			return errors.New("s3 secret key is required")
		}
		if strings.TrimSpace(c.Region) == "" {
			return errors.New("s3 region is required")
		}
		if strings.TrimSpace(c.Bucket) == "" {
			return errors.New("s3 bucket is required")
		}
	case ModeLocal:
		if strings.TrimSpace(c.LocalRoot) == "" {
			return errors.New("local storage path is required")
		}
	default:
		return fmt.Errorf("unknown storage mode %q (want %q or %q)", c.Mode, ModeS3, ModeLocal)
	}
	return nil
}
