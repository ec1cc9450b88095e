package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stepline-labs/stepline-go/internal/platform/env"
)

type Config struct {
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	BucketStates string
	KeyPrefix    string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("STEPLINE_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:     env.String("STEPLINE_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:    env.String("STEPLINE_MINIO_ACCESS_KEY", "stepline"),
		SecretKey:    env.String("STEPLINE_MINIO_SECRET_KEY", "steplineminio"),
		Region:       env.String("STEPLINE_MINIO_REGION", "us-east-1"),
		UseSSL:       useSSL,
		BucketStates: env.String("STEPLINE_MINIO_BUCKET_STATES", "pipeline-states"),
		KeyPrefix:    env.String("STEPLINE_MINIO_KEY_PREFIX", "states"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		return errors.New("access key is required")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		return errors.New("secret key is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketStates) == "" {
		return errors.New("states bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	return nil
}
