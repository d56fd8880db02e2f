package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	awspkg "github.com/shopswift/storefront/pkg/aws"
)

// LoadDotEnv loads .env from the working directory when present. Variables
// already set in the environment win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

func GetEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// GetBool treats "1", "true", "yes" (any case) as true.
func GetBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if strings.EqualFold(v, "yes") {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// GetList splits a comma separated variable, dropping blanks.
func GetList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SecretSource is satisfied by the Secrets Manager client.
type SecretSource interface {
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// ApplySecrets overwrites each target with the value of the same key in the
// named JSON secret. Empty or absent keys leave the target untouched.
func ApplySecrets(ctx context.Context, src SecretSource, name string, targets map[string]*string) error {
	values, err := src.GetSecretMap(ctx, name)
	if err != nil {
		return err
	}
	for key, dst := range targets {
		if v, ok := values[key]; ok && v != "" {
			*dst = v
		}
	}
	return nil
}

// SecretsFromAWS builds a SecretSource when AWS_USE_SECRETS=true, nil
// otherwise.
func SecretsFromAWS(ctx context.Context) (SecretSource, error) {
	if !GetBool("AWS_USE_SECRETS", false) {
		return nil, nil
	}
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return awspkg.NewSecretsClient(awsCfg), nil
}
