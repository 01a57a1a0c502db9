package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "CRYPTOCLOUD_"

// loadDotEnv exports variables from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays CRYPTOCLOUD_* variables found through lookup.
func parseEnv(c *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}

	str("GRPC_ADDR", &c.EndpointAddrGRPC)
	str("STORE_DRIVER", &c.StoreDriver)
	str("DATABASE_DSN", &c.DatabaseDSN)
	str("BOLT_PATH", &c.BoltPath)
	str("SECRET_KEY", &c.SecretKey)
	str("S3_ROOT_USER", &c.S3RootUser)
	str("S3_ROOT_PASSWORD", &c.S3RootPassword)
	str("S3_BUCKET", &c.S3Bucket)
	str("S3_REGION", &c.S3Region)
	str("S3_BASE_ENDPOINT", &c.S3BaseEndpoint)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup(envPrefix + "ACCESS_TOKEN_VALIDITY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sACCESS_TOKEN_VALIDITY: %w", envPrefix, err)
		}
		c.AccessTokenValidityDuration = d
	}
	if v, ok := lookup(envPrefix + "CAPABILITY_EXPIRY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sCAPABILITY_EXPIRY: %w", envPrefix, err)
		}
		c.CapabilityExpiry = d
	}
	if v, ok := lookup(envPrefix + "QUOTA_LIMIT_BYTES"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sQUOTA_LIMIT_BYTES: %w", envPrefix, err)
		}
		c.QuotaLimitBytes = n
	}
	if v, ok := lookup(envPrefix + "VERIFY_UPLOAD_SIZE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sVERIFY_UPLOAD_SIZE: %w", envPrefix, err)
		}
		c.VerifyUploadSize = b
	}
	return nil
}
