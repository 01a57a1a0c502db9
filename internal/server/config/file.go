package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/cryptocloud/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Pointer fields
// distinguish "absent" from a zero value so that only keys present in the
// file override earlier layers.
type FileConfig struct {
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	StoreDriver                 *string         `json:"store_driver" yaml:"store_driver"`
	DatabaseDSN                 *string         `json:"database_dsn" yaml:"database_dsn"`
	BoltPath                    *string         `json:"bolt_path" yaml:"bolt_path"`
	SecretKey                   *string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  *string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    *string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	CapabilityExpiry            *timex.Duration `json:"capability_expiry" yaml:"capability_expiry"`
	QuotaLimitBytes             *uint64         `json:"quota_limit_bytes" yaml:"quota_limit_bytes"`
	VerifyUploadSize            *bool           `json:"verify_upload_size" yaml:"verify_upload_size"`
	LogLevel                    *string         `json:"log_level" yaml:"log_level"`
	LogFormat                   *string         `json:"log_format" yaml:"log_format"`
}

// parseFile reads path as YAML when its extension is .yaml or .yml and as
// JSON otherwise, and applies the keys it contains to c.
func parseFile(c *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(c)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setStr := func(src *string, dst *string) {
		if src != nil {
			*dst = *src
		}
	}
	setStr(fc.EndpointAddrGRPC, &c.EndpointAddrGRPC)
	setStr(fc.StoreDriver, &c.StoreDriver)
	setStr(fc.DatabaseDSN, &c.DatabaseDSN)
	setStr(fc.BoltPath, &c.BoltPath)
	setStr(fc.SecretKey, &c.SecretKey)
	setStr(fc.S3RootUser, &c.S3RootUser)
	setStr(fc.S3RootPassword, &c.S3RootPassword)
	setStr(fc.S3Bucket, &c.S3Bucket)
	setStr(fc.S3Region, &c.S3Region)
	setStr(fc.S3BaseEndpoint, &c.S3BaseEndpoint)
	setStr(fc.LogLevel, &c.LogLevel)
	setStr(fc.LogFormat, &c.LogFormat)

	if fc.AccessTokenValidityDuration != nil {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.CapabilityExpiry != nil {
		c.CapabilityExpiry = fc.CapabilityExpiry.Duration
	}
	if fc.QuotaLimitBytes != nil {
		c.QuotaLimitBytes = *fc.QuotaLimitBytes
	}
	if fc.VerifyUploadSize != nil {
		c.VerifyUploadSize = *fc.VerifyUploadSize
	}
}
