package config

import (
	"fmt"
	"os"
	"strconv"
)

// WithEnv applies environment variable overrides using the provided prefix,
// typically "ASSETS_".
//
// Database:
//
//	ROOT - Root scope (default: "local://assets")
//	CODEC - Manifest codec: json, yaml, cbor, msgpack, optionally "+zstd"
//	MANIFEST_NAME - Manifest document name (default: ".manifest")
//	CONCURRENCY - Default LoadAll parallelism
//
// File systems:
//
//	LOCAL_DIR - Base directory of the "local" scheme
//	ARCHIVE - Zip archive served as the "archive" scheme
//	S3_BUCKET, S3_REGION, S3_PREFIX, S3_ENDPOINT, S3_USE_PATH_STYLE - "s3" scheme.
//	AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are read unprefixed.
//
// Manifest store:
//
//	MANIFEST_DATABASE_URL - Store the manifest in Postgres ("postgres://...")
//	DB_SCHEMA - Postgres schema (default: "assets")
func WithEnv(prefix string) Option {
	return func(c *DatabaseConfig) error {
		if v, ok := lookupEnv(prefix, "ROOT"); ok && v != "" {
			c.Root = v
		}
		if v, ok := lookupEnv(prefix, "CODEC"); ok && v != "" {
			c.Codec = v
		}
		if v, ok := lookupEnv(prefix, "MANIFEST_NAME"); ok && v != "" {
			c.ManifestName = v
		}
		if n, ok, err := parseIntEnv(prefix, "CONCURRENCY"); err != nil {
			return err
		} else if ok {
			c.Concurrency = n
		}

		if err := applyFileSystemEnv(prefix, c); err != nil {
			return err
		}

		return applyManifestEnv(prefix, c)
	}
}

// applyFileSystemEnv applies file system configuration from environment
func applyFileSystemEnv(prefix string, c *DatabaseConfig) error {
	if dir, ok := lookupEnv(prefix, "LOCAL_DIR"); ok && dir != "" {
		if err := WithLocalFileSystem("local", dir)(c); err != nil {
			return err
		}
	}

	if path, ok := lookupEnv(prefix, "ARCHIVE"); ok && path != "" {
		if err := WithArchiveFileSystem("archive", path)(c); err != nil {
			return err
		}
	}

	bucket, ok := lookupEnv(prefix, "S3_BUCKET")
	if !ok || bucket == "" {
		return nil
	}
	region, _ := lookupEnv(prefix, "S3_REGION")
	if region == "" {
		region, _ = os.LookupEnv("AWS_REGION")
	}
	s3Prefix, _ := lookupEnv(prefix, "S3_PREFIX")
	if err := WithS3FileSystem("s3", bucket, region, s3Prefix)(c); err != nil {
		return err
	}

	// Check for AWS credentials in environment
	accessKey, _ := os.LookupEnv("AWS_ACCESS_KEY_ID")
	secretKey, _ := os.LookupEnv("AWS_SECRET_ACCESS_KEY")
	if accessKey != "" && secretKey != "" {
		if err := WithS3Credentials("s3", accessKey, secretKey)(c); err != nil {
			return err
		}
	}

	if endpoint, ok := lookupEnv(prefix, "S3_ENDPOINT"); ok && endpoint != "" {
		pathStyle, _, err := parseBoolEnv(prefix, "S3_USE_PATH_STYLE")
		if err != nil {
			return err
		}
		if err := WithS3Endpoint("s3", endpoint, pathStyle)(c); err != nil {
			return err
		}
	}
	return nil
}

// applyManifestEnv applies manifest store configuration from environment
func applyManifestEnv(prefix string, c *DatabaseConfig) error {
	if schema, ok := lookupEnv(prefix, "DB_SCHEMA"); ok && schema != "" {
		c.DBSchema = schema
	}

	dbURL, hasURL := lookupEnv(prefix, "MANIFEST_DATABASE_URL")
	if !hasURL || dbURL == "" || dbURL == "file" {
		return nil
	}

	if len(dbURL) > 13 && dbURL[:13] == "postgresql://" {
		return WithPostgresManifest(dbURL)(c)
	} else if len(dbURL) > 11 && dbURL[:11] == "postgres://" {
		return WithPostgresManifest(dbURL)(c)
	}

	return fmt.Errorf("unsupported MANIFEST_DATABASE_URL format: %s (use 'file' or 'postgresql://...')", dbURL)
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseBoolEnv(prefix, key string) (bool, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid boolean for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}

func parseIntEnv(prefix, key string) (int, bool, error) {
	raw, ok := lookupEnv(prefix, key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("invalid integer for %s%s: %w", prefix, key, err)
	}
	return parsed, true, nil
}
