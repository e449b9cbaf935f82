package config

import (
	"fmt"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// WithRoot sets the database root, e.g. "local://assets"
func WithRoot(root string) Option {
	return func(c *DatabaseConfig) error {
		if _, err := simpleassets.ParseAssetPath(root); err != nil {
			return err
		}
		c.Root = root
		return nil
	}
}

// WithCodec sets the manifest codec by name
func WithCodec(name string) Option {
	return func(c *DatabaseConfig) error {
		if name == "" {
			return fmt.Errorf("codec cannot be empty")
		}
		c.Codec = name
		return nil
	}
}

// WithManifestName sets the manifest document name under the root
func WithManifestName(name string) Option {
	return func(c *DatabaseConfig) error {
		if name == "" {
			return fmt.Errorf("manifest name cannot be empty")
		}
		c.ManifestName = name
		return nil
	}
}

// WithPostgresManifest stores the manifest in Postgres instead of the root
func WithPostgresManifest(url string) Option {
	return func(c *DatabaseConfig) error {
		if url == "" {
			return fmt.Errorf("database URL is required for postgres")
		}
		c.ManifestType = "postgres"
		c.ManifestDatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the database schema (for Postgres)
func WithDatabaseSchema(schema string) Option {
	return func(c *DatabaseConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithConcurrency sets the default LoadAll parallelism
func WithConcurrency(n int) Option {
	return func(c *DatabaseConfig) error {
		if n < 0 {
			return fmt.Errorf("concurrency cannot be negative, got: %d", n)
		}
		c.Concurrency = n
		return nil
	}
}

// WithMemoryFileSystem adds an in-memory file system.
// If scheme is empty, defaults to "memory"
func WithMemoryFileSystem(scheme string) Option {
	return func(c *DatabaseConfig) error {
		if scheme == "" {
			scheme = "memory"
		}
		c.FileSystems = upsertFileSystem(c.FileSystems, FileSystemConfig{
			Scheme: scheme,
			Type:   "memory",
		})
		return nil
	}
}

// WithLocalFileSystem adds a local disk file system rooted at baseDir.
// If scheme is empty, defaults to "local"
func WithLocalFileSystem(scheme, baseDir string) Option {
	return func(c *DatabaseConfig) error {
		if scheme == "" {
			scheme = "local"
		}
		if baseDir == "" {
			return fmt.Errorf("local base directory cannot be empty")
		}
		c.FileSystems = upsertFileSystem(c.FileSystems, FileSystemConfig{
			Scheme: scheme,
			Type:   "local",
			Config: map[string]interface{}{
				"base_dir": baseDir,
			},
		})
		return nil
	}
}

// WithArchiveFileSystem adds a read-only zip archive file system.
// If scheme is empty, defaults to "archive"
func WithArchiveFileSystem(scheme, path string) Option {
	return func(c *DatabaseConfig) error {
		if scheme == "" {
			scheme = "archive"
		}
		if path == "" {
			return fmt.Errorf("archive path cannot be empty")
		}
		c.FileSystems = upsertFileSystem(c.FileSystems, FileSystemConfig{
			Scheme: scheme,
			Type:   "archive",
			Config: map[string]interface{}{
				"path": path,
			},
		})
		return nil
	}
}

// WithS3FileSystem adds an S3 file system. Credentials and endpoint can be
// set afterwards with WithS3Credentials and WithS3Endpoint.
// If scheme is empty, defaults to "s3"
func WithS3FileSystem(scheme, bucket, region, prefix string) Option {
	return func(c *DatabaseConfig) error {
		if scheme == "" {
			scheme = "s3"
		}
		if bucket == "" {
			return fmt.Errorf("S3 bucket cannot be empty")
		}
		if region == "" {
			region = "us-east-1"
		}
		c.FileSystems = upsertFileSystem(c.FileSystems, FileSystemConfig{
			Scheme: scheme,
			Type:   "s3",
			Config: map[string]interface{}{
				"bucket": bucket,
				"region": region,
				"prefix": prefix,
			},
		})
		return nil
	}
}

// WithS3Credentials sets static credentials on an existing S3 file system
func WithS3Credentials(scheme, accessKeyID, secretAccessKey string) Option {
	return func(c *DatabaseConfig) error {
		return updateFileSystem(c, scheme, "s3", map[string]interface{}{
			"access_key_id":     accessKeyID,
			"secret_access_key": secretAccessKey,
		})
	}
}

// WithS3Endpoint points an existing S3 file system at an S3-compatible service
func WithS3Endpoint(scheme, endpoint string, usePathStyle bool) Option {
	return func(c *DatabaseConfig) error {
		return updateFileSystem(c, scheme, "s3", map[string]interface{}{
			"endpoint":       endpoint,
			"use_path_style": usePathStyle,
		})
	}
}

// WithoutFileSystem removes the file system registered for scheme
func WithoutFileSystem(scheme string) Option {
	return func(c *DatabaseConfig) error {
		out := c.FileSystems[:0]
		for _, fs := range c.FileSystems {
			if fs.Scheme != scheme {
				out = append(out, fs)
			}
		}
		c.FileSystems = out
		return nil
	}
}

func updateFileSystem(c *DatabaseConfig, scheme, fsType string, values map[string]interface{}) error {
	if scheme == "" {
		scheme = fsType
	}
	for i := range c.FileSystems {
		if c.FileSystems[i].Scheme == scheme && c.FileSystems[i].Type == fsType {
			if c.FileSystems[i].Config == nil {
				c.FileSystems[i].Config = map[string]interface{}{}
			}
			for k, v := range values {
				c.FileSystems[i].Config[k] = v
			}
			return nil
		}
	}
	return fmt.Errorf("no %s file system configured for scheme '%s'", fsType, scheme)
}

func upsertFileSystem(fileSystems []FileSystemConfig, fs FileSystemConfig) []FileSystemConfig {
	if fs.Config == nil {
		fs.Config = map[string]interface{}{}
	}
	for i := range fileSystems {
		if fileSystems[i].Scheme == fs.Scheme {
			fileSystems[i] = fs
			return fileSystems
		}
	}
	return append(fileSystems, fs)
}
