package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/codec"
	pgstore "github.com/tendant/simple-assets/pkg/simpleassets/manifeststore/postgres"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/archive"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/local"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/memory"
	s3fs "github.com/tendant/simple-assets/pkg/simpleassets/vfs/s3"
)

// Option applies configuration to a DatabaseConfig instance.
type Option func(*DatabaseConfig) error

// Load constructs a DatabaseConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*DatabaseConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() DatabaseConfig {
	return DatabaseConfig{
		Root:         "local://assets",
		Codec:        "yaml",
		ManifestName: simpleassets.DefaultManifestName,
		ManifestType: "file",
		DBSchema:     "assets",
		Concurrency:  4,
		FileSystems: []FileSystemConfig{
			{
				Scheme: "local",
				Type:   "local",
				Config: map[string]interface{}{
					"base_dir": ".",
				},
			},
		},
	}
}

// DatabaseConfig represents configuration for an asset database
type DatabaseConfig struct {
	// Root scope, e.g. "local://assets"
	Root         string
	Codec        string // "json", "yaml", "cbor", "msgpack", optionally suffixed "+zstd"
	ManifestName string

	// Manifest store configuration
	ManifestType        string // "file", "postgres"
	ManifestDatabaseURL string
	DBSchema            string // Postgres schema to use (default: assets)

	// File system backends, one per scheme
	FileSystems []FileSystemConfig

	// Default parallelism for LoadAll callers
	Concurrency int
}

// FileSystemConfig represents configuration for a file system backend
type FileSystemConfig struct {
	Scheme string
	Type   string // "memory", "local", "archive", "s3"
	Config map[string]interface{}
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	root, err := simpleassets.ParseAssetPath(c.Root)
	if err != nil {
		return fmt.Errorf("invalid root: %w", err)
	}

	if _, err := codec.ByName(c.Codec); err != nil {
		return err
	}

	if c.ManifestName == "" {
		return errors.New("manifest_name is required")
	}

	if c.ManifestType != "file" && c.ManifestType != "postgres" {
		return errors.New("manifest_type must be 'file' or 'postgres'")
	}

	if c.ManifestType == "postgres" && c.ManifestDatabaseURL == "" {
		return errors.New("manifest_database_url is required when using postgres")
	}

	if c.Concurrency < 0 {
		return errors.New("concurrency cannot be negative")
	}

	// Ensure the root scheme has a backend
	found := false
	seen := make(map[string]bool, len(c.FileSystems))
	for _, fs := range c.FileSystems {
		if seen[fs.Scheme] {
			return fmt.Errorf("file system scheme '%s' configured twice", fs.Scheme)
		}
		seen[fs.Scheme] = true
		if fs.Scheme == root.Scheme() {
			found = true
		}
	}
	if !found {
		return fmt.Errorf("no file system configured for root scheme '%s'", root.Scheme())
	}

	return nil
}

// BuildDatabase opens an asset database from the configuration. Extra options
// are applied after the configured ones.
func (c *DatabaseConfig) BuildDatabase(ctx context.Context, extra ...simpleassets.Option) (*simpleassets.Database, error) {
	root, err := simpleassets.ParseAssetPath(c.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid root: %w", err)
	}

	cdc, err := codec.ByName(c.Codec)
	if err != nil {
		return nil, err
	}

	options := []simpleassets.Option{
		simpleassets.WithCodec(cdc),
		simpleassets.WithManifestName(c.ManifestName),
	}

	// Anything opened here is released again if the database never opens
	var closers []io.Closer
	release := func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}

	// Set up file systems
	for _, fsConfig := range c.FileSystems {
		fs, err := c.buildFileSystem(ctx, fsConfig)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to build file system %s: %w", fsConfig.Scheme, err)
		}
		if closer, ok := fs.(io.Closer); ok {
			closers = append(closers, closer)
		}
		options = append(options, simpleassets.WithFileSystem(fsConfig.Scheme, fs))
	}

	// Set up manifest store
	if c.ManifestType == "postgres" {
		store, err := c.buildPostgresStore(ctx, root)
		if err != nil {
			release()
			return nil, fmt.Errorf("failed to build manifest store: %w", err)
		}
		closers = append(closers, store)
		options = append(options, simpleassets.WithManifestStore(store))
	}

	options = append(options, extra...)
	db, err := simpleassets.Open(ctx, root, options...)
	if err != nil {
		release()
		return nil, err
	}
	return db, nil
}

// buildPostgresStore connects to the manifest database and ensures the table exists
func (c *DatabaseConfig) buildPostgresStore(ctx context.Context, root simpleassets.AssetPath) (*pgstore.Store, error) {
	cfg, err := pgxpool.ParseConfig(c.ManifestDatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest database URL: %w", err)
	}
	// Optionally set search_path for the connection
	schema := c.DBSchema
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if schema == "" {
			return nil
		}
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", pgx.Identifier{schema}.Sanitize()))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pgstore.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Debug("Postgres manifest store ready", "root", root, "schema", schema)
	return pgstore.NewWithPool(pool, root), nil
}

// buildFileSystem creates a FileSystem based on the backend configuration
func (c *DatabaseConfig) buildFileSystem(ctx context.Context, config FileSystemConfig) (simpleassets.FileSystem, error) {
	switch config.Type {
	case "memory":
		return memory.New(), nil

	case "local":
		return local.New(local.Config{
			BaseDir: getString(config.Config, "base_dir", "."),
		})

	case "archive":
		path := getString(config.Config, "path", "")
		if path == "" {
			return nil, errors.New("archive path is required")
		}
		return archive.Open(path)

	case "s3":
		s3Config := s3fs.Config{
			Region:                 getString(config.Config, "region", "us-east-1"),
			Bucket:                 getString(config.Config, "bucket", ""),
			Prefix:                 getString(config.Config, "prefix", ""),
			AccessKeyID:            getString(config.Config, "access_key_id", ""),
			SecretAccessKey:        getString(config.Config, "secret_access_key", ""),
			Endpoint:               getString(config.Config, "endpoint", ""),
			UsePathStyle:           getBool(config.Config, "use_path_style", false),
			EnableSSE:              getBool(config.Config, "enable_sse", false),
			SSEAlgorithm:           getString(config.Config, "sse_algorithm", "AES256"),
			SSEKMSKeyID:            getString(config.Config, "sse_kms_key_id", ""),
			UploadPartSizeMB:       getInt(config.Config, "upload_part_size_mb", 0),
			CreateBucketIfNotExist: getBool(config.Config, "create_bucket_if_not_exist", false),
		}
		return s3fs.New(ctx, s3Config)

	default:
		return nil, fmt.Errorf("unsupported file system type: %s", config.Type)
	}
}

func getString(config map[string]interface{}, key string, defaultValue string) string {
	if value, exists := config[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}

func getBool(config map[string]interface{}, key string, defaultValue bool) bool {
	if value, exists := config[key]; exists {
		if b, ok := value.(bool); ok {
			return b
		}
		if str, ok := value.(string); ok {
			if b, err := strconv.ParseBool(str); err == nil {
				return b
			}
		}
	}
	return defaultValue
}

func getInt(config map[string]interface{}, key string, defaultValue int) int {
	if value, exists := config[key]; exists {
		if i, ok := value.(int); ok {
			return i
		}
		if str, ok := value.(string); ok {
			if i, err := strconv.Atoi(str); err == nil {
				return i
			}
		}
		if f, ok := value.(float64); ok {
			return int(f)
		}
	}
	return defaultValue
}
