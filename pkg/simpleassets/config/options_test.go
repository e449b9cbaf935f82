package config

import (
	"context"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.Root != "local://assets" {
		t.Errorf("expected root local://assets, got: %s", cfg.Root)
	}
	if cfg.Codec != "yaml" {
		t.Errorf("expected yaml codec, got: %s", cfg.Codec)
	}
	if cfg.ManifestType != "file" {
		t.Errorf("expected file manifest, got: %s", cfg.ManifestType)
	}
}

func TestWithRoot(t *testing.T) {
	tests := []struct {
		name      string
		root      string
		opts      []Option
		wantError bool
	}{
		{"local root", "local://game", nil, false},
		{"missing scheme", "assets", nil, true},
		{"memory root without backend", "memory://", nil, true},
		{"memory root with backend", "memory://", []Option{WithMemoryFileSystem("")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithRoot(tt.root)}, tt.opts...)
			cfg, err := Load(opts...)
			if tt.wantError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got: %v", err)
			}
			if cfg.Root != tt.root {
				t.Errorf("expected root %s, got: %s", tt.root, cfg.Root)
			}
		})
	}
}

func TestWithCodec(t *testing.T) {
	tests := []struct {
		name      string
		codec     string
		wantError bool
	}{
		{"json", "json", false},
		{"cbor", "cbor", false},
		{"msgpack compressed", "msgpack+zstd", false},
		{"empty", "", true},
		{"unknown", "toml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(WithCodec(tt.codec))
			if tt.wantError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantError && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestWithPostgresManifest(t *testing.T) {
	cfg, err := Load(WithPostgresManifest("postgres://localhost/assets"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.ManifestType != "postgres" {
		t.Errorf("expected postgres manifest, got: %s", cfg.ManifestType)
	}

	if _, err := Load(WithPostgresManifest("")); err == nil {
		t.Error("expected error for empty URL, got nil")
	}
}

func TestFileSystemOptions(t *testing.T) {
	cfg, err := Load(
		WithLocalFileSystem("", "/srv/assets"),
		WithS3FileSystem("remote", "bucket", "", "game"),
		WithS3Credentials("remote", "key", "secret"),
		WithS3Endpoint("remote", "http://localhost:9000", true),
		WithArchiveFileSystem("", "/srv/assets.zip"),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(cfg.FileSystems) != 3 {
		t.Fatalf("expected 3 file systems, got: %d", len(cfg.FileSystems))
	}

	local := cfg.FileSystems[0]
	if local.Scheme != "local" || getString(local.Config, "base_dir", "") != "/srv/assets" {
		t.Errorf("expected local backend to be replaced, got: %+v", local)
	}

	remote := cfg.FileSystems[1]
	if getString(remote.Config, "region", "") != "us-east-1" {
		t.Errorf("expected default region, got: %v", remote.Config["region"])
	}
	if getString(remote.Config, "access_key_id", "") != "key" {
		t.Errorf("expected access key to be set, got: %v", remote.Config["access_key_id"])
	}
	if !getBool(remote.Config, "use_path_style", false) {
		t.Error("expected path style addressing")
	}

	if cfg.FileSystems[2].Type != "archive" {
		t.Errorf("expected archive backend, got: %s", cfg.FileSystems[2].Type)
	}
}

func TestWithS3CredentialsRequiresBackend(t *testing.T) {
	if _, err := Load(WithS3Credentials("s3", "key", "secret")); err == nil {
		t.Error("expected error without s3 backend, got nil")
	}
}

func TestWithoutFileSystem(t *testing.T) {
	_, err := Load(WithoutFileSystem("local"))
	if err == nil {
		t.Error("expected error when the root scheme has no backend, got nil")
	}
}

func TestGetInt(t *testing.T) {
	config := map[string]interface{}{"a": 5, "b": "7", "c": 9.0, "d": "x"}
	if got := getInt(config, "a", 0); got != 5 {
		t.Errorf("expected 5, got: %d", got)
	}
	if got := getInt(config, "b", 0); got != 7 {
		t.Errorf("expected 7, got: %d", got)
	}
	if got := getInt(config, "c", 0); got != 9 {
		t.Errorf("expected 9, got: %d", got)
	}
	if got := getInt(config, "d", 3); got != 3 {
		t.Errorf("expected default 3, got: %d", got)
	}
}

func TestBuildDatabase(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(
		WithLocalFileSystem("local", dir),
		WithMemoryFileSystem("memory"),
		WithCodec("json"),
	)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	db, err := cfg.BuildDatabase(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if db.Root() != "local://assets" {
		t.Errorf("expected root local://assets, got: %s", db.Root())
	}
	if db.ManifestPath() != "local://assets/.manifest" {
		t.Errorf("unexpected manifest path: %s", db.ManifestPath())
	}
}

func TestBuildDatabaseUnsupportedType(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	cfg.FileSystems = append(cfg.FileSystems, FileSystemConfig{Scheme: "ftp", Type: "ftp"})

	if _, err := cfg.BuildDatabase(context.Background()); err == nil {
		t.Error("expected error for unsupported type, got nil")
	}
}
