package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/infumap/storage-core/internal/config"
	"github.com/infumap/storage-core/internal/errs"
	"github.com/infumap/storage-core/internal/objectstore"
	"github.com/infumap/storage-core/internal/obslog"
	"github.com/infumap/storage-core/internal/store"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "infumap-store",
	Short:         "Storage core for a personal information management server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return err
		}
		level := slog.LevelInfo
		_ = level.UnmarshalText([]byte(config.V().GetString("log.level")))
		obslog.Init(obslog.Options{
			Level:      level,
			FilePath:   config.V().GetString("log.file"),
			MaxSizeMB:  config.V().GetInt("log.max-size-mb"),
			MaxBackups: config.V().GetInt("log.max-backups"),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
}

// openStore constructs a store.Store from the resolved configuration. Most
// subcommands call this first thing.
func openStore(ctx context.Context) (*store.Store, error) {
	v := config.V()
	masterKeyPath := v.GetString("data-dir") + "/master.key"
	masterKey, err := loadOrCreateMasterKey(masterKeyPath)
	if err != nil {
		return nil, err
	}

	cfg := store.Config{
		DataDir:                      v.GetString("data-dir"),
		CacheDir:                     v.GetString("cache-dir"),
		MasterKey:                    masterKey,
		ImageCacheMaxScaleDownPercent: int64(v.GetInt("image-cache.max-scale-down-percent")),
		ImageCacheMaxScaleUpPercent:  int64(v.GetInt("image-cache.max-scale-up-percent")),
		Objects: objectstore.Config{
			LocalBaseDir: v.GetString("object-store.local-dir"),
		},
	}
	if bucket := v.GetString("object-store.s3-primary.bucket"); bucket != "" {
		cfg.Objects.S3Primary = &objectstore.S3Config{
			Bucket:   bucket,
			Region:   v.GetString("object-store.s3-primary.region"),
			Endpoint: v.GetString("object-store.s3-primary.endpoint"),
		}
	}
	if bucket := v.GetString("object-store.s3-secondary.bucket"); bucket != "" {
		cfg.Objects.S3Secondary = &objectstore.S3Config{
			Bucket:   bucket,
			Region:   v.GetString("object-store.s3-secondary.region"),
			Endpoint: v.GetString("object-store.s3-secondary.endpoint"),
		}
	}
	return store.Open(ctx, cfg)
}

func loadOrCreateMasterKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, nil
	}
	if !os.IsNotExist(err) {
		return nil, errs.Wrap(errs.Io, err, "reading master key %s", path)
	}
	key, err := objectstore.GenerateMasterKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(parentDir(path), 0o700); err != nil {
		return nil, errs.Wrap(errs.Io, err, "creating master key dir")
	}
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return nil, errs.Wrap(errs.Io, err, "writing master key %s", path)
	}
	return key, nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

// printResult renders v as JSON when --json is set, otherwise uses the
// given plain-text fallback.
func printResult(v any, plain string) {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(v)
		return
	}
	fmt.Println(plain)
}

// exitWithClassifiedError prints err and exits with a status code derived
// from errs.Classify, so scripts can distinguish a malformed request (1)
// from an internal failure (2).
func exitWithClassifiedError(err error) {
	reason := errs.Classify(err)
	fmt.Fprintln(os.Stderr, err)
	if reason == errs.ReasonClient {
		os.Exit(1)
	}
	os.Exit(2)
}
