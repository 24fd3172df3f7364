package cmd

import (
	"context"
	"fmt"

	"bindiff/config"
	"bindiff/service"
	"bindiff/stores"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootOptions is shared by every subcommand.
type RootOptions struct {
	v      *viper.Viper
	Config config.Config
}

// flag name -> config key
var flagKeys = map[string]string{
	"listen-addr":      config.KeyListenAddr,
	"cors-origins":     config.KeyCORSOrigins,
	"log-level":        config.KeyLogLevel,
	"log-format":       config.KeyLogFormat,
	"storage":          config.KeyStorageType,
	"local-path":       config.KeyLocalPath,
	"data-source-name": config.KeyDataSourceName,
	"postgres-dsn":     config.KeyPostgresDSN,
	"redis-url":        config.KeyRedisURL,
	"s3-bucket":        config.KeyS3Bucket,
}

// NewRootCommand creates the bindiff command. Without a subcommand it serves HTTP.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "bindiff",
		Short: "Store two base64 payloads per id and compare them",
		Long: `bindiff stores a left and a right base64 payload under a numeric id and
reports whether the decoded bytes are equal, differ in size, or differ at
specific offsets.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for name, key := range flagKeys {
				if f := cmd.Flags().Lookup(name); f != nil {
					if err := opts.v.BindPFlag(key, f); err != nil {
						return fmt.Errorf("bind flag %s: %w", name, err)
					}
				}
			}
			cfg, err := config.Load(opts.v)
			if err != nil {
				return err
			}
			cfg.ConfigureLogging()
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.Config)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("listen-addr", ":3002", "HTTP listen address")
	flags.String("cors-origins", "https://*,http://*", "comma separated list of allowed origins")
	flags.String("log-level", "info", "log level (debug|info|warn|error)")
	flags.String("log-format", "text", "log format (text|json)")
	flags.String("storage", "memory", "storage backend (memory|filesystem|sqlite|postgres|redis|s3)")
	flags.String("local-path", "./data", "base directory of the filesystem backend")
	flags.String("data-source-name", "bindiff.db", "sqlite data source name")
	flags.String("postgres-dsn", "", "postgres connection string")
	flags.String("redis-url", "", "redis URL")
	flags.String("s3-bucket", "", "S3 bucket name")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewDiffCommand(opts))

	return cmd
}

// openService opens the configured store and a service on top of it. The
// returned func releases both.
func openService(ctx context.Context, cfg config.Config, opts ...service.Option) (*service.BinDataService, func(), error) {
	store, closer, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewBinDataService(stores.NewSessionFactory(store), opts...)
	return svc, func() {
		_ = svc.Close()
		_ = closer.Close()
	}, nil
}
