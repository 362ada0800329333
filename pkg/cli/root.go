package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openglide/skysearch/pkg/entities"
	"github.com/openglide/skysearch/pkg/storage"
)

// NewRootCommand creates the root command with every subcommand attached.
// Each call builds an independent command tree and settings instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "skysearch-cli",
		Short: "Skysearch - ranked search across users, clubs and airports",
		Long: `skysearch-cli runs ranked searches directly against an entity store.

Settings come from flags, then SKYSEARCH_* environment variables, then an
optional skysearch.yaml in the working directory.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default: ./skysearch.yaml)")
	flags.String("driver", "postgres", "store driver (postgres or sqlite3)")
	flags.String("url", "", "store connection URL")
	flags.String("kinds-file", "", "YAML file defining the searchable kinds")

	for _, name := range []string{"driver", "url", "kinds-file"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}
	// Same variables the server reads
	_ = v.BindEnv("driver", "SKYSEARCH_STORE_DRIVER")
	_ = v.BindEnv("url", "SKYSEARCH_STORE_URL")
	_ = v.BindEnv("kinds-file", "SKYSEARCH_KINDS_FILE")

	root.AddCommand(newSearchCommand(v))
	root.AddCommand(newKindsCommand(v))

	return root
}

func initConfig(v *viper.Viper, cmd *cobra.Command) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("skysearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// loadRegistry returns the configured kinds, or the built-in ones.
func loadRegistry(v *viper.Viper) (*entities.Registry, error) {
	if path := v.GetString("kinds-file"); path != "" {
		return entities.LoadFile(path)
	}
	return entities.Default(), nil
}

// openStore connects to the configured store and verifies every kind's
// table against it.
func openStore(ctx context.Context, v *viper.Viper, registry *entities.Registry) (*storage.ConnectionManager, error) {
	url := v.GetString("url")
	if url == "" {
		return nil, errors.New("store URL is required (--url or SKYSEARCH_STORE_URL)")
	}

	cm, err := storage.NewConnectionManager(storage.ConnectionConfig{
		Driver:     strings.ToLower(v.GetString("driver")),
		PrimaryURL: url,
		MaxConns:   4,
		MinConns:   1,
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := registry.CheckStore(ctx, cm.Primary()); err != nil {
		cm.Close()
		return nil, err
	}
	return cm, nil
}
