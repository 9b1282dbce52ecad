/*
Copyright 2020 Google LLC

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/yogendrarau/Matchify/internal/cache"
	"github.com/yogendrarau/Matchify/internal/compat"
	"github.com/yogendrarau/Matchify/internal/logging"
	"github.com/yogendrarau/Matchify/internal/spotify"
	"github.com/yogendrarau/Matchify/internal/store"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "matchify",
	Short: "Matches people by their Spotify listening",
	Long: `Syncs users' top artists and tracks from Spotify into a local SQLite
database and scores how compatible their music tastes are.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default is $HOME/.matchify.yaml)")

	flags := rootCmd.PersistentFlags()
	flags.StringP("database", "d", "./matchify.db", "Path to the SQLite database")
	flags.String("client_id", "", "Spotify application client ID")
	flags.String("client_secret", "", "Spotify application client secret")
	flags.String("redirect_url", "http://localhost:8080/callback", "OAuth redirect URL registered with Spotify")
	flags.String("api_base_url", "", "Override for the Spotify Web API base URL")
	flags.String("redis_addr", "", "Redis address for caching profiles; caching is off when empty")
	flags.Duration("cache_ttl", cache.DefaultTTL, "How long cached profiles stay valid")
	flags.String("sendgrid_api_key", "", "SendGrid API key")
	flags.String("from", "", "From email address")
	flags.String("log_level", "info", "Log level: trace, debug, info, warn, error")
	flags.String("log_format", "console", "Log format: console or json")
	flags.StringP("time_range", "t", string(compat.LongTerm), "Listening window: short_term, medium_term or long_term")

	for _, name := range []string{
		"database", "client_id", "client_secret", "redirect_url", "api_base_url", "redis_addr",
		"cache_ttl", "sendgrid_api_key", "from", "log_level", "log_format", "time_range",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".matchify" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".matchify")
	}

	// If a config file is found, read it in.
	readErr := viper.ReadInConfig()

	// See https://github.com/spf13/viper/pull/852
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			rootCmd.Flags().Set(f.Name, viper.GetString(f.Name))
		}
	})

	logging.Init(logging.Config{
		Level:  viper.GetString("log_level"),
		Format: viper.GetString("log_format"),
	})
	if readErr == nil {
		l := logging.Logger()
		l.Debug().Str("file", viper.ConfigFileUsed()).Msg("using config file")
	}
}

func configuredTimeRange() (compat.TimeRange, error) {
	tr, err := compat.ParseTimeRange(viper.GetString("time_range"))
	if err != nil {
		return "", fmt.Errorf("--time_range: %w", err)
	}
	return tr, nil
}

func spotifyConfig() spotify.Config {
	return spotify.Config{
		ClientID:     viper.GetString("client_id"),
		ClientSecret: viper.GetString("client_secret"),
		RedirectURL:  viper.GetString("redirect_url"),
		BaseURL:      viper.GetString("api_base_url"),
	}
}

// EngineConfig selects where the compatibility engine reads profiles from.
type EngineConfig struct {
	DbPath    string
	RedisAddr string
	CacheTTL  time.Duration
	Logger    zerolog.Logger
}

func engineConfig() EngineConfig {
	return EngineConfig{
		DbPath:    viper.GetString("database"),
		RedisAddr: viper.GetString("redis_addr"),
		CacheTTL:  viper.GetDuration("cache_ttl"),
		Logger:    logging.Logger(),
	}
}

// openEngine opens the store and builds an engine over it, cached through
// Redis when an address is configured. The returned func releases both.
func openEngine(ctx context.Context, config EngineConfig) (*store.Store, *compat.Engine, func(), error) {
	db, err := store.New(config.DbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	var src compat.Source = db
	closeAll := func() { db.Close() }
	if config.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, config.RedisAddr)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		src = cache.New(db, rdb, cache.WithTTL(config.CacheTTL), cache.WithLogger(config.Logger))
		closeAll = func() {
			rdb.Close()
			db.Close()
		}
	}

	return db, compat.NewEngine(src, compat.WithLogger(config.Logger)), closeAll, nil
}
