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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/yogendrarau/Matchify/internal/cache"
	"github.com/yogendrarau/Matchify/internal/compat"
	"github.com/yogendrarau/Matchify/internal/logging"
	"github.com/yogendrarau/Matchify/internal/spotify"
	"github.com/yogendrarau/Matchify/internal/store"
)

type SyncConfig struct {
	DbPath    string
	Users     []string
	All       bool
	Force     bool
	TimeRange compat.TimeRange
	Spotify   spotify.Config
	RedisAddr string

	// Interval spaces out requests for consecutive users.
	Interval time.Duration
	Logger   zerolog.Logger
	Out      io.Writer
}

var syncCmd = &cobra.Command{
	Use:   "sync [user...]",
	Short: "Fetches top artists and tracks from Spotify",
	Long: `Stores each user's top 50 artists and tracks for the time range in the
local SQLite database. Users must have run 'authenticate' first.`,
	Run: func(cmd *cobra.Command, args []string) {
		tr, err := configuredTimeRange()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		users := make([]string, 0, len(args))
		for _, a := range args {
			users = append(users, strings.ToLower(a))
		}
		config := SyncConfig{
			DbPath:    viper.GetString("database"),
			Users:     users,
			All:       viper.GetBool("all"),
			Force:     viper.GetBool("force"),
			TimeRange: tr,
			Spotify:   spotifyConfig(),
			RedisAddr: viper.GetString("redis_addr"),
			Interval:  time.Second,
			Logger:    logging.Logger(),
			Out:       os.Stdout,
		}
		if err := runSync(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	var all bool
	syncCmd.Flags().BoolVar(&all, "all", false, "Sync every user in the database")
	viper.BindPFlag("all", syncCmd.Flags().Lookup("all"))

	var force bool
	syncCmd.Flags().BoolVarP(&force, "force", "f", false, "Sync even if the user was synced in the past 24 hours")
	viper.BindPFlag("force", syncCmd.Flags().Lookup("force"))
}

func runSync(ctx context.Context, config SyncConfig) error {
	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	users := config.Users
	if config.All {
		users, err = db.Users()
		if err != nil {
			return err
		}
	}
	if len(users) == 0 {
		return fmt.Errorf("no users to sync: pass a user or --all")
	}

	var profileCache *cache.Source
	if config.RedisAddr != "" {
		rdb, err := cache.NewClient(ctx, config.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		profileCache = cache.New(nil, rdb)
	}

	client := spotify.New(config.Spotify, spotify.WithLogger(config.Logger))
	interval := config.Interval
	if interval <= 0 {
		interval = time.Second
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)

	var errs []error
	for _, user := range users {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		err := syncUser(ctx, db, client, user, config)
		if err == nil && profileCache != nil {
			err = profileCache.Invalidate(ctx, user, config.TimeRange)
		}
		if err != nil {
			config.Logger.Error().Err(err).Str("user", user).Msg("sync failed")
			errs = append(errs, fmt.Errorf("syncing %q: %w", user, err))
		}
	}
	return errors.Join(errs...)
}

func syncUser(ctx context.Context, db *store.Store, client *spotify.Client, user string, config SyncConfig) error {
	synced, err := db.SnapshotSynced(user, config.TimeRange)
	if err != nil {
		return err
	}
	now := time.Now()
	if !synced.IsZero() && now.Sub(synced).Hours() < 24 && !config.Force {
		fmt.Fprintf(config.Out, "%s was already synced in the past 24 hours\n", user)
		return nil
	}
	lastSynced, err := db.LastSynced(user)
	if err != nil {
		return err
	}
	if !lastSynced.IsZero() {
		fmt.Fprintf(config.Out, "%s was last synced: %s\n", user, lastSynced.Format("2006-01-02"))
	}

	token, err := db.Token(user)
	if err != nil {
		return fmt.Errorf("run 'authenticate %s' first: %w", user, err)
	}

	profile, err := client.Profile(ctx, token, config.TimeRange)
	if err != nil {
		return err
	}

	if err := db.SaveArtists(user, config.TimeRange, profile.Artists, now); err != nil {
		return err
	}
	if err := db.SaveTracks(user, config.TimeRange, profile.Tracks, now); err != nil {
		return err
	}
	if err := db.SetLastSynced(user, now); err != nil {
		return err
	}

	fmt.Fprintf(config.Out, "Synced %d artists and %d tracks for %s (%s)\n",
		len(profile.Artists), len(profile.Tracks), user, config.TimeRange)
	return nil
}
