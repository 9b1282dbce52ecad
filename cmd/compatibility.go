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
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yogendrarau/Matchify/internal/compat"
)

type CompatConfig struct {
	Engine    EngineConfig
	UserA     string
	UserB     string
	TimeRange compat.TimeRange
	Format    string
	Out       io.Writer
}

var compatCmd = &cobra.Command{
	Use:   "compat <user> <user>",
	Short: "Scores how compatible two users' music tastes are",
	Long: `Compares both users' synced top artists, genres and tracks and prints a
calibrated 0-100 score with its breakdown. The result is also stored.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		tr, err := configuredTimeRange()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		config := CompatConfig{
			Engine:    engineConfig(),
			UserA:     strings.ToLower(args[0]),
			UserB:     strings.ToLower(args[1]),
			TimeRange: tr,
			Format:    viper.GetString("format"),
			Out:       os.Stdout,
		}
		if _, err := runCompat(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(compatCmd)

	var format string
	compatCmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")
	viper.BindPFlag("format", compatCmd.Flags().Lookup("format"))
}

func runCompat(ctx context.Context, config CompatConfig) (compat.Result, error) {
	db, engine, closeAll, err := openEngine(ctx, config.Engine)
	if err != nil {
		return compat.Result{}, err
	}
	defer closeAll()

	res, err := engine.Compare(ctx, config.UserA, config.UserB, config.TimeRange)
	if err != nil {
		return compat.Result{}, err
	}

	if err := db.SaveResult(config.UserA, config.UserB, config.TimeRange, res, time.Now()); err != nil {
		return compat.Result{}, err
	}

	if err := render(config.Out, config.Format, res, resultAnalyses(config.UserA, config.UserB, res)); err != nil {
		return compat.Result{}, err
	}
	return res, nil
}
