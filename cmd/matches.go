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

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yogendrarau/Matchify/internal/compat"
)

type MatchesConfig struct {
	Engine    EngineConfig
	User      string
	TimeRange compat.TimeRange
	Limit     int
	MinScore  float64
	Format    string
	Out       io.Writer
}

var matchesCmd = &cobra.Command{
	Use:   "matches <user>",
	Short: "Ranks every other user by compatibility",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tr, err := configuredTimeRange()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		config := MatchesConfig{
			Engine:    engineConfig(),
			User:      strings.ToLower(args[0]),
			TimeRange: tr,
			Limit:     viper.GetInt("limit"),
			MinScore:  viper.GetFloat64("min_score"),
			Format:    viper.GetString("matches_format"),
			Out:       os.Stdout,
		}
		if _, err := runMatches(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(matchesCmd)

	var limit int
	matchesCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of matches to return, 0 for all")
	viper.BindPFlag("limit", matchesCmd.Flags().Lookup("limit"))

	var minScore float64
	matchesCmd.Flags().Float64Var(&minScore, "min_score", 0, "Only return matches scoring at least this much")
	viper.BindPFlag("min_score", matchesCmd.Flags().Lookup("min_score"))

	var format string
	matchesCmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")
	viper.BindPFlag("matches_format", matchesCmd.Flags().Lookup("format"))
}

func runMatches(ctx context.Context, config MatchesConfig) ([]compat.Match, error) {
	db, engine, closeAll, err := openEngine(ctx, config.Engine)
	if err != nil {
		return nil, err
	}
	defer closeAll()

	users, err := db.Users()
	if err != nil {
		return nil, err
	}

	matches, err := engine.RankMatches(ctx, config.User, users, config.TimeRange, config.Limit, config.MinScore)
	if err != nil {
		return nil, fmt.Errorf("ranking matches: %w", err)
	}

	if err := render(config.Out, config.Format, matches, []Analysis{matchesAnalysis(config.User, matches)}); err != nil {
		return nil, err
	}
	return matches, nil
}
