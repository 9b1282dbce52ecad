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
	"github.com/yogendrarau/Matchify/internal/store"
)

type SummaryConfig struct {
	DbPath    string
	User      string
	TimeRange compat.TimeRange
	Format    string
	Out       io.Writer
}

var summaryCmd = &cobra.Command{
	Use:   "summary <user>",
	Short: "Summarizes a user's music taste",
	Long:  `Prints the user's most common genres, top artists and top tracks.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		tr, err := configuredTimeRange()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		config := SummaryConfig{
			DbPath:    viper.GetString("database"),
			User:      strings.ToLower(args[0]),
			TimeRange: tr,
			Format:    viper.GetString("summary_format"),
			Out:       os.Stdout,
		}
		if _, err := runSummary(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)

	var format string
	summaryCmd.Flags().StringVarP(&format, "format", "o", formatTable, "Output format: table, yaml or json")
	viper.BindPFlag("summary_format", summaryCmd.Flags().Lookup("format"))
}

func runSummary(ctx context.Context, config SummaryConfig) (compat.TasteSummary, error) {
	db, err := store.New(config.DbPath)
	if err != nil {
		return compat.TasteSummary{}, fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	profile, err := db.Profile(ctx, config.User, config.TimeRange)
	if err != nil {
		return compat.TasteSummary{}, fmt.Errorf("run 'sync %s' first: %w", config.User, err)
	}

	summary := compat.Summarize(profile)
	if err := render(config.Out, config.Format, summary, summaryAnalyses(config.User, summary)); err != nil {
		return compat.TasteSummary{}, err
	}
	return summary, nil
}
