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
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"

	"github.com/yogendrarau/Matchify/internal/spotify"
	"github.com/yogendrarau/Matchify/internal/store"
)

// tokenExchanger is the part of the Spotify client authenticate needs.
type tokenExchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

type AuthenticateConfig struct {
	DbPath string
	User   string
	Email  EmailConfig
	In     io.Reader
	Out    io.Writer
}

var authenticateCmd = &cobra.Command{
	Use:   "authenticate <user> [email]",
	Short: "Stores a Spotify token for the given user.",
	Long: `Prints (or, with an email address, sends) the Spotify authorization link,
then reads back the redirect URL or code and stores the user's token.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		config := AuthenticateConfig{
			DbPath: viper.GetString("database"),
			User:   strings.ToLower(args[0]),
			Email:  emailConfig(),
			In:     os.Stdin,
			Out:    os.Stdout,
		}
		if len(args) == 2 {
			config.Email.To = args[1]
		}
		client := spotify.New(spotifyConfig())
		if err := authenticate(cmd.Context(), client, config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(authenticateCmd)
}

func authenticate(ctx context.Context, client tokenExchanger, config AuthenticateConfig) error {
	db, err := store.New(config.DbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	authURL := client.AuthURL(config.User)
	if config.Email.To != "" {
		body := "Click here to connect Spotify to matchify: " + authURL
		if err := sendMail(config.Email, "Connect Spotify to matchify", body, body); err != nil {
			return err
		}
		fmt.Fprintln(config.Out, "Sent authorization email.")
	} else {
		fmt.Fprintf(config.Out, "Visit this URL to authorize matchify:\n%s\n", authURL)
	}

	fmt.Fprint(config.Out, "Paste the URL you were redirected to (or just the code): ")
	line, err := bufio.NewReader(config.In).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading authorization code: %w", err)
	}
	code, err := authorizationCode(line)
	if err != nil {
		return err
	}

	token, err := client.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if err := db.SaveToken(config.User, token); err != nil {
		return err
	}

	fmt.Fprintf(config.Out, "Successfully authenticated %q\n", config.User)
	return nil
}

// authorizationCode accepts either a bare code or the full redirect URL.
func authorizationCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URL: %w", err)
	}
	if e := u.Query().Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL has no code")
	}
	return code, nil
}
