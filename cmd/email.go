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

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yogendrarau/Matchify/internal/compat"
)

type EmailConfig struct {
	APIKey string
	From   string
	To     string
	DryRun bool
	Out    io.Writer
}

type SendResultConfig struct {
	Engine    EngineConfig
	Email     EmailConfig
	UserA     string
	UserB     string
	TimeRange compat.TimeRange
}

var emailCmd = &cobra.Command{
	Use:   "email <address> <user> <user>",
	Short: "Emails the compatibility of two users",
	Args:  cobra.ExactArgs(3),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("from") == "" {
			return fmt.Errorf("required flag(s) \"from\" not set")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		tr, err := configuredTimeRange()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		email := emailConfig()
		email.To = args[0]
		config := SendResultConfig{
			Engine:    engineConfig(),
			Email:     email,
			UserA:     strings.ToLower(args[1]),
			UserB:     strings.ToLower(args[2]),
			TimeRange: tr,
		}
		if err := sendResult(cmd.Context(), config); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(emailCmd)

	var dryRun bool
	emailCmd.Flags().BoolVarP(&dryRun, "dry_run", "n", false, "When true, just print instead of emailing")
	viper.BindPFlag("dryRun", emailCmd.Flags().Lookup("dry_run"))
}

func emailConfig() EmailConfig {
	return EmailConfig{
		APIKey: viper.GetString("sendgrid_api_key"),
		From:   viper.GetString("from"),
		DryRun: viper.GetBool("dryRun"),
		Out:    os.Stdout,
	}
}

func sendResult(ctx context.Context, config SendResultConfig) error {
	db, engine, closeAll, err := openEngine(ctx, config.Engine)
	if err != nil {
		return err
	}
	defer closeAll()

	res, err := engine.Compare(ctx, config.UserA, config.UserB, config.TimeRange)
	if err != nil {
		return err
	}
	if err := db.SaveResult(config.UserA, config.UserB, config.TimeRange, res, time.Now()); err != nil {
		return err
	}

	subject, text, body := generateEmailContent(config.UserA, config.UserB, res)
	return sendMail(config.Email, subject, text, body)
}

func generateEmailContent(userA, userB string, res compat.Result) (subject, text, body string) {
	analyses := resultAnalyses(userA, userB, res)

	var plain, html strings.Builder
	html.WriteString(`
<html>
  <head>
<style>
td {
  padding: 0.1em 0.2em;
}
table, th, td {
  border: 1px solid black;
  border-collapse: collapse;
}
</style>
  </head>
  <body>
`)
	for _, a := range analyses {
		plain.WriteString(a.String())
		plain.WriteString("\n")
		html.WriteString(a.HTML())
	}
	html.WriteString("  </body>\n</html>\n")

	subject = fmt.Sprintf("Music compatibility of %s and %s: %s", userA, userB, score(res.TotalScore))
	return subject, plain.String(), html.String()
}

func sendMail(config EmailConfig, subject, text, body string) error {
	if config.DryRun {
		fmt.Fprintf(config.Out, "Would have sent email to %s: \nsubject: %s\n%s\n", config.To, subject, text)
		return nil
	}
	if config.APIKey == "" || config.From == "" {
		return fmt.Errorf("sendgrid_api_key and from must be set in order to send emails")
	}

	from := mail.NewEmail("matchify", config.From)
	to := mail.NewEmail(config.To, config.To)
	message := mail.NewSingleEmail(from, subject, to, text, body)
	client := sendgrid.NewSendClient(config.APIKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sendEmail: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendEmail: sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
