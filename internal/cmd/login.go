package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nhle/bidboard/internal/credential"
	"github.com/nhle/bidboard/internal/ui/login"
)

func loginCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := readConfig()
			if err != nil {
				return err
			}

			logger, logCloser, err := setupLogger(conf, false)
			if err != nil {
				return err
			}
			defer logCloser()

			creds, err := credential.Open()
			if err != nil {
				return err
			}

			fields := login.Fields{Email: email}
			if errForm := login.NewForm(&fields).Run(); errForm != nil {
				if errors.Is(errForm, huh.ErrUserAborted) {
					return nil
				}
				return fmt.Errorf("reading credentials: %w", errForm)
			}

			client := newClient(conf, creds, logger)

			ctx, cancel := context.WithTimeout(context.Background(), conf.RequestTimeout())
			defer cancel()

			resp, err := client.Login(ctx, fields.Request())
			if err != nil {
				return err
			}
			if err := creds.SaveLogin(resp.Token, resp.RefreshToken); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", resp.User.DisplayName(), resp.User.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "prefill the email address")

	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session tokens",
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := credential.Open()
			if err != nil {
				return err
			}
			if err := creds.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
