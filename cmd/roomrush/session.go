package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Veraticus/roomrush/internal/cli"
	"github.com/Veraticus/roomrush/internal/common"
)

// cookieEnvKey is the environment name viper maps onto portal.cookie.
const cookieEnvKey = "ROOMRUSH_PORTAL_COOKIE"

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Check or obtain the portal session cookie",
	}

	cmd.AddCommand(sessionCheckCmd())
	cmd.AddCommand(sessionLoginCmd())

	return cmd
}

func sessionCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that the configured cookie is still accepted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := loadSettings()
			client, err := newPortalClient(settings)
			if err != nil {
				return common.NewUserError("no portal cookie configured; run 'roomrush session login'", err)
			}

			if err := client.CheckSession(cmd.Context()); err != nil {
				if errors.Is(err, common.ErrCredentialInvalid) {
					fmt.Println(cli.FormatError("Session expired or invalid. Run 'roomrush session login' for a new cookie."))
				}
				return err
			}

			fmt.Println(cli.FormatSuccess(cli.KeyIcon + " Session is valid"))
			return nil
		},
	}
}

func sessionLoginCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the browser and capture the session cookie",
		Long: `Open the portal login page in Chrome, fill in the configured account and
wait for you to solve the captcha. The resulting session cookie is printed
and, with --save, written to the .env file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := loadSettings()
			// A stale cookie would skip the login page.
			settings.Portal.Cookie = ""

			ctx := cmd.Context()
			transport, closeBrowser, err := newBrowserTransport(ctx, settings)
			if err != nil {
				return err
			}
			defer closeBrowser()

			fmt.Println(cli.FormatInfo("Complete the login in the browser window..."))
			cookie, err := transport.Login(ctx)
			if err != nil {
				return err
			}

			fmt.Println(cli.FormatSuccess("Logged in"))
			fmt.Println(cookie)

			if envFile == "" {
				return nil
			}
			if err := saveCookie(envFile, cookie); err != nil {
				return err
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Saved %s to %s", cookieEnvKey, envFile)))
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "save", "", "write the cookie to this .env file")
	cmd.Flags().Lookup("save").NoOptDefVal = ".env"

	return cmd
}

// saveCookie sets the cookie in an env file, keeping its other entries.
func saveCookie(path, cookie string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		env = map[string]string{}
	}
	env[cookieEnvKey] = cookie
	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
