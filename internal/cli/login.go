package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omramin/omramin/internal/config"
	"github.com/omramin/omramin/internal/globals"
	"github.com/omramin/omramin/omron"
)

var (
	loginEmail    string
	loginPassword string
	loginServer   string
	loginRegion   string
	loginCountry  string
	loginToken    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store account credentials and tokens",
}

var loginOmronCmd = &cobra.Command{
	Use:   "omron",
	Short: "Log in to OMRON connect",
	Long: `Log in to OMRON connect and store the refresh token in the settings
file. The server endpoint is resolved from --server, --region or
--country, in that order; email and password fall back to the
OMRAMIN_OMRON_EMAIL and OMRAMIN_OMRON_PASSWORD environment variables
(a .env file is honored).`,
	Run: runLoginOmron,
}

var loginGarminCmd = &cobra.Command{
	Use:   "garmin",
	Short: "Store a Garmin Connect token",
	Long: `Store a Garmin Connect OAuth token in the settings file. The token is
treated as opaque; obtain it with your usual Garmin session tooling or
pass it via OMRAMIN_GARMIN_TOKEN.`,
	Run: runLoginGarmin,
}

func runLoginOmron(cmd *cobra.Command, args []string) {
	settings := globals.Settings

	email := firstNonEmpty(loginEmail, os.Getenv("OMRAMIN_OMRON_EMAIL"), settings.Omron.EmailAddress)
	password := firstNonEmpty(loginPassword, os.Getenv("OMRAMIN_OMRON_PASSWORD"))
	country := firstNonEmpty(loginCountry, settings.Omron.Country)

	server := loginServer
	if server == "" && loginRegion != "" {
		server = omron.ServerForRegion(loginRegion)
		if server == "" {
			fmt.Fprintf(os.Stderr, "Error: unknown region %q\n", loginRegion)
			os.Exit(1)
		}
	}
	if server == "" && country != "" {
		server = omron.ServerForCountryCode(country)
	}
	server = firstNonEmpty(server, settings.Omron.Server, config.DefaultOmronServer)

	if email == "" || password == "" {
		fmt.Fprintln(os.Stderr, "Error: email and password are required")
		os.Exit(1)
	}

	client := omron.NewClient(server)
	refreshToken, err := client.Login(context.Background(), email, password, country)
	if err != nil {
		globals.Logger.Error("Failed to login to OMRON connect", "error", err)
		fmt.Fprintf(os.Stderr, "Error: login failed: %v\n", err)
		os.Exit(1)
	}

	settings.Omron.Server = server
	settings.Omron.Country = country
	settings.Omron.EmailAddress = email
	settings.Omron.RefreshToken = refreshToken
	if err := settings.Save(); err != nil {
		globals.Logger.Error("Failed to save settings", "error", err)
		fmt.Fprintf(os.Stderr, "Error: failed to save settings: %v\n", err)
		os.Exit(1)
	}

	globals.Logger.Info("Logged in to OMRON connect", "server", server)
}

func runLoginGarmin(cmd *cobra.Command, args []string) {
	settings := globals.Settings

	token := firstNonEmpty(loginToken, os.Getenv("OMRAMIN_GARMIN_TOKEN"))
	if token == "" {
		fmt.Fprintln(os.Stderr, "Error: a token is required (--token or OMRAMIN_GARMIN_TOKEN)")
		os.Exit(1)
	}

	settings.Garmin.Token = token
	if loginServer != "" {
		settings.Garmin.BaseURL = loginServer
	}
	if err := settings.Save(); err != nil {
		globals.Logger.Error("Failed to save settings", "error", err)
		fmt.Fprintf(os.Stderr, "Error: failed to save settings: %v\n", err)
		os.Exit(1)
	}

	globals.Logger.Info("Stored Garmin Connect token")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.AddCommand(loginOmronCmd)
	loginCmd.AddCommand(loginGarminCmd)

	loginOmronCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginOmronCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")
	loginOmronCmd.Flags().StringVar(&loginServer, "server", "", "API endpoint URL")
	loginOmronCmd.Flags().StringVar(&loginRegion, "region", "", "Account region (e.g. EUROPE)")
	loginOmronCmd.Flags().StringVar(&loginCountry, "country", "", "ISO country code (e.g. DE)")

	loginGarminCmd.Flags().StringVar(&loginToken, "token", "", "OAuth token")
	loginGarminCmd.Flags().StringVar(&loginServer, "server", "", "API endpoint URL")
}
