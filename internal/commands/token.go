package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/auth"
	"evalgo.org/gridmapper/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API credentials",
	Long:  `Issue JWT tokens and API keys for the generate endpoint.`,
}

var generateJWTCmd = &cobra.Command{
	Use:   "jwt [client]",
	Short: "Issue a JWT for a client",
	Long: `Issue a JWT signed with security.jwt_secret.

Examples:
  gridmapper token jwt contest-site
  gridmapper token jwt contest-site --expiration 720
  gridmapper token jwt contest-site --secret "my-custom-secret"`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerateJWT,
}

var generateAPIKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Create an API key and its hash",
	Long: `Create a random API key. The key goes to the client; the bcrypt hash
goes into security.api_key_hashes.`,
	Args: cobra.NoArgs,
	RunE: runGenerateAPIKey,
}

var (
	tokenExpiration int64
	tokenSecret     string
	tokenScopes     []string
)

func init() {
	generateJWTCmd.Flags().Int64Var(&tokenExpiration, "expiration", 0, "token expiration in hours (default: security.jwt_expiration)")
	generateJWTCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret (default: from config file)")
	generateJWTCmd.Flags().StringSliceVar(&tokenScopes, "scope", []string{auth.ScopeGenerate}, "scopes granted by the token")

	tokenCmd.AddCommand(generateJWTCmd)
	tokenCmd.AddCommand(generateAPIKeyCmd)
}

func runGenerateJWT(cmd *cobra.Command, args []string) error {
	client := args[0]

	security := cfg.Security
	if tokenSecret != "" {
		security.JWTSecret = tokenSecret
	}
	if security.JWTSecret == "" {
		return fmt.Errorf(`jwt_secret not found in config file and --secret not provided

Please either:
  1. Add to your config.yaml:
     security:
       jwt_secret: your-secret-here

  2. Or use the --secret flag:
     gridmapper token jwt %s --secret "your-secret-here"`, client)
	}
	if tokenExpiration > 0 {
		security.JWTExpiration = time.Duration(tokenExpiration) * time.Hour
	}

	token, err := auth.NewJWTService(&config.Config{Security: security}).GenerateToken(client, tokenScopes...)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Token issued for %s\n", client)
	fmt.Fprintf(w, "Scopes:     %v\n", tokenScopes)
	fmt.Fprintf(w, "Expiration: %s\n", security.JWTExpiration)
	fmt.Fprintf(w, "\n%s\n\n", token)
	fmt.Fprintf(w, "Send it as: Authorization: Bearer <token>\n")
	return nil
}

func runGenerateAPIKey(cmd *cobra.Command, args []string) error {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}
	hash, err := auth.HashAPIKey(key)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "API key (give to the client, shown once):\n  %s\n\n", key)
	fmt.Fprintf(w, "Add the hash to your configuration:\n")
	fmt.Fprintf(w, "  security:\n    api_key_hashes:\n      - %q\n\n", hash)
	fmt.Fprintf(w, "Send it as: %s: <key>\n", auth.HeaderAPIKey)
	return nil
}
