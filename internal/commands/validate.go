package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"evalgo.org/gridmapper/internal/validation"
	"evalgo.org/gridmapper/pkg/gridmapper/client"
)

var (
	validateRemote bool
	validateAPIURL string
	validateToken  string
	validateAPIKey string
)

var validateCmd = &cobra.Command{
	Use:   "validate [request.json]",
	Short: "Validate a map generation request",
	Long: `Validate a map generation request document without generating maps.

Examples:
  gridmapper validate request.json
  gridmapper validate request.json --remote --api-url http://maps.example.org:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateRemote, "remote", false, "validate against a running server")
	validateCmd.Flags().StringVar(&validateAPIURL, "api-url", "", "server URL (default: from server config)")
	validateCmd.Flags().StringVar(&validateToken, "token", "", "JWT sent as bearer token")
	validateCmd.Flags().StringVar(&validateAPIKey, "api-key", "", "API key sent in the X-API-Key header")
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var result *validation.ValidationResult
	if validateRemote {
		result, err = remoteValidation(cmd.Context(), data)
	} else {
		result, err = localValidation(data)
	}
	if err != nil {
		return err
	}

	return printValidation(cmd.OutOrStdout(), result)
}

func localValidation(data []byte) (*validation.ValidationResult, error) {
	tables, err := loadTables()
	if err != nil {
		return nil, err
	}
	_, result := validation.New(tables).ValidateRequestJSON(data)
	return result, nil
}

func remoteValidation(ctx context.Context, data []byte) (*validation.ValidationResult, error) {
	apiURL := validateAPIURL
	if apiURL == "" {
		apiURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	var opts []client.Option
	if validateToken != "" {
		opts = append(opts, client.WithToken(validateToken))
	}
	if validateAPIKey != "" {
		opts = append(opts, client.WithAPIKey(validateAPIKey))
	}
	opts = append(opts, client.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))

	c, err := client.New(apiURL, opts...)
	if err != nil {
		return nil, err
	}
	return c.Validate(ctx, data)
}

func printValidation(w io.Writer, result *validation.ValidationResult) error {
	if result.Valid {
		fmt.Fprintln(w, "✓ Request is valid")
		return nil
	}

	fmt.Fprintln(w, "✗ Validation failed:")
	for _, e := range result.Errors {
		if e.Value != nil {
			fmt.Fprintf(w, "  - %s: %s (value: %v)\n", e.Field, e.Message, e.Value)
		} else {
			fmt.Fprintf(w, "  - %s: %s\n", e.Field, e.Message)
		}
	}

	return fmt.Errorf("validation failed")
}
