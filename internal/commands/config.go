package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"evalgo.org/gridmapper/internal/auth"
)

var (
	initConfigPath  string
	initConfigForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var showConfigCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Print the effective configuration (defaults, file and GM_* environment merged). Secrets are masked.`,
	RunE:  runShowConfig,
}

var initConfigCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	RunE:  runInitConfig,
}

func init() {
	initConfigCmd.Flags().StringVar(&initConfigPath, "path", "config.yaml", "file to write")
	initConfigCmd.Flags().BoolVar(&initConfigForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(showConfigCmd)
	configCmd.AddCommand(initConfigCmd)
}

func runShowConfig(cmd *cobra.Command, args []string) error {
	shown := *cfg
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	shown.Storage.SigningSecret = mask(shown.Storage.SigningSecret)
	shown.Storage.SecretAccessKey = mask(shown.Storage.SecretAccessKey)
	shown.Security.JWTSecret = mask(shown.Security.JWTSecret)

	data, err := yaml.Marshal(&shown)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

const defaultConfig = `# Grid Mapper Configuration

server:
  host: 0.0.0.0
  port: 8080
  read_timeout: 30s
  write_timeout: 5m
  shutdown_timeout: 10s
  body_limit: 10M
  # base URL the filesystem store signs download links for
  public_base_url: http://localhost:8080
  debug: false

generation:
  timeout: 4m30s
  max_log_bytes: 5242880
  fallback_threshold: 0.5

render:
  workers: 4
  width: 1600
  marker_radius: 5

storage:
  # filesystem or s3
  backend: filesystem
  path: ./maps
  signing_secret: "{{signing_secret}}"
  url_ttl: 1h
  # filesystem maps older than this are deleted; 0 keeps them
  retention: 24h
  prune_interval: 15m
  # s3 settings
  bucket: ""
  region: us-east-1
  prefix: ""
  endpoint: ""
  use_path_style: false

refdata:
  # empty uses the built-in band plan and continent boxes
  bands_file: ""
  continents_file: ""

logging:
  level: info
  format: json
  output: stdout

security:
  rate_limit: 100
  allowed_origins:
    - "*"
  auth_enabled: false
  jwt_secret: "{{jwt_secret}}"
  jwt_expiration: 24h
  api_key_hashes: []
`

// renderDefaultConfig fills the template with freshly generated secrets.
func renderDefaultConfig() (string, error) {
	signing, err := auth.GenerateSecret()
	if err != nil {
		return "", err
	}
	jwtSecret, err := auth.GenerateSecret()
	if err != nil {
		return "", err
	}
	return strings.NewReplacer(
		"{{signing_secret}}", signing,
		"{{jwt_secret}}", jwtSecret,
	).Replace(defaultConfig), nil
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initConfigPath); err == nil && !initConfigForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initConfigPath)
	}

	content, err := renderDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(initConfigPath, []byte(content), 0o600); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", initConfigPath)
	return nil
}
