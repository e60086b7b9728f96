package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// projectConfigFiles is the search order for project config files
var projectConfigFiles = []string{"gaslens.toml", ".gaslens.toml"}

// ProjectConfig is the project-level TOML configuration
type ProjectConfig struct {
	Server   string         `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults,omitempty"`
}

// DefaultsConfig holds the swap used when fees, compare and quote get no flags
type DefaultsConfig struct {
	TokenIn     string  `toml:"token_in,omitempty"`
	TokenOut    string  `toml:"token_out,omitempty"`
	Amount      string  `toml:"amount,omitempty"`
	GasPrice    float64 `toml:"gas_price,omitempty"`
	Aggregators *bool   `toml:"aggregators,omitempty"`
}

// swapDefaults returns the configured swap defaults, filling gaps with ETH -> USDC, 1
func swapDefaults() DefaultsConfig {
	d := DefaultsConfig{TokenIn: "ETH", TokenOut: "USDC", Amount: "1"}
	config := loadProjectConfigSilent()
	if config == nil {
		return d
	}
	if config.Defaults.TokenIn != "" {
		d.TokenIn = config.Defaults.TokenIn
	}
	if config.Defaults.TokenOut != "" {
		d.TokenOut = config.Defaults.TokenOut
	}
	if config.Defaults.Amount != "" {
		d.Amount = config.Defaults.Amount
	}
	d.GasPrice = config.Defaults.GasPrice
	d.Aggregators = config.Defaults.Aggregators
	return d
}

func createConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(createConfigInitCmd())
	cmd.AddCommand(createConfigShowCmd())

	return cmd
}

func createConfigInitCmd() *cobra.Command {
	var serverURL string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create config file",
		Long: `Create a gaslens.toml configuration file in the current directory.

This file stores the server URL and the default swap used by the
fees, compare and quote commands.

EXAMPLES:
  # Create config with default server
  gaslens config init

  # Create config for a specific server
  gaslens config init --server https://gaslens.example.com

  # Overwrite existing config
  gaslens config init --force
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), serverURL, force)
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer, "server URL")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")

	return cmd
}

func createConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current config",
		Long: `Display the current configuration and where each value comes from.

EXAMPLES:
  gaslens config show
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigInit(out io.Writer, serverURL string, force bool) error {
	configPath := projectConfigFiles[0]

	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil && !force {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", name)
		}
	}

	content := fmt.Sprintf(`# GasLens CLI configuration

server = "%s"

# Swap used by 'gaslens fees', 'gaslens compare' and 'gaslens quote'
# when no flags are given
[defaults]
token_in = "ETH"
token_out = "USDC"
amount = "1"
# gas_price = 30
# aggregators = true
`, serverURL)

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created %s\n", configPath)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Server: %s\n", serverURL)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintf(out, "  1. Edit %s to change the default swap\n", configPath)
	fmt.Fprintln(out, "  2. Run 'gaslens compare' to rank swap routes")

	return nil
}

func runConfigShow(out io.Writer) error {
	fmt.Fprintln(out, "Configuration sources (in order of precedence):")
	fmt.Fprintln(out)

	// 1. Command line flags
	fmt.Fprintln(out, "1. Command line flags")
	fmt.Fprintln(out, "   --server, --admin-key, --config")
	fmt.Fprintln(out)

	// 2. Environment variables
	fmt.Fprintln(out, "2. Environment variables")
	if env := os.Getenv("GASLENS_SERVER"); env != "" {
		fmt.Fprintf(out, "   GASLENS_SERVER=%s\n", env)
	} else {
		fmt.Fprintln(out, "   GASLENS_SERVER=(not set)")
	}
	if env := os.Getenv("GASLENS_ADMIN_KEY"); env != "" {
		fmt.Fprintf(out, "   GASLENS_ADMIN_KEY=%s\n", maskKey(env))
	} else {
		fmt.Fprintln(out, "   GASLENS_ADMIN_KEY=(not set)")
	}
	fmt.Fprintln(out)

	// 3. Project config
	fmt.Fprintln(out, "3. Project config (gaslens.toml)")
	projectConfig, configPath, err := loadProjectConfig()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	default:
		fmt.Fprintf(out, "   Loaded from: %s\n", configPath)
		if projectConfig.Server != "" {
			fmt.Fprintf(out, "   server: %s\n", projectConfig.Server)
		}
		d := projectConfig.Defaults
		if d.TokenIn != "" || d.TokenOut != "" {
			fmt.Fprintf(out, "   defaults: %s %s -> %s\n", d.Amount, d.TokenIn, d.TokenOut)
		}
	}
	fmt.Fprintln(out)

	// 4. Credentials
	fmt.Fprintln(out, "4. Credentials (~/.gaslens/credentials)")
	creds, err := loadCredentials()
	switch {
	case os.IsNotExist(err):
		fmt.Fprintln(out, "   (not found)")
	case err != nil:
		fmt.Fprintf(out, "   Error: %v\n", err)
	case len(creds.Servers) == 0:
		fmt.Fprintln(out, "   (no credentials stored)")
	default:
		for server, cred := range creds.Servers {
			fmt.Fprintf(out, "   %s: %s\n", server, maskKey(cred.AdminKey))
		}
	}
	fmt.Fprintln(out)

	// Effective config
	fmt.Fprintln(out, "Effective configuration:")
	fmt.Fprintf(out, "   Server:    %s\n", getServer())
	if key := getAdminKey(); key != "" {
		fmt.Fprintf(out, "   Admin key: %s\n", maskKey(key))
	} else {
		fmt.Fprintln(out, "   Admin key: (not set)")
	}

	return nil
}

// loadProjectConfig loads the project config from the first matching config file.
// Returns the config, the path it was loaded from, and an error.
func loadProjectConfig() (*ProjectConfig, string, error) {
	// If --config flag was provided, use that directly
	if cfgFile != "" {
		config, err := loadProjectConfigFromPath(cfgFile)
		if err != nil {
			return nil, cfgFile, err
		}
		return config, cfgFile, nil
	}

	for _, name := range projectConfigFiles {
		if _, err := os.Stat(name); err == nil {
			config, err := loadProjectConfigFromPath(name)
			if err != nil {
				return nil, name, err
			}
			return config, name, nil
		}
	}
	return nil, "", os.ErrNotExist
}

// loadProjectConfigFromPath loads a project config from a specific path
func loadProjectConfigFromPath(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config ProjectConfig
	if _, err := toml.Decode(string(data), &config); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}

	return &config, nil
}

// loadProjectConfigSilent loads the project config without returning errors for missing files.
// Parse failures are reported on stderr.
func loadProjectConfigSilent() *ProjectConfig {
	config, _, err := loadProjectConfig()
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load project config: %v\n", err)
		}
		return nil
	}
	return config
}
