package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gaslens/gaslens/pkg/client"
)

const defaultServer = "http://localhost:8080"

var (
	cfgFile  string
	server   string
	adminKey string
)

// Execute runs the CLI
func Execute(version string) error {
	rootCmd := &cobra.Command{
		Use:     "gaslens",
		Short:   "Ethereum gas prices and swap cost comparison",
		Long:    `GasLens is a CLI for checking gas prices, comparing swap costs across protocols, and managing GasLens subscriptions.`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: gaslens.toml)")
	rootCmd.PersistentFlags().StringVar(&server, "server", "", "server URL (default from config)")
	rootCmd.PersistentFlags().StringVar(&adminKey, "admin-key", "", "admin secret for admin commands")

	// Add subcommands
	rootCmd.AddCommand(createGasCmd())
	rootCmd.AddCommand(createFeesCmd())
	rootCmd.AddCommand(createCompareCmd())
	rootCmd.AddCommand(createQuoteCmd())
	rootCmd.AddCommand(createPricesCmd())
	rootCmd.AddCommand(createStatusCmd())
	rootCmd.AddCommand(createVerifyCmd())
	rootCmd.AddCommand(createAdminCmd())
	rootCmd.AddCommand(createAuthCmd())
	rootCmd.AddCommand(createConfigCmd())
	rootCmd.AddCommand(createVersionCmd(version))

	return rootCmd.Execute()
}

// getServer returns the server URL from flag, env, config file, or default
func getServer() string {
	// 1. Command line flag
	if server != "" {
		return server
	}

	// 2. Environment variable
	if env := os.Getenv("GASLENS_SERVER"); env != "" {
		return env
	}

	// 3. Project config file (TOML)
	if config := loadProjectConfigSilent(); config != nil && config.Server != "" {
		return config.Server
	}

	// 4. Default
	return defaultServer
}

// getAdminKey returns the admin secret from flag, env, or credentials file
func getAdminKey() string {
	// 1. Command line flag
	if adminKey != "" {
		return adminKey
	}

	// 2. Environment variable
	if env := os.Getenv("GASLENS_ADMIN_KEY"); env != "" {
		return env
	}

	// 3. Credentials file (keyed by server URL)
	return getCredential(getServer())
}

func newClient() *client.Client {
	return client.New(getServer(), getAdminKey())
}
