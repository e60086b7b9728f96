package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/gaslens/gaslens/pkg/client"
)

// ErrInvalidAdminKey is returned when the server rejects an admin key
var ErrInvalidAdminKey = errors.New("invalid admin key")

// Credentials stores admin keys per server
type Credentials struct {
	Servers map[string]ServerCredential `yaml:"servers"`
}

// ServerCredential stores credentials for a single server
type ServerCredential struct {
	AdminKey string `yaml:"admin_key"`
	Name     string `yaml:"name,omitempty"`
}

func createAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Admin credential commands",
	}

	cmd.AddCommand(createAuthLoginCmd())
	cmd.AddCommand(createAuthLogoutCmd())
	cmd.AddCommand(createAuthStatusCmd())

	return cmd
}

func createAuthLoginCmd() *cobra.Command {
	var serverFlag string
	var keyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save the admin secret for a server",
		Long: `Save the admin secret for a GasLens server.

The key is checked against the admin API before it is stored in
~/.gaslens/credentials with owner-only permissions.

EXAMPLES:
  # Interactive login (prompts for the key)
  gaslens auth login

  # Login to a specific server
  gaslens auth login --server https://gaslens.example.com

  # Non-interactive login (for CI)
  gaslens auth login --admin-key $GASLENS_ADMIN_KEY
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogin(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), serverFlag, keyFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&keyFlag, "admin-key", "", "admin secret (prompts if not provided)")

	return cmd
}

func createAuthLogoutCmd() *cobra.Command {
	var serverFlag string
	var allFlag bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Clear credentials",
		Long: `Remove the saved admin secret for a server.

EXAMPLES:
  gaslens auth logout
  gaslens auth logout --server https://gaslens.example.com
  gaslens auth logout --all
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthLogout(cmd.OutOrStdout(), serverFlag, allFlag)
		},
	}

	cmd.Flags().StringVar(&serverFlag, "server", "", "server URL (default from config)")
	cmd.Flags().BoolVar(&allFlag, "all", false, "clear all credentials")

	return cmd
}

func createAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show saved credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuthStatus(cmd.OutOrStdout())
		},
	}
}

func runAuthLogin(ctx context.Context, out io.Writer, in io.Reader, serverURL, key string) error {
	if serverURL == "" {
		serverURL = getServer()
	}

	if key == "" {
		fmt.Fprintf(out, "Enter admin key for %s: ", serverURL)
		var err error
		key, err = readSecret(out, in)
		if err != nil {
			return fmt.Errorf("failed to read admin key: %w", err)
		}
	}
	if key == "" {
		return errors.New("admin key cannot be empty")
	}

	fmt.Fprintf(out, "Validating credentials with %s...\n", serverURL)
	if err := validateAdminKey(ctx, serverURL, key); err != nil {
		return err
	}

	if err := saveCredential(serverURL, key); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "Authenticated to %s (key: %s)\n", serverURL, maskKey(key))
	fmt.Fprintf(out, "  Credentials saved to %s\n", credentialsFilePath())
	return nil
}

// readSecret reads a line without echo when in is a terminal
func readSecret(out io.Writer, in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func runAuthLogout(out io.Writer, serverURL string, all bool) error {
	if all {
		if err := os.Remove(credentialsFilePath()); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		fmt.Fprintln(out, "All credentials cleared")
		return nil
	}

	if serverURL == "" {
		serverURL = getServer()
	}

	creds, err := loadCredentials()
	if os.IsNotExist(err) {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	if _, ok := creds.Servers[serverURL]; !ok {
		fmt.Fprintf(out, "No credentials found for %s\n", serverURL)
		return nil
	}
	delete(creds.Servers, serverURL)

	if err := writeCredentials(creds); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}

	fmt.Fprintf(out, "Logged out from %s\n", serverURL)
	return nil
}

func runAuthStatus(out io.Writer) error {
	creds, err := loadCredentials()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load credentials: %w", err)
	}
	if creds == nil || len(creds.Servers) == 0 {
		fmt.Fprintln(out, "No saved admin credentials")
		fmt.Fprintln(out, "\nRun 'gaslens auth login' to save one")
		return nil
	}

	servers := make([]string, 0, len(creds.Servers))
	for s := range creds.Servers {
		servers = append(servers, s)
	}
	sort.Strings(servers)

	fmt.Fprintln(out, "Saved admin credentials:")
	for _, s := range servers {
		cred := creds.Servers[s]
		if cred.Name != "" {
			fmt.Fprintf(out, "  %s (%s, key: %s)\n", s, cred.Name, maskKey(cred.AdminKey))
		} else {
			fmt.Fprintf(out, "  %s (key: %s)\n", s, maskKey(cred.AdminKey))
		}
	}
	return nil
}

// Credential file helpers

func credentialsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gaslens"
	}
	return filepath.Join(home, ".gaslens")
}

func credentialsFilePath() string {
	return filepath.Join(credentialsDir(), "credentials")
}

func loadCredentials() (*Credentials, error) {
	data, err := os.ReadFile(credentialsFilePath())
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	if creds.Servers == nil {
		creds.Servers = make(map[string]ServerCredential)
	}
	return &creds, nil
}

func writeCredentials(creds *Credentials) error {
	if err := os.MkdirAll(credentialsDir(), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(credentialsFilePath(), data, 0600)
}

func saveCredential(serverURL, key string) error {
	creds, err := loadCredentials()
	if os.IsNotExist(err) {
		creds = &Credentials{Servers: make(map[string]ServerCredential)}
	} else if err != nil {
		return err
	}

	creds.Servers[serverURL] = ServerCredential{AdminKey: key}
	return writeCredentials(creds)
}

func getCredential(serverURL string) string {
	creds, err := loadCredentials()
	if err != nil {
		return ""
	}
	return creds.Servers[serverURL].AdminKey
}

// validateAdminKey lists a single subscription with the key. Only a 401
// counts as a bad key; other errors are reported as they are.
func validateAdminKey(ctx context.Context, serverURL, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := client.New(serverURL, key).ListSubscriptions(ctx, 1, 0)
	switch {
	case client.IsUnauthorized(err):
		return ErrInvalidAdminKey
	case err != nil:
		return fmt.Errorf("failed to validate credentials: %w", err)
	}
	return nil
}

func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
